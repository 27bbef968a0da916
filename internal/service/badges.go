package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"backend/internal/models"
	"backend/internal/repository"
)

// AwardForLessonCompletion awards every badge triggered by finishing the
// lesson, plus module-completion badges when this lesson closed out its
// module. Best-effort batch: one badge's failure lands in the error list
// without blocking independent badges in the same call.
//
// Awarding does not re-check achievements; after a non-empty result the
// caller is responsible for CheckAndAward with the badge_earned trigger.
func (s *AchievementService) AwardForLessonCompletion(ctx context.Context, userID uint, lessonID, moduleID string, moduleComplete bool) (*models.BadgeAwardResult, error) {
	candidates, err := s.store.GetBadgesByTrigger(ctx, models.BadgeLessonComplete, lessonID)
	if err != nil {
		return nil, err
	}

	if moduleComplete && moduleID != "" {
		moduleBadges, err := s.store.GetBadgesByTrigger(ctx, models.BadgeModuleComplete, moduleID)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, moduleBadges...)
	}

	return s.awardBatch(ctx, userID, candidates)
}

// AwardForQuizCompletion awards quiz badges whose required mastery tier is
// met by the achieved tier. Parent-quiz badges fire on the parent id when
// one is supplied.
func (s *AchievementService) AwardForQuizCompletion(ctx context.Context, userID uint, quizID string, tier models.MasteryTier, percentage float64, parentQuiz string) (*models.BadgeAwardResult, error) {
	if !tier.Valid() {
		return nil, fmt.Errorf("invalid mastery tier %q", tier)
	}

	candidates, err := s.store.GetBadgesByTrigger(ctx, models.BadgeQuizMastery, quizID)
	if err != nil {
		return nil, err
	}

	if parentQuiz != "" {
		parentBadges, err := s.store.GetBadgesByTrigger(ctx, models.BadgeParentQuizMastery, parentQuiz)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, parentBadges...)
	}

	eligible := candidates[:0]
	for _, b := range candidates {
		if tier.AtLeast(b.RequiredTier) {
			eligible = append(eligible, b)
		}
	}

	return s.awardBatch(ctx, userID, eligible)
}

// awardBatch inserts the not-yet-earned subset of candidates as UserBadge
// rows. Failures are reported per badge and skipped; duplicates (including
// concurrent ones caught by the unique index) are silent no-ops.
func (s *AchievementService) awardBatch(ctx context.Context, userID uint, candidates []models.Badge) (*models.BadgeAwardResult, error) {
	result := &models.BadgeAwardResult{Awarded: []models.BadgeAward{}}
	if len(candidates) == 0 {
		return result, nil
	}

	earned, err := s.store.GetUserBadges(ctx, userID)
	if err != nil {
		return nil, err
	}
	earnedSet := make(map[uint]bool, len(earned))
	for _, ub := range earned {
		earnedSet[ub.BadgeID] = true
	}

	now := time.Now().UTC()
	totalXP := 0

	for _, b := range candidates {
		if earnedSet[b.ID] {
			continue
		}
		earnedSet[b.ID] = true // a badge can appear twice via two triggers

		ub := models.UserBadge{
			UserID:   userID,
			BadgeID:  b.ID,
			EarnedAt: now,
		}
		if err := s.store.InsertUserBadge(ctx, &ub); err != nil {
			if errors.Is(err, repository.ErrAlreadyAwarded) {
				continue
			}
			log.Printf("failed to award badge %d to user %d: %v", b.ID, userID, err)
			result.Errors = append(result.Errors, fmt.Sprintf("badge %d (%s): %v", b.ID, b.Name, err))
			continue
		}

		result.Awarded = append(result.Awarded, models.BadgeAward{
			BadgeID:  b.ID,
			Name:     b.Name,
			XPValue:  b.XPValue,
			EarnedAt: now,
		})
		totalXP += b.XPValue
	}

	if totalXP > 0 {
		if err := s.store.AddXP(ctx, userID, totalXP); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("xp credit: %v", err))
		} else {
			s.invalidate(ctx)
		}
	}

	return result, nil
}
