package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"backend/internal/models"
	"backend/internal/rank"
	"backend/internal/repository"
)

// AwardStore is the persistence surface the achievement and badge logic
// needs. Insert methods must enforce per-pair uniqueness and surface a
// duplicate as repository.ErrAlreadyAwarded.
type AwardStore interface {
	GetUser(ctx context.Context, userID uint) (*models.User, error)
	AddXP(ctx context.Context, userID uint, delta int) error

	GetActiveAchievements(ctx context.Context, types []models.AchievementType) ([]models.Achievement, error)
	GetUserAchievements(ctx context.Context, userID uint) ([]models.UserAchievement, error)
	InsertUserAchievement(ctx context.Context, ua *models.UserAchievement) error
	MarkNotificationsSeen(ctx context.Context, userID uint) error

	GetBadgesByTrigger(ctx context.Context, triggerType models.BadgeTriggerType, triggerValue string) ([]models.Badge, error)
	GetUserBadges(ctx context.Context, userID uint) ([]models.UserBadge, error)
	CountUserBadgesByType(ctx context.Context, userID uint, badgeType models.BadgeTriggerType) (int64, error)
	CountBadgesByType(ctx context.Context, badgeType models.BadgeTriggerType) (int64, error)
	InsertUserBadge(ctx context.Context, ub *models.UserBadge) error
}

// Invalidator drops cached leaderboard pages after an XP-changing write.
// The cache is read-only plumbing; a nil Invalidator is valid.
type Invalidator interface {
	InvalidateLeaderboard(ctx context.Context) error
}

// AchievementService implements idempotent trigger-based awarding for both
// achievements and badges. Awarding never re-invokes checking on its own;
// callers drive the two-phase fan-out explicitly.
type AchievementService struct {
	store AwardStore
	cache Invalidator
}

// NewAchievementService creates a new achievement service
func NewAchievementService(store AwardStore, cache Invalidator) *AchievementService {
	return &AchievementService{
		store: store,
		cache: cache,
	}
}

// AwardContext carries trigger-specific facts the criteria evaluation may
// need beyond what is persisted on the user row.
type AwardContext struct {
	// ProfileCompleteness is a 0-100 percentage supplied by profile
	// update events; profile achievements stay unevaluated without it.
	ProfileCompleteness *int
}

// typesForTrigger maps a trigger to the achievement types it can satisfy.
// A nil result means every type (the resync trigger).
func typesForTrigger(trigger models.TriggerType) []models.AchievementType {
	switch trigger {
	case models.TriggerRankPromotion:
		return []models.AchievementType{models.AchievementRank}
	case models.TriggerBadgeEarned:
		return []models.AchievementType{models.AchievementBadgeMilestone}
	case models.TriggerQuestWeek:
		return []models.AchievementType{models.AchievementStreak, models.AchievementXP}
	case models.TriggerProfileUpdate:
		return []models.AchievementType{models.AchievementProfile}
	case models.TriggerXPGained:
		return []models.AchievementType{models.AchievementXP}
	default:
		return nil
	}
}

// CheckAndAward evaluates every active achievement matching the trigger
// against current state and awards the newly satisfied ones. The insert is
// guarded by the (user, achievement) uniqueness invariant, so a concurrent
// duplicate becomes a no-op rather than a double award. Accumulated XP is
// applied to the user in the same step.
func (s *AchievementService) CheckAndAward(ctx context.Context, userID uint, trigger models.TriggerType, actx AwardContext) (*models.AwardResult, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	achievements, err := s.store.GetActiveAchievements(ctx, typesForTrigger(trigger))
	if err != nil {
		return nil, err
	}

	earned, err := s.store.GetUserAchievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	earnedSet := make(map[uint]bool, len(earned))
	for _, ua := range earned {
		earnedSet[ua.AchievementID] = true
	}

	result := &models.AwardResult{NewAchievements: []models.AchievementAward{}}
	now := time.Now().UTC()

	for _, a := range achievements {
		if earnedSet[a.ID] {
			continue
		}

		satisfied, err := s.satisfies(ctx, user, a, actx)
		if err != nil {
			log.Printf("achievement %d criteria check failed for user %d: %v", a.ID, userID, err)
			continue
		}
		if !satisfied {
			continue
		}

		ua := models.UserAchievement{
			UserID:        userID,
			AchievementID: a.ID,
			EarnedAt:      now,
			XPAwarded:     a.XPReward,
		}
		if err := s.store.InsertUserAchievement(ctx, &ua); err != nil {
			if errors.Is(err, repository.ErrAlreadyAwarded) {
				// lost a race with a concurrent trigger; already earned
				continue
			}
			log.Printf("failed to award achievement %d to user %d: %v", a.ID, userID, err)
			continue
		}

		result.NewAchievements = append(result.NewAchievements, models.AchievementAward{
			AchievementID: a.ID,
			Name:          a.Name,
			XPAwarded:     a.XPReward,
			EarnedAt:      now,
		})
		result.XPAwarded += a.XPReward
	}

	if result.XPAwarded > 0 {
		if err := s.store.AddXP(ctx, userID, result.XPAwarded); err != nil {
			return nil, err
		}
		s.invalidate(ctx)
	}

	return result, nil
}

// satisfies evaluates one achievement's criteria against current state
func (s *AchievementService) satisfies(ctx context.Context, user *models.User, a models.Achievement, actx AwardContext) (bool, error) {
	switch a.Type {
	case models.AchievementRank:
		// the ratchet, not the current rank, decides: a demotion never
		// un-satisfies a rank achievement
		best := rank.Ordinal(user.HighestRankEver)
		if cur := rank.Ordinal(user.CurrentRank); cur > best {
			best = cur
		}
		return best >= a.CriteriaValue, nil

	case models.AchievementBadgeMilestone:
		progress, err := s.milestoneProgress(ctx, user.ID, a)
		if err != nil {
			return false, err
		}
		return progress >= 1.0, nil

	case models.AchievementProfile:
		if actx.ProfileCompleteness == nil {
			return false, nil
		}
		return *actx.ProfileCompleteness >= a.CriteriaValue, nil

	case models.AchievementStreak:
		return user.LongestStreak >= a.CriteriaValue, nil

	case models.AchievementXP:
		return user.TotalXP >= a.CriteriaValue, nil

	default:
		return false, fmt.Errorf("unknown achievement type %q", a.Type)
	}
}

// milestoneProgress computes earned/target for a badge_milestone
// achievement. A targetCount of "all" resolves against the live catalog,
// so progress can move when the catalog changes even without new earns.
func (s *AchievementService) milestoneProgress(ctx context.Context, userID uint, a models.Achievement) (float64, error) {
	var criteria models.MilestoneCriteria
	if err := json.Unmarshal(a.CriteriaData, &criteria); err != nil {
		return 0, fmt.Errorf("malformed milestone criteria: %w", err)
	}

	var target int64
	switch v := criteria.TargetCount.(type) {
	case string:
		if v != "all" {
			return 0, fmt.Errorf("unknown milestone target %q", v)
		}
		total, err := s.store.CountBadgesByType(ctx, criteria.BadgeType)
		if err != nil {
			return 0, err
		}
		target = total
	case float64:
		target = int64(v)
	default:
		return 0, fmt.Errorf("unknown milestone target type %T", criteria.TargetCount)
	}

	if target <= 0 {
		return 0, nil
	}

	earned, err := s.store.CountUserBadgesByType(ctx, userID, criteria.BadgeType)
	if err != nil {
		return 0, err
	}

	progress := float64(earned) / float64(target)
	if progress > 1.0 {
		progress = 1.0
	}
	return progress, nil
}

// ListWithStatus annotates the active catalog with the user's earned state
// and progress; backs the client profile screens and the resync endpoint.
func (s *AchievementService) ListWithStatus(ctx context.Context, userID uint) ([]models.AchievementStatus, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	achievements, err := s.store.GetActiveAchievements(ctx, nil)
	if err != nil {
		return nil, err
	}

	earned, err := s.store.GetUserAchievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	earnedAt := make(map[uint]time.Time, len(earned))
	for _, ua := range earned {
		earnedAt[ua.AchievementID] = ua.EarnedAt
	}

	statuses := make([]models.AchievementStatus, 0, len(achievements))
	for _, a := range achievements {
		st := models.AchievementStatus{Achievement: a}
		if at, ok := earnedAt[a.ID]; ok {
			st.Earned = true
			t := at
			st.EarnedAt = &t
			st.Progress = 1.0
		} else {
			st.Progress = s.progressFor(ctx, user, a)
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// progressFor gives a best-effort 0..1 progress for an unearned achievement
func (s *AchievementService) progressFor(ctx context.Context, user *models.User, a models.Achievement) float64 {
	clamp := func(v float64) float64 {
		if v > 1.0 {
			return 1.0
		}
		if v < 0 {
			return 0
		}
		return v
	}

	switch a.Type {
	case models.AchievementRank:
		if a.CriteriaValue <= 0 {
			return 0
		}
		best := rank.Ordinal(user.HighestRankEver)
		if cur := rank.Ordinal(user.CurrentRank); cur > best {
			best = cur
		}
		return clamp(float64(best) / float64(a.CriteriaValue))
	case models.AchievementBadgeMilestone:
		progress, err := s.milestoneProgress(ctx, user.ID, a)
		if err != nil {
			return 0
		}
		return clamp(progress)
	case models.AchievementStreak:
		if a.CriteriaValue <= 0 {
			return 0
		}
		return clamp(float64(user.LongestStreak) / float64(a.CriteriaValue))
	case models.AchievementXP:
		if a.CriteriaValue <= 0 {
			return 0
		}
		return clamp(float64(user.TotalXP) / float64(a.CriteriaValue))
	default:
		return 0
	}
}

// MarkNotificationsSeen clears the unseen flag on the user's awards
func (s *AchievementService) MarkNotificationsSeen(ctx context.Context, userID uint) error {
	return s.store.MarkNotificationsSeen(ctx, userID)
}

func (s *AchievementService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateLeaderboard(ctx); err != nil {
		log.Printf("leaderboard cache invalidation failed: %v", err)
	}
}
