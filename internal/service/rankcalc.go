package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"backend/internal/models"
	"backend/internal/rank"
	"backend/internal/repository"
	"backend/internal/worker"
)

// RankStore is the persistence surface the rank calculator needs
type RankStore interface {
	GetUser(ctx context.Context, userID uint) (*models.User, error)
	GetActiveUsersRanked(ctx context.Context) ([]models.User, error)
	CountActiveUsers(ctx context.Context) (int64, error)
	ApplyRankUpdate(ctx context.Context, upd repository.RankUpdate) error
}

// Persister hands per-user writes to the worker pool. A nil Persister
// makes the pass fully synchronous (tests, seeder).
type Persister interface {
	Submit(task worker.Task) error
}

// RankService recomputes leaderboard positions and both rank tracks for
// the whole active population. It always recomputes from first principles
// rather than applying deltas, which is what makes a pass safely
// re-runnable.
type RankService struct {
	store        RankStore
	achievements *AchievementService
	persister    Persister
	cache        Invalidator
}

// NewRankService creates a new rank service
func NewRankService(store RankStore, achievements *AchievementService, persister Persister, cache Invalidator) *RankService {
	return &RankService{
		store:        store,
		achievements: achievements,
		persister:    persister,
		cache:        cache,
	}
}

// RecalculateAll assigns 1-based positions over (totalXP desc, createdAt
// asc), computes both rank tracks per user, classifies each change, and
// persists the outcome. Per-user write failures are logged and skipped;
// the pass continues. Promotions that cross a registered rank achievement
// fire the rank_promotion trigger after the persist lands.
func (s *RankService) RecalculateAll(ctx context.Context) ([]models.RankChange, error) {
	users, err := s.store.GetActiveUsersRanked(ctx)
	if err != nil {
		return nil, err
	}

	total := len(users)
	changes := make([]models.RankChange, 0, total)
	now := time.Now().UTC()

	for i := range users {
		u := users[i]
		position := i + 1

		newTier := rank.CompetitiveRankForPosition(position, total)
		oldOrdinal := rank.Ordinal(u.CurrentRank)

		var kind models.RankChangeKind
		switch {
		case newTier.Ordinal > oldOrdinal:
			kind = models.RankPromoted
		case newTier.Ordinal < oldOrdinal:
			kind = models.RankDemoted
		default:
			kind = models.RankMaintained
		}

		// ratchet: the ordinal of highestRankEver never decreases
		highest := u.HighestRankEver
		if newTier.Ordinal > rank.Ordinal(highest) {
			highest = newTier.Name
		}

		upd := repository.RankUpdate{
			UserID:              u.ID,
			LeaderboardPosition: position,
			CurrentRank:         newTier.Name,
			HighestRankEver:     highest,
		}
		if kind != models.RankMaintained {
			t := now
			upd.RankAchievedAt = &t
		}

		s.persist(ctx, u.ID, upd, kind)

		changes = append(changes, models.RankChange{
			UserID:   u.ID,
			Username: u.Username,
			Position: position,
			OldRank:  u.CurrentRank,
			NewRank:  newTier.Name,
			Change:   kind,
		})
	}

	s.invalidate(ctx)
	return changes, nil
}

// persist writes one user's outcome, via the pool when one is attached.
// Promotion triggers run after the persist so the achievement check sees
// the new rank fields.
func (s *RankService) persist(ctx context.Context, userID uint, upd repository.RankUpdate, kind models.RankChangeKind) {
	run := func(taskCtx context.Context) error {
		if err := s.store.ApplyRankUpdate(taskCtx, upd); err != nil {
			return err
		}
		if kind == models.RankPromoted && s.achievements != nil {
			if _, err := s.achievements.CheckAndAward(taskCtx, userID, models.TriggerRankPromotion, AwardContext{}); err != nil {
				return fmt.Errorf("rank_promotion check: %w", err)
			}
		}
		return nil
	}

	if s.persister == nil {
		if err := run(ctx); err != nil {
			log.Printf("rank persist failed for user %d, skipping: %v", userID, err)
		}
		return
	}

	task := worker.Task{
		Label: fmt.Sprintf("rank-update user=%d", userID),
		Run:   run,
	}
	if err := s.persister.Submit(task); err != nil {
		// backpressure: this user keeps stale rank fields until the next
		// pass recomputes them from scratch
		log.Printf("rank persist dropped for user %d: %v", userID, err)
	}
}

// GetUserRank builds the rank card read model. It calls the same pure
// functions the recalculation pass uses, so the displayed rank can never
// diverge from what recalculation would produce.
func (s *RankService) GetUserRank(ctx context.Context, userID uint) (*models.RankCard, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	total, err := s.store.CountActiveUsers(ctx)
	if err != nil {
		return nil, err
	}

	// position 0 means no recalculation has ranked this user yet
	competitiveName := user.CurrentRank
	if user.LeaderboardPosition >= 1 {
		competitiveName = rank.CompetitiveRankForPosition(user.LeaderboardPosition, int(total)).Name
	} else if competitiveName == "" {
		competitiveName = rank.BottomTier().Name
	}
	progress := rank.BaseProgress(user.TotalXP)

	return &models.RankCard{
		Position:        user.LeaderboardPosition,
		CompetitiveRank: competitiveName,
		BaseRank:        progress.Current.Name,
		TotalXP:         user.TotalXP,
		Level:           user.Level(),
		XPToNextRank:    progress.XPToNextRank,
	}, nil
}

func (s *RankService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateLeaderboard(ctx); err != nil {
		log.Printf("leaderboard cache invalidation failed: %v", err)
	}
}
