package service

import (
	"context"
	"log"

	"backend/internal/models"
	"backend/internal/rank"
)

// LeaderboardStore is the read surface for leaderboard listings
type LeaderboardStore interface {
	GetLeaderboardPage(ctx context.Context, offset, limit int) ([]models.User, error)
	CountActiveUsers(ctx context.Context) (int64, error)
}

// PageCache is the non-authoritative read-through cache for listings.
// A miss or cache failure always falls through to the store.
type PageCache interface {
	GetLeaderboardPage(ctx context.Context, offset, limit int) (*models.LeaderboardResponse, error)
	SetLeaderboardPage(ctx context.Context, offset, limit int, page *models.LeaderboardResponse) error
}

// LeaderboardService serves paginated listings with a short-TTL cache in
// front of the store. The cache is never consulted for write decisions.
type LeaderboardService struct {
	store LeaderboardStore
	cache PageCache
}

// NewLeaderboardService creates a new leaderboard service
func NewLeaderboardService(store LeaderboardStore, cache PageCache) *LeaderboardService {
	return &LeaderboardService{
		store: store,
		cache: cache,
	}
}

// GetLeaderboard returns one page of the leaderboard, cache-aside
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, offset, limit int) (*models.LeaderboardResponse, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	if s.cache != nil {
		if page, err := s.cache.GetLeaderboardPage(ctx, offset, limit); err == nil && page != nil {
			return page, nil
		}
	}

	users, err := s.store.GetLeaderboardPage(ctx, offset, limit)
	if err != nil {
		return nil, err
	}

	total, err := s.store.CountActiveUsers(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]models.LeaderboardEntry, 0, len(users))
	for i, u := range users {
		position := offset + i + 1
		entries = append(entries, models.LeaderboardEntry{
			Position:        position,
			Username:        u.Username,
			CompetitiveRank: rank.CompetitiveRankForPosition(position, int(total)).Name,
			TotalXP:         u.TotalXP,
			Level:           u.Level(),
		})
	}

	page := &models.LeaderboardResponse{
		Data:   entries,
		Offset: offset,
		Limit:  limit,
		Total:  total,
	}

	if s.cache != nil {
		if err := s.cache.SetLeaderboardPage(ctx, offset, limit, page); err != nil {
			log.Printf("leaderboard cache write failed: %v", err)
		}
	}

	return page, nil
}
