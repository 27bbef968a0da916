package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backend/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	// VersionKey tracks the leaderboard generation. Invalidation bumps it,
	// orphaning every cached page of the previous generation; the TTL
	// reclaims the orphans.
	VersionKey = "leaderboard:version"

	// pageKeyFormat is leaderboard:v<version>:page:<offset>:<limit>
	pageKeyFormat = "leaderboard:v%d:page:%d:%d"
)

// RedisRepository is the short-lived read cache for leaderboard pages.
// It is never authoritative: no write decision (awards, claims) ever
// consults it, and every entry expires on its own.
type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRepository creates a new Redis repository
func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{
		client: client,
		ttl:    ttl,
	}
}

// GetLeaderboardPage returns a cached page, or (nil, nil) on a miss.
// Cache failures degrade to a miss; the store remains the source of truth.
func (r *RedisRepository) GetLeaderboardPage(ctx context.Context, offset, limit int) (*models.LeaderboardResponse, error) {
	key, err := r.pageKey(ctx, offset, limit)
	if err != nil {
		return nil, nil
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, nil
	}

	var page models.LeaderboardResponse
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, nil
	}
	return &page, nil
}

// SetLeaderboardPage caches one page under the current generation
func (r *RedisRepository) SetLeaderboardPage(ctx context.Context, offset, limit int, page *models.LeaderboardResponse) error {
	key, err := r.pageKey(ctx, offset, limit)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(page)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, raw, r.ttl).Err()
}

// InvalidateLeaderboard bumps the generation counter. Called after
// recalculation passes and XP-changing events.
func (r *RedisRepository) InvalidateLeaderboard(ctx context.Context) error {
	return r.client.Incr(ctx, VersionKey).Err()
}

// GetLeaderboardVersion returns the current generation number
func (r *RedisRepository) GetLeaderboardVersion(ctx context.Context) (int64, error) {
	version, err := r.client.Get(ctx, VersionKey).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return version, nil
}

func (r *RedisRepository) pageKey(ctx context.Context, offset, limit int) (string, error) {
	version, err := r.GetLeaderboardVersion(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(pageKeyFormat, version, offset, limit), nil
}

// Ping checks if Redis is reachable
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
