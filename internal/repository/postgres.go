package repository

import (
	"context"
	"errors"
	"time"

	"backend/internal/apperr"
	"backend/internal/models"

	"gorm.io/gorm"
)

// ErrAlreadyAwarded signals a duplicate award insert. Callers treat it as
// "already earned, no-op", never as a failure.
var ErrAlreadyAwarded = errors.New("already awarded")

// PostgresRepository handles all PostgreSQL operations
type PostgresRepository struct {
	db *gorm.DB
}

// NewPostgresRepository creates a new Postgres repository
func NewPostgresRepository(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// GetUser retrieves a user by id
func (r *PostgresRepository) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "user not found")
		}
		return nil, apperr.Internal(err)
	}
	return &user, nil
}

// GetActiveUsersRanked loads the full active population in leaderboard
// order: total XP descending, account age as the tie-break (older wins).
func (r *PostgresRepository) GetActiveUsersRanked(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("total_xp DESC, created_at ASC").
		Find(&users).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}

// GetLeaderboardPage loads one page of the active population in rank order
func (r *PostgresRepository) GetLeaderboardPage(ctx context.Context, offset, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("total_xp DESC, created_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}

// CountActiveUsers returns the size of the active population
func (r *PostgresRepository) CountActiveUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("is_active = ?", true).Count(&count).Error
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return count, nil
}

// RankUpdate carries the persisted outcome of one user's recalculation
type RankUpdate struct {
	UserID              uint
	LeaderboardPosition int
	CurrentRank         string
	HighestRankEver     string
	RankAchievedAt      *time.Time // nil when the rank did not change
}

// ApplyRankUpdate persists one user's recalculated rank fields.
// rank_achieved_at is only touched on an actual rank change.
func (r *PostgresRepository) ApplyRankUpdate(ctx context.Context, upd RankUpdate) error {
	cols := map[string]interface{}{
		"leaderboard_position": upd.LeaderboardPosition,
		"current_rank":         upd.CurrentRank,
		"highest_rank_ever":    upd.HighestRankEver,
	}
	if upd.RankAchievedAt != nil {
		cols["rank_achieved_at"] = *upd.RankAchievedAt
	}

	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", upd.UserID).
		Updates(cols).Error
	if err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// AddXP atomically increments a user's total XP
func (r *PostgresRepository) AddXP(ctx context.Context, userID uint, delta int) error {
	if delta == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("total_xp", gorm.Expr("total_xp + ?", delta)).Error
	if err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// Ping checks if database is reachable
func (r *PostgresRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate runs database migrations
func (r *PostgresRepository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&models.User{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.Badge{},
		&models.UserBadge{},
		&models.WeeklyQuestProgress{},
		&models.DutyPassUnlock{},
	)
}
