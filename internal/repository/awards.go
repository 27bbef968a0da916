package repository

import (
	"context"

	"backend/internal/apperr"
	"backend/internal/models"

	"gorm.io/gorm/clause"
)

// GetActiveAchievements loads active catalog achievements, optionally
// filtered to a set of types, in display order.
func (r *PostgresRepository) GetActiveAchievements(ctx context.Context, types []models.AchievementType) ([]models.Achievement, error) {
	q := r.db.WithContext(ctx).Where("is_active = ?", true)
	if len(types) > 0 {
		q = q.Where("type IN ?", types)
	}

	var achievements []models.Achievement
	if err := q.Order("sort_order ASC, id ASC").Find(&achievements).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return achievements, nil
}

// GetUserAchievements loads everything a user has earned
func (r *PostgresRepository) GetUserAchievements(ctx context.Context, userID uint) ([]models.UserAchievement, error) {
	var earned []models.UserAchievement
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&earned).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return earned, nil
}

// InsertUserAchievement creates the award row exactly once per
// (user, achievement) pair. A concurrent duplicate surfaces as
// ErrAlreadyAwarded via the unique index, never as a double award.
func (r *PostgresRepository) InsertUserAchievement(ctx context.Context, ua *models.UserAchievement) error {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(ua)
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyAwarded
	}
	return nil
}

// MarkNotificationsSeen flips notification_seen on all of a user's awards
func (r *PostgresRepository) MarkNotificationsSeen(ctx context.Context, userID uint) error {
	err := r.db.WithContext(ctx).
		Model(&models.UserAchievement{}).
		Where("user_id = ? AND notification_seen = ?", userID, false).
		UpdateColumn("notification_seen", true).Error
	if err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// GetBadgesByTrigger loads active badges matching one trigger
func (r *PostgresRepository) GetBadgesByTrigger(ctx context.Context, triggerType models.BadgeTriggerType, triggerValue string) ([]models.Badge, error) {
	var badges []models.Badge
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND trigger_type = ? AND trigger_value = ?", true, triggerType, triggerValue).
		Find(&badges).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return badges, nil
}

// GetUserBadges loads a user's earned badges
func (r *PostgresRepository) GetUserBadges(ctx context.Context, userID uint) ([]models.UserBadge, error) {
	var earned []models.UserBadge
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&earned).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return earned, nil
}

// CountUserBadgesByType counts a user's earned badges of one trigger type;
// the numerator of badge-milestone progress.
func (r *PostgresRepository) CountUserBadgesByType(ctx context.Context, userID uint, badgeType models.BadgeTriggerType) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserBadge{}).
		Joins("JOIN badges ON badges.id = user_badges.badge_id").
		Where("user_badges.user_id = ? AND badges.trigger_type = ?", userID, badgeType).
		Count(&count).Error
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return count, nil
}

// CountBadgesByType counts the live catalog for one trigger type; the
// denominator of "all"-target milestones, so it moves with the catalog.
func (r *PostgresRepository) CountBadgesByType(ctx context.Context, badgeType models.BadgeTriggerType) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Badge{}).
		Where("is_active = ? AND trigger_type = ?", true, badgeType).
		Count(&count).Error
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return count, nil
}

// InsertUserBadge mirrors InsertUserAchievement for badges
func (r *PostgresRepository) InsertUserBadge(ctx context.Context, ub *models.UserBadge) error {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(ub)
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyAwarded
	}
	return nil
}
