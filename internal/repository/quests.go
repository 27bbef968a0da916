package repository

import (
	"context"
	"errors"
	"time"

	"backend/internal/apperr"
	"backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetWeek loads one user's progress row for a week key
func (r *PostgresRepository) GetWeek(ctx context.Context, userID uint, weekStart time.Time) (*models.WeeklyQuestProgress, error) {
	var week models.WeeklyQuestProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND week_start_date = ?", userID, weekStart).
		First(&week).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "no quest progress for this week")
		}
		return nil, apperr.Internal(err)
	}
	return &week, nil
}

// EnsureWeek creates the week row if it does not exist yet. Safe under
// concurrent first-requests of a new week; the loser of the race reads the
// winner's row.
func (r *PostgresRepository) EnsureWeek(ctx context.Context, userID uint, weekStart time.Time) (*models.WeeklyQuestProgress, error) {
	week := models.WeeklyQuestProgress{
		UserID:        userID,
		WeekStartDate: weekStart,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&week).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return r.GetWeek(ctx, userID, weekStart)
}

// CompleteDay appends day to the week's completed set with set semantics.
// The update is a compare-and-swap on the previous set value, so two
// concurrent submissions of the same day can only count once. Returns true
// when the day was newly added, false when it was already present.
func (r *PostgresRepository) CompleteDay(ctx context.Context, userID uint, weekStart time.Time, day models.QuestDay) (bool, error) {
	load := func() (models.QuestDaySet, error) {
		week, err := r.GetWeek(ctx, userID, weekStart)
		if err != nil {
			return nil, err
		}
		return week.CompletedDays, nil
	}

	swap := func(prev, next models.QuestDaySet) (bool, error) {
		res := r.db.WithContext(ctx).
			Model(&models.WeeklyQuestProgress{}).
			Where("user_id = ? AND week_start_date = ? AND completed_days = ?",
				userID, weekStart, prev.String()).
			Updates(map[string]interface{}{
				"completed_days":         next.String(),
				"total_quests_completed": gorm.Expr("total_quests_completed + 1"),
			})
		if res.Error != nil {
			return false, apperr.Internal(res.Error)
		}
		return res.RowsAffected == 1, nil
	}

	return completeDayCAS(day, load, swap)
}

// completeDayCAS runs the bounded compare-and-swap rounds behind
// CompleteDay. A swap only lands when the stored set still equals the set
// the round read, so a concurrent submission costs a retry, never a lost
// or double-counted day.
func completeDayCAS(day models.QuestDay, load func() (models.QuestDaySet, error), swap func(prev, next models.QuestDaySet) (bool, error)) (bool, error) {
	const maxAttempts = 3

	for attempt := 0; attempt < maxAttempts; attempt++ {
		days, err := load()
		if err != nil {
			return false, err
		}

		if days.Has(day) {
			return false, nil
		}

		swapped, err := swap(days, days.With(day))
		if err != nil {
			return false, err
		}
		if swapped {
			return true, nil
		}
		// lost a race against a concurrent submission; re-read and retry
	}

	return false, apperr.New(apperr.KindConflict, "quest day update contention, try again")
}

// ClaimWeeklyReward marks the week claimed and credits the tiered XP in one
// transaction. The reward_claimed guard makes a second claim a conflict.
func (r *PostgresRepository) ClaimWeeklyReward(ctx context.Context, userID uint, weekStart time.Time, rewardXP int, now time.Time) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.WeeklyQuestProgress{}).
			Where("user_id = ? AND week_start_date = ? AND reward_claimed = ?", userID, weekStart, false).
			Updates(map[string]interface{}{
				"reward_claimed": true,
				"reward_xp":      rewardXP,
				"claimed_at":     now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.New(apperr.KindConflict, "reward already claimed this week")
		}

		return tx.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumn("total_xp", gorm.Expr("total_xp + ?", rewardXP)).Error
	})
	if err != nil {
		if apperr.KindOf(err) != apperr.KindInternal {
			return err
		}
		return apperr.Internal(err)
	}
	return nil
}

// ClaimDutyPass credits one pass if none was claimed since weekStart.
// The timestamp comparison is the once-per-week gate; a claim at or after
// the current week start blocks a second claim.
func (r *PostgresRepository) ClaimDutyPass(ctx context.Context, userID uint, weekStart, now time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND (last_duty_pass_claim IS NULL OR last_duty_pass_claim < ?)", userID, weekStart).
		Updates(map[string]interface{}{
			"duty_passes":          gorm.Expr("duty_passes + 1"),
			"last_duty_pass_claim": now,
		})
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.KindConflict, "duty pass already claimed this week")
	}
	return nil
}

// SpendDutyPass atomically decrements the pass counter and records the
// unlock row. One decrement pairs with exactly one new unlock row; a
// duplicate unlock for the same day rolls the decrement back.
func (r *PostgresRepository) SpendDutyPass(ctx context.Context, userID uint, weekStart time.Time, day models.QuestDay, now time.Time) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND duty_passes > 0", userID).
			UpdateColumn("duty_passes", gorm.Expr("duty_passes - 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.New(apperr.KindConflict, "no duty passes available")
		}

		unlock := models.DutyPassUnlock{
			UserID:        userID,
			WeekStartDate: weekStart,
			QuestDay:      day,
			UnlockedAt:    now,
		}
		ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&unlock)
		if ins.Error != nil {
			return ins.Error
		}
		if ins.RowsAffected == 0 {
			// returning an error aborts the transaction, restoring the pass
			return apperr.Newf(apperr.KindConflict, "%s is already unlocked this week", day)
		}
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) != apperr.KindInternal {
			return err
		}
		return apperr.Internal(err)
	}
	return nil
}

// GetDutyPassUnlocks returns the days unlocked for the given week
func (r *PostgresRepository) GetDutyPassUnlocks(ctx context.Context, userID uint, weekStart time.Time) (models.QuestDaySet, error) {
	var unlocks []models.DutyPassUnlock
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND week_start_date = ?", userID, weekStart).
		Find(&unlocks).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}

	days := make(models.QuestDaySet, 0, len(unlocks))
	for _, u := range unlocks {
		days = days.With(u.QuestDay)
	}
	return days, nil
}

// UpdateStreakState persists rollover results on the user row
func (r *PostgresRepository) UpdateStreakState(ctx context.Context, userID uint, currentStreak, longestStreak int, weekStart time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"current_streak":          currentStreak,
			"longest_streak":          longestStreak,
			"weekly_quest_start_date": weekStart,
		}).Error
	if err != nil {
		return apperr.Internal(err)
	}
	return nil
}
