package models

import (
	"time"
)

// WeeklyQuestProgress is one user's quest state for one Mon-Fri window.
// Identity is (user_id, week_start_date); prior weeks are kept as history
// and never overwritten.
type WeeklyQuestProgress struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	UserID        uint      `gorm:"not null;uniqueIndex:idx_user_week" json:"user_id"`
	WeekStartDate time.Time `gorm:"not null;uniqueIndex:idx_user_week" json:"week_start_date"`

	CompletedDays        QuestDaySet `gorm:"type:text;not null;default:''" json:"completed_days"`
	TotalQuestsCompleted int         `gorm:"not null;default:0" json:"total_quests_completed"`

	RewardClaimed bool       `gorm:"not null;default:false" json:"reward_claimed"`
	RewardXP      int        `gorm:"not null;default:0" json:"reward_xp"`
	ClaimedAt     *time.Time `json:"claimed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (WeeklyQuestProgress) TableName() string {
	return "weekly_quest_progress"
}

// DutyPassUnlock is an append-only audit row. Its existence within the
// current week window is the sole access grant for replaying a missed day.
type DutyPassUnlock struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	UserID        uint      `gorm:"not null;uniqueIndex:idx_pass_unlock" json:"user_id"`
	WeekStartDate time.Time `gorm:"not null;uniqueIndex:idx_pass_unlock" json:"week_start_date"`
	QuestDay      QuestDay  `gorm:"not null;uniqueIndex:idx_pass_unlock" json:"quest_day"`
	UnlockedAt    time.Time `gorm:"not null" json:"unlocked_at"`
}

// TableName specifies the table name for GORM
func (DutyPassUnlock) TableName() string {
	return "duty_pass_unlocks"
}

// Weekly reward tiers by distinct completed days at claim time.
// Five of five pays a perfect-week bonus above the linear progression.
var RewardTiers = map[int]int{
	1: 50,
	2: 100,
	3: 150,
	4: 200,
	5: 300,
}

// RewardForDays returns the XP for claiming with n completed days
func RewardForDays(n int) int {
	return RewardTiers[n]
}
