package models

import (
	"time"
)

// XPPerLevel is the flat XP cost of each level
const XPPerLevel = 100

// User represents a learner in the progression system.
// TotalXP never decreases outside administrative corrections, and
// HighestRankEver only ever ratchets upward.
type User struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`

	TotalXP             int        `gorm:"not null;default:0;index" json:"total_xp"`
	CurrentRank         string     `gorm:"not null;default:''" json:"current_rank"`
	HighestRankEver     string     `gorm:"not null;default:''" json:"highest_rank_ever"`
	LeaderboardPosition int        `gorm:"not null;default:0" json:"leaderboard_position"`
	RankAchievedAt      *time.Time `json:"rank_achieved_at,omitempty"`

	CurrentStreak        int        `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak        int        `gorm:"not null;default:0" json:"longest_streak"`
	DutyPasses           int        `gorm:"not null;default:0" json:"duty_passes"`
	LastDutyPassClaim    *time.Time `json:"last_duty_pass_claim,omitempty"`
	WeeklyQuestStartDate *time.Time `json:"weekly_quest_start_date,omitempty"`

	Timezone string `gorm:"not null;default:'UTC'" json:"timezone"`
	IsActive bool   `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// Level is derived from total XP, never stored
func (u *User) Level() int {
	return u.TotalXP/XPPerLevel + 1
}
