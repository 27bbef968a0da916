package models

import (
	"time"

	"gorm.io/datatypes"
)

// AchievementType classifies what an achievement's criteria is evaluated against
type AchievementType string

const (
	AchievementRank           AchievementType = "rank"
	AchievementBadgeMilestone AchievementType = "badge_milestone"
	AchievementProfile        AchievementType = "profile"
	AchievementStreak         AchievementType = "streak"
	AchievementXP             AchievementType = "xp"
)

// TriggerType names the event that causes an achievement check
type TriggerType string

const (
	TriggerRankPromotion TriggerType = "rank_promotion"
	TriggerBadgeEarned   TriggerType = "badge_earned"
	TriggerQuestWeek     TriggerType = "quest_week"
	TriggerProfileUpdate TriggerType = "profile_update"
	TriggerXPGained      TriggerType = "xp_gained"
	// TriggerSync re-evaluates every achievement type; used by the
	// pull-based client resync endpoint to catch up on missed triggers.
	TriggerSync TriggerType = "sync"
)

// Achievement is read-mostly reference data maintained by administration
type Achievement struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	Name          string          `gorm:"not null" json:"name"`
	Description   string          `json:"description"`
	Type          AchievementType `gorm:"not null;index" json:"type"`
	CriteriaValue int             `gorm:"not null;default:0" json:"criteria_value"`
	CriteriaData  datatypes.JSON  `json:"criteria_data,omitempty"`
	Category      string          `json:"category"`
	SortOrder     int             `gorm:"not null;default:0" json:"sort_order"`
	XPReward      int             `gorm:"not null;default:0" json:"xp_reward"`
	IsActive      bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Achievement) TableName() string {
	return "achievements"
}

// MilestoneCriteria is the decoded CriteriaData shape for badge_milestone
// achievements. TargetCount is either a literal integer or the string "all",
// in which case the denominator is the live badge catalog count for the type.
type MilestoneCriteria struct {
	BadgeType   BadgeTriggerType `json:"badgeType"`
	TargetCount interface{}      `json:"targetCount"`
}

// UserAchievement records one earned achievement. The (user_id,
// achievement_id) uniqueness is the core idempotency invariant: a row is
// created exactly once per pair no matter how many triggers race.
type UserAchievement struct {
	ID               uint      `gorm:"primarykey" json:"id"`
	UserID           uint      `gorm:"not null;uniqueIndex:idx_user_achievement" json:"user_id"`
	AchievementID    uint      `gorm:"not null;uniqueIndex:idx_user_achievement" json:"achievement_id"`
	EarnedAt         time.Time `gorm:"not null" json:"earned_at"`
	XPAwarded        int       `gorm:"not null;default:0" json:"xp_awarded"`
	NotificationSeen bool      `gorm:"not null;default:false" json:"notification_seen"`
}

// TableName specifies the table name for GORM
func (UserAchievement) TableName() string {
	return "user_achievements"
}
