package models

import (
	"time"
)

// BadgeTriggerType names the completion event a badge is awarded for
type BadgeTriggerType string

const (
	BadgeModuleComplete    BadgeTriggerType = "module_complete"
	BadgeLessonComplete    BadgeTriggerType = "lesson_complete"
	BadgeQuizMastery       BadgeTriggerType = "quiz_mastery"
	BadgeParentQuizMastery BadgeTriggerType = "parent_quiz_mastery"
	BadgeManual            BadgeTriggerType = "manual"
)

// MasteryTier classifies a quiz attempt; computed upstream from accuracy
// and time-efficiency, ordered bronze < silver < gold < perfect
type MasteryTier string

const (
	MasteryBronze  MasteryTier = "bronze"
	MasterySilver  MasteryTier = "silver"
	MasteryGold    MasteryTier = "gold"
	MasteryPerfect MasteryTier = "perfect"
)

var masteryOrder = map[MasteryTier]int{
	MasteryBronze:  1,
	MasterySilver:  2,
	MasteryGold:    3,
	MasteryPerfect: 4,
}

// Valid reports whether t is a known mastery tier
func (t MasteryTier) Valid() bool {
	_, ok := masteryOrder[t]
	return ok
}

// AtLeast reports whether t meets or exceeds the required tier.
// An empty requirement accepts any tier.
func (t MasteryTier) AtLeast(required MasteryTier) bool {
	if required == "" {
		return true
	}
	return masteryOrder[t] >= masteryOrder[required]
}

// Badge is reference data describing one earnable badge
type Badge struct {
	ID            uint             `gorm:"primarykey" json:"id"`
	Name          string           `gorm:"not null" json:"name"`
	Description   string           `json:"description"`
	TriggerType   BadgeTriggerType `gorm:"not null;index:idx_badge_trigger" json:"trigger_type"`
	TriggerValue  string           `gorm:"not null;index:idx_badge_trigger" json:"trigger_value"`
	RequiredTier  MasteryTier      `json:"required_tier,omitempty"`
	Rarity        string           `json:"rarity"`
	XPValue       int              `gorm:"not null;default:0" json:"xp_value"`
	Prerequisites string           `json:"prerequisites,omitempty"`
	IsActive      bool             `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time        `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Badge) TableName() string {
	return "badges"
}

// UserBadge records one earned badge, unique per (user, badge)
type UserBadge struct {
	ID       uint      `gorm:"primarykey" json:"id"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_user_badge" json:"user_id"`
	BadgeID  uint      `gorm:"not null;uniqueIndex:idx_user_badge" json:"badge_id"`
	EarnedAt time.Time `gorm:"not null" json:"earned_at"`
}

// TableName specifies the table name for GORM
func (UserBadge) TableName() string {
	return "user_badges"
}
