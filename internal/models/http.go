package models

import (
	"time"
)

// RankCard is the read model for a user's rank endpoint
type RankCard struct {
	Position        int    `json:"position"`
	CompetitiveRank string `json:"competitive_rank"`
	BaseRank        string `json:"base_rank"`
	TotalXP         int    `json:"total_xp"`
	Level           int    `json:"level"`
	XPToNextRank    int    `json:"xp_to_next_rank"`
}

// LeaderboardEntry is a single row in the leaderboard listing
type LeaderboardEntry struct {
	Position        int    `json:"position"`
	Username        string `json:"username"`
	CompetitiveRank string `json:"competitive_rank"`
	TotalXP         int    `json:"total_xp"`
	Level           int    `json:"level"`
}

// LeaderboardResponse represents the paginated leaderboard response
type LeaderboardResponse struct {
	Data   []LeaderboardEntry `json:"data"`
	Offset int                `json:"offset"`
	Limit  int                `json:"limit"`
	Total  int64              `json:"total"`
}

// RankChangeKind classifies the outcome of a recalculation for one user
type RankChangeKind string

const (
	RankPromoted   RankChangeKind = "promotion"
	RankDemoted    RankChangeKind = "demotion"
	RankMaintained RankChangeKind = "maintained"
)

// RankChange reports one user's recalculation outcome
type RankChange struct {
	UserID   uint           `json:"user_id"`
	Username string         `json:"username"`
	Position int            `json:"position"`
	OldRank  string         `json:"old_rank"`
	NewRank  string         `json:"new_rank"`
	Change   RankChangeKind `json:"change"`
}

// LessonCompletionRequest is the payload for a lesson completion event.
// ModuleID carries the parent module so module-completion badges can fire
// when this lesson closes it out.
type LessonCompletionRequest struct {
	ModuleID       string `json:"module_id" validate:"required"`
	ModuleComplete bool   `json:"module_complete"`
}

// QuizCompletionRequest is the payload for a quiz completion event.
// The mastery tier is computed upstream from accuracy and time-efficiency.
type QuizCompletionRequest struct {
	MasteryTier string  `json:"mastery_tier" validate:"required,oneof=bronze silver gold perfect"`
	Percentage  float64 `json:"percentage" validate:"gte=0,lte=100"`
	ParentQuiz  string  `json:"parent_quiz,omitempty"`
}

// SpendDutyPassRequest names the missed weekday to unlock
type SpendDutyPassRequest struct {
	Day string `json:"day" validate:"required,oneof=mon tue wed thu fri"`
}

// AchievementAward reports one newly earned achievement
type AchievementAward struct {
	AchievementID uint      `json:"achievement_id"`
	Name          string    `json:"name"`
	XPAwarded     int       `json:"xp_awarded"`
	EarnedAt      time.Time `json:"earned_at"`
}

// AwardResult is the outcome of one achievement check
type AwardResult struct {
	NewAchievements []AchievementAward `json:"new_achievements"`
	XPAwarded       int                `json:"xp_awarded"`
}

// BadgeAward reports one newly earned badge
type BadgeAward struct {
	BadgeID  uint      `json:"badge_id"`
	Name     string    `json:"name"`
	XPValue  int       `json:"xp_value"`
	EarnedAt time.Time `json:"earned_at"`
}

// BadgeAwardResult is the outcome of a best-effort badge batch. Errors
// holds per-badge failures; they never abort the rest of the batch.
type BadgeAwardResult struct {
	Awarded []BadgeAward `json:"awarded"`
	Errors  []string     `json:"errors,omitempty"`
}

// AchievementStatus annotates a catalog achievement with the caller's state
type AchievementStatus struct {
	Achievement Achievement `json:"achievement"`
	Earned      bool        `json:"earned"`
	EarnedAt    *time.Time  `json:"earned_at,omitempty"`
	Progress    float64     `json:"progress"`
}

// WeekStatus is the current-week snapshot for the quest screen
type WeekStatus struct {
	WeekStartDate  time.Time   `json:"week_start_date"`
	State          string      `json:"state"`
	CompletedDays  QuestDaySet `json:"completed_days"`
	RewardClaimed  bool        `json:"reward_claimed"`
	ClaimableXP    int         `json:"claimable_xp"`
	CurrentStreak  int         `json:"current_streak"`
	LongestStreak  int         `json:"longest_streak"`
	DutyPasses     int         `json:"duty_passes"`
	UnlockedDays   QuestDaySet `json:"unlocked_days"`
	TodayAvailable bool        `json:"today_available"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
