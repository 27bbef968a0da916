// Package quest holds the pure calendar math and access rules for the
// weekly quest system. Week boundaries are always computed in the user's
// timezone, never from server-local time.
package quest

import (
	"time"

	"backend/internal/models"
)

// LocationFor resolves a user's IANA timezone name, falling back to UTC so
// a bad profile field can never lock a user out of quests.
func LocationFor(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WeekStart returns Monday 00:00 of the week containing now, in loc.
// This is the canonical week key for WeeklyQuestProgress rows.
func WeekStart(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	// time.Weekday numbers Sunday as 0; shift so Monday is 0
	offset := (int(local.Weekday()) + 6) % 7
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return day.AddDate(0, 0, -offset)
}

// SameWeek reports whether two instants fall in the same Mon-Fri window
func SameWeek(a, b time.Time, loc *time.Location) bool {
	return WeekStart(a, loc).Equal(WeekStart(b, loc))
}

// IsWeekend reports whether now is Saturday or Sunday in loc
func IsWeekend(now time.Time, loc *time.Location) bool {
	switch now.In(loc).Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	return false
}

// IsSunday reports whether now is Sunday in loc; gates duty pass claims
func IsSunday(now time.Time, loc *time.Location) bool {
	return now.In(loc).Weekday() == time.Sunday
}

// Today returns the quest-day tag for now in loc; ok is false on weekends
func Today(now time.Time, loc *time.Location) (models.QuestDay, bool) {
	return models.QuestDayFromWeekday(now.In(loc).Weekday())
}
