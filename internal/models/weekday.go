package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// QuestDay is one of the five weekday tags a quest week is made of
type QuestDay string

const (
	Monday    QuestDay = "mon"
	Tuesday   QuestDay = "tue"
	Wednesday QuestDay = "wed"
	Thursday  QuestDay = "thu"
	Friday    QuestDay = "fri"
)

// QuestDays lists the five weekday tags in Mon-Fri order
var QuestDays = []QuestDay{Monday, Tuesday, Wednesday, Thursday, Friday}

// ParseQuestDay validates a weekday tag
func ParseQuestDay(s string) (QuestDay, error) {
	d := QuestDay(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("invalid quest day %q", s)
	}
	return d, nil
}

// QuestDayFromWeekday maps a time.Weekday to a quest day tag.
// Saturday and Sunday have no tag; ok is false for them.
func QuestDayFromWeekday(w time.Weekday) (QuestDay, bool) {
	switch w {
	case time.Monday:
		return Monday, true
	case time.Tuesday:
		return Tuesday, true
	case time.Wednesday:
		return Wednesday, true
	case time.Thursday:
		return Thursday, true
	case time.Friday:
		return Friday, true
	default:
		return "", false
	}
}

// Valid reports whether d is one of the five weekday tags
func (d QuestDay) Valid() bool {
	switch d {
	case Monday, Tuesday, Wednesday, Thursday, Friday:
		return true
	}
	return false
}

// Index returns d's position in the Mon-Fri ordering (0-4), or -1
func (d QuestDay) Index() int {
	for i, day := range QuestDays {
		if day == d {
			return i
		}
	}
	return -1
}

// QuestDaySet is a set of completed weekday tags, persisted as a
// comma-joined string column (e.g. "mon,wed,fri")
type QuestDaySet []QuestDay

// Has reports set membership
func (s QuestDaySet) Has(d QuestDay) bool {
	for _, day := range s {
		if day == d {
			return true
		}
	}
	return false
}

// With returns a copy of the set including d, in Mon-Fri order.
// Adding an existing member returns an equal set.
func (s QuestDaySet) With(d QuestDay) QuestDaySet {
	if s.Has(d) || !d.Valid() {
		return s
	}
	out := make(QuestDaySet, 0, len(s)+1)
	for _, day := range QuestDays {
		if s.Has(day) || day == d {
			out = append(out, day)
		}
	}
	return out
}

// Count returns the number of distinct completed days
func (s QuestDaySet) Count() int {
	return len(s)
}

// String renders the canonical comma-joined form
func (s QuestDaySet) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = string(d)
	}
	return strings.Join(parts, ",")
}

// Value implements driver.Valuer for GORM persistence
func (s QuestDaySet) Value() (driver.Value, error) {
	return s.String(), nil
}

// Scan implements sql.Scanner for GORM persistence
func (s *QuestDaySet) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into QuestDaySet", src)
	}

	if raw == "" {
		*s = nil
		return nil
	}

	out := make(QuestDaySet, 0, 5)
	for _, part := range strings.Split(raw, ",") {
		d, err := ParseQuestDay(part)
		if err != nil {
			return err
		}
		if !out.Has(d) {
			out = append(out, d)
		}
	}
	*s = out
	return nil
}
