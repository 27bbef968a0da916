package quest

import (
	"time"

	"backend/internal/apperr"
	"backend/internal/models"
)

// AccessRequest carries the persisted facts the validator decides from.
// UnlockedDays must come from DutyPassUnlock rows for the current week;
// access is never re-derived from pass counters.
type AccessRequest struct {
	RequestedDay  models.QuestDay
	Now           time.Time
	Location      *time.Location
	CompletedDays models.QuestDaySet
	UnlockedDays  models.QuestDaySet
}

// ValidateAccess decides whether a quest day may be read or submitted.
// Rules, in order:
//  1. weekends serve no quest content at all;
//  2. a completed day may always be replayed;
//  3. today's day is open;
//  4. future days are not yet available;
//  5. past days need a duty-pass unlock row.
func ValidateAccess(req AccessRequest) error {
	if !req.RequestedDay.Valid() {
		return apperr.Newf(apperr.KindValidationFailed, "invalid quest day %q", string(req.RequestedDay))
	}

	loc := req.Location
	if loc == nil {
		loc = time.UTC
	}

	today, ok := Today(req.Now, loc)
	if !ok {
		return apperr.New(apperr.KindValidationFailed, "quests unavailable on weekends")
	}

	if req.CompletedDays.Has(req.RequestedDay) {
		return nil
	}

	switch {
	case req.RequestedDay == today:
		return nil
	case req.RequestedDay.Index() > today.Index():
		return apperr.Newf(apperr.KindForbidden, "quest for %s is not yet available", req.RequestedDay)
	default:
		if req.UnlockedDays.Has(req.RequestedDay) {
			return nil
		}
		return apperr.Newf(apperr.KindForbidden, "quest for %s was missed, use a Duty Pass to unlock it", req.RequestedDay)
	}
}
