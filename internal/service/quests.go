package service

import (
	"context"
	"log"
	"time"

	"backend/internal/apperr"
	"backend/internal/models"
	"backend/internal/quest"
	"backend/internal/repository"
)

// QuestStore is the persistence surface of the weekly quest state machine
type QuestStore interface {
	GetUser(ctx context.Context, userID uint) (*models.User, error)
	GetWeek(ctx context.Context, userID uint, weekStart time.Time) (*models.WeeklyQuestProgress, error)
	EnsureWeek(ctx context.Context, userID uint, weekStart time.Time) (*models.WeeklyQuestProgress, error)
	CompleteDay(ctx context.Context, userID uint, weekStart time.Time, day models.QuestDay) (bool, error)
	ClaimWeeklyReward(ctx context.Context, userID uint, weekStart time.Time, rewardXP int, now time.Time) error
	ClaimDutyPass(ctx context.Context, userID uint, weekStart, now time.Time) error
	SpendDutyPass(ctx context.Context, userID uint, weekStart time.Time, day models.QuestDay, now time.Time) error
	GetDutyPassUnlocks(ctx context.Context, userID uint, weekStart time.Time) (models.QuestDaySet, error)
	UpdateStreakState(ctx context.Context, userID uint, currentStreak, longestStreak int, weekStart time.Time) error
}

// QuestService runs the per-user weekly quest and streak state machine.
// All day and week boundaries are computed in the user's timezone.
type QuestService struct {
	store QuestStore
	cache Invalidator

	// nowFn is swappable for tests
	nowFn func() time.Time
}

// NewQuestService creates a new quest service
func NewQuestService(store QuestStore, cache Invalidator) *QuestService {
	return &QuestService{
		store: store,
		cache: cache,
		nowFn: time.Now,
	}
}

// weekContext bundles the per-request facts every operation needs
type weekContext struct {
	user      *models.User
	loc       *time.Location
	now       time.Time
	weekStart time.Time
	week      *models.WeeklyQuestProgress
}

// currentWeek resolves the user's current week row, rolling the state
// machine over when this is the first quest-related request of a new week.
func (s *QuestService) currentWeek(ctx context.Context, userID uint) (*weekContext, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	loc := quest.LocationFor(user.Timezone)
	now := s.nowFn()
	weekStart := quest.WeekStart(now, loc)

	if user.WeeklyQuestStartDate == nil || user.WeeklyQuestStartDate.Before(weekStart) {
		if err := s.rollover(ctx, user, weekStart); err != nil {
			return nil, err
		}
	}

	week, err := s.store.EnsureWeek(ctx, userID, weekStart)
	if err != nil {
		return nil, err
	}

	return &weekContext{
		user:      user,
		loc:       loc,
		now:       now,
		weekStart: weekStart,
		week:      week,
	}, nil
}

// rollover evaluates the week that just ended and advances the streak.
// A week counts when every weekday was completed or duty-pass-recovered;
// a broken streak resets to zero, and the new week earns its increment at
// its own rollover. Prior week rows stay untouched as history.
func (s *QuestService) rollover(ctx context.Context, user *models.User, newWeekStart time.Time) error {
	current := user.CurrentStreak
	if user.WeeklyQuestStartDate == nil {
		// first quest activity ever; nothing to evaluate
		current = 0
	} else {
		prevStart := *user.WeeklyQuestStartDate
		// only the week immediately before the new one can extend a
		// streak; any gap of idle weeks breaks it
		adjacent := prevStart.AddDate(0, 0, 7).Equal(newWeekStart)

		if adjacent && s.weekSucceeded(ctx, user.ID, prevStart) {
			current++
		} else {
			current = 0
		}
	}

	longest := user.LongestStreak
	if current > longest {
		longest = current
	}

	if err := s.store.UpdateStreakState(ctx, user.ID, current, longest, newWeekStart); err != nil {
		return err
	}

	user.CurrentStreak = current
	user.LongestStreak = longest
	ws := newWeekStart
	user.WeeklyQuestStartDate = &ws
	return nil
}

// weekSucceeded reports whether every weekday of the week starting at
// weekStart was completed or covered by a duty-pass unlock
func (s *QuestService) weekSucceeded(ctx context.Context, userID uint, weekStart time.Time) bool {
	week, err := s.store.GetWeek(ctx, userID, weekStart)
	if err != nil {
		if apperr.IsNotFound(err) {
			return false
		}
		log.Printf("streak evaluation failed for user %d: %v", userID, err)
		return false
	}

	unlocked, err := s.store.GetDutyPassUnlocks(ctx, userID, weekStart)
	if err != nil {
		log.Printf("streak evaluation failed for user %d: %v", userID, err)
		return false
	}

	for _, day := range models.QuestDays {
		if !week.CompletedDays.Has(day) && !unlocked.Has(day) {
			return false
		}
	}
	return true
}

// CheckAccess runs the access validator for a quest day read or submit
func (s *QuestService) CheckAccess(ctx context.Context, userID uint, day models.QuestDay) error {
	wc, err := s.currentWeek(ctx, userID)
	if err != nil {
		return err
	}
	return s.checkAccess(ctx, wc, day)
}

func (s *QuestService) checkAccess(ctx context.Context, wc *weekContext, day models.QuestDay) error {
	unlocked, err := s.store.GetDutyPassUnlocks(ctx, wc.user.ID, wc.weekStart)
	if err != nil {
		return err
	}

	return quest.ValidateAccess(quest.AccessRequest{
		RequestedDay:  day,
		Now:           wc.now,
		Location:      wc.loc,
		CompletedDays: wc.week.CompletedDays,
		UnlockedDays:  unlocked,
	})
}

// CompleteDay records a quest completion for one weekday. Duplicate
// submissions of the same day are no-ops; reaching five distinct days
// moves the week into the claimable state. Returns the updated week.
func (s *QuestService) CompleteDay(ctx context.Context, userID uint, day models.QuestDay) (*models.WeeklyQuestProgress, bool, error) {
	if !day.Valid() {
		return nil, false, apperr.Newf(apperr.KindValidationFailed, "invalid quest day %q", string(day))
	}

	wc, err := s.currentWeek(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	if err := s.checkAccess(ctx, wc, day); err != nil {
		return nil, false, err
	}

	added, err := s.store.CompleteDay(ctx, userID, wc.weekStart, day)
	if err != nil {
		return nil, false, err
	}

	week, err := s.store.GetWeek(ctx, userID, wc.weekStart)
	if err != nil {
		return nil, false, err
	}
	return week, added, nil
}

// ClaimWeeklyReward claims the tiered reward chest. Permitted only on
// Saturday or Sunday, once per week, with the tier fixed by however many
// distinct days were completed by the time of claiming.
func (s *QuestService) ClaimWeeklyReward(ctx context.Context, userID uint) (*models.WeeklyQuestProgress, error) {
	wc, err := s.currentWeek(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !quest.IsWeekend(wc.now, wc.loc) {
		return nil, apperr.New(apperr.KindValidationFailed, "reward chest can only be claimed on the weekend")
	}
	if wc.week.RewardClaimed {
		return nil, apperr.New(apperr.KindConflict, "reward already claimed this week")
	}

	days := wc.week.CompletedDays.Count()
	rewardXP := models.RewardForDays(days)
	if rewardXP == 0 {
		return nil, apperr.New(apperr.KindConflict, "no completed quest days to claim for")
	}

	if err := s.store.ClaimWeeklyReward(ctx, userID, wc.weekStart, rewardXP, wc.now); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	return s.store.GetWeek(ctx, userID, wc.weekStart)
}

// ClaimDutyPass credits one duty pass. Sunday only, at most once per week.
func (s *QuestService) ClaimDutyPass(ctx context.Context, userID uint) error {
	wc, err := s.currentWeek(ctx, userID)
	if err != nil {
		return err
	}

	if !quest.IsSunday(wc.now, wc.loc) {
		return apperr.New(apperr.KindValidationFailed, "duty passes can only be claimed on Sunday")
	}

	return s.store.ClaimDutyPass(ctx, userID, wc.weekStart, wc.now)
}

// SpendDutyPass spends one pass to retroactively unlock a missed weekday.
// The unlock row it creates is the sole authority later access checks use.
func (s *QuestService) SpendDutyPass(ctx context.Context, userID uint, day models.QuestDay) error {
	if !day.Valid() {
		return apperr.Newf(apperr.KindValidationFailed, "invalid quest day %q", string(day))
	}

	wc, err := s.currentWeek(ctx, userID)
	if err != nil {
		return err
	}

	if wc.week.CompletedDays.Has(day) {
		return apperr.Newf(apperr.KindConflict, "%s was not missed", day)
	}
	if today, ok := quest.Today(wc.now, wc.loc); ok && day.Index() >= today.Index() {
		return apperr.Newf(apperr.KindConflict, "%s was not missed", day)
	}

	return s.store.SpendDutyPass(ctx, userID, wc.weekStart, day, wc.now)
}

// WeekStatus assembles the current-week snapshot for the quest screen
func (s *QuestService) WeekStatus(ctx context.Context, userID uint) (*models.WeekStatus, error) {
	wc, err := s.currentWeek(ctx, userID)
	if err != nil {
		return nil, err
	}

	unlocked, err := s.store.GetDutyPassUnlocks(ctx, userID, wc.weekStart)
	if err != nil {
		return nil, err
	}

	_, isWeekday := quest.Today(wc.now, wc.loc)
	claimable := 0
	if !wc.week.RewardClaimed {
		claimable = models.RewardForDays(wc.week.CompletedDays.Count())
	}

	return &models.WeekStatus{
		WeekStartDate:  wc.weekStart,
		State:          weekState(wc.week),
		CompletedDays:  wc.week.CompletedDays,
		RewardClaimed:  wc.week.RewardClaimed,
		ClaimableXP:    claimable,
		CurrentStreak:  wc.user.CurrentStreak,
		LongestStreak:  wc.user.LongestStreak,
		DutyPasses:     wc.user.DutyPasses,
		UnlockedDays:   unlocked,
		TodayAvailable: isWeekday,
	}, nil
}

// weekState names the state-machine state of one week row
func weekState(week *models.WeeklyQuestProgress) string {
	switch {
	case week.RewardClaimed:
		return "claimed"
	case week.CompletedDays.Count() >= len(models.QuestDays):
		return "complete"
	case week.CompletedDays.Count() > 0:
		return "active"
	default:
		return "not_started"
	}
}

func (s *QuestService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateLeaderboard(ctx); err != nil {
		log.Printf("leaderboard cache invalidation failed: %v", err)
	}
}

// ensure repository satisfies the service interfaces
var (
	_ QuestStore       = (*repository.PostgresRepository)(nil)
	_ AwardStore       = (*repository.PostgresRepository)(nil)
	_ RankStore        = (*repository.PostgresRepository)(nil)
	_ LeaderboardStore = (*repository.PostgresRepository)(nil)
)
