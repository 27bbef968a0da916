package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"backend/internal/apperr"
	"backend/internal/models"
	"backend/internal/repository"
)

// fakeStore is an in-memory stand-in for the Postgres repository. It
// enforces the same uniqueness and conditional-update semantics the real
// constraints do, which is what the idempotency tests lean on.
type fakeStore struct {
	mu sync.Mutex

	users            map[uint]*models.User
	achievements     []models.Achievement
	userAchievements map[string]*models.UserAchievement
	badges           []models.Badge
	userBadges       map[string]*models.UserBadge
	weeks            map[string]*models.WeeklyQuestProgress
	unlocks          map[string]models.QuestDaySet

	// failRankUpdateFor injects per-user persist failures
	failRankUpdateFor map[uint]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:             make(map[uint]*models.User),
		userAchievements:  make(map[string]*models.UserAchievement),
		userBadges:        make(map[string]*models.UserBadge),
		weeks:             make(map[string]*models.WeeklyQuestProgress),
		unlocks:           make(map[string]models.QuestDaySet),
		failRankUpdateFor: make(map[uint]bool),
	}
}

func pairKey(a, b uint) string {
	return fmt.Sprintf("%d:%d", a, b)
}

func weekKey(userID uint, weekStart time.Time) string {
	return fmt.Sprintf("%d:%s", userID, weekStart.UTC().Format(time.RFC3339))
}

func (f *fakeStore) addUser(u models.User) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := u
	f.users[u.ID] = &cp
	return &cp
}

// --- user / rank surface ---

func (f *fakeStore) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) GetActiveUsersRanked(ctx context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var users []models.User
	for _, u := range f.users {
		if u.IsActive {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].TotalXP != users[j].TotalXP {
			return users[i].TotalXP > users[j].TotalXP
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (f *fakeStore) GetLeaderboardPage(ctx context.Context, offset, limit int) ([]models.User, error) {
	users, _ := f.GetActiveUsersRanked(ctx)
	if offset >= len(users) {
		return nil, nil
	}
	end := offset + limit
	if end > len(users) {
		end = len(users)
	}
	return users[offset:end], nil
}

func (f *fakeStore) CountActiveUsers(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, u := range f.users {
		if u.IsActive {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ApplyRankUpdate(ctx context.Context, upd repository.RankUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRankUpdateFor[upd.UserID] {
		return fmt.Errorf("injected persist failure for user %d", upd.UserID)
	}
	u, ok := f.users[upd.UserID]
	if !ok {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	u.LeaderboardPosition = upd.LeaderboardPosition
	u.CurrentRank = upd.CurrentRank
	u.HighestRankEver = upd.HighestRankEver
	if upd.RankAchievedAt != nil {
		t := *upd.RankAchievedAt
		u.RankAchievedAt = &t
	}
	return nil
}

func (f *fakeStore) AddXP(ctx context.Context, userID uint, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	u.TotalXP += delta
	return nil
}

// --- award surface ---

func (f *fakeStore) GetActiveAchievements(ctx context.Context, types []models.AchievementType) ([]models.Achievement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Achievement
	for _, a := range f.achievements {
		if !a.IsActive {
			continue
		}
		if len(types) == 0 {
			out = append(out, a)
			continue
		}
		for _, t := range types {
			if a.Type == t {
				out = append(out, a)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) GetUserAchievements(ctx context.Context, userID uint) ([]models.UserAchievement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.UserAchievement
	for _, ua := range f.userAchievements {
		if ua.UserID == userID {
			out = append(out, *ua)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertUserAchievement(ctx context.Context, ua *models.UserAchievement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey(ua.UserID, ua.AchievementID)
	if _, exists := f.userAchievements[key]; exists {
		return repository.ErrAlreadyAwarded
	}
	cp := *ua
	f.userAchievements[key] = &cp
	return nil
}

func (f *fakeStore) MarkNotificationsSeen(ctx context.Context, userID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ua := range f.userAchievements {
		if ua.UserID == userID {
			ua.NotificationSeen = true
		}
	}
	return nil
}

func (f *fakeStore) GetBadgesByTrigger(ctx context.Context, triggerType models.BadgeTriggerType, triggerValue string) ([]models.Badge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Badge
	for _, b := range f.badges {
		if b.IsActive && b.TriggerType == triggerType && b.TriggerValue == triggerValue {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) GetUserBadges(ctx context.Context, userID uint) ([]models.UserBadge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.UserBadge
	for _, ub := range f.userBadges {
		if ub.UserID == userID {
			out = append(out, *ub)
		}
	}
	return out, nil
}

func (f *fakeStore) CountUserBadgesByType(ctx context.Context, userID uint, badgeType models.BadgeTriggerType) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	byID := make(map[uint]models.Badge, len(f.badges))
	for _, b := range f.badges {
		byID[b.ID] = b
	}
	var n int64
	for _, ub := range f.userBadges {
		if ub.UserID == userID && byID[ub.BadgeID].TriggerType == badgeType {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CountBadgesByType(ctx context.Context, badgeType models.BadgeTriggerType) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, b := range f.badges {
		if b.IsActive && b.TriggerType == badgeType {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) InsertUserBadge(ctx context.Context, ub *models.UserBadge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey(ub.UserID, ub.BadgeID)
	if _, exists := f.userBadges[key]; exists {
		return repository.ErrAlreadyAwarded
	}
	cp := *ub
	f.userBadges[key] = &cp
	return nil
}

// --- quest surface ---

func (f *fakeStore) GetWeek(ctx context.Context, userID uint, weekStart time.Time) (*models.WeeklyQuestProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.weeks[weekKey(userID, weekStart)]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "no quest progress for this week")
	}
	cp := *w
	return &cp, nil
}

func (f *fakeStore) EnsureWeek(ctx context.Context, userID uint, weekStart time.Time) (*models.WeeklyQuestProgress, error) {
	f.mu.Lock()
	key := weekKey(userID, weekStart)
	if _, ok := f.weeks[key]; !ok {
		f.weeks[key] = &models.WeeklyQuestProgress{
			UserID:        userID,
			WeekStartDate: weekStart,
		}
	}
	f.mu.Unlock()
	return f.GetWeek(ctx, userID, weekStart)
}

func (f *fakeStore) CompleteDay(ctx context.Context, userID uint, weekStart time.Time, day models.QuestDay) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.weeks[weekKey(userID, weekStart)]
	if !ok {
		return false, apperr.New(apperr.KindNotFound, "no quest progress for this week")
	}
	if w.CompletedDays.Has(day) {
		return false, nil
	}
	w.CompletedDays = w.CompletedDays.With(day)
	w.TotalQuestsCompleted++
	return true, nil
}

func (f *fakeStore) ClaimWeeklyReward(ctx context.Context, userID uint, weekStart time.Time, rewardXP int, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.weeks[weekKey(userID, weekStart)]
	if !ok {
		return apperr.New(apperr.KindNotFound, "no quest progress for this week")
	}
	if w.RewardClaimed {
		return apperr.New(apperr.KindConflict, "reward already claimed this week")
	}
	w.RewardClaimed = true
	w.RewardXP = rewardXP
	t := now
	w.ClaimedAt = &t
	if u, ok := f.users[userID]; ok {
		u.TotalXP += rewardXP
	}
	return nil
}

func (f *fakeStore) ClaimDutyPass(ctx context.Context, userID uint, weekStart, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	if u.LastDutyPassClaim != nil && !u.LastDutyPassClaim.Before(weekStart) {
		return apperr.New(apperr.KindConflict, "duty pass already claimed this week")
	}
	u.DutyPasses++
	t := now
	u.LastDutyPassClaim = &t
	return nil
}

func (f *fakeStore) SpendDutyPass(ctx context.Context, userID uint, weekStart time.Time, day models.QuestDay, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	if u.DutyPasses <= 0 {
		return apperr.New(apperr.KindConflict, "no duty passes available")
	}
	key := weekKey(userID, weekStart)
	if f.unlocks[key].Has(day) {
		return apperr.Newf(apperr.KindConflict, "%s is already unlocked this week", day)
	}
	u.DutyPasses--
	f.unlocks[key] = f.unlocks[key].With(day)
	return nil
}

func (f *fakeStore) GetDutyPassUnlocks(ctx context.Context, userID uint, weekStart time.Time) (models.QuestDaySet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unlocks[weekKey(userID, weekStart)], nil
}

func (f *fakeStore) UpdateStreakState(ctx context.Context, userID uint, currentStreak, longestStreak int, weekStart time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	u.CurrentStreak = currentStreak
	u.LongestStreak = longestStreak
	ws := weekStart
	u.WeeklyQuestStartDate = &ws
	return nil
}

// interface conformance
var (
	_ AwardStore       = (*fakeStore)(nil)
	_ RankStore        = (*fakeStore)(nil)
	_ QuestStore       = (*fakeStore)(nil)
	_ LeaderboardStore = (*fakeStore)(nil)
)
