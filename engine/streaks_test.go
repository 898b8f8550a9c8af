package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pstadniuk-dotcom/MyOnes-sub002/engine"
	"github.com/pstadniuk-dotcom/MyOnes-sub002/models"
	"github.com/pstadniuk-dotcom/MyOnes-sub002/store"
)

func seedStreak(t *testing.T, m *store.Memory, userID uint, st models.StreakType, current, longest int, lastCompleted string) {
	t.Helper()
	row := models.UserStreak{
		UserID:        userID,
		StreakType:    st,
		CurrentStreak: current,
		LongestStreak: longest,
	}
	if lastCompleted != "" {
		row.LastCompletedDate = &lastCompleted
		row.LastLoggedDate = &lastCompleted
	}
	if err := m.SaveStreak(context.Background(), &row); err != nil {
		t.Fatalf("seed streak: %v", err)
	}
}

func TestStreakFirstPassCreatesRow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := store.NewMemory()
	u := seedUser(m)
	eng := newTestEngine(m)

	row, err := eng.UpdateCategoryStreak(ctx, u.ID, models.StreakNutrition, 0.8, today, 0.5)
	if err != nil {
		t.Fatalf("UpdateCategoryStreak: %v", err)
	}
	if row.CurrentStreak != 1 || row.LongestStreak != 1 {
		t.Fatalf("streak = %d/%d, want 1/1", row.CurrentStreak, row.LongestStreak)
	}
	if row.LastCompletedDate == nil || *row.LastCompletedDate != today {
		t.Fatalf("last completed = %v, want %s", row.LastCompletedDate, today)
	}
	if row.LastLoggedDate == nil || *row.LastLoggedDate != today {
		t.Fatalf("last logged = %v, want %s", row.LastLoggedDate, today)
	}
}

func TestStreakFirstFailCreatesZeroRow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := store.NewMemory()
	u := seedUser(m)
	eng := newTestEngine(m)

	row, err := eng.UpdateCategoryStreak(ctx, u.ID, models.StreakLifestyle, 0.1, today, 0.4)
	if err != nil {
		t.Fatalf("UpdateCategoryStreak: %v", err)
	}
	if row.CurrentStreak != 0 || row.LongestStreak != 0 {
		t.Fatalf("streak = %d/%d, want 0/0", row.CurrentStreak, row.LongestStreak)
	}
	if row.LastCompletedDate != nil {
		t.Fatalf("last completed = %q, want unset", *row.LastCompletedDate)
	}
	if row.LastLoggedDate == nil || *row.LastLoggedDate != today {
		t.Fatalf("last logged = %v, want %s", row.LastLoggedDate, today)
	}
}

func TestStreakExtendsThroughGraceGap(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name          string
		lastCompleted string
		wantCurrent   int
	}{
		{"consecutive day", daysAgo(1), 5},
		{"one missed day inside grace", daysAgo(2), 5},
		{"gap beyond grace restarts", daysAgo(3), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := store.NewMemory()
			u := seedUser(m)
			seedStreak(t, m, u.ID, models.StreakOverall, 4, 4, tt.lastCompleted)
			eng := newTestEngine(m)

			row, err := eng.UpdateCategoryStreak(ctx, u.ID, models.StreakOverall, 0.8, today, 0.5)
			if err != nil {
				t.Fatalf("UpdateCategoryStreak: %v", err)
			}
			if row.CurrentStreak != tt.wantCurrent {
				t.Fatalf("current = %d, want %d", row.CurrentStreak, tt.wantCurrent)
			}
			if row.LastCompletedDate == nil || *row.LastCompletedDate != today {
				t.Fatalf("last completed = %v, want %s", row.LastCompletedDate, today)
			}
		})
	}
}

func TestStreakResetPreservesLongest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := store.NewMemory()
	u := seedUser(m)
	seedStreak(t, m, u.ID, models.StreakSupplements, 5, 5, daysAgo(3))
	eng := newTestEngine(m)

	row, err := eng.UpdateCategoryStreak(ctx, u.ID, models.StreakSupplements, 0.8, today, 0.5)
	if err != nil {
		t.Fatalf("UpdateCategoryStreak: %v", err)
	}
	if row.CurrentStreak != 1 {
		t.Fatalf("current = %d, want reset to 1", row.CurrentStreak)
	}
	if row.LongestStreak != 5 {
		t.Fatalf("longest = %d, want preserved 5", row.LongestStreak)
	}
}

func TestStreakSameDayRescoreIsNoOp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := store.NewMemory()
	u := seedUser(m)
	eng := newTestEngine(m)

	if _, err := eng.UpdateCategoryStreak(ctx, u.ID, models.StreakNutrition, 0.9, today, 0.5); err != nil {
		t.Fatalf("first score: %v", err)
	}
	row, err := eng.UpdateCategoryStreak(ctx, u.ID, models.StreakNutrition, 0.6, today, 0.5)
	if err != nil {
		t.Fatalf("re-score: %v", err)
	}
	if row.CurrentStreak != 1 || row.LongestStreak != 1 {
		t.Fatalf("streak = %d/%d after same-day re-score, want 1/1", row.CurrentStreak, row.LongestStreak)
	}
}

func TestStreakFailureHoldsInsideGrace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := store.NewMemory()
	u := seedUser(m)
	seedStreak(t, m, u.ID, models.StreakWorkout, 4, 6, daysAgo(1))
	eng := newTestEngine(m)

	row, err := eng.UpdateCategoryStreak(ctx, u.ID, models.StreakWorkout, 0.2, today, 0.5)
	if err != nil {
		t.Fatalf("UpdateCategoryStreak: %v", err)
	}
	if row.CurrentStreak != 4 {
		t.Fatalf("current = %d, want held at 4 one day after the last pass", row.CurrentStreak)
	}
	if row.LastCompletedDate == nil || *row.LastCompletedDate != daysAgo(1) {
		t.Fatalf("last completed moved on a failing day: %v", row.LastCompletedDate)
	}
	if row.LastLoggedDate == nil || *row.LastLoggedDate != today {
		t.Fatalf("last logged = %v, want %s", row.LastLoggedDate, today)
	}
}

func TestStreakFailureZeroesWhenStale(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := store.NewMemory()
	u := seedUser(m)
	seedStreak(t, m, u.ID, models.StreakWorkout, 4, 6, daysAgo(2))
	eng := newTestEngine(m)

	row, err := eng.UpdateCategoryStreak(ctx, u.ID, models.StreakWorkout, 0.2, today, 0.5)
	if err != nil {
		t.Fatalf("UpdateCategoryStreak: %v", err)
	}
	if row.CurrentStreak != 0 {
		t.Fatalf("current = %d, want 0 two days after the last pass", row.CurrentStreak)
	}
	if row.LongestStreak != 6 {
		t.Fatalf("longest = %d, want preserved 6", row.LongestStreak)
	}
}

func TestStreakBackfillOfOlderDayHoldsCounters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := store.NewMemory()
	u := seedUser(m)
	seedStreak(t, m, u.ID, models.StreakOverall, 3, 3, today)
	eng := newTestEngine(m)

	row, err := eng.UpdateCategoryStreak(ctx, u.ID, models.StreakOverall, 0.9, daysAgo(1), 0.5)
	if err != nil {
		t.Fatalf("UpdateCategoryStreak: %v", err)
	}
	if row.CurrentStreak != 3 {
		t.Fatalf("current = %d, want held at 3 on a late backfill", row.CurrentStreak)
	}
	if row.LastCompletedDate == nil || *row.LastCompletedDate != today {
		t.Fatalf("last completed = %v, want %s untouched", row.LastCompletedDate, today)
	}
	if row.LastLoggedDate == nil || *row.LastLoggedDate != today {
		t.Fatalf("last logged = %v, want %s untouched", row.LastLoggedDate, today)
	}
}

func TestStreakRunAccumulatesAcrossDays(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := store.NewMemory()
	u := seedUser(m)
	eng := newTestEngine(m)

	for _, date := range []string{daysAgo(2), daysAgo(1), today} {
		if _, err := eng.UpdateCategoryStreak(ctx, u.ID, models.StreakNutrition, 0.8, date, 0.5); err != nil {
			t.Fatalf("score %s: %v", date, err)
		}
	}
	row, _ := m.Streak(ctx, u.ID, models.StreakNutrition)
	if row.CurrentStreak != 3 || row.LongestStreak != 3 {
		t.Fatalf("streak = %d/%d, want 3/3", row.CurrentStreak, row.LongestStreak)
	}
	if row.LongestStreak < row.CurrentStreak {
		t.Fatalf("longest %d below current %d", row.LongestStreak, row.CurrentStreak)
	}
}

func TestGetUserStreakDecayedReadLeavesStoreUntouched(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := store.NewMemory()
	u := seedUser(m)
	seedStreak(t, m, u.ID, models.StreakOverall, 6, 9, daysAgo(5))
	eng := newTestEngine(m)

	row, err := eng.GetUserStreak(ctx, u.ID, models.StreakOverall)
	if err != nil {
		t.Fatalf("GetUserStreak: %v", err)
	}
	if row.CurrentStreak != 0 {
		t.Fatalf("decayed current = %d, want 0 five days after the last pass", row.CurrentStreak)
	}
	if row.LongestStreak != 9 {
		t.Fatalf("longest = %d, want 9", row.LongestStreak)
	}

	stored, _ := m.Streak(ctx, u.ID, models.StreakOverall)
	if stored.CurrentStreak != 6 {
		t.Fatalf("stored current = %d, the read must not persist decay", stored.CurrentStreak)
	}
}

func TestGetUserStreakWithinGraceKeepsCurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := store.NewMemory()
	u := seedUser(m)
	seedStreak(t, m, u.ID, models.StreakOverall, 6, 9, daysAgo(2))
	eng := newTestEngine(m)

	row, err := eng.GetUserStreak(ctx, u.ID, models.StreakOverall)
	if err != nil {
		t.Fatalf("GetUserStreak: %v", err)
	}
	if row.CurrentStreak != 6 {
		t.Fatalf("current = %d, want 6 while still inside grace", row.CurrentStreak)
	}
}

func TestGetUserStreakMissingRow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := store.NewMemory()
	u := seedUser(m)
	eng := newTestEngine(m)

	row, err := eng.GetUserStreak(ctx, u.ID, models.StreakWorkout)
	if err != nil {
		t.Fatalf("GetUserStreak: %v", err)
	}
	if row != nil {
		t.Fatalf("row = %+v, want nil for an untracked type", row)
	}
}

func TestGetUserStreakUnknownUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	eng := newTestEngine(store.NewMemory())
	if _, err := eng.GetUserStreak(ctx, 404, models.StreakOverall); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetStreakSummaryPresentsDecayedCounters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := store.NewMemory()
	u := seedUser(m)
	seedStreak(t, m, u.ID, models.StreakNutrition, 2, 4, daysAgo(1))
	seedStreak(t, m, u.ID, models.StreakSupplements, 7, 7, daysAgo(4))
	eng := newTestEngine(m)

	if err := m.UpsertCompletion(ctx, &models.DailyCompletion{UserID: u.ID, Date: today, DailyScore: 0.5}); err != nil {
		t.Fatalf("seed completion: %v", err)
	}

	summary, err := eng.GetStreakSummary(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetStreakSummary: %v", err)
	}
	if summary.Date != today {
		t.Fatalf("summary date = %s, want %s", summary.Date, today)
	}
	if got := summary.Streaks[models.StreakNutrition]; got == nil || got.CurrentStreak != 2 {
		t.Fatalf("nutrition = %+v, want current 2", got)
	}
	if got := summary.Streaks[models.StreakSupplements]; got == nil || got.CurrentStreak != 0 {
		t.Fatalf("supplements = %+v, want decayed current 0", got)
	}
	if summary.Today == nil || summary.Today.DailyScore != 0.5 {
		t.Fatalf("today = %+v, want the seeded completion", summary.Today)
	}

	stored, _ := m.Streak(ctx, u.ID, models.StreakSupplements)
	if stored.CurrentStreak != 7 {
		t.Fatalf("stored supplements current = %d, summary read must not persist decay", stored.CurrentStreak)
	}
}
