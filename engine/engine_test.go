package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pstadniuk-dotcom/MyOnes-sub002/engine"
	"github.com/pstadniuk-dotcom/MyOnes-sub002/models"
	"github.com/pstadniuk-dotcom/MyOnes-sub002/store"
)

// Reference instant for every test: noon UTC on Sunday 2026-08-23.
var testNow = time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

const today = "2026-08-23"

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestEngine(m *store.Memory) *engine.Engine {
	return newTestEngineAt(m, testNow)
}

func newTestEngineAt(m *store.Memory, now time.Time) *engine.Engine {
	cfg := engine.DefaultConfig()
	// Keep the lapse sweep pager from sleeping between batches.
	cfg.SweepBatchesPerSec = 1000
	return engine.New(m, fixedClock{now: now}, cfg)
}

func seedUser(m *store.Memory) *models.User {
	return m.AddUser(models.User{
		Email:            "user@example.com",
		Timezone:         "UTC",
		TrackNutrition:   true,
		TrackWorkouts:    true,
		TrackSupplements: true,
		TrackLifestyle:   true,
		WaterGoalOz:      64,
	})
}

func intPtr(v int) *int { return &v }

func daysAgo(n int) string { return engine.AddDays(today, -n) }

// seedFullDay logs a complete day: three mains in the calorie band, a
// six-exercise session, all doses, all check-ins and the water goal.
func seedFullDay(m *store.Memory, userID uint, date string) {
	m.PutActivityLog(models.DailyActivityLog{
		UserID:              userID,
		LogDate:             date,
		SupplementMorning:   true,
		SupplementAfternoon: true,
		SupplementEvening:   true,
		SleepQuality:        intPtr(4),
		EnergyLevel:         intPtr(3),
		MoodLevel:           intPtr(5),
		WaterOz:             64,
	})
	for _, mt := range []models.MealType{models.MealBreakfast, models.MealLunch, models.MealDinner} {
		m.AddMeal(models.MealLogEntry{UserID: userID, LogDate: date, MealType: mt, Calories: 700})
	}
	m.AddWorkout(models.WorkoutLogEntry{UserID: userID, LogDate: date, CompletedExercises: []models.ExerciseCompletion{
		{Name: "Squat", Sets: 3},
		{Name: "Bench Press", Sets: 3},
		{Name: "Deadlift", Sets: 2},
		{Name: "Row", Sets: 3},
		{Name: "Press", Sets: 3},
		{Name: "Curl", Sets: 2},
	}})
}

func TestOnLogWrittenScoresDayAndUpdatesStreaks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := store.NewMemory()
	u := seedUser(m)
	seedFullDay(m, u.ID, today)
	eng := newTestEngine(m)

	c, err := eng.OnLogWritten(ctx, u.ID, today)
	if err != nil {
		t.Fatalf("OnLogWritten: %v", err)
	}
	if c.NutritionScore == nil || *c.NutritionScore != 0.90 {
		t.Fatalf("nutrition score = %v, want 0.90", c.NutritionScore)
	}
	if c.WorkoutScore == nil || *c.WorkoutScore != 1.0 {
		t.Fatalf("workout score = %v, want 1.0", c.WorkoutScore)
	}
	if *c.SupplementScore != 1.0 || *c.LifestyleScore != 1.0 {
		t.Fatalf("supplement/lifestyle = %v/%v, want 1.0/1.0", *c.SupplementScore, *c.LifestyleScore)
	}
	if c.DailyScore != 0.98 {
		t.Fatalf("daily score = %v, want 0.98", c.DailyScore)
	}

	for _, st := range []models.StreakType{
		models.StreakNutrition, models.StreakWorkout, models.StreakSupplements,
		models.StreakLifestyle, models.StreakOverall,
	} {
		row, err := m.Streak(ctx, u.ID, st)
		if err != nil || row == nil {
			t.Fatalf("streak %s missing: %v", st, err)
		}
		if row.CurrentStreak != 1 || row.LongestStreak != 1 {
			t.Fatalf("streak %s = %d/%d, want 1/1", st, row.CurrentStreak, row.LongestStreak)
		}
		if row.LastCompletedDate == nil || *row.LastCompletedDate != today {
			t.Fatalf("streak %s last completed = %v, want %s", st, row.LastCompletedDate, today)
		}
	}
}

func TestOnLogWrittenEmptyDaySkipsWorkoutStreak(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := store.NewMemory()
	u := seedUser(m)
	eng := newTestEngine(m)

	c, err := eng.OnLogWritten(ctx, u.ID, today)
	if err != nil {
		t.Fatalf("OnLogWritten: %v", err)
	}
	if c.WorkoutScore != nil {
		t.Fatalf("workout score = %v, want nil on a day with no plan and no logs", *c.WorkoutScore)
	}
	if c.DailyScore != 0 {
		t.Fatalf("daily score = %v, want 0", c.DailyScore)
	}

	if row, _ := m.Streak(ctx, u.ID, models.StreakWorkout); row != nil {
		t.Fatalf("workout streak row created on an inapplicable day: %+v", row)
	}
	row, _ := m.Streak(ctx, u.ID, models.StreakNutrition)
	if row == nil || row.CurrentStreak != 0 {
		t.Fatalf("nutrition streak = %+v, want a row with current 0", row)
	}
	if row.LastCompletedDate != nil {
		t.Fatalf("nutrition last completed = %q, want unset", *row.LastCompletedDate)
	}
	if row.LastLoggedDate == nil || *row.LastLoggedDate != today {
		t.Fatalf("nutrition last logged = %v, want %s", row.LastLoggedDate, today)
	}
}

func TestOnLogWrittenRetriesOnceOnConflict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := store.NewMemory()
	u := seedUser(m)
	seedFullDay(m, u.ID, today)
	eng := newTestEngine(m)

	m.FailNextSaves(1)
	c, err := eng.OnLogWritten(ctx, u.ID, today)
	if err != nil {
		t.Fatalf("OnLogWritten should survive one conflict: %v", err)
	}
	if c == nil || c.DailyScore != 0.98 {
		t.Fatalf("completion after retry = %+v", c)
	}
}

func TestOnLogWrittenGivesUpAfterSecondConflict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := store.NewMemory()
	u := seedUser(m)
	seedFullDay(m, u.ID, today)
	eng := newTestEngine(m)

	m.FailNextSaves(2)
	if _, err := eng.OnLogWritten(ctx, u.ID, today); !errors.Is(err, engine.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict after exhausted retry", err)
	}
}

func TestOnLogWrittenUnknownUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	eng := newTestEngine(store.NewMemory())
	if _, err := eng.OnLogWritten(ctx, 404, today); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestComputeAndPersistIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := store.NewMemory()
	u := seedUser(m)
	seedFullDay(m, u.ID, today)
	eng := newTestEngine(m)

	first, err := eng.ComputeAndPersist(ctx, u.ID, today)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	second, err := eng.ComputeAndPersist(ctx, u.ID, today)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}

	if *first.NutritionScore != *second.NutritionScore ||
		*first.WorkoutScore != *second.WorkoutScore ||
		*first.SupplementScore != *second.SupplementScore ||
		*first.LifestyleScore != *second.LifestyleScore ||
		first.DailyScore != second.DailyScore {
		t.Fatalf("recomputation drifted: %+v vs %+v", first, second)
	}
	rows, err := m.Completions(ctx, u.ID, today, today)
	if err != nil {
		t.Fatalf("completions: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("completion rows = %d, want exactly 1", len(rows))
	}
	if rows[0].ID != first.ID {
		t.Fatalf("row id changed across recomputation: %d vs %d", rows[0].ID, first.ID)
	}
}

func TestComputeAndPersistAbortsOnReadFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := store.NewMemory()
	u := seedUser(m)
	seedFullDay(m, u.ID, today)
	eng := newTestEngine(m)

	m.FailNextReads(1)
	if _, err := eng.ComputeAndPersist(ctx, u.ID, today); err == nil {
		t.Fatal("want error when a day-input read fails")
	}
	rows, err := m.Completions(ctx, u.ID, today, today)
	if err != nil {
		t.Fatalf("completions: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("a failed pass persisted %d rows, want none", len(rows))
	}
}
