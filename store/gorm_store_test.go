package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pstadniuk-dotcom/MyOnes-sub002/engine"
	"github.com/pstadniuk-dotcom/MyOnes-sub002/models"
	"github.com/pstadniuk-dotcom/MyOnes-sub002/store"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "engine_test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.DailyActivityLog{}, &models.MealLogEntry{},
		&models.WorkoutLogEntry{}, &models.WorkoutPlan{},
		&models.DailyCompletion{}, &models.UserStreak{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedDBUser(t *testing.T, db *gorm.DB, u models.User) *models.User {
	t.Helper()
	if u.Timezone == "" {
		u.Timezone = "UTC"
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return &u
}

func scorePtr(v float64) *float64 { return &v }

func TestUpsertCompletionOverwritesInPlace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	g := store.NewGorm(db)
	u := seedDBUser(t, db, models.User{Email: "a@example.com"})

	first := &models.DailyCompletion{
		UserID:          u.ID,
		Date:            "2026-08-23",
		NutritionScore:  scorePtr(0.75),
		SupplementScore: scorePtr(0.67),
		LifestyleScore:  scorePtr(0.33),
		DailyScore:      0.6,
	}
	if err := g.UpsertCompletion(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := &models.DailyCompletion{
		UserID:          u.ID,
		Date:            "2026-08-23",
		NutritionScore:  scorePtr(0.90),
		WorkoutScore:    scorePtr(1.0),
		SupplementScore: scorePtr(1.0),
		LifestyleScore:  scorePtr(1.0),
		DailyScore:      0.98,
	}
	if err := g.UpsertCompletion(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	rows, err := g.Completions(ctx, u.ID, "2026-08-01", "2026-08-31")
	if err != nil {
		t.Fatalf("completions: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("completion rows = %d, want 1", len(rows))
	}
	if rows[0].DailyScore != 0.98 || rows[0].WorkoutScore == nil {
		t.Fatalf("upsert did not overwrite: %+v", rows[0])
	}
}

func TestSaveStreakDuplicateIsConflict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	g := store.NewGorm(db)
	u := seedDBUser(t, db, models.User{Email: "b@example.com"})

	if err := g.SaveStreak(ctx, &models.UserStreak{
		UserID: u.ID, StreakType: models.StreakNutrition, CurrentStreak: 1, LongestStreak: 1,
	}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	// A second zero-ID row for the same (user, type) races the unique index.
	err := g.SaveStreak(ctx, &models.UserStreak{
		UserID: u.ID, StreakType: models.StreakNutrition, CurrentStreak: 1, LongestStreak: 1,
	})
	if !errors.Is(err, engine.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestWithUserLockUnknownUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := store.NewGorm(newTestDB(t))
	err := g.WithUserLock(ctx, 404, func(engine.Store) error { return nil })
	if !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestTransitionStatusesGuardedAndIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	g := store.NewGorm(db)

	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	windowStart := now.AddDate(0, 0, -3)
	farDeadline := now.AddDate(0, 0, 20)
	nearDeadline := now.AddDate(0, 0, 5)

	inWindow := seedDBUser(t, db, models.User{
		Email: "ready@example.com", StreakStatus: models.StreakStatusBuilding,
		ReorderWindowStart: &windowStart, ReorderDeadline: &farDeadline,
	})
	beforeWindow := seedDBUser(t, db, models.User{
		Email:              "early@example.com",
		StreakStatus:       models.StreakStatusBuilding,
		ReorderWindowStart: ptrTime(now.AddDate(0, 0, 2)),
		ReorderDeadline:    &farDeadline,
	})
	nearUser := seedDBUser(t, db, models.User{
		Email: "near@example.com", StreakStatus: models.StreakStatusReady,
		ReorderWindowStart: &windowStart, ReorderDeadline: &nearDeadline,
	})

	warnCutoff := now.AddDate(0, 0, 10)
	ready := engine.StatusTransition{
		From:                  []models.StreakStatus{models.StreakStatusBuilding},
		To:                    models.StreakStatusReady,
		WindowStartAtOrBefore: &now,
		DeadlineAfter:         &warnCutoff,
	}
	n, err := g.TransitionStatuses(ctx, ready)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if n != 1 {
		t.Fatalf("rows changed = %d, want 1", n)
	}
	if status := reloadStatus(t, db, inWindow.ID); status != models.StreakStatusReady {
		t.Fatalf("in-window user status = %s, want ready", status)
	}
	if status := reloadStatus(t, db, beforeWindow.ID); status != models.StreakStatusBuilding {
		t.Fatalf("pre-window user status = %s, want building", status)
	}
	if status := reloadStatus(t, db, nearUser.ID); status != models.StreakStatusReady {
		t.Fatalf("near-deadline user status = %s, want untouched ready", status)
	}

	// Re-running against unchanged data writes nothing.
	n, err = g.TransitionStatuses(ctx, ready)
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if n != 0 {
		t.Fatalf("rerun changed %d rows, want 0", n)
	}
}

func TestLapseCandidatesPagesInIDOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	g := store.NewGorm(db)

	cutoff := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	past := cutoff.AddDate(0, 0, -2)
	future := cutoff.AddDate(0, 0, 30)

	first := seedDBUser(t, db, models.User{
		Email: "p1@example.com", StreakStatus: models.StreakStatusGrace, ReorderDeadline: &past,
	})
	second := seedDBUser(t, db, models.User{
		Email: "p2@example.com", StreakStatus: models.StreakStatusWarning, ReorderDeadline: &past,
	})
	seedDBUser(t, db, models.User{
		Email: "fresh@example.com", StreakStatus: models.StreakStatusReady, ReorderDeadline: &future,
	})
	seedDBUser(t, db, models.User{
		Email: "done@example.com", StreakStatus: models.StreakStatusLapsed, ReorderDeadline: &past,
	})

	page, err := g.LapseCandidates(ctx, cutoff, 0, 1)
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(page) != 1 || page[0].ID != first.ID {
		t.Fatalf("first page = %+v, want only user %d", page, first.ID)
	}
	page, err = g.LapseCandidates(ctx, cutoff, first.ID, 10)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(page) != 1 || page[0].ID != second.ID {
		t.Fatalf("second page = %+v, want only user %d", page, second.ID)
	}
}

func TestInconsistentReorderUsers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	g := store.NewGorm(db)

	deadline := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	bad := seedDBUser(t, db, models.User{
		Email: "bad@example.com", StreakStatus: models.StreakStatusReady,
	})
	seedDBUser(t, db, models.User{
		Email: "ok@example.com", StreakStatus: models.StreakStatusReady,
		ReorderWindowStart: ptrTime(deadline.AddDate(0, 0, -20)), ReorderDeadline: &deadline,
	})
	seedDBUser(t, db, models.User{
		Email: "idle@example.com", StreakStatus: models.StreakStatusBuilding,
	})

	rows, err := g.InconsistentReorderUsers(ctx)
	if err != nil {
		t.Fatalf("inconsistent users: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != bad.ID {
		t.Fatalf("inconsistent users = %+v, want only user %d", rows, bad.ID)
	}
}

func TestDecayStaleStreaksCutoff(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)
	g := store.NewGorm(db)
	u := seedDBUser(t, db, models.User{Email: "decay@example.com"})

	stale := "2026-08-15"
	fresh := "2026-08-22"
	mustSaveStreak(t, g, &models.UserStreak{
		UserID: u.ID, StreakType: models.StreakNutrition,
		CurrentStreak: 4, LongestStreak: 9, LastCompletedDate: &stale,
	})
	mustSaveStreak(t, g, &models.UserStreak{
		UserID: u.ID, StreakType: models.StreakSupplements,
		CurrentStreak: 6, LongestStreak: 6, LastCompletedDate: &fresh,
	})

	n, err := g.DecayStaleStreaks(ctx, "2026-08-21")
	if err != nil {
		t.Fatalf("decay: %v", err)
	}
	if n != 1 {
		t.Fatalf("rows decayed = %d, want 1", n)
	}

	nut, err := g.Streak(ctx, u.ID, models.StreakNutrition)
	if err != nil || nut == nil {
		t.Fatalf("nutrition streak: %v", err)
	}
	if nut.CurrentStreak != 0 || nut.LongestStreak != 9 {
		t.Fatalf("nutrition streak = %d/%d, want 0/9", nut.CurrentStreak, nut.LongestStreak)
	}
	sup, err := g.Streak(ctx, u.ID, models.StreakSupplements)
	if err != nil || sup == nil {
		t.Fatalf("supplement streak: %v", err)
	}
	if sup.CurrentStreak != 6 {
		t.Fatalf("fresh streak decayed to %d", sup.CurrentStreak)
	}

	// Second pass finds nothing left to decay.
	if n, err = g.DecayStaleStreaks(ctx, "2026-08-21"); err != nil || n != 0 {
		t.Fatalf("rerun decayed %d rows (err=%v), want 0", n, err)
	}
}

func mustSaveStreak(t *testing.T, g *store.Gorm, s *models.UserStreak) {
	t.Helper()
	if err := g.SaveStreak(context.Background(), s); err != nil {
		t.Fatalf("save streak %s: %v", s.StreakType, err)
	}
}

func reloadStatus(t *testing.T, db *gorm.DB, id uint) models.StreakStatus {
	t.Helper()
	var u models.User
	if err := db.First(&u, id).Error; err != nil {
		t.Fatalf("reload user %d: %v", id, err)
	}
	return u.StreakStatus
}

func ptrTime(v time.Time) *time.Time { return &v }
