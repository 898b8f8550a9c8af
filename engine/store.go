package engine

import (
	"context"
	"time"

	"github.com/pstadniuk-dotcom/MyOnes-sub002/models"
)

// Store is the persistence surface the engine runs on. Point lookups return
// (nil, nil) when the row simply does not exist; User is the exception and
// returns ErrNotFound, since scoring a nonexistent user is a caller bug.
// Implementations translate their own duplicate-key and lock errors into
// ErrConflict.
type Store interface {
	User(ctx context.Context, id uint) (*models.User, error)
	SaveUser(ctx context.Context, u *models.User) error

	ActivityLog(ctx context.Context, userID uint, date string) (*models.DailyActivityLog, error)
	ActivityLogs(ctx context.Context, userID uint, from, to string) ([]models.DailyActivityLog, error)
	MealEntries(ctx context.Context, userID uint, from, to string) ([]models.MealLogEntry, error)
	WorkoutEntries(ctx context.Context, userID uint, from, to string) ([]models.WorkoutLogEntry, error)
	ActivePlan(ctx context.Context, userID uint) (*models.WorkoutPlan, error)

	Completion(ctx context.Context, userID uint, date string) (*models.DailyCompletion, error)
	Completions(ctx context.Context, userID uint, from, to string) ([]models.DailyCompletion, error)
	UpsertCompletion(ctx context.Context, c *models.DailyCompletion) error

	Streak(ctx context.Context, userID uint, st models.StreakType) (*models.UserStreak, error)
	Streaks(ctx context.Context, userID uint) ([]models.UserStreak, error)
	SaveStreak(ctx context.Context, s *models.UserStreak) error

	// WithUserLock serializes all read-modify-write work for one user. The
	// callback receives a Store bound to the lock scope (for transactional
	// implementations, the transaction itself).
	WithUserLock(ctx context.Context, userID uint, fn func(Store) error) error

	SweepStore
}

// SweepStore is the bulk, set-based surface the periodic sweeps run on.
type SweepStore interface {
	// TransitionStatuses applies one guarded bulk status update and reports
	// how many rows actually changed.
	TransitionStatuses(ctx context.Context, t StatusTransition) (int64, error)

	// InconsistentReorderUsers lists users whose status implies an active
	// reorder window but whose window or deadline column is missing.
	InconsistentReorderUsers(ctx context.Context) ([]models.User, error)

	// LapseCandidates pages through non-lapsed users whose deadline passed
	// before the cutoff, in ascending id order starting after afterID.
	LapseCandidates(ctx context.Context, deadlineBefore time.Time, afterID uint, limit int) ([]models.User, error)

	// DecayStaleStreaks zeroes current counters whose last completed date is
	// lexicographically before the cutoff date, returning rows changed.
	DecayStaleStreaks(ctx context.Context, lastCompletedBefore string) (int64, error)
}

// StatusTransition describes one guarded bulk status update. From limits the
// update to rows in the named source states, which is what makes re-running
// a sweep write nothing; the cutoff predicates are instants computed by the
// engine, compared against the user's reorder columns.
type StatusTransition struct {
	From []models.StreakStatus
	To   models.StreakStatus

	// reorder_window_start <= value, when set
	WindowStartAtOrBefore *time.Time
	// reorder_deadline > value, when set
	DeadlineAfter *time.Time
	// reorder_deadline <= value, when set
	DeadlineAtOrBefore *time.Time
}
