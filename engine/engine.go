package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/pstadniuk-dotcom/MyOnes-sub002/models"
	"github.com/pstadniuk-dotcom/MyOnes-sub002/utils"
)

// Config carries the engine tunables. Thresholds and windows are
// configuration, not code; the config package maps its JSON/env surface
// onto this struct at boot.
type Config struct {
	// Per-category pass thresholds for streak updates.
	Thresholds map[models.StreakType]float64
	// GraceDays is how many days may elapse since the last completed day
	// before a passing score restarts instead of extending a streak.
	GraceDays        int
	FallbackTimezone string
	// DefaultWaterGoalOz applies when a user has no water goal set.
	DefaultWaterGoalOz int

	// Reorder lifecycle windows, in days relative to the last order.
	ReorderWindowDays   int
	ReorderDeadlineDays int
	ReorderWarningDays  int
	LapseGraceDays      int

	// Lapse sweep pacing.
	SweepBatchSize     int
	SweepBatchesPerSec int

	// CacheTTL bounds staleness of the cached query projections.
	CacheTTL time.Duration
}

// DefaultConfig returns the canonical tuning.
func DefaultConfig() Config {
	return Config{
		Thresholds: map[models.StreakType]float64{
			models.StreakNutrition:   0.50,
			models.StreakWorkout:     0.50,
			models.StreakSupplements: 0.33,
			models.StreakLifestyle:   0.40,
			models.StreakOverall:     0.50,
		},
		GraceDays:           2,
		FallbackTimezone:    "UTC",
		DefaultWaterGoalOz:  64,
		ReorderWindowDays:   75,
		ReorderDeadlineDays: 95,
		ReorderWarningDays:  10,
		LapseGraceDays:      5,
		SweepBatchSize:      200,
		SweepBatchesPerSec:  2,
		CacheTTL:            time.Minute,
	}
}

// Engine scores daily activity, maintains streak counters and drives the
// reorder lifecycle. It owns no scheduling: log-write triggers and sweep
// invocations both come from external callers.
type Engine struct {
	store   Store
	clock   Clock
	cfg     Config
	tz      Normalizer
	limiter *rate.Limiter
}

// New builds an Engine. Zero-valued Config fields fall back to
// DefaultConfig, so Config{} is a usable starting point.
func New(store Store, clock Clock, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Thresholds == nil {
		cfg.Thresholds = def.Thresholds
	}
	if cfg.GraceDays == 0 {
		cfg.GraceDays = def.GraceDays
	}
	if cfg.FallbackTimezone == "" {
		cfg.FallbackTimezone = def.FallbackTimezone
	}
	if cfg.DefaultWaterGoalOz == 0 {
		cfg.DefaultWaterGoalOz = def.DefaultWaterGoalOz
	}
	if cfg.ReorderWindowDays == 0 {
		cfg.ReorderWindowDays = def.ReorderWindowDays
	}
	if cfg.ReorderDeadlineDays == 0 {
		cfg.ReorderDeadlineDays = def.ReorderDeadlineDays
	}
	if cfg.ReorderWarningDays == 0 {
		cfg.ReorderWarningDays = def.ReorderWarningDays
	}
	if cfg.LapseGraceDays == 0 {
		cfg.LapseGraceDays = def.LapseGraceDays
	}
	if cfg.SweepBatchSize == 0 {
		cfg.SweepBatchSize = def.SweepBatchSize
	}
	if cfg.SweepBatchesPerSec == 0 {
		cfg.SweepBatchesPerSec = def.SweepBatchesPerSec
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Engine{
		store:   store,
		clock:   clock,
		cfg:     cfg,
		tz:      NewNormalizer(cfg.FallbackTimezone),
		limiter: rate.NewLimiter(rate.Limit(cfg.SweepBatchesPerSec), 1),
	}
}

// ThresholdFor returns the configured pass threshold for a streak type,
// defaulting to 0.5 for unknown types.
func (e *Engine) ThresholdFor(st models.StreakType) float64 {
	if v, ok := e.cfg.Thresholds[st]; ok {
		return v
	}
	return 0.5
}

// localToday is the user-local calendar date of the current instant.
func (e *Engine) localToday(u *models.User) string {
	return e.tz.LocalDate(e.clock.Now(), u.Timezone)
}

// OnLogWritten is the trigger entry point the logging endpoints call after
// any meal, workout or daily-log mutation. It recomputes the date's
// completion row and every affected streak under the user lock. On a
// concurrent-write conflict it retries once with fresh reads before giving
// up.
func (e *Engine) OnLogWritten(ctx context.Context, userID uint, date string) (*models.DailyCompletion, error) {
	var out *models.DailyCompletion
	run := func() error {
		return e.store.WithUserLock(ctx, userID, func(s Store) error {
			c, err := e.computeAndPersist(ctx, s, userID, date)
			if err != nil {
				return err
			}
			if err := e.updateStreaksForDay(ctx, s, userID, c); err != nil {
				return err
			}
			out = c
			return nil
		})
	}

	err := run()
	if errors.Is(err, ErrConflict) {
		if utils.Sugar != nil {
			utils.Sugar.Warnf("log trigger conflict user=%d date=%s, retrying once", userID, date)
		}
		err = run()
	}
	if err != nil {
		return nil, err
	}
	e.invalidateProjections(userID)
	return out, nil
}

// cacheKey namespaces one user's cached projections so a single prefix
// invalidation clears them all.
func (e *Engine) cacheKey(userID uint, parts ...string) string {
	key := fmt.Sprintf("cache:streaks:%d", userID)
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

func (e *Engine) invalidateProjections(userID uint) {
	utils.InvalidateByPrefix(fmt.Sprintf("cache:streaks:%d:", userID))
}
