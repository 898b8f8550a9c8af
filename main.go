package main

import (
	"context"
	"time"

	"github.com/pstadniuk-dotcom/MyOnes-sub002/config"
	"github.com/pstadniuk-dotcom/MyOnes-sub002/engine"
	"github.com/pstadniuk-dotcom/MyOnes-sub002/models"
	"github.com/pstadniuk-dotcom/MyOnes-sub002/store"
	"github.com/pstadniuk-dotcom/MyOnes-sub002/utils"
)

// The binary runs the daily lifecycle sweeps once and exits, so it can sit
// behind cron or any scheduler without owning one.
func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.User{}, &models.DailyActivityLog{}, &models.MealLogEntry{},
		&models.WorkoutLogEntry{}, &models.WorkoutPlan{}, &models.DailyCompletion{}, &models.UserStreak{})

	eng := engine.New(store.NewGorm(db), engine.SystemClock{}, engineConfig(cfg))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	status, err := eng.RunDailyStatusSweep(ctx)
	if err != nil {
		utils.Sugar.Fatalf("status sweep %s failed: %v", status.RunID, err)
	}
	lapse, err := eng.RunLapseSweep(ctx)
	if err != nil {
		utils.Sugar.Fatalf("lapse sweep %s failed after %d users: %v", lapse.RunID, lapse.UsersLapsed, err)
	}

	utils.Sugar.Infof("daily sweeps done: ready=%d warning=%d grace=%d lapsed=%d decayed=%d skipped=%d errors=%d",
		status.MarkedReady, status.MarkedWarning, status.MarkedGrace,
		lapse.UsersLapsed, status.StreaksDecayed, status.SkippedInconsistent, lapse.LapseErrors)
}

// engineConfig maps the loaded application config onto the engine tunables.
// The mapping lives here because the config package cannot import the engine.
func engineConfig(cfg config.AppConfig) engine.Config {
	return engine.Config{
		Thresholds: map[models.StreakType]float64{
			models.StreakNutrition:   cfg.NutritionThreshold,
			models.StreakWorkout:     cfg.WorkoutThreshold,
			models.StreakSupplements: cfg.SupplementThreshold,
			models.StreakLifestyle:   cfg.LifestyleThreshold,
			models.StreakOverall:     cfg.OverallThreshold,
		},
		GraceDays:           cfg.StreakGraceDays,
		FallbackTimezone:    cfg.FallbackTimezone,
		DefaultWaterGoalOz:  cfg.DefaultWaterGoalOz,
		ReorderWindowDays:   cfg.ReorderWindowDays,
		ReorderDeadlineDays: cfg.ReorderDeadlineDays,
		ReorderWarningDays:  cfg.ReorderWarningDays,
		LapseGraceDays:      cfg.LapseGraceDays,
		SweepBatchSize:      cfg.SweepBatchSize,
		SweepBatchesPerSec:  cfg.SweepBatchesPerSec,
		CacheTTL:            time.Duration(cfg.CacheTTLSeconds) * time.Second,
	}
}
