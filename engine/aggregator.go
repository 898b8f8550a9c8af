package engine

import (
	"context"
	"fmt"

	"github.com/pstadniuk-dotcom/MyOnes-sub002/models"
)

// ComputeAndPersist scores one user-local date and upserts the completion
// row under the user lock. Recomputing a date with unchanged logs writes
// identical values; the row is overwritten in place, never appended.
func (e *Engine) ComputeAndPersist(ctx context.Context, userID uint, date string) (*models.DailyCompletion, error) {
	var out *models.DailyCompletion
	err := e.store.WithUserLock(ctx, userID, func(s Store) error {
		c, err := e.computeAndPersist(ctx, s, userID, date)
		out = c
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) computeAndPersist(ctx context.Context, s Store, userID uint, date string) (*models.DailyCompletion, error) {
	user, err := s.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	in, err := e.dayInputs(ctx, s, user, date)
	if err != nil {
		// Abort with nothing persisted; missing categories must never be
		// silently scored as zero because a fetch failed.
		return nil, fmt.Errorf("load day inputs user=%d date=%s: %w", userID, date, err)
	}

	nutrition := NutritionScore(in)
	workout := WorkoutScore(in)
	supplements := SupplementScore(in)
	lifestyle := LifestyleScore(in)

	c := &models.DailyCompletion{
		UserID:          userID,
		Date:            date,
		NutritionScore:  ptrFloat(nutrition),
		WorkoutScore:    workout,
		SupplementScore: ptrFloat(supplements),
		LifestyleScore:  ptrFloat(lifestyle),
		DailyScore:      OverallScore(nutrition, workout, supplements, lifestyle),
	}
	if err := s.UpsertCompletion(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// dayInputs loads the scoring snapshot for one date. Store errors abort the
// pass; absent rows are simply no data.
func (e *Engine) dayInputs(ctx context.Context, s Store, user *models.User, date string) (DayInputs, error) {
	in := DayInputs{Date: date, WaterGoalOz: user.WaterGoalOz}
	if in.WaterGoalOz <= 0 {
		in.WaterGoalOz = e.cfg.DefaultWaterGoalOz
	}

	activity, err := s.ActivityLog(ctx, user.ID, date)
	if err != nil {
		return DayInputs{}, err
	}
	in.Activity = activity

	meals, err := s.MealEntries(ctx, user.ID, date, date)
	if err != nil {
		return DayInputs{}, err
	}
	in.Meals = meals

	workouts, err := s.WorkoutEntries(ctx, user.ID, date, date)
	if err != nil {
		return DayInputs{}, err
	}
	in.Workouts = workouts

	plan, err := s.ActivePlan(ctx, user.ID)
	if err != nil {
		return DayInputs{}, err
	}
	if d, ok := plan.DayFor(WeekdayOf(date)); ok {
		in.Planned = &d
	}
	return in, nil
}
