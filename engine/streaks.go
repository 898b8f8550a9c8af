package engine

import (
	"context"
	"encoding/json"

	"github.com/pstadniuk-dotcom/MyOnes-sub002/models"
	"github.com/pstadniuk-dotcom/MyOnes-sub002/utils"
)

// UpdateCategoryStreak applies one day's score to a streak counter under the
// user lock. The decision table: a passing score extends the streak when the
// gap since the last completed day is within grace, restarts it otherwise;
// a same-day re-score is a no-op; a failing score only zeroes the counter
// once the last completed day is more than one day stale.
func (e *Engine) UpdateCategoryStreak(ctx context.Context, userID uint, category models.StreakType, todayScore float64, date string, threshold float64) (*models.UserStreak, error) {
	var out *models.UserStreak
	err := e.store.WithUserLock(ctx, userID, func(s Store) error {
		row, err := e.applyStreakDay(ctx, s, userID, category, todayScore, date, threshold)
		out = row
		return err
	})
	if err != nil {
		return nil, err
	}
	e.invalidateProjections(userID)
	return out, nil
}

func (e *Engine) applyStreakDay(ctx context.Context, s Store, userID uint, category models.StreakType, todayScore float64, date string, threshold float64) (*models.UserStreak, error) {
	row, err := s.Streak(ctx, userID, category)
	if err != nil {
		return nil, err
	}
	if row == nil {
		row = &models.UserStreak{UserID: userID, StreakType: category}
		if todayScore >= threshold {
			row.CurrentStreak = 1
			row.LongestStreak = 1
			d := date
			row.LastCompletedDate = &d
		}
		d := date
		row.LastLoggedDate = &d
		return row, s.SaveStreak(ctx, row)
	}

	if todayScore >= threshold {
		switch {
		case row.LastCompletedDate == nil:
			row.CurrentStreak = 1
		case *row.LastCompletedDate == date:
			// re-score of an already-counted day
		default:
			gap := DaysBetween(*row.LastCompletedDate, date)
			switch {
			case gap < 0:
				// late backfill for a day older than the last completed
				// one; the newer day already counted, hold everything
			case gap <= e.cfg.GraceDays:
				row.CurrentStreak++
			default:
				row.CurrentStreak = 1
			}
		}
		if row.LastCompletedDate == nil || *row.LastCompletedDate < date {
			d := date
			row.LastCompletedDate = &d
		}
	} else {
		if row.LastCompletedDate != nil && DaysBetween(*row.LastCompletedDate, date) > 1 {
			row.CurrentStreak = 0
		}
		// otherwise hold: still inside the failure grace
	}

	if row.LastLoggedDate == nil || *row.LastLoggedDate < date {
		d := date
		row.LastLoggedDate = &d
	}
	if row.CurrentStreak > row.LongestStreak {
		row.LongestStreak = row.CurrentStreak
	}
	return row, s.SaveStreak(ctx, row)
}

// updateStreaksForDay feeds a freshly scored completion row into the four
// category streaks plus the overall streak. An inapplicable workout day
// neither extends nor breaks the workout streak.
func (e *Engine) updateStreaksForDay(ctx context.Context, s Store, userID uint, c *models.DailyCompletion) error {
	apply := func(category models.StreakType, score *float64) error {
		if score == nil {
			return nil
		}
		_, err := e.applyStreakDay(ctx, s, userID, category, *score, c.Date, e.ThresholdFor(category))
		return err
	}
	if err := apply(models.StreakNutrition, c.NutritionScore); err != nil {
		return err
	}
	if err := apply(models.StreakWorkout, c.WorkoutScore); err != nil {
		return err
	}
	if err := apply(models.StreakSupplements, c.SupplementScore); err != nil {
		return err
	}
	if err := apply(models.StreakLifestyle, c.LifestyleScore); err != nil {
		return err
	}
	overall := c.DailyScore
	return apply(models.StreakOverall, &overall)
}

// GetUserStreak returns one streak counter as of the user's current local
// day. The read is pure: a streak whose grace window already lapsed reads
// as current=0, and the daily sweep persists that decay later. Returns
// (nil, nil) when the user has no row for the type yet.
func (e *Engine) GetUserStreak(ctx context.Context, userID uint, category models.StreakType) (*models.UserStreak, error) {
	user, err := e.store.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	row, err := e.store.Streak(ctx, userID, category)
	if err != nil || row == nil {
		return nil, err
	}
	return e.decayedView(row, e.localToday(user)), nil
}

// decayedView presents current=0 once more than GraceDays have passed since
// the last completed day. Copy on write; stored rows are never touched here.
func (e *Engine) decayedView(row *models.UserStreak, today string) *models.UserStreak {
	if row.CurrentStreak > 0 && row.LastCompletedDate != nil &&
		DaysBetween(*row.LastCompletedDate, today) > e.cfg.GraceDays {
		cp := *row
		cp.CurrentStreak = 0
		return &cp
	}
	return row
}

// StreakSummary is the dashboard projection of every streak counter plus
// today's completion row, when the day has already been scored.
type StreakSummary struct {
	UserID  uint                                     `json:"user_id"`
	Date    string                                   `json:"date"`
	Streaks map[models.StreakType]*models.UserStreak `json:"streaks"`
	Today   *models.DailyCompletion                  `json:"today"`
}

// GetStreakSummary assembles the summary projection, serving from cache
// when possible. Counters are presented with decay applied.
func (e *Engine) GetStreakSummary(ctx context.Context, userID uint) (*StreakSummary, error) {
	key := e.cacheKey(userID, "summary")
	if b, ok := utils.CacheGetBytes(key); ok {
		var cached StreakSummary
		if err := json.Unmarshal(b, &cached); err == nil {
			return &cached, nil
		}
	}

	user, err := e.store.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	today := e.localToday(user)

	rows, err := e.store.Streaks(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := &StreakSummary{
		UserID:  userID,
		Date:    today,
		Streaks: make(map[models.StreakType]*models.UserStreak, len(rows)),
	}
	for i := range rows {
		row := rows[i]
		summary.Streaks[row.StreakType] = e.decayedView(&row, today)
	}

	completion, err := e.store.Completion(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	summary.Today = completion

	utils.CacheSetJSON(key, summary, e.cfg.CacheTTL)
	return summary, nil
}
