package engine

import (
	"context"
	"encoding/json"
	"math"

	"github.com/pstadniuk-dotcom/MyOnes-sub002/models"
	"github.com/pstadniuk-dotcom/MyOnes-sub002/utils"
)

const monthlyWindowDays = 30

// Per-day pass bars for the coarse monthly view. These are deliberately
// simpler than the category scorers; the two paths may disagree and the
// incremental counters stay authoritative.
const (
	mealsPassBar    = 2
	mealsGoal       = 3
	dosesPassBar    = 2
	wellnessPassBar = 2
	wellnessGoal    = 3
	dayPassPercent  = 50
)

// DayBreakdown re-expresses one day's raw logs as human-readable
// sub-metrics for the dashboard.
type DayBreakdown struct {
	MealsLogged     int  `json:"meals_logged"`
	MealsGoal       int  `json:"meals_goal"`
	DosesTaken      int  `json:"doses_taken"`
	DosesGoal       int  `json:"doses_goal"`
	WellnessEntries int  `json:"wellness_entries"`
	WellnessGoal    int  `json:"wellness_goal"`
	WaterOz         int  `json:"water_oz"`
	WaterGoalOz     int  `json:"water_goal_oz"`
	WorkoutLogged   bool `json:"workout_logged"`
}

// DayProgress is one day in the monthly window. Percentage is the share of
// enabled categories that hit their pass bar, over the enabled categories
// that had any data (all enabled categories count for today).
type DayProgress struct {
	Date       string       `json:"date"`
	Percentage int          `json:"percentage"`
	IsRestDay  bool         `json:"is_rest_day"`
	HasData    bool         `json:"has_data"`
	Breakdown  DayBreakdown `json:"breakdown"`
}

// qualifies reports whether the day sustains a streak in the coarse view.
func (d DayProgress) qualifies() bool {
	return d.Percentage >= dayPassPercent || d.IsRestDay
}

// MonthlyView is the 30-day reconstruction the dashboard renders. Its
// streak numbers are recomputed from raw logs, independently of the
// incrementally maintained counters.
type MonthlyView struct {
	CurrentStreak   int           `json:"current_streak"`
	LongestStreak   int           `json:"longest_streak"`
	MonthlyProgress []DayProgress `json:"monthly_progress"`
	TodayBreakdown  *DayProgress  `json:"today_breakdown"`
}

// BuildMonthlyView reconstructs the trailing 30-day window ending at the
// user's local today. Walking back from today, a qualifying day extends the
// current streak, a day that was evaluated and failed breaks it, and a day
// with no data at all is skipped; the longest streak applies the same rule
// anywhere in the window.
func (e *Engine) BuildMonthlyView(ctx context.Context, userID uint, timezone string) (*MonthlyView, error) {
	user, err := e.store.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	tz := timezone
	if tz == "" {
		tz = user.Timezone
	}
	today := e.tz.LocalDate(e.clock.Now(), tz)
	from := AddDays(today, -(monthlyWindowDays - 1))

	activities, err := e.store.ActivityLogs(ctx, userID, from, today)
	if err != nil {
		return nil, err
	}
	meals, err := e.store.MealEntries(ctx, userID, from, today)
	if err != nil {
		return nil, err
	}
	workouts, err := e.store.WorkoutEntries(ctx, userID, from, today)
	if err != nil {
		return nil, err
	}
	plan, err := e.store.ActivePlan(ctx, userID)
	if err != nil {
		return nil, err
	}

	activityByDate := make(map[string]*models.DailyActivityLog, len(activities))
	for i := range activities {
		activityByDate[activities[i].LogDate] = &activities[i]
	}
	mealsByDate := make(map[string][]models.MealLogEntry)
	for _, m := range meals {
		mealsByDate[m.LogDate] = append(mealsByDate[m.LogDate], m)
	}
	workoutsByDate := make(map[string][]models.WorkoutLogEntry)
	for _, w := range workouts {
		workoutsByDate[w.LogDate] = append(workoutsByDate[w.LogDate], w)
	}

	waterGoal := user.WaterGoalOz
	if waterGoal <= 0 {
		waterGoal = e.cfg.DefaultWaterGoalOz
	}

	view := &MonthlyView{MonthlyProgress: make([]DayProgress, 0, monthlyWindowDays)}
	for i := 0; i < monthlyWindowDays; i++ {
		date := AddDays(from, i)
		in := DayInputs{
			Date:        date,
			Activity:    activityByDate[date],
			Meals:       mealsByDate[date],
			Workouts:    workoutsByDate[date],
			WaterGoalOz: waterGoal,
		}
		if d, ok := plan.DayFor(WeekdayOf(date)); ok {
			in.Planned = &d
		}
		view.MonthlyProgress = append(view.MonthlyProgress, buildDayProgress(user, in, date == today))
	}

	view.CurrentStreak = currentRun(view.MonthlyProgress)
	view.LongestStreak = longestRun(view.MonthlyProgress)
	last := view.MonthlyProgress[len(view.MonthlyProgress)-1]
	view.TodayBreakdown = &last

	e.reportDivergence(ctx, userID, today, view.CurrentStreak)
	return view, nil
}

// buildDayProgress reduces one day's inputs to the coarse breakdown.
func buildDayProgress(user *models.User, in DayInputs, isToday bool) DayProgress {
	d := DayProgress{
		Date:      in.Date,
		IsRestDay: in.IsRestDay(),
	}

	mealsLogged := 0
	for _, t := range []models.MealType{models.MealBreakfast, models.MealLunch, models.MealDinner} {
		if in.MealLogged(t) {
			mealsLogged++
		}
	}
	workoutLogged := len(in.Workouts) > 0 ||
		(in.Activity != nil && in.Activity.WorkoutCompleted)
	doses, wellness, water := 0, 0, 0
	if in.Activity != nil {
		doses = in.Activity.DosesTaken()
		wellness = in.Activity.WellnessEntries()
		water = in.Activity.WaterOz
	}
	d.Breakdown = DayBreakdown{
		MealsLogged:     mealsLogged,
		MealsGoal:       mealsGoal,
		DosesTaken:      doses,
		DosesGoal:       doseSlots,
		WellnessEntries: wellness,
		WellnessGoal:    wellnessGoal,
		WaterOz:         water,
		WaterGoalOz:     in.WaterGoalOz,
		WorkoutLogged:   workoutLogged,
	}

	type categoryState struct {
		enabled bool
		hasData bool
		hit     bool
	}
	categories := []categoryState{
		{user.TrackNutrition, mealsLogged > 0 || in.MealLogged(models.MealSnack), mealsLogged >= mealsPassBar},
		{user.TrackWorkouts, workoutLogged || d.IsRestDay, workoutLogged || d.IsRestDay},
		{user.TrackSupplements, doses > 0, doses >= dosesPassBar},
		{user.TrackLifestyle, wellness > 0, wellness >= wellnessPassBar},
	}

	evaluated, hits := 0, 0
	for _, c := range categories {
		if !c.enabled {
			continue
		}
		if c.hasData {
			d.HasData = true
		}
		if c.hasData || isToday {
			evaluated++
		}
		if c.hit {
			hits++
		}
	}
	if evaluated > 0 {
		d.Percentage = int(math.Round(100 * float64(hits) / float64(evaluated)))
	}
	return d
}

// currentRun walks backward from today. Only a day that was evaluated and
// failed stops the walk; no-data days (today included) are passed over.
func currentRun(days []DayProgress) int {
	count := 0
	for i := len(days) - 1; i >= 0; i-- {
		d := days[i]
		switch {
		case d.qualifies():
			count++
		case !d.HasData:
			// never evaluated, keep walking
		default:
			return count
		}
	}
	return count
}

// longestRun finds the longest qualifying run in the window under the same
// skip rule as currentRun.
func longestRun(days []DayProgress) int {
	best, run := 0, 0
	for _, d := range days {
		switch {
		case d.qualifies():
			run++
			if run > best {
				best = run
			}
		case !d.HasData:
			// gap without data holds the run
		default:
			run = 0
		}
	}
	return best
}

// reportDivergence cross-checks the windowed reconstruction against the
// incremental overall counter. The two use different pass rules and may
// legitimately disagree, so this logs at debug level only.
func (e *Engine) reportDivergence(ctx context.Context, userID uint, today string, windowed int) {
	row, err := e.store.Streak(ctx, userID, models.StreakOverall)
	if err != nil || row == nil {
		return
	}
	incremental := e.decayedView(row, today).CurrentStreak
	if incremental != windowed && utils.Sugar != nil {
		utils.Sugar.Debugf("streak divergence user=%d incremental=%d windowed=%d", userID, incremental, windowed)
	}
}

// GetSmartStreakData serves the monthly view, from cache when possible.
func (e *Engine) GetSmartStreakData(ctx context.Context, userID uint, timezone string) (*MonthlyView, error) {
	key := e.cacheKey(userID, "smart", timezone)
	if b, ok := utils.CacheGetBytes(key); ok {
		var cached MonthlyView
		if err := json.Unmarshal(b, &cached); err == nil {
			return &cached, nil
		}
	}
	view, err := e.BuildMonthlyView(ctx, userID, timezone)
	if err != nil {
		return nil, err
	}
	utils.CacheSetJSON(key, view, e.cfg.CacheTTL)
	return view, nil
}
