package engine

import (
	"math"
	"strings"

	"github.com/pstadniuk-dotcom/MyOnes-sub002/models"
)

// Overall-score weight presets. When workout is inapplicable its weight is
// redistributed through the second preset rather than renormalized ad hoc,
// so the two presets are the only weightings that ever occur.
var (
	weightNutrition   = 0.25
	weightWorkout     = 0.30
	weightSupplements = 0.25
	weightLifestyle   = 0.20

	weightNutritionNoWorkout   = 0.35
	weightSupplementsNoWorkout = 0.35
	weightLifestyleNoWorkout   = 0.30
)

// Scoring constants. Calorie bounds delimit the "reasonable intake" band
// that earns the nutrition bonus.
const (
	mainMealCredit = 0.25
	snackCredit    = 0.10
	calorieCredit  = 0.15
	calorieMin     = 1500
	calorieMax     = 3000

	wellnessCredit      = 0.33
	wellnessCreditFinal = 0.34
	waterCredit         = 0.10

	doseSlots = 3
)

// DayInputs bundles everything the scorers read for one user-local day.
// Activity and Planned are nil when no row/slot exists; that is "no data",
// not an error.
type DayInputs struct {
	Date        string
	Activity    *models.DailyActivityLog
	Meals       []models.MealLogEntry
	Workouts    []models.WorkoutLogEntry
	Planned     *models.PlannedDay
	WaterGoalOz int
}

// MealLogged reports whether a meal slot was logged that day, via either
// the daily-log flag or an explicit meal entry.
func (in DayInputs) MealLogged(t models.MealType) bool {
	if a := in.Activity; a != nil {
		switch t {
		case models.MealBreakfast:
			if a.BreakfastLogged {
				return true
			}
		case models.MealLunch:
			if a.LunchLogged {
				return true
			}
		case models.MealDinner:
			if a.DinnerLogged {
				return true
			}
		case models.MealSnack:
			if a.SnackLogged {
				return true
			}
		}
	}
	for _, m := range in.Meals {
		if m.MealType == t {
			return true
		}
	}
	return false
}

// TotalCalories sums calories across the day's meal entries.
func (in DayInputs) TotalCalories() int {
	total := 0
	for _, m := range in.Meals {
		total += m.Calories
	}
	return total
}

// DistinctExercises counts unique completed exercise names across the day's
// workout sessions, case-insensitively.
func (in DayInputs) DistinctExercises() int {
	seen := map[string]struct{}{}
	for _, w := range in.Workouts {
		for _, ex := range w.CompletedExercises {
			name := strings.ToLower(strings.TrimSpace(ex.Name))
			if name == "" {
				continue
			}
			seen[name] = struct{}{}
		}
	}
	return len(seen)
}

// IsRestDay reports whether the day counts as rest, via the plan slot or the
// daily-log flag.
func (in DayInputs) IsRestDay() bool {
	if in.Planned != nil && in.Planned.IsRest() {
		return true
	}
	return in.Activity != nil && in.Activity.IsRestDay
}

// NutritionScore: 0.25 per main meal logged, +0.10 for a snack, +0.15 when
// total logged calories land inside the target band. Missing data scores 0,
// never nil.
func NutritionScore(in DayInputs) float64 {
	score := 0.0
	for _, t := range []models.MealType{models.MealBreakfast, models.MealLunch, models.MealDinner} {
		if in.MealLogged(t) {
			score += mainMealCredit
		}
	}
	if in.MealLogged(models.MealSnack) {
		score += snackCredit
	}
	if cal := in.TotalCalories(); cal >= calorieMin && cal <= calorieMax {
		score += calorieCredit
	}
	return round2(clamp01(score))
}

// WorkoutScore treats rest as success (1.0) and a day with neither a plan
// slot nor any logged activity as inapplicable (nil), which drops the
// category from the overall average. Applicable days score by distinct
// completed exercises; a bare completion flag with no session detail earns
// the single-exercise credit.
func WorkoutScore(in DayInputs) *float64 {
	if in.IsRestDay() {
		return ptrFloat(1.0)
	}
	flagged := in.Activity != nil && in.Activity.WorkoutCompleted
	if in.Planned == nil && len(in.Workouts) == 0 && !flagged {
		return nil
	}
	var score float64
	switch n := in.DistinctExercises(); {
	case n >= 6:
		score = 1.0
	case n >= 4:
		score = 0.75
	case n >= 2:
		score = 0.50
	case n >= 1:
		score = 0.25
	case flagged:
		score = 0.25
	default:
		score = 0.0
	}
	return ptrFloat(score)
}

// SupplementScore is doses taken over the three daily slots, rounded to two
// decimals. No daily log means no doses.
func SupplementScore(in DayInputs) float64 {
	if in.Activity == nil {
		return 0
	}
	return round2(float64(in.Activity.DosesTaken()) / doseSlots)
}

// LifestyleScore credits presence of the three wellness check-ins (any value
// counts, not a "good" one) plus a water bonus, capped at 1.0.
func LifestyleScore(in DayInputs) float64 {
	a := in.Activity
	if a == nil {
		return 0
	}
	score := 0.0
	if a.SleepQuality != nil {
		score += wellnessCredit
	}
	if a.EnergyLevel != nil {
		score += wellnessCredit
	}
	if a.MoodLevel != nil {
		score += wellnessCreditFinal
	}
	goal := in.WaterGoalOz
	if goal <= 0 {
		goal = 64
	}
	if a.WaterOz >= goal {
		score += waterCredit
	}
	return round2(clamp01(score))
}

// OverallScore is the weighted mean over the applicable categories, using
// the preset matching workout applicability.
func OverallScore(nutrition float64, workout *float64, supplements, lifestyle float64) float64 {
	if workout == nil {
		return round2(weightNutritionNoWorkout*nutrition +
			weightSupplementsNoWorkout*supplements +
			weightLifestyleNoWorkout*lifestyle)
	}
	return round2(weightNutrition*nutrition +
		weightWorkout*(*workout) +
		weightSupplements*supplements +
		weightLifestyle*lifestyle)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// round2 pins scores to two decimals so recomputation of an unchanged day
// stores byte-identical values.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func ptrFloat(v float64) *float64 { return &v }
