package models

import "time"

// DailyCompletion is the scored summary of one user-local day, exactly one
// row per (user, date). Category scores are fractions in [0,1] rounded to
// two decimals. WorkoutScore is nil when the category did not apply that
// day (nothing planned, nothing logged, not a rest day); the other three
// always carry a value, with missing data scoring 0.
type DailyCompletion struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID uint   `gorm:"not null;uniqueIndex:uidx_completion_user_date" json:"user_id"`
	Date   string `gorm:"size:10;not null;uniqueIndex:uidx_completion_user_date" json:"date"`

	NutritionScore  *float64 `json:"nutrition_score"`
	WorkoutScore    *float64 `json:"workout_score"`
	SupplementScore *float64 `json:"supplement_score"`
	LifestyleScore  *float64 `json:"lifestyle_score"`
	DailyScore      float64  `gorm:"default:0" json:"daily_score"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
