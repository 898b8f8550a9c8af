package models

import "time"

// MealType identifies which meal slot an entry belongs to.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

// MealLogEntry is one logged meal with its macros. A user may log several
// entries per slot per day; the scorer only cares that the slot was logged
// and sums calories across entries.
type MealLogEntry struct {
	ID       uint     `gorm:"primaryKey" json:"id"`
	UserID   uint     `gorm:"not null;index:idx_meal_user_date" json:"user_id"`
	LogDate  string   `gorm:"size:10;not null;index:idx_meal_user_date" json:"log_date"`
	MealType MealType `gorm:"size:16;not null" json:"meal_type"`

	Description string  `gorm:"size:255" json:"description"`
	Calories    int     `gorm:"default:0" json:"calories"`
	ProteinG    float64 `gorm:"default:0" json:"protein_g"`
	CarbsG      float64 `gorm:"default:0" json:"carbs_g"`
	FatG        float64 `gorm:"default:0" json:"fat_g"`

	LoggedAt  time.Time `json:"logged_at"`
	CreatedAt time.Time `json:"created_at"`
}
