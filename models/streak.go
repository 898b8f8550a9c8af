package models

import "time"

// StreakType is one adherence axis tracked per user.
type StreakType string

const (
	StreakOverall     StreakType = "overall"
	StreakNutrition   StreakType = "nutrition"
	StreakWorkout     StreakType = "workout"
	StreakSupplements StreakType = "supplements"
	StreakLifestyle   StreakType = "lifestyle"
)

// CategoryStreakTypes lists the per-category axes, overall excluded.
var CategoryStreakTypes = []StreakType{
	StreakNutrition,
	StreakWorkout,
	StreakSupplements,
	StreakLifestyle,
}

// UserStreak is the incrementally maintained counter pair for one
// (user, streak type). LongestStreak never drops below CurrentStreak.
// LastCompletedDate is the most recent day that passed the category
// threshold; LastLoggedDate the most recent day scored at all.
type UserStreak struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"not null;uniqueIndex:uidx_streak_user_type" json:"user_id"`
	StreakType StreakType `gorm:"size:16;not null;uniqueIndex:uidx_streak_user_type" json:"streak_type"`

	CurrentStreak     int     `gorm:"default:0" json:"current_streak"`
	LongestStreak     int     `gorm:"default:0" json:"longest_streak"`
	LastCompletedDate *string `gorm:"size:10" json:"last_completed_date"`
	LastLoggedDate    *string `gorm:"size:10" json:"last_logged_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
