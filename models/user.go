package models

import (
	"time"

	"gorm.io/gorm"
)

// StreakStatus is a user's position in the reorder lifecycle. It only moves
// forward through the sweeps; placing an order resets it to building.
type StreakStatus string

const (
	StreakStatusBuilding StreakStatus = "building"
	StreakStatusReady    StreakStatus = "ready"
	StreakStatusWarning  StreakStatus = "warning"
	StreakStatusGrace    StreakStatus = "grace"
	StreakStatusLapsed   StreakStatus = "lapsed"
)

// User represents a subscriber. The engine only owns the timezone, tracking
// preferences and reorder lifecycle columns; account and billing data live
// in the platform service.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Email    string `gorm:"size:255" json:"email"`
	Timezone string `gorm:"size:64;default:UTC" json:"timezone"`

	TrackNutrition   bool `gorm:"default:true" json:"track_nutrition"`
	TrackWorkouts    bool `gorm:"default:true" json:"track_workouts"`
	TrackSupplements bool `gorm:"default:true" json:"track_supplements"`
	TrackLifestyle   bool `gorm:"default:true" json:"track_lifestyle"`
	WaterGoalOz      int  `gorm:"default:64" json:"water_goal_oz"`

	LastOrderDate        *time.Time   `json:"last_order_date"`
	ReorderWindowStart   *time.Time   `json:"reorder_window_start"`
	ReorderDeadline      *time.Time   `json:"reorder_deadline"`
	StreakStatus         StreakStatus `gorm:"size:16;default:building;index" json:"streak_status"`
	StreakDiscountEarned int          `gorm:"default:0" json:"streak_discount_earned"`
	StreakCurrentDays    int          `gorm:"default:0" json:"streak_current_days"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if u.StreakStatus == "" {
		u.StreakStatus = StreakStatusBuilding
	}
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
