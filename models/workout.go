package models

import (
	"strings"
	"time"
)

// ExerciseCompletion is one finished exercise inside a logged session.
type ExerciseCompletion struct {
	Name string `json:"name"`
	Sets int    `json:"sets"`
}

// WorkoutLogEntry records a finished workout session for a user-local day.
type WorkoutLogEntry struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	UserID  uint   `gorm:"not null;index:idx_workout_user_date" json:"user_id"`
	LogDate string `gorm:"size:10;not null;index:idx_workout_user_date" json:"log_date"`

	CompletedExercises []ExerciseCompletion `gorm:"serializer:json" json:"completed_exercises"`
	DurationMin        int                  `gorm:"default:0" json:"duration_min"`
	Difficulty         string               `gorm:"size:16" json:"difficulty"`

	LoggedAt  time.Time `json:"logged_at"`
	CreatedAt time.Time `json:"created_at"`
}

// PlannedDayKind tags the two schedule slot variants.
type PlannedDayKind string

const (
	PlannedRest    PlannedDayKind = "rest"
	PlannedWorkout PlannedDayKind = "workout"
)

// PlannedDay is one weekday slot in a workout plan: either an explicit rest
// day or a reference to the workout scheduled for that day. The two variants
// are distinguished by Kind; WorkoutID is only meaningful for workout slots.
type PlannedDay struct {
	Kind      PlannedDayKind `json:"kind"`
	WorkoutID string         `json:"workout_id,omitempty"`
}

// IsRest reports whether the slot is an explicit rest day.
func (d PlannedDay) IsRest() bool { return d.Kind == PlannedRest }

// WorkoutPlan holds a user's weekly schedule. Keys are lowercase English
// weekday names; a missing key means nothing is planned for that weekday.
type WorkoutPlan struct {
	ID       uint                  `gorm:"primaryKey" json:"id"`
	UserID   uint                  `gorm:"not null;index" json:"user_id"`
	Name     string                `gorm:"size:128" json:"name"`
	Schedule map[string]PlannedDay `gorm:"serializer:json" json:"schedule"`
	Active   bool                  `gorm:"default:true;index" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DayFor returns the planned slot for a weekday, if the plan defines one.
func (p *WorkoutPlan) DayFor(weekday time.Weekday) (PlannedDay, bool) {
	if p == nil || p.Schedule == nil {
		return PlannedDay{}, false
	}
	d, ok := p.Schedule[strings.ToLower(weekday.String())]
	return d, ok
}
