package models

import "time"

// DailyActivityLog is the one-row-per-day summary a user builds up through
// the day: meal flags, supplement doses, wellness check-ins and water. Dates
// are user-local calendar days in YYYY-MM-DD form, never instants.
type DailyActivityLog struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	UserID  uint   `gorm:"not null;uniqueIndex:uidx_activity_user_date" json:"user_id"`
	LogDate string `gorm:"size:10;not null;uniqueIndex:uidx_activity_user_date" json:"log_date"`

	BreakfastLogged bool `json:"breakfast_logged"`
	LunchLogged     bool `json:"lunch_logged"`
	DinnerLogged    bool `json:"dinner_logged"`
	SnackLogged     bool `json:"snack_logged"`

	WorkoutCompleted     bool `json:"workout_completed"`
	NutritionCompleted   bool `json:"nutrition_completed"`
	SupplementsCompleted bool `json:"supplements_completed"`

	SupplementMorning   bool `json:"supplement_morning"`
	SupplementAfternoon bool `json:"supplement_afternoon"`
	SupplementEvening   bool `json:"supplement_evening"`

	// Wellness check-ins are 1-5 ratings; nil means not filled in.
	SleepQuality *int `json:"sleep_quality"`
	EnergyLevel  *int `json:"energy_level"`
	MoodLevel    *int `json:"mood_level"`
	WaterOz      int  `gorm:"default:0" json:"water_oz"`

	IsRestDay bool `json:"is_rest_day"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DosesTaken counts the supplement dose slots checked off for the day.
func (l *DailyActivityLog) DosesTaken() int {
	n := 0
	if l.SupplementMorning {
		n++
	}
	if l.SupplementAfternoon {
		n++
	}
	if l.SupplementEvening {
		n++
	}
	return n
}

// WellnessEntries counts the filled-in wellness ratings for the day.
func (l *DailyActivityLog) WellnessEntries() int {
	n := 0
	if l.SleepQuality != nil {
		n++
	}
	if l.EnergyLevel != nil {
		n++
	}
	if l.MoodLevel != nil {
		n++
	}
	return n
}
