package domain

import "time"

// WindowStats summarizes one user's habits over a date window.
type WindowStats struct {
	StartDate   string      `json:"start_date"`
	EndDate     string      `json:"end_date"`
	TotalHabits int         `json:"total_habits"`
	OverallRate float64     `json:"overall_completion_rate"`
	HabitStats  []HabitStat `json:"habits"`
}

type HabitStat struct {
	HabitID        string  `json:"habit_id"`
	HabitName      string  `json:"habit_name"`
	TargetValue    int     `json:"target_value"`
	Unit           string  `json:"unit"`
	TotalValue     int     `json:"total_value"`
	CompletionRate float64 `json:"completion_rate"`
	DaysCompleted  int     `json:"days_completed"`
	CurrentStreak  int     `json:"current_streak"`
	LongestStreak  int     `json:"longest_streak"`
}

type StatsInput struct {
	UserID    string
	StartDate time.Time
	EndDate   time.Time
}
