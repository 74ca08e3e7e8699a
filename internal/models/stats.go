package models

import "time"

// UserStats is derived from one user's entry history on demand.
type UserStats struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	TotalSeconds      int64     `json:"totalSeconds"`
	PresentDays       int       `json:"presentDays"`
	AbsentDays        int       `json:"absentDays"`
	AutoAbsentDays    int       `json:"autoAbsentDays"`
	LastActivity      time.Time `json:"lastActivity"`
	WeeklyAverage     int64     `json:"weeklyAverage"`
	MonthlyAverage    int64     `json:"monthlyAverage"`
	OnTimeSubmissions int       `json:"onTimeSubmissions"`
	LateSubmissions   int       `json:"lateSubmissions"`
}

// Summary aggregates entries over a date range for dashboards.
type Summary struct {
	From                  string `json:"from"`
	To                    string `json:"to"`
	TotalSeconds          int64  `json:"totalSeconds"`
	PresentCount          int    `json:"presentCount"`
	AbsentCount           int    `json:"absentCount"`
	AutoAbsentCount       int    `json:"autoAbsentCount"`
	LateCount             int    `json:"lateCount"`
	TrackedUsers          int    `json:"trackedUsers"`
	OverallWeeklyAverage  int64  `json:"overallWeeklyAverage"`
	OverallMonthlyAverage int64  `json:"overallMonthlyAverage"`
}
