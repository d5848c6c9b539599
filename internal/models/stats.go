package models

import "time"

// MaturityBuckets groups cards by interval the way the word table does:
// new up to one day, learning up to three weeks, known beyond.
type MaturityBuckets struct {
	New      int `json:"new"`
	Learning int `json:"learning"`
	Known    int `json:"known"`
}

// ForecastDay is the number of reviews falling due on one calendar day.
type ForecastDay struct {
	Date  time.Time `json:"-"`
	Day   string    `json:"date"`
	Count int       `json:"count"`
}

// ProgressDay is the number of known cards still scheduled past one day.
type ProgressDay struct {
	Date  time.Time `json:"-"`
	Day   string    `json:"date"`
	Known int       `json:"known"`
}

// DeckStats summarises one deck for the dashboard.
type DeckStats struct {
	Deck            string          `json:"deck"`
	TotalCards      int             `json:"total_cards"`
	ByState         map[State]int   `json:"by_state"`
	Buckets         MaturityBuckets `json:"buckets"`
	DueToday        int             `json:"due_today"`
	Forecast        []ForecastDay   `json:"forecast"`
	Progress        []ProgressDay   `json:"progress"`
	Streak          int             `json:"streak"`
	AvgFactor       float64         `json:"avg_factor"`
	AvgIntervalDays float64         `json:"avg_interval_days"`
	TotalLapses     int             `json:"total_lapses"`
}
