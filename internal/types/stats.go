package types

import "time"

// DailyStats aggregates the closed sessions of one app on one calendar day.
// The aggregate view across all apps uses an empty AppID and carries the
// per-app breakdown.
type DailyStats struct {
	AppID                 string             `json:"appId"`
	Date                  time.Time          `json:"date"`
	TotalMinutes          float64            `json:"totalMinutes"`
	SessionCount          int                `json:"sessionCount"`
	AverageSessionMinutes float64            `json:"averageSessionMinutes"`
	LongestSessionMinutes float64            `json:"longestSessionMinutes"`
	AppBreakdown          map[string]float64 `json:"appBreakdown,omitempty"`
}

// TrendDirection reports how average daily usage moved between two windows.
type TrendDirection int

const (
	TrendStable TrendDirection = iota
	TrendUp
	TrendDown
)

func (d TrendDirection) String() string {
	switch d {
	case TrendUp:
		return "up"
	case TrendDown:
		return "down"
	default:
		return "stable"
	}
}

// Trend compares average daily minutes of the current window against the
// immediately preceding window of equal length.
type Trend struct {
	Direction       TrendDirection `json:"direction"`
	ChangePercent   float64        `json:"changePercent"`
	CurrentAverage  float64        `json:"currentAverage"`
	PreviousAverage float64        `json:"previousAverage"`
	PeriodDays      int            `json:"periodDays"`
}
