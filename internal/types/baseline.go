package types

import "time"

// UserBaseline captures first-week usage patterns. Computed once after the
// observation window and then frozen.
type UserBaseline struct {
	FirstWeekAppMinutes   map[string]float64 `json:"firstWeekAppMinutes"`
	PeakHourByApp         map[string]int     `json:"peakHourByApp"`
	AverageDailySessions  float64            `json:"averageDailySessions"`
	AverageSessionMinutes float64            `json:"averageSessionMinutes"`
	PeakUsageHour         int                `json:"peakUsageHour"`
	Completed             bool               `json:"completed"`
	ObservationStart      time.Time          `json:"observationStart"`
	ComputedAt            time.Time          `json:"computedAt"`
}

// PeakHourFor returns the historical peak usage hour for an app, falling
// back to the overall peak. Returns -1 when the baseline has no signal.
func (b *UserBaseline) PeakHourFor(appID string) int {
	if b == nil || !b.Completed {
		return -1
	}
	if h, ok := b.PeakHourByApp[appID]; ok {
		return h
	}
	return b.PeakUsageHour
}
