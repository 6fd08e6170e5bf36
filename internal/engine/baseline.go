package engine

import (
	"context"
	"time"

	repoerrors "aware/internal/infrastructure/errors"
	"aware/internal/infrastructure/logging"
	"aware/internal/repository"
	"aware/internal/types"
)

// BaselineBuilder computes the frozen first-week usage baseline once the
// observation window has elapsed.
type BaselineBuilder struct {
	repo   repository.WellbeingRepository
	config *Config
	logger logging.Logger
}

// NewBaselineBuilder creates a baseline builder
func NewBaselineBuilder(repo repository.WellbeingRepository, config *Config, logger logging.Logger) *BaselineBuilder {
	if config == nil {
		config = DefaultEngineConfig()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &BaselineBuilder{repo: repo, config: config, logger: logger}
}

// Ensure returns the frozen baseline, computing it if the observation
// window just completed. Before the window has elapsed it returns
// ErrInsufficientData; the first call starts the observation clock.
func (b *BaselineBuilder) Ensure(ctx context.Context, now time.Time) (*types.UserBaseline, error) {
	baseline, err := b.repo.GetBaseline(ctx)
	if err != nil {
		if !repoerrors.IsNotFound(err) {
			return nil, err
		}
		baseline = &types.UserBaseline{
			FirstWeekAppMinutes: make(map[string]float64),
			PeakHourByApp:       make(map[string]int),
			PeakUsageHour:       -1,
			ObservationStart:    types.DateOf(now),
		}
		if err := b.repo.SaveBaseline(ctx, baseline); err != nil {
			return nil, err
		}
		b.logger.Info("Baseline observation started",
			"observation_start", baseline.ObservationStart.Format("2006-01-02"),
			"window_days", b.config.BaselineObservationDays)
		return nil, ErrInsufficientData
	}

	// Computed once and then frozen
	if baseline.Completed {
		return baseline, nil
	}

	windowEnd := types.DateOf(baseline.ObservationStart).AddDate(0, 0, b.config.BaselineObservationDays)
	if types.DateOf(now).Before(windowEnd) {
		return nil, ErrInsufficientData
	}

	return b.compute(ctx, baseline, windowEnd, now)
}

func (b *BaselineBuilder) compute(ctx context.Context, baseline *types.UserBaseline, windowEnd, now time.Time) (*types.UserBaseline, error) {
	sessions, err := b.repo.GetSessionsByDateRange(ctx, "", baseline.ObservationStart, windowEnd)
	if err != nil {
		return nil, err
	}

	appMinutes := make(map[string]float64)
	appHourMinutes := make(map[string]map[int]float64)
	hourMinutes := make(map[int]float64)
	var totalMinutes float64

	for i := range sessions {
		session := &sessions[i]
		minutes := session.DurationMinutes()
		hour := session.StartTime.Hour()

		appMinutes[session.AppID] += minutes
		if appHourMinutes[session.AppID] == nil {
			appHourMinutes[session.AppID] = make(map[int]float64)
		}
		appHourMinutes[session.AppID][hour] += minutes
		hourMinutes[hour] += minutes
		totalMinutes += minutes
	}

	days := float64(b.config.BaselineObservationDays)
	baseline.FirstWeekAppMinutes = make(map[string]float64, len(appMinutes))
	for appID, minutes := range appMinutes {
		baseline.FirstWeekAppMinutes[appID] = minutes / days
	}

	baseline.PeakHourByApp = make(map[string]int, len(appHourMinutes))
	for appID, byHour := range appHourMinutes {
		baseline.PeakHourByApp[appID] = peakHour(byHour)
	}
	baseline.PeakUsageHour = peakHour(hourMinutes)

	baseline.AverageDailySessions = float64(len(sessions)) / days
	if len(sessions) > 0 {
		baseline.AverageSessionMinutes = totalMinutes / float64(len(sessions))
	}
	baseline.Completed = true
	baseline.ComputedAt = now

	if err := b.repo.SaveBaseline(ctx, baseline); err != nil {
		return nil, err
	}

	b.logger.Info("Baseline computed",
		"apps", len(baseline.FirstWeekAppMinutes),
		"sessions", len(sessions),
		"peak_hour", baseline.PeakUsageHour)
	return baseline, nil
}

// peakHour returns the hour with the most minutes, -1 for an empty map.
// Ties break toward the earlier hour for determinism.
func peakHour(byHour map[int]float64) int {
	peak := -1
	var peakMinutes float64
	for hour := 0; hour < 24; hour++ {
		if minutes, ok := byHour[hour]; ok && minutes > peakMinutes {
			peak = hour
			peakMinutes = minutes
		}
	}
	return peak
}
