package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	repoerrors "aware/internal/infrastructure/errors"
	"aware/internal/infrastructure/logging"
	"aware/internal/repository"
	"aware/internal/types"
)

// Aggregator rolls closed sessions into per-day totals and derives trends.
type Aggregator struct {
	repo   repository.WellbeingRepository
	config *Config
	logger logging.Logger
}

// NewAggregator creates a daily stats aggregator
func NewAggregator(repo repository.WellbeingRepository, config *Config, logger logging.Logger) *Aggregator {
	if config == nil {
		config = DefaultEngineConfig()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Aggregator{repo: repo, config: config, logger: logger}
}

// RecordSessionClose folds one closed session into the stats row for
// (app, day of close). The row is created lazily on the first close of the
// day. A malformed session returns ErrInvalidSession and leaves stats
// untouched.
func (a *Aggregator) RecordSessionClose(ctx context.Context, session *types.UsageSession) error {
	if session == nil {
		return fmt.Errorf("%w: nil session", ErrInvalidSession)
	}
	if !session.IsClosed() {
		return fmt.Errorf("%w: session %s is still open", ErrInvalidSession, session.ID)
	}
	if !session.EndTime.After(session.StartTime) {
		return fmt.Errorf("%w: end %s not after start %s",
			ErrInvalidSession, session.EndTime.Format(time.RFC3339), session.StartTime.Format(time.RFC3339))
	}

	day := types.DateOf(session.EndTime)
	minutes := session.DurationMinutes()

	stats, err := a.repo.GetDailyStats(ctx, session.AppID, day)
	if err != nil {
		if !repoerrors.IsNotFound(err) {
			return err
		}
		stats = &types.DailyStats{AppID: session.AppID, Date: day}
	}

	stats.TotalMinutes += minutes
	stats.SessionCount++
	stats.AverageSessionMinutes = stats.TotalMinutes / float64(stats.SessionCount)
	stats.LongestSessionMinutes = math.Max(stats.LongestSessionMinutes, minutes)

	if err := a.repo.UpsertDailyStats(ctx, stats); err != nil {
		return err
	}

	a.logger.Debug("Session folded into daily stats",
		"app_id", session.AppID,
		"date", day.Format("2006-01-02"),
		"total_minutes", stats.TotalMinutes,
		"session_count", stats.SessionCount)
	return nil
}

// GetTrend compares average daily minutes over the last periodDays against
// the immediately preceding window of equal length. Changes inside the
// configured band read as stable so noise does not flap the direction.
func (a *Aggregator) GetTrend(ctx context.Context, appID string, periodDays int, now time.Time) (*types.Trend, error) {
	if periodDays <= 0 {
		return nil, fmt.Errorf("trend period must be positive, got %d", periodDays)
	}

	today := types.DateOf(now)
	currentStart := today.AddDate(0, 0, -(periodDays - 1))
	previousEnd := currentStart.AddDate(0, 0, -1)
	previousStart := previousEnd.AddDate(0, 0, -(periodDays - 1))

	currentAvg, err := a.averageDailyMinutes(ctx, appID, currentStart, today, periodDays)
	if err != nil {
		return nil, err
	}
	previousAvg, err := a.averageDailyMinutes(ctx, appID, previousStart, previousEnd, periodDays)
	if err != nil {
		return nil, err
	}

	trend := &types.Trend{
		CurrentAverage:  currentAvg,
		PreviousAverage: previousAvg,
		PeriodDays:      periodDays,
	}

	switch {
	case previousAvg == 0 && currentAvg == 0:
		trend.Direction = types.TrendStable
	case previousAvg == 0:
		trend.Direction = types.TrendUp
		trend.ChangePercent = 100
	default:
		change := (currentAvg - previousAvg) / previousAvg * 100
		trend.ChangePercent = change
		switch {
		case change > a.config.TrendBandPercent:
			trend.Direction = types.TrendUp
		case change < -a.config.TrendBandPercent:
			trend.Direction = types.TrendDown
		default:
			trend.Direction = types.TrendStable
		}
	}

	return trend, nil
}

// averageDailyMinutes averages over the full window length, counting days
// without a stats row as zero.
func (a *Aggregator) averageDailyMinutes(ctx context.Context, appID string, start, end time.Time, days int) (float64, error) {
	rows, err := a.repo.GetDailyStatsRange(ctx, appID, start, end)
	if err != nil {
		return 0, err
	}

	var total float64
	for _, row := range rows {
		total += row.TotalMinutes
	}
	return total / float64(days), nil
}
