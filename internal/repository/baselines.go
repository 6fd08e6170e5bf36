package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	repoerrors "aware/internal/infrastructure/errors"
	"aware/internal/infrastructure/logging"
	"aware/internal/types"
)

// SaveBaseline writes the singleton first-week baseline row
func (r *SQLiteRepository) SaveBaseline(ctx context.Context, baseline *types.UserBaseline) error {
	start := time.Now()

	if baseline == nil {
		err := repoerrors.NewStorageError("SaveBaseline", errors.New("baseline is nil"), repoerrors.ErrCodeValidation)
		logging.LogError(r.logger, err, "SaveBaseline", nil)
		return err
	}

	appMinutes, err := json.Marshal(baseline.FirstWeekAppMinutes)
	if err != nil {
		return repoerrors.NewStorageError("SaveBaseline", err, repoerrors.ErrCodeValidation)
	}
	peakHours, err := json.Marshal(baseline.PeakHourByApp)
	if err != nil {
		return repoerrors.NewStorageError("SaveBaseline", err, repoerrors.ErrCodeValidation)
	}

	err = repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO user_baselines (id, first_week_app_minutes, peak_hour_by_app, average_daily_sessions,
				average_session_minutes, peak_usage_hour, completed, observation_start, computed_at)
			VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				first_week_app_minutes = excluded.first_week_app_minutes,
				peak_hour_by_app = excluded.peak_hour_by_app,
				average_daily_sessions = excluded.average_daily_sessions,
				average_session_minutes = excluded.average_session_minutes,
				peak_usage_hour = excluded.peak_usage_hour,
				completed = excluded.completed,
				observation_start = excluded.observation_start,
				computed_at = excluded.computed_at`,
			string(appMinutes), string(peakHours), baseline.AverageDailySessions,
			baseline.AverageSessionMinutes, baseline.PeakUsageHour, baseline.Completed,
			nullTimeFromTime(baseline.ObservationStart), nullTimeFromTime(baseline.ComputedAt))

		if err != nil {
			repoErr := repoerrors.NewStorageError("SaveBaseline", err, r.classifyError(err))
			if repoErr.IsRetryable() {
				r.logger.Debug("Retryable error in SaveBaseline", "error", err)
			} else {
				logging.LogError(r.logger, repoErr, "SaveBaseline", nil)
			}
			return repoErr
		}
		return nil
	})

	if err == nil {
		logging.LogOperation(r.logger, "SaveBaseline", time.Since(start), map[string]any{
			"completed": baseline.Completed,
		})
	}

	return err
}

// GetBaseline returns the singleton baseline row
func (r *SQLiteRepository) GetBaseline(ctx context.Context) (*types.UserBaseline, error) {
	var result *types.UserBaseline

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		row := r.q.QueryRowContext(ctx, `
			SELECT first_week_app_minutes, peak_hour_by_app, average_daily_sessions,
				average_session_minutes, peak_usage_hour, completed, observation_start, computed_at
			FROM user_baselines
			WHERE id = 1`)

		var (
			baseline   types.UserBaseline
			appMinutes string
			peakHours  string
			obsStart   sql.NullTime
			computedAt sql.NullTime
		)
		err := row.Scan(&appMinutes, &peakHours, &baseline.AverageDailySessions,
			&baseline.AverageSessionMinutes, &baseline.PeakUsageHour, &baseline.Completed,
			&obsStart, &computedAt)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repoerrors.NewStorageError("GetBaseline", err, repoerrors.ErrCodeNotFound)
			}
			return repoerrors.NewStorageError("GetBaseline", err, r.classifyError(err))
		}

		if err := json.Unmarshal([]byte(appMinutes), &baseline.FirstWeekAppMinutes); err != nil {
			return repoerrors.NewStorageError("GetBaseline", err, repoerrors.ErrCodeCorruption)
		}
		if err := json.Unmarshal([]byte(peakHours), &baseline.PeakHourByApp); err != nil {
			return repoerrors.NewStorageError("GetBaseline", err, repoerrors.ErrCodeCorruption)
		}
		baseline.ObservationStart = timeFromNullTime(obsStart)
		baseline.ComputedAt = timeFromNullTime(computedAt)

		result = &baseline
		return nil
	})

	return result, err
}
