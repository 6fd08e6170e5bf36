package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	repoerrors "aware/internal/infrastructure/errors"
	"aware/internal/infrastructure/logging"
	"aware/internal/types"
)

// UpsertDailyStats inserts or replaces one app's stats row for one day.
// The date is normalized to midnight before storage.
func (r *SQLiteRepository) UpsertDailyStats(ctx context.Context, stats *types.DailyStats) error {
	start := time.Now()

	if stats == nil {
		err := repoerrors.NewStorageError("UpsertDailyStats", errors.New("stats is nil"), repoerrors.ErrCodeValidation)
		logging.LogError(r.logger, err, "UpsertDailyStats", nil)
		return err
	}
	if stats.AppID == "" {
		err := repoerrors.HandleValidationError("UpsertDailyStats", "app_id", "", "aggregate rows are derived, not stored")
		logging.LogError(r.logger, err, "UpsertDailyStats", nil)
		return err
	}

	date := normalizeDate(stats.Date)

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		now := time.Now()
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO daily_stats (app_id, date, total_minutes, session_count, average_session_minutes, longest_session_minutes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(app_id, date) DO UPDATE SET
				total_minutes = excluded.total_minutes,
				session_count = excluded.session_count,
				average_session_minutes = excluded.average_session_minutes,
				longest_session_minutes = excluded.longest_session_minutes,
				updated_at = excluded.updated_at`,
			stats.AppID, date, stats.TotalMinutes, stats.SessionCount,
			stats.AverageSessionMinutes, stats.LongestSessionMinutes, now, now)

		if err != nil {
			repoErr := repoerrors.NewStorageErrorWithContext("UpsertDailyStats", err, r.classifyError(err), map[string]string{
				"app_id": stats.AppID,
				"date":   date.Format("2006-01-02"),
			})
			if repoErr.IsRetryable() {
				r.logger.Debug("Retryable error in UpsertDailyStats", "error", err, "app_id", stats.AppID)
			} else {
				logging.LogError(r.logger, repoErr, "UpsertDailyStats", map[string]any{"app_id": stats.AppID})
			}
			return repoErr
		}
		return nil
	})

	if err == nil {
		logging.LogOperation(r.logger, "UpsertDailyStats", time.Since(start), map[string]any{
			"app_id":        stats.AppID,
			"date":          date.Format("2006-01-02"),
			"total_minutes": stats.TotalMinutes,
		})
	}

	return err
}

// GetDailyStats returns one app's stats row for one day
func (r *SQLiteRepository) GetDailyStats(ctx context.Context, appID string, date time.Time) (*types.DailyStats, error) {
	day := normalizeDate(date)
	var result *types.DailyStats

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		row := r.q.QueryRowContext(ctx, `
			SELECT app_id, date, total_minutes, session_count, average_session_minutes, longest_session_minutes
			FROM daily_stats
			WHERE app_id = ? AND date = ?`, appID, day)

		var stats types.DailyStats
		err := row.Scan(&stats.AppID, &stats.Date, &stats.TotalMinutes,
			&stats.SessionCount, &stats.AverageSessionMinutes, &stats.LongestSessionMinutes)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repoerrors.NewStorageErrorWithContext("GetDailyStats", err, repoerrors.ErrCodeNotFound, map[string]string{
					"app_id": appID,
					"date":   day.Format("2006-01-02"),
				})
			}
			return repoerrors.NewStorageError("GetDailyStats", err, r.classifyError(err))
		}
		result = &stats
		return nil
	})

	return result, err
}

// GetDailyStatsRange returns per-day stats for an app over [start, end],
// ordered by date ascending. Days without usage have no row.
func (r *SQLiteRepository) GetDailyStatsRange(ctx context.Context, appID string, start, end time.Time) ([]types.DailyStats, error) {
	startDay := normalizeDate(start)
	endDay := normalizeDate(end)
	if endDay.Before(startDay) {
		return nil, repoerrors.HandleValidationError("GetDailyStatsRange", "range", endDay.Format("2006-01-02"), "end before start")
	}

	var result []types.DailyStats

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		rows, err := r.q.QueryContext(ctx, `
			SELECT app_id, date, total_minutes, session_count, average_session_minutes, longest_session_minutes
			FROM daily_stats
			WHERE app_id = ? AND date >= ? AND date <= ?
			ORDER BY date ASC`, appID, startDay, endDay)
		if err != nil {
			return repoerrors.NewStorageErrorWithContext("GetDailyStatsRange", err, r.classifyError(err), map[string]string{
				"app_id": appID,
			})
		}
		defer rows.Close()

		statsList := make([]types.DailyStats, 0)
		for rows.Next() {
			var stats types.DailyStats
			if err := rows.Scan(&stats.AppID, &stats.Date, &stats.TotalMinutes,
				&stats.SessionCount, &stats.AverageSessionMinutes, &stats.LongestSessionMinutes); err != nil {
				return repoerrors.NewStorageError("GetDailyStatsRange", err, r.classifyError(err))
			}
			statsList = append(statsList, stats)
		}
		if err := rows.Err(); err != nil {
			return repoerrors.NewStorageError("GetDailyStatsRange", err, r.classifyError(err))
		}

		result = statsList
		return nil
	})

	return result, err
}

// GetAggregateDailyStats computes the cross-app view for one day at read
// time. The returned row carries an empty AppID and the per-app breakdown;
// a day with no usage yields a zero-valued row rather than an error.
func (r *SQLiteRepository) GetAggregateDailyStats(ctx context.Context, date time.Time) (*types.DailyStats, error) {
	day := normalizeDate(date)
	var result *types.DailyStats

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		rows, err := r.q.QueryContext(ctx, `
			SELECT app_id, total_minutes, session_count, longest_session_minutes
			FROM daily_stats
			WHERE date = ?`, day)
		if err != nil {
			return repoerrors.NewStorageErrorWithContext("GetAggregateDailyStats", err, r.classifyError(err), map[string]string{
				"date": day.Format("2006-01-02"),
			})
		}
		defer rows.Close()

		agg := &types.DailyStats{
			Date:         day,
			AppBreakdown: make(map[string]float64),
		}
		for rows.Next() {
			var (
				appID   string
				minutes float64
				count   int
				longest float64
			)
			if err := rows.Scan(&appID, &minutes, &count, &longest); err != nil {
				return repoerrors.NewStorageError("GetAggregateDailyStats", err, r.classifyError(err))
			}
			agg.TotalMinutes += minutes
			agg.SessionCount += count
			if longest > agg.LongestSessionMinutes {
				agg.LongestSessionMinutes = longest
			}
			agg.AppBreakdown[appID] = minutes
		}
		if err := rows.Err(); err != nil {
			return repoerrors.NewStorageError("GetAggregateDailyStats", err, r.classifyError(err))
		}

		if agg.SessionCount > 0 {
			agg.AverageSessionMinutes = agg.TotalMinutes / float64(agg.SessionCount)
		}
		result = agg
		return nil
	})

	return result, err
}
