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

// SaveGoal inserts or updates the per-app goal and its streak bookkeeping
func (r *SQLiteRepository) SaveGoal(ctx context.Context, goal *types.Goal) error {
	start := time.Now()

	if goal == nil {
		err := repoerrors.NewStorageError("SaveGoal", errors.New("goal is nil"), repoerrors.ErrCodeValidation)
		logging.LogError(r.logger, err, "SaveGoal", nil)
		return err
	}
	if goal.AppID == "" {
		err := repoerrors.HandleValidationError("SaveGoal", "app_id", "", "app identifier is required")
		logging.LogError(r.logger, err, "SaveGoal", nil)
		return err
	}
	if goal.DailyLimitMinutes <= 0 {
		err := repoerrors.HandleValidationError("SaveGoal", "daily_limit_minutes", "", "limit must be positive")
		logging.LogError(r.logger, err, "SaveGoal", map[string]any{"app_id": goal.AppID})
		return err
	}

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		now := time.Now()
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO goals (app_id, app_name, daily_limit_minutes, enabled, current_streak, longest_streak,
				last_completed_date, last_broken_date, last_evaluated_date, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(app_id) DO UPDATE SET
				app_name = excluded.app_name,
				daily_limit_minutes = excluded.daily_limit_minutes,
				enabled = excluded.enabled,
				current_streak = excluded.current_streak,
				longest_streak = excluded.longest_streak,
				last_completed_date = excluded.last_completed_date,
				last_broken_date = excluded.last_broken_date,
				last_evaluated_date = excluded.last_evaluated_date,
				updated_at = excluded.updated_at`,
			goal.AppID, goal.AppName, goal.DailyLimitMinutes, goal.Enabled,
			goal.CurrentStreak, goal.LongestStreak,
			nullTimeFromTime(goal.LastCompletedDate), nullTimeFromTime(goal.LastBrokenDate),
			nullTimeFromTime(goal.LastEvaluatedDate), now, now)

		if err != nil {
			repoErr := repoerrors.NewStorageErrorWithContext("SaveGoal", err, r.classifyError(err), map[string]string{
				"app_id": goal.AppID,
			})
			if repoErr.IsRetryable() {
				r.logger.Debug("Retryable error in SaveGoal", "error", err, "app_id", goal.AppID)
			} else {
				logging.LogError(r.logger, repoErr, "SaveGoal", map[string]any{"app_id": goal.AppID})
			}
			return repoErr
		}
		return nil
	})

	if err == nil {
		logging.LogOperation(r.logger, "SaveGoal", time.Since(start), map[string]any{
			"app_id": goal.AppID,
			"streak": goal.CurrentStreak,
		})
	}

	return err
}

// GetGoal returns the goal for an app
func (r *SQLiteRepository) GetGoal(ctx context.Context, appID string) (*types.Goal, error) {
	var result *types.Goal

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		row := r.q.QueryRowContext(ctx, `
			SELECT app_id, app_name, daily_limit_minutes, enabled, current_streak, longest_streak,
				last_completed_date, last_broken_date, last_evaluated_date, created_at, updated_at
			FROM goals
			WHERE app_id = ?`, appID)

		goal, err := scanGoal(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repoerrors.NewStorageErrorWithContext("GetGoal", err, repoerrors.ErrCodeNotFound, map[string]string{
					"app_id": appID,
				})
			}
			return repoerrors.NewStorageError("GetGoal", err, r.classifyError(err))
		}
		result = goal
		return nil
	})

	return result, err
}

// ListGoals returns all goals, optionally only the enabled ones
func (r *SQLiteRepository) ListGoals(ctx context.Context, enabledOnly bool) ([]types.Goal, error) {
	query := `
		SELECT app_id, app_name, daily_limit_minutes, enabled, current_streak, longest_streak,
			last_completed_date, last_broken_date, last_evaluated_date, created_at, updated_at
		FROM goals`
	if enabledOnly {
		query += " WHERE enabled = 1"
	}
	query += " ORDER BY app_id ASC"

	var result []types.Goal

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		rows, err := r.q.QueryContext(ctx, query)
		if err != nil {
			return repoerrors.NewStorageError("ListGoals", err, r.classifyError(err))
		}
		defer rows.Close()

		goals := make([]types.Goal, 0)
		for rows.Next() {
			goal, err := scanGoal(rows)
			if err != nil {
				return repoerrors.NewStorageError("ListGoals", err, r.classifyError(err))
			}
			goals = append(goals, *goal)
		}
		if err := rows.Err(); err != nil {
			return repoerrors.NewStorageError("ListGoals", err, r.classifyError(err))
		}

		result = goals
		return nil
	})

	return result, err
}

// DeleteGoal removes the goal for an app. Historical sessions, stats and
// analytics records are kept.
func (r *SQLiteRepository) DeleteGoal(ctx context.Context, appID string) error {
	start := time.Now()

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		result, err := r.q.ExecContext(ctx, "DELETE FROM goals WHERE app_id = ?", appID)
		if err != nil {
			return repoerrors.NewStorageErrorWithContext("DeleteGoal", err, r.classifyError(err), map[string]string{
				"app_id": appID,
			})
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return repoerrors.NewStorageError("DeleteGoal", err, r.classifyError(err))
		}
		if affected == 0 {
			return repoerrors.NewStorageErrorWithContext("DeleteGoal", sql.ErrNoRows, repoerrors.ErrCodeNotFound, map[string]string{
				"app_id": appID,
			})
		}
		return nil
	})

	if err == nil {
		logging.LogOperation(r.logger, "DeleteGoal", time.Since(start), map[string]any{"app_id": appID})
	}

	return err
}

func scanGoal(row rowScanner) (*types.Goal, error) {
	var (
		goal      types.Goal
		completed sql.NullTime
		broken    sql.NullTime
		evaluated sql.NullTime
	)

	err := row.Scan(&goal.AppID, &goal.AppName, &goal.DailyLimitMinutes, &goal.Enabled,
		&goal.CurrentStreak, &goal.LongestStreak,
		&completed, &broken, &evaluated, &goal.CreatedAt, &goal.UpdatedAt)
	if err != nil {
		return nil, err
	}

	goal.LastCompletedDate = timeFromNullTime(completed)
	goal.LastBrokenDate = timeFromNullTime(broken)
	goal.LastEvaluatedDate = timeFromNullTime(evaluated)
	return &goal, nil
}
