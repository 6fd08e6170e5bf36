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

// CreateRecovery opens a new recovery window for an app. The partial unique
// index on in-progress recoveries rejects a second active window, which
// surfaces as a duplicate error.
func (r *SQLiteRepository) CreateRecovery(ctx context.Context, recovery *types.StreakRecovery) error {
	start := time.Now()

	if recovery == nil {
		err := repoerrors.NewStorageError("CreateRecovery", errors.New("recovery is nil"), repoerrors.ErrCodeValidation)
		logging.LogError(r.logger, err, "CreateRecovery", nil)
		return err
	}
	if recovery.AppID == "" {
		err := repoerrors.HandleValidationError("CreateRecovery", "app_id", "", "app identifier is required")
		logging.LogError(r.logger, err, "CreateRecovery", nil)
		return err
	}

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		now := time.Now()
		res, err := r.q.ExecContext(ctx, `
			INSERT INTO streak_recoveries (app_id, previous_streak, start_date, required_days, days_completed,
				state, last_reminder_date, closed_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			recovery.AppID, recovery.PreviousStreak, normalizeDate(recovery.StartDate),
			recovery.RequiredDays, recovery.DaysCompleted, int(recovery.State),
			nullTimeFromTime(recovery.LastReminderDate), nullTimeFromTime(recovery.ClosedAt), now, now)

		if err != nil {
			repoErr := repoerrors.NewStorageErrorWithContext("CreateRecovery", err, r.classifyError(err), map[string]string{
				"app_id": recovery.AppID,
			})
			if repoErr.IsRetryable() {
				r.logger.Debug("Retryable error in CreateRecovery", "error", err, "app_id", recovery.AppID)
			} else {
				logging.LogError(r.logger, repoErr, "CreateRecovery", map[string]any{"app_id": recovery.AppID})
			}
			return repoErr
		}

		if id, err := res.LastInsertId(); err == nil {
			recovery.ID = id
		}
		return nil
	})

	if err == nil {
		logging.LogOperation(r.logger, "CreateRecovery", time.Since(start), map[string]any{
			"app_id":          recovery.AppID,
			"previous_streak": recovery.PreviousStreak,
			"required_days":   recovery.RequiredDays,
		})
	}

	return err
}

// GetActiveRecovery returns the single in-progress recovery for an app, if any
func (r *SQLiteRepository) GetActiveRecovery(ctx context.Context, appID string) (*types.StreakRecovery, error) {
	return r.getRecoveryWhere(ctx, "GetActiveRecovery", appID,
		"WHERE app_id = ? AND state = ? ORDER BY id DESC LIMIT 1",
		appID, int(types.RecoveryInProgress))
}

// GetLatestRecovery returns the most recent recovery for an app in any state
func (r *SQLiteRepository) GetLatestRecovery(ctx context.Context, appID string) (*types.StreakRecovery, error) {
	return r.getRecoveryWhere(ctx, "GetLatestRecovery", appID,
		"WHERE app_id = ? ORDER BY id DESC LIMIT 1", appID)
}

func (r *SQLiteRepository) getRecoveryWhere(ctx context.Context, op, appID, where string, args ...any) (*types.StreakRecovery, error) {
	var result *types.StreakRecovery

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		row := r.q.QueryRowContext(ctx, `
			SELECT id, app_id, previous_streak, start_date, required_days, days_completed,
				state, last_reminder_date, closed_at, created_at, updated_at
			FROM streak_recoveries `+where, args...)

		recovery, err := scanRecovery(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repoerrors.NewStorageErrorWithContext(op, err, repoerrors.ErrCodeNotFound, map[string]string{
					"app_id": appID,
				})
			}
			return repoerrors.NewStorageError(op, err, r.classifyError(err))
		}
		result = recovery
		return nil
	})

	return result, err
}

// UpdateRecovery persists progress or a terminal state for an existing recovery
func (r *SQLiteRepository) UpdateRecovery(ctx context.Context, recovery *types.StreakRecovery) error {
	start := time.Now()

	if recovery == nil {
		err := repoerrors.NewStorageError("UpdateRecovery", errors.New("recovery is nil"), repoerrors.ErrCodeValidation)
		logging.LogError(r.logger, err, "UpdateRecovery", nil)
		return err
	}
	if recovery.ID == 0 {
		err := repoerrors.HandleValidationError("UpdateRecovery", "id", "0", "recovery has not been created")
		logging.LogError(r.logger, err, "UpdateRecovery", map[string]any{"app_id": recovery.AppID})
		return err
	}

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		res, err := r.q.ExecContext(ctx, `
			UPDATE streak_recoveries
			SET days_completed = ?, state = ?, last_reminder_date = ?, closed_at = ?, updated_at = ?
			WHERE id = ?`,
			recovery.DaysCompleted, int(recovery.State),
			nullTimeFromTime(recovery.LastReminderDate), nullTimeFromTime(recovery.ClosedAt),
			time.Now(), recovery.ID)

		if err != nil {
			repoErr := repoerrors.NewStorageErrorWithContext("UpdateRecovery", err, r.classifyError(err), map[string]string{
				"app_id": recovery.AppID,
			})
			if repoErr.IsRetryable() {
				r.logger.Debug("Retryable error in UpdateRecovery", "error", err, "app_id", recovery.AppID)
			} else {
				logging.LogError(r.logger, repoErr, "UpdateRecovery", map[string]any{"app_id": recovery.AppID})
			}
			return repoErr
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return repoerrors.NewStorageError("UpdateRecovery", err, r.classifyError(err))
		}
		if affected == 0 {
			return repoerrors.NewStorageErrorWithContext("UpdateRecovery", sql.ErrNoRows, repoerrors.ErrCodeNotFound, map[string]string{
				"app_id": recovery.AppID,
			})
		}
		return nil
	})

	if err == nil {
		logging.LogOperation(r.logger, "UpdateRecovery", time.Since(start), map[string]any{
			"app_id": recovery.AppID,
			"state":  recovery.State.String(),
		})
	}

	return err
}

func scanRecovery(row rowScanner) (*types.StreakRecovery, error) {
	var (
		recovery types.StreakRecovery
		stateInt int
		reminder sql.NullTime
		closed   sql.NullTime
	)

	err := row.Scan(&recovery.ID, &recovery.AppID, &recovery.PreviousStreak,
		&recovery.StartDate, &recovery.RequiredDays, &recovery.DaysCompleted,
		&stateInt, &reminder, &closed, &recovery.CreatedAt, &recovery.UpdatedAt)
	if err != nil {
		return nil, err
	}

	recovery.State = types.RecoveryState(stateInt)
	recovery.LastReminderDate = timeFromNullTime(reminder)
	recovery.ClosedAt = timeFromNullTime(closed)
	return &recovery, nil
}
