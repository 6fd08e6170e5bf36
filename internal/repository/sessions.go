package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	repoerrors "aware/internal/infrastructure/errors"
	"aware/internal/infrastructure/logging"
	"aware/internal/types"

	"github.com/google/uuid"
)

// SaveSession inserts or updates a usage session with retry logic
func (r *SQLiteRepository) SaveSession(ctx context.Context, session *types.UsageSession) error {
	start := time.Now()

	if session == nil {
		err := repoerrors.NewStorageError("SaveSession", errors.New("session is nil"), repoerrors.ErrCodeValidation)
		logging.LogError(r.logger, err, "SaveSession", nil)
		return err
	}
	if session.AppID == "" {
		err := repoerrors.HandleValidationError("SaveSession", "app_id", "", "app identifier is required")
		logging.LogError(r.logger, err, "SaveSession", nil)
		return err
	}
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		now := time.Now()
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO usage_sessions (id, app_id, app_name, start_time, end_time, was_interrupted, sync_status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				end_time = excluded.end_time,
				was_interrupted = excluded.was_interrupted,
				sync_status = excluded.sync_status,
				updated_at = excluded.updated_at`,
			session.ID.String(), session.AppID, session.AppName,
			session.StartTime, nullTimeFromTime(session.EndTime),
			session.WasInterrupted, int(session.SyncStatus), now, now)

		if err != nil {
			repoErr := repoerrors.NewStorageErrorWithContext("SaveSession", err, r.classifyError(err), map[string]string{
				"app_id":     session.AppID,
				"session_id": session.ID.String(),
			})
			if repoErr.IsRetryable() {
				r.logger.Debug("Retryable error in SaveSession", "error", err, "app_id", session.AppID)
			} else {
				logging.LogError(r.logger, repoErr, "SaveSession", map[string]any{"app_id": session.AppID})
			}
			return repoErr
		}
		return nil
	})

	if err == nil {
		logging.LogOperation(r.logger, "SaveSession", time.Since(start), map[string]any{
			"app_id": session.AppID,
			"closed": session.IsClosed(),
		})
	}

	return err
}

// GetOpenSession returns the not-yet-closed session for an app, if any
func (r *SQLiteRepository) GetOpenSession(ctx context.Context, appID string) (*types.UsageSession, error) {
	var result *types.UsageSession

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		row := r.q.QueryRowContext(ctx, `
			SELECT id, app_id, app_name, start_time, end_time, was_interrupted, sync_status, created_at, updated_at
			FROM usage_sessions
			WHERE app_id = ? AND end_time IS NULL
			ORDER BY start_time DESC
			LIMIT 1`, appID)

		session, err := r.scanSession(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repoerrors.NewStorageErrorWithContext("GetOpenSession", err, repoerrors.ErrCodeNotFound, map[string]string{
					"app_id": appID,
				})
			}
			return repoerrors.NewStorageErrorWithContext("GetOpenSession", err, r.classifyError(err), map[string]string{
				"app_id": appID,
			})
		}
		result = session
		return nil
	})

	return result, err
}

// GetLastClosedSession returns the most recently closed session for an app.
// Used for quick-reopen detection.
func (r *SQLiteRepository) GetLastClosedSession(ctx context.Context, appID string) (*types.UsageSession, error) {
	var result *types.UsageSession

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		row := r.q.QueryRowContext(ctx, `
			SELECT id, app_id, app_name, start_time, end_time, was_interrupted, sync_status, created_at, updated_at
			FROM usage_sessions
			WHERE app_id = ? AND end_time IS NOT NULL
			ORDER BY end_time DESC
			LIMIT 1`, appID)

		session, err := r.scanSession(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repoerrors.NewStorageErrorWithContext("GetLastClosedSession", err, repoerrors.ErrCodeNotFound, map[string]string{
					"app_id": appID,
				})
			}
			return repoerrors.NewStorageErrorWithContext("GetLastClosedSession", err, r.classifyError(err), map[string]string{
				"app_id": appID,
			})
		}
		result = session
		return nil
	})

	return result, err
}

// GetSessionsByDateRange returns closed sessions for an app within [start, end].
// An empty appID returns sessions for all apps.
func (r *SQLiteRepository) GetSessionsByDateRange(ctx context.Context, appID string, start, end time.Time) ([]types.UsageSession, error) {
	if end.Before(start) {
		return nil, repoerrors.HandleValidationError("GetSessionsByDateRange", "range", end.Format(time.RFC3339), "end before start")
	}

	query := `
		SELECT id, app_id, app_name, start_time, end_time, was_interrupted, sync_status, created_at, updated_at
		FROM usage_sessions
		WHERE end_time IS NOT NULL AND end_time >= ? AND end_time <= ?`
	args := []any{start, end}
	if appID != "" {
		query += " AND app_id = ?"
		args = append(args, appID)
	}
	query += " ORDER BY end_time ASC"

	var result []types.UsageSession

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		rows, err := r.q.QueryContext(ctx, query, args...)
		if err != nil {
			return repoerrors.NewStorageErrorWithContext("GetSessionsByDateRange", err, r.classifyError(err), map[string]string{
				"app_id": appID,
			})
		}
		defer rows.Close()

		sessions := make([]types.UsageSession, 0)
		for rows.Next() {
			session, err := r.scanSessionRows(rows)
			if err != nil {
				return repoerrors.NewStorageError("GetSessionsByDateRange", err, r.classifyError(err))
			}
			sessions = append(sessions, *session)
		}
		if err := rows.Err(); err != nil {
			return repoerrors.NewStorageError("GetSessionsByDateRange", err, r.classifyError(err))
		}

		result = sessions
		return nil
	})

	return result, err
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepository) scanSession(row rowScanner) (*types.UsageSession, error) {
	var (
		session  types.UsageSession
		id       string
		endTime  sql.NullTime
		syncInt  int
	)

	err := row.Scan(&id, &session.AppID, &session.AppName, &session.StartTime,
		&endTime, &session.WasInterrupted, &syncInt, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}

	session.ID = parsed
	session.EndTime = timeFromNullTime(endTime)
	session.SyncStatus = types.SyncStatus(syncInt)
	return &session, nil
}

func (r *SQLiteRepository) scanSessionRows(rows *sql.Rows) (*types.UsageSession, error) {
	return r.scanSession(rows)
}
