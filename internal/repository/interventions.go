package repository

import (
	"context"
	"errors"
	"time"

	repoerrors "aware/internal/infrastructure/errors"
	"aware/internal/infrastructure/logging"
	"aware/internal/types"

	"github.com/google/uuid"
)

// AppendInterventionResult writes one analytics record. The log is
// append-only; records are never updated or deleted except by retention.
func (r *SQLiteRepository) AppendInterventionResult(ctx context.Context, result *types.InterventionResult) error {
	start := time.Now()

	if result == nil {
		err := repoerrors.NewStorageError("AppendInterventionResult", errors.New("result is nil"), repoerrors.ErrCodeValidation)
		logging.LogError(r.logger, err, "AppendInterventionResult", nil)
		return err
	}
	if result.AppID == "" {
		err := repoerrors.HandleValidationError("AppendInterventionResult", "app_id", "", "app identifier is required")
		logging.LogError(r.logger, err, "AppendInterventionResult", nil)
		return err
	}
	if result.ID == uuid.Nil {
		result.ID = uuid.New()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now()
	}

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO intervention_results (id, app_id, type, variant, choice, response_latency_ms,
				post_intervention_usage_ms, hour_of_day, streak_at_time, goal_progress_at_time,
				quick_reopen, score, level, persona, source, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			result.ID.String(), result.AppID, int(result.Type), result.Variant, int(result.Choice),
			result.ResponseLatency.Milliseconds(), result.PostInterventionUsage.Milliseconds(),
			result.HourOfDay, result.StreakAtTime, result.GoalProgressAtTime,
			result.QuickReopen, result.Score, int(result.Level), int(result.Persona),
			int(result.Source), result.CreatedAt)

		if err != nil {
			repoErr := repoerrors.NewStorageErrorWithContext("AppendInterventionResult", err, r.classifyError(err), map[string]string{
				"app_id": result.AppID,
				"type":   result.Type.String(),
			})
			if repoErr.IsRetryable() {
				r.logger.Debug("Retryable error in AppendInterventionResult", "error", err, "app_id", result.AppID)
			} else {
				logging.LogError(r.logger, repoErr, "AppendInterventionResult", map[string]any{"app_id": result.AppID})
			}
			return repoErr
		}
		return nil
	})

	if err == nil {
		logging.LogOperation(r.logger, "AppendInterventionResult", time.Since(start), map[string]any{
			"app_id": result.AppID,
			"type":   result.Type.String(),
			"choice": result.Choice.String(),
		})
	}

	return err
}

// GetInterventionResults returns the newest records first. An empty appID
// spans all apps; limit <= 0 means no limit.
func (r *SQLiteRepository) GetInterventionResults(ctx context.Context, appID string, limit int) ([]types.InterventionResult, error) {
	query := `
		SELECT id, app_id, type, variant, choice, response_latency_ms, post_intervention_usage_ms,
			hour_of_day, streak_at_time, goal_progress_at_time, quick_reopen, score, level,
			persona, source, created_at
		FROM intervention_results`
	args := []any{}
	if appID != "" {
		query += " WHERE app_id = ?"
		args = append(args, appID)
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var result []types.InterventionResult

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		rows, err := r.q.QueryContext(ctx, query, args...)
		if err != nil {
			return repoerrors.NewStorageErrorWithContext("GetInterventionResults", err, r.classifyError(err), map[string]string{
				"app_id": appID,
			})
		}
		defer rows.Close()

		results := make([]types.InterventionResult, 0)
		for rows.Next() {
			var (
				rec        types.InterventionResult
				id         string
				typeInt    int
				choiceInt  int
				latencyMs  int64
				usageMs    int64
				levelInt   int
				personaInt int
				sourceInt  int
			)
			if err := rows.Scan(&id, &rec.AppID, &typeInt, &rec.Variant, &choiceInt,
				&latencyMs, &usageMs, &rec.HourOfDay, &rec.StreakAtTime,
				&rec.GoalProgressAtTime, &rec.QuickReopen, &rec.Score, &levelInt,
				&personaInt, &sourceInt, &rec.CreatedAt); err != nil {
				return repoerrors.NewStorageError("GetInterventionResults", err, r.classifyError(err))
			}

			parsed, err := uuid.Parse(id)
			if err != nil {
				return repoerrors.NewStorageError("GetInterventionResults", err, repoerrors.ErrCodeCorruption)
			}

			rec.ID = parsed
			rec.Type = types.InterventionType(typeInt)
			rec.Choice = types.UserChoice(choiceInt)
			rec.ResponseLatency = time.Duration(latencyMs) * time.Millisecond
			rec.PostInterventionUsage = time.Duration(usageMs) * time.Millisecond
			rec.Level = types.ScoreLevel(levelInt)
			rec.Persona = types.Persona(personaInt)
			rec.Source = types.DecisionSource(sourceInt)
			results = append(results, rec)
		}
		if err := rows.Err(); err != nil {
			return repoerrors.NewStorageError("GetInterventionResults", err, r.classifyError(err))
		}

		result = results
		return nil
	})

	return result, err
}
