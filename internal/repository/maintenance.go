package repository

import (
	"context"
	"time"

	repoerrors "aware/internal/infrastructure/errors"
	"aware/internal/infrastructure/logging"
)

// DeleteOldData removes sessions, stats and analytics records older than the
// cutoff in one transaction. Goals, recoveries and the baseline are kept
// regardless of age.
func (r *SQLiteRepository) DeleteOldData(ctx context.Context, olderThan time.Time) error {
	start := time.Now()
	cutoff := normalizeDate(olderThan)

	var sessions, stats, results int64

	err := r.WithTransaction(ctx, func(repo WellbeingRepository) error {
		txRepo := repo.(*SQLiteRepository)

		res, err := txRepo.q.ExecContext(ctx,
			"DELETE FROM usage_sessions WHERE end_time IS NOT NULL AND end_time < ?", cutoff)
		if err != nil {
			return repoerrors.NewStorageError("DeleteOldData", err, txRepo.classifyError(err))
		}
		sessions, _ = res.RowsAffected()

		res, err = txRepo.q.ExecContext(ctx, "DELETE FROM daily_stats WHERE date < ?", cutoff)
		if err != nil {
			return repoerrors.NewStorageError("DeleteOldData", err, txRepo.classifyError(err))
		}
		stats, _ = res.RowsAffected()

		res, err = txRepo.q.ExecContext(ctx, "DELETE FROM intervention_results WHERE created_at < ?", cutoff)
		if err != nil {
			return repoerrors.NewStorageError("DeleteOldData", err, txRepo.classifyError(err))
		}
		results, _ = res.RowsAffected()

		return nil
	})

	if err != nil {
		logging.LogError(r.logger, err, "DeleteOldData", map[string]any{
			"cutoff": cutoff.Format("2006-01-02"),
		})
		return err
	}

	logging.LogOperation(r.logger, "DeleteOldData", time.Since(start), map[string]any{
		"cutoff":   cutoff.Format("2006-01-02"),
		"sessions": sessions,
		"stats":    stats,
		"results":  results,
	})
	return nil
}
