package repository

import (
	"context"
	"fmt"
	"time"

	repoerrors "aware/internal/infrastructure/errors"
	"aware/internal/infrastructure/logging"
)

// WithTransaction runs fn with a repository view bound to a single
// transaction. A returned error or panic rolls the transaction back;
// nested calls are not supported.
func (r *SQLiteRepository) WithTransaction(ctx context.Context, fn func(repo WellbeingRepository) error) error {
	start := time.Now()

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			repoErr := repoerrors.NewStorageError("WithTransaction", err, r.classifyError(err))
			if repoErr.IsRetryable() {
				r.logger.Debug("Retryable error beginning transaction", "error", err)
			} else {
				logging.LogError(r.logger, repoErr, "WithTransaction", nil)
			}
			return repoErr
		}

		txRepo := &SQLiteRepository{
			db:          r.db,
			q:           tx,
			retryConfig: repoerrors.NoRetryConfig(),
			logger:      r.logger,
		}

		committed := false
		defer func() {
			if p := recover(); p != nil {
				_ = tx.Rollback()
				panic(p)
			}
			if !committed {
				_ = tx.Rollback()
			}
		}()

		if err := fn(txRepo); err != nil {
			return fmt.Errorf("transaction function failed: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return repoerrors.NewStorageError("WithTransaction", err, repoerrors.ErrCodeTransaction)
		}
		committed = true
		return nil
	})

	if err == nil {
		logging.LogOperation(r.logger, "WithTransaction", time.Since(start), nil)
	}

	return err
}
