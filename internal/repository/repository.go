package repository

import (
	"context"
	"database/sql"

	"aware/internal/database"
	repoerrors "aware/internal/infrastructure/errors"
	"aware/internal/infrastructure/logging"
)

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx, letting
// every query method run either directly or inside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteRepository implements the WellbeingRepository interface using SQLite
type SQLiteRepository struct {
	db          *sql.DB
	q           dbtx
	retryConfig *repoerrors.RetryConfig
	logger      logging.Logger
}

var _ WellbeingRepository = (*SQLiteRepository)(nil)

// NewSQLiteRepository creates a new SQLite repository instance
func NewSQLiteRepository(dbService database.Service, logger logging.Logger) *SQLiteRepository {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	db := dbService.DB()
	return &SQLiteRepository{
		db:          db,
		q:           db,
		retryConfig: repoerrors.DefaultRetryConfig(),
		logger:      logger,
	}
}

// NewSQLiteRepositoryWithConfig creates a repository with a custom retry configuration
func NewSQLiteRepositoryWithConfig(dbService database.Service, retryConfig *repoerrors.RetryConfig, logger logging.Logger) *SQLiteRepository {
	repo := NewSQLiteRepository(dbService, logger)
	if retryConfig != nil {
		repo.retryConfig = retryConfig
	}
	return repo
}
