package database

import (
	"context"
	"database/sql"
	"fmt"

	"aware/internal/infrastructure/logging"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteService implements the Service interface for SQLite
//
// Lifecycle:
// 1. Create service with NewSQLiteService()
// 2. Connect to database with Connect()
// 3. Optionally run migrations with Migrate()
// 4. Hand DB() to the repository layer
// 5. Close service with Close() to clean up all resources
type SQLiteService struct {
	db              *sql.DB
	config          *Config
	migrationRunner MigrationManager
	logger          logging.Logger
}

var _ Service = (*SQLiteService)(nil)

// NewSQLiteService creates a new SQLite database service
func NewSQLiteService(logger logging.Logger) *SQLiteService {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &SQLiteService{
		logger: logger,
	}
}

// Connect establishes a connection to the SQLite database
func (s *SQLiteService) Connect(ctx context.Context, config *Config) error {
	if config == nil {
		return fmt.Errorf("database config is nil")
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid database config: %w", err)
	}

	s.config = config

	// Close any existing connection to prevent resource leaks
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close existing database connection", "error", err)
		}
		s.db = nil
		s.migrationRunner = nil
	}

	db, err := sql.Open("sqlite3", config.GetConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open database at %s: %w", config.Path, err)
	}

	// An in-memory SQLite database lives in a single connection; a second
	// connection would see an empty schema.
	if config.IsInMemory() {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(config.MaxConnections)
		db.SetMaxIdleConns(config.MaxIdleConns)
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
		db.SetConnMaxIdleTime(config.ConnMaxIdleTime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database at %s: %w", config.Path, err)
	}

	s.db = db
	s.migrationRunner = NewMigrationRunner(db, s.logger)

	s.logger.Info("Connected to database", "path", config.Path, "journal_mode", config.JournalMode)

	if config.AutoMigrate {
		if err := s.Migrate(ctx); err != nil {
			db.Close()
			s.db = nil
			return fmt.Errorf("auto-migration failed: %w", err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteService) Close() error {
	if s.db == nil {
		return nil
	}

	err := s.db.Close()
	s.db = nil
	s.migrationRunner = nil

	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// Health verifies the connection and basic query capability
func (s *SQLiteService) Health(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not connected")
	}

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var result int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// DB returns the underlying database handle
func (s *SQLiteService) DB() *sql.DB {
	return s.db
}

// Migrate runs all pending migrations
func (s *SQLiteService) Migrate(ctx context.Context) error {
	if s.migrationRunner == nil {
		return fmt.Errorf("database not connected")
	}
	return s.migrationRunner.RunMigrations(ctx)
}

// GetMigrationVersion returns the current migration version
func (s *SQLiteService) GetMigrationVersion(ctx context.Context) (int64, error) {
	if s.migrationRunner == nil {
		return 0, fmt.Errorf("database not connected")
	}
	return s.migrationRunner.GetCurrentVersion(ctx)
}

// Optimize runs SQLite maintenance statements
func (s *SQLiteService) Optimize(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not connected")
	}

	if _, err := s.db.ExecContext(ctx, "ANALYZE"); err != nil {
		return fmt.Errorf("failed to analyze database: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("failed to optimize database: %w", err)
	}

	s.logger.Debug("Database optimization completed")
	return nil
}

// GetStats returns connection pool statistics
func (s *SQLiteService) GetStats() sql.DBStats {
	if s.db == nil {
		return sql.DBStats{}
	}
	return s.db.Stats()
}
