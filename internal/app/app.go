package app

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"aware/internal/database"
	"aware/internal/engine"
	"aware/internal/infrastructure/logging"
	"aware/internal/repository"
)

const (
	// cleanupInterval is how often the retention sweep runs while the app
	// is up. The sweep is also run once at startup.
	cleanupInterval = 24 * time.Hour

	shutdownTimeout = 30 * time.Second
)

// App wires the database, repository and decision engine together and owns
// their lifecycle.
type App struct {
	environment string
	logger      logging.Logger
	dbService   database.Service
	repository  repository.WellbeingRepository
	engine      *engine.Engine

	dbConfig *database.Config

	cleanupStop chan struct{}
	cleanupDone chan struct{}
	startOnce   sync.Once
	stopOnce    sync.Once
}

// New creates a fully wired App for the given environment. A .env file in
// the working directory is loaded first if present; explicit environment
// variables win over it.
func New(env string) (*App, error) {
	// Missing .env is the normal case, not an error.
	_ = godotenv.Load()

	logger := logging.NewDefaultLogger()

	dbConfig := database.ConfigForEnvironment(env)
	if err := dbConfig.LoadFromEnvironment(); err != nil {
		return nil, fmt.Errorf("loading database configuration: %w", err)
	}

	dbService := database.NewSQLiteService(logger)
	if err := dbService.Connect(context.Background(), dbConfig); err != nil {
		return nil, err
	}

	if err := dbService.Migrate(context.Background()); err != nil {
		dbService.Close()
		return nil, err
	}

	repo := repository.NewSQLiteRepository(dbService, logger)

	engineConfig, err := loadEngineConfig()
	if err != nil {
		dbService.Close()
		return nil, err
	}

	return &App{
		environment: env,
		logger:      logger,
		dbService:   dbService,
		repository:  repo,
		engine:      engine.NewEngine(repo, engineConfig, logger),
		dbConfig:    dbConfig,
	}, nil
}

// loadEngineConfig returns the defaults, overlaid with the policy file named
// by AWARE_ENGINE_CONFIG when that variable is set.
func loadEngineConfig() (*engine.Config, error) {
	path := os.Getenv("AWARE_ENGINE_CONFIG")
	if path == "" {
		return engine.DefaultEngineConfig(), nil
	}
	config, err := engine.LoadEngineConfig(path)
	if err != nil {
		return nil, fmt.Errorf("loading engine policy %s: %w", path, err)
	}
	return config, nil
}

// Engine exposes the decision engine to the transport layer.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Repository exposes the persistence layer for goal management.
func (a *App) Repository() repository.WellbeingRepository {
	return a.repository
}

// Logger exposes the shared logger.
func (a *App) Logger() logging.Logger {
	return a.logger
}

// Startup runs the initial retention sweep and starts the periodic one.
// Safe to call more than once; the sweep is skipped entirely when cleanup
// is disabled or retention is unbounded.
func (a *App) Startup(ctx context.Context) {
	a.startOnce.Do(func() {
		if !a.retentionEnabled() {
			a.logger.Info("Retention cleanup disabled", "environment", a.environment)
			return
		}
		a.cleanupStop = make(chan struct{})
		a.cleanupDone = make(chan struct{})
		a.runCleanup(ctx)
		go a.cleanupLoop()
	})
	a.logger.Info("Application started",
		"environment", a.environment,
		"db_path", a.dbConfig.Path)
}

func (a *App) retentionEnabled() bool {
	return a.dbConfig.EnableCleanup && a.dbConfig.RetentionDays > 0
}

func (a *App) cleanupLoop() {
	defer close(a.cleanupDone)
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.cleanupStop:
			return
		case <-ticker.C:
			a.runCleanup(context.Background())
		}
	}
}

func (a *App) runCleanup(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -a.dbConfig.RetentionDays)
	if err := a.engine.DeleteOldData(ctx, cutoff); err != nil {
		a.logger.Error("Retention cleanup failed",
			"retention_days", a.dbConfig.RetentionDays,
			"error", err.Error())
	}
}

// Shutdown stops the cleanup loop, compacts the database and closes the
// connection. Safe to call more than once.
func (a *App) Shutdown(ctx context.Context) {
	a.stopOnce.Do(func() {
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		if a.cleanupStop != nil {
			close(a.cleanupStop)
			select {
			case <-a.cleanupDone:
			case <-shutdownCtx.Done():
				a.logger.Warn("Cleanup loop did not stop before timeout")
			}
		}

		if err := a.dbService.Optimize(shutdownCtx); err != nil {
			a.logger.Warn("Database optimize failed during shutdown", "error", err.Error())
		}
		if err := a.dbService.Close(); err != nil {
			a.logger.Error("Database close failed", "error", err.Error())
		}
		a.logger.Info("Application shutdown completed")
	})
}
