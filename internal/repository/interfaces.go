package repository

import (
	"context"
	"time"

	"aware/internal/types"
)

// WellbeingRepository defines the persistence operations for the decision
// engine. All per-day parameters are normalized to midnight before storage.
type WellbeingRepository interface {
	// Session operations
	SaveSession(ctx context.Context, session *types.UsageSession) error
	GetOpenSession(ctx context.Context, appID string) (*types.UsageSession, error)
	GetLastClosedSession(ctx context.Context, appID string) (*types.UsageSession, error)
	GetSessionsByDateRange(ctx context.Context, appID string, start, end time.Time) ([]types.UsageSession, error)

	// Daily stats operations
	UpsertDailyStats(ctx context.Context, stats *types.DailyStats) error
	GetDailyStats(ctx context.Context, appID string, date time.Time) (*types.DailyStats, error)
	GetDailyStatsRange(ctx context.Context, appID string, start, end time.Time) ([]types.DailyStats, error)
	GetAggregateDailyStats(ctx context.Context, date time.Time) (*types.DailyStats, error)

	// Goal operations
	SaveGoal(ctx context.Context, goal *types.Goal) error
	GetGoal(ctx context.Context, appID string) (*types.Goal, error)
	ListGoals(ctx context.Context, enabledOnly bool) ([]types.Goal, error)
	DeleteGoal(ctx context.Context, appID string) error

	// Streak recovery operations
	CreateRecovery(ctx context.Context, recovery *types.StreakRecovery) error
	GetActiveRecovery(ctx context.Context, appID string) (*types.StreakRecovery, error)
	GetLatestRecovery(ctx context.Context, appID string) (*types.StreakRecovery, error)
	UpdateRecovery(ctx context.Context, recovery *types.StreakRecovery) error

	// Intervention analytics operations (append-only)
	AppendInterventionResult(ctx context.Context, result *types.InterventionResult) error
	GetInterventionResults(ctx context.Context, appID string, limit int) ([]types.InterventionResult, error)

	// Baseline operations
	SaveBaseline(ctx context.Context, baseline *types.UserBaseline) error
	GetBaseline(ctx context.Context) (*types.UserBaseline, error)

	// Maintenance
	DeleteOldData(ctx context.Context, olderThan time.Time) error

	// Transaction support
	WithTransaction(ctx context.Context, fn func(repo WellbeingRepository) error) error
}
