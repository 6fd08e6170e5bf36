package engine

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	repoerrors "aware/internal/infrastructure/errors"
	"aware/internal/repository"
	"aware/internal/types"

	"github.com/google/uuid"
)

// MockRepository is an in-memory WellbeingRepository for engine tests, with
// per-operation call counts and injectable failures.
type MockRepository struct {
	mu sync.Mutex

	sessions   map[uuid.UUID]*types.UsageSession
	stats      map[string]*types.DailyStats
	goals      map[string]*types.Goal
	recoveries []*types.StreakRecovery
	results    []*types.InterventionResult
	baseline   *types.UserBaseline
	nextID     int64

	CallCounts map[string]int
	FailOn     map[string]error
}

var _ repository.WellbeingRepository = (*MockRepository)(nil)

// NewMockRepository creates an empty in-memory repository
func NewMockRepository() *MockRepository {
	return &MockRepository{
		sessions:   make(map[uuid.UUID]*types.UsageSession),
		stats:      make(map[string]*types.DailyStats),
		goals:      make(map[string]*types.Goal),
		CallCounts: make(map[string]int),
		FailOn:     make(map[string]error),
	}
}

func (m *MockRepository) enter(op string) error {
	m.CallCounts[op]++
	if err, ok := m.FailOn[op]; ok {
		return err
	}
	return nil
}

func notFound(op string) error {
	return repoerrors.NewStorageError(op, sql.ErrNoRows, repoerrors.ErrCodeNotFound)
}

func statsKey(appID string, date time.Time) string {
	return appID + "|" + types.DateOf(date).Format("2006-01-02")
}

func (m *MockRepository) SaveSession(_ context.Context, session *types.UsageSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("SaveSession"); err != nil {
		return err
	}
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *MockRepository) GetOpenSession(_ context.Context, appID string) (*types.UsageSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetOpenSession"); err != nil {
		return nil, err
	}
	var latest *types.UsageSession
	for _, s := range m.sessions {
		if s.AppID == appID && !s.IsClosed() {
			if latest == nil || s.StartTime.After(latest.StartTime) {
				latest = s
			}
		}
	}
	if latest == nil {
		return nil, notFound("GetOpenSession")
	}
	copied := *latest
	return &copied, nil
}

func (m *MockRepository) GetLastClosedSession(_ context.Context, appID string) (*types.UsageSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetLastClosedSession"); err != nil {
		return nil, err
	}
	var latest *types.UsageSession
	for _, s := range m.sessions {
		if s.AppID == appID && s.IsClosed() {
			if latest == nil || s.EndTime.After(latest.EndTime) {
				latest = s
			}
		}
	}
	if latest == nil {
		return nil, notFound("GetLastClosedSession")
	}
	copied := *latest
	return &copied, nil
}

func (m *MockRepository) GetSessionsByDateRange(_ context.Context, appID string, start, end time.Time) ([]types.UsageSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetSessionsByDateRange"); err != nil {
		return nil, err
	}
	var out []types.UsageSession
	for _, s := range m.sessions {
		if !s.IsClosed() {
			continue
		}
		if appID != "" && s.AppID != appID {
			continue
		}
		if s.EndTime.Before(start) || s.EndTime.After(end) {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndTime.Before(out[j].EndTime) })
	return out, nil
}

func (m *MockRepository) UpsertDailyStats(_ context.Context, stats *types.DailyStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpsertDailyStats"); err != nil {
		return err
	}
	copied := *stats
	copied.Date = types.DateOf(stats.Date)
	m.stats[statsKey(stats.AppID, stats.Date)] = &copied
	return nil
}

func (m *MockRepository) GetDailyStats(_ context.Context, appID string, date time.Time) (*types.DailyStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetDailyStats"); err != nil {
		return nil, err
	}
	stats, ok := m.stats[statsKey(appID, date)]
	if !ok {
		return nil, notFound("GetDailyStats")
	}
	copied := *stats
	return &copied, nil
}

func (m *MockRepository) GetDailyStatsRange(_ context.Context, appID string, start, end time.Time) ([]types.DailyStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetDailyStatsRange"); err != nil {
		return nil, err
	}
	startDay, endDay := types.DateOf(start), types.DateOf(end)
	var out []types.DailyStats
	for _, stats := range m.stats {
		if stats.AppID != appID {
			continue
		}
		if stats.Date.Before(startDay) || stats.Date.After(endDay) {
			continue
		}
		out = append(out, *stats)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *MockRepository) GetAggregateDailyStats(_ context.Context, date time.Time) (*types.DailyStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetAggregateDailyStats"); err != nil {
		return nil, err
	}
	day := types.DateOf(date)
	agg := &types.DailyStats{Date: day, AppBreakdown: make(map[string]float64)}
	for _, stats := range m.stats {
		if !stats.Date.Equal(day) {
			continue
		}
		agg.TotalMinutes += stats.TotalMinutes
		agg.SessionCount += stats.SessionCount
		if stats.LongestSessionMinutes > agg.LongestSessionMinutes {
			agg.LongestSessionMinutes = stats.LongestSessionMinutes
		}
		agg.AppBreakdown[stats.AppID] = stats.TotalMinutes
	}
	if agg.SessionCount > 0 {
		agg.AverageSessionMinutes = agg.TotalMinutes / float64(agg.SessionCount)
	}
	return agg, nil
}

func (m *MockRepository) SaveGoal(_ context.Context, goal *types.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("SaveGoal"); err != nil {
		return err
	}
	copied := *goal
	if existing, ok := m.goals[goal.AppID]; ok {
		copied.CreatedAt = existing.CreatedAt
	} else if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now()
	}
	copied.UpdatedAt = time.Now()
	m.goals[goal.AppID] = &copied
	return nil
}

func (m *MockRepository) GetGoal(_ context.Context, appID string) (*types.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetGoal"); err != nil {
		return nil, err
	}
	goal, ok := m.goals[appID]
	if !ok {
		return nil, notFound("GetGoal")
	}
	copied := *goal
	return &copied, nil
}

func (m *MockRepository) ListGoals(_ context.Context, enabledOnly bool) ([]types.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListGoals"); err != nil {
		return nil, err
	}
	var out []types.Goal
	for _, goal := range m.goals {
		if enabledOnly && !goal.Enabled {
			continue
		}
		out = append(out, *goal)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppID < out[j].AppID })
	return out, nil
}

func (m *MockRepository) DeleteGoal(_ context.Context, appID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteGoal"); err != nil {
		return err
	}
	if _, ok := m.goals[appID]; !ok {
		return notFound("DeleteGoal")
	}
	delete(m.goals, appID)
	return nil
}

func (m *MockRepository) CreateRecovery(_ context.Context, recovery *types.StreakRecovery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateRecovery"); err != nil {
		return err
	}
	for _, r := range m.recoveries {
		if r.AppID == recovery.AppID && r.State == types.RecoveryInProgress {
			return repoerrors.NewStorageError("CreateRecovery", sql.ErrTxDone, repoerrors.ErrCodeDuplicate)
		}
	}
	m.nextID++
	recovery.ID = m.nextID
	copied := *recovery
	m.recoveries = append(m.recoveries, &copied)
	return nil
}

func (m *MockRepository) GetActiveRecovery(_ context.Context, appID string) (*types.StreakRecovery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetActiveRecovery"); err != nil {
		return nil, err
	}
	for i := len(m.recoveries) - 1; i >= 0; i-- {
		r := m.recoveries[i]
		if r.AppID == appID && r.State == types.RecoveryInProgress {
			copied := *r
			return &copied, nil
		}
	}
	return nil, notFound("GetActiveRecovery")
}

func (m *MockRepository) GetLatestRecovery(_ context.Context, appID string) (*types.StreakRecovery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetLatestRecovery"); err != nil {
		return nil, err
	}
	for i := len(m.recoveries) - 1; i >= 0; i-- {
		if m.recoveries[i].AppID == appID {
			copied := *m.recoveries[i]
			return &copied, nil
		}
	}
	return nil, notFound("GetLatestRecovery")
}

func (m *MockRepository) UpdateRecovery(_ context.Context, recovery *types.StreakRecovery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateRecovery"); err != nil {
		return err
	}
	for i, r := range m.recoveries {
		if r.ID == recovery.ID {
			copied := *recovery
			m.recoveries[i] = &copied
			return nil
		}
	}
	return notFound("UpdateRecovery")
}

func (m *MockRepository) AppendInterventionResult(_ context.Context, result *types.InterventionResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("AppendInterventionResult"); err != nil {
		return err
	}
	if result.ID == uuid.Nil {
		result.ID = uuid.New()
	}
	copied := *result
	m.results = append(m.results, &copied)
	return nil
}

func (m *MockRepository) GetInterventionResults(_ context.Context, appID string, limit int) ([]types.InterventionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetInterventionResults"); err != nil {
		return nil, err
	}
	var out []types.InterventionResult
	for i := len(m.results) - 1; i >= 0; i-- {
		if appID != "" && m.results[i].AppID != appID {
			continue
		}
		out = append(out, *m.results[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockRepository) SaveBaseline(_ context.Context, baseline *types.UserBaseline) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("SaveBaseline"); err != nil {
		return err
	}
	copied := *baseline
	m.baseline = &copied
	return nil
}

func (m *MockRepository) GetBaseline(_ context.Context) (*types.UserBaseline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetBaseline"); err != nil {
		return nil, err
	}
	if m.baseline == nil {
		return nil, notFound("GetBaseline")
	}
	copied := *m.baseline
	return &copied, nil
}

func (m *MockRepository) DeleteOldData(_ context.Context, olderThan time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteOldData"); err != nil {
		return err
	}
	cutoff := types.DateOf(olderThan)
	for id, s := range m.sessions {
		if s.IsClosed() && s.EndTime.Before(cutoff) {
			delete(m.sessions, id)
		}
	}
	for key, stats := range m.stats {
		if stats.Date.Before(cutoff) {
			delete(m.stats, key)
		}
	}
	kept := m.results[:0]
	for _, r := range m.results {
		if !r.CreatedAt.Before(cutoff) {
			kept = append(kept, r)
		}
	}
	m.results = kept
	return nil
}

// WithTransaction runs fn against the same store; the mock has no real
// transactional rollback.
func (m *MockRepository) WithTransaction(_ context.Context, fn func(repo repository.WellbeingRepository) error) error {
	m.mu.Lock()
	err := m.enter("WithTransaction")
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return fn(m)
}

// RecoveryCount returns how many recovery records exist for an app
func (m *MockRepository) RecoveryCount(appID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, r := range m.recoveries {
		if r.AppID == appID {
			count++
		}
	}
	return count
}

// ResultCount returns how many analytics records exist
func (m *MockRepository) ResultCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.results)
}
