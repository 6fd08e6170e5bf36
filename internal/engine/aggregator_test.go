package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"aware/internal/types"

	"github.com/google/uuid"
)

func testSession(appID string, start time.Time, minutes float64) *types.UsageSession {
	return &types.UsageSession{
		ID:        uuid.New(),
		AppID:     appID,
		AppName:   appID,
		StartTime: start,
		EndTime:   start.Add(time.Duration(minutes * float64(time.Minute))),
	}
}

func TestRecordSessionCloseAccumulates(t *testing.T) {
	t.Parallel()
	repo := NewMockRepository()
	agg := NewAggregator(repo, nil, nil)
	ctx := context.Background()

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	for _, minutes := range []float64{10, 20, 5} {
		if err := agg.RecordSessionClose(ctx, testSession("app", base, minutes)); err != nil {
			t.Fatalf("RecordSessionClose() failed: %v", err)
		}
	}

	stats, err := repo.GetDailyStats(ctx, "app", base)
	if err != nil {
		t.Fatalf("GetDailyStats() failed: %v", err)
	}
	if stats.TotalMinutes != 35 {
		t.Errorf("TotalMinutes = %v, want 35", stats.TotalMinutes)
	}
	if stats.SessionCount != 3 {
		t.Errorf("SessionCount = %v, want 3", stats.SessionCount)
	}
	if want := 35.0 / 3; stats.AverageSessionMinutes != want {
		t.Errorf("AverageSessionMinutes = %v, want %v", stats.AverageSessionMinutes, want)
	}
	if stats.LongestSessionMinutes != 20 {
		t.Errorf("LongestSessionMinutes = %v, want 20", stats.LongestSessionMinutes)
	}
}

func TestRecordSessionCloseRejectsInvalid(t *testing.T) {
	t.Parallel()
	repo := NewMockRepository()
	agg := NewAggregator(repo, nil, nil)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		session *types.UsageSession
	}{
		{"nil session", nil},
		{"still open", &types.UsageSession{ID: uuid.New(), AppID: "app", StartTime: now}},
		{"end equals start", &types.UsageSession{ID: uuid.New(), AppID: "app", StartTime: now, EndTime: now}},
		{"end before start", &types.UsageSession{ID: uuid.New(), AppID: "app", StartTime: now, EndTime: now.Add(-time.Minute)}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := agg.RecordSessionClose(ctx, tt.session)
			if !errors.Is(err, ErrInvalidSession) {
				t.Errorf("RecordSessionClose() error = %v, want ErrInvalidSession", err)
			}
		})
	}

	// Invalid sessions never touch stats
	if repo.CallCounts["UpsertDailyStats"] != 0 {
		t.Errorf("invalid sessions wrote stats %d times", repo.CallCounts["UpsertDailyStats"])
	}
}

func TestGetTrend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	// setDays fills each of the 7 current-window days and 7 previous-window
	// days with the given totals.
	setDays := func(t *testing.T, repo *MockRepository, current, previous float64) {
		t.Helper()
		today := types.DateOf(now)
		for i := 0; i < 7; i++ {
			day := today.AddDate(0, 0, -i)
			if err := repo.UpsertDailyStats(ctx, &types.DailyStats{AppID: "app", Date: day, TotalMinutes: current, SessionCount: 1}); err != nil {
				t.Fatalf("UpsertDailyStats() failed: %v", err)
			}
			prev := today.AddDate(0, 0, -7-i)
			if err := repo.UpsertDailyStats(ctx, &types.DailyStats{AppID: "app", Date: prev, TotalMinutes: previous, SessionCount: 1}); err != nil {
				t.Fatalf("UpsertDailyStats() failed: %v", err)
			}
		}
	}

	tests := []struct {
		name          string
		current       float64
		previous      float64
		wantDirection types.TrendDirection
	}{
		{"clear increase", 60, 40, types.TrendUp},
		{"clear decrease", 40, 60, types.TrendDown},
		{"flat", 50, 50, types.TrendStable},
		{"inside band reads stable", 51, 50, types.TrendStable},
		{"band edge still stable", 105, 100, types.TrendStable},
		{"just past band", 106, 100, types.TrendUp},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo := NewMockRepository()
			agg := NewAggregator(repo, nil, nil)
			setDays(t, repo, tt.current, tt.previous)

			trend, err := agg.GetTrend(ctx, "app", 7, now)
			if err != nil {
				t.Fatalf("GetTrend() failed: %v", err)
			}
			if trend.Direction != tt.wantDirection {
				t.Errorf("Direction = %v, want %v (change %.2f%%)", trend.Direction, tt.wantDirection, trend.ChangePercent)
			}
		})
	}
}

func TestGetTrendEmptyHistory(t *testing.T) {
	t.Parallel()
	repo := NewMockRepository()
	agg := NewAggregator(repo, nil, nil)

	trend, err := agg.GetTrend(context.Background(), "app", 7, time.Now())
	if err != nil {
		t.Fatalf("GetTrend() failed: %v", err)
	}
	if trend.Direction != types.TrendStable {
		t.Errorf("empty history should read stable, got %v", trend.Direction)
	}

	if _, err := agg.GetTrend(context.Background(), "app", 0, time.Now()); err == nil {
		t.Error("GetTrend() with zero period should fail")
	}
}
