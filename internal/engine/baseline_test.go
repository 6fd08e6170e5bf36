package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaselineObservationWindow(t *testing.T) {
	t.Parallel()
	repo := NewMockRepository()
	builder := NewBaselineBuilder(repo, nil, nil)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	// First call starts the clock and reports insufficient data
	_, err := builder.Ensure(ctx, start)
	require.ErrorIs(t, err, ErrInsufficientData)

	// Mid-window still insufficient
	_, err = builder.Ensure(ctx, start.AddDate(0, 0, 3))
	require.ErrorIs(t, err, ErrInsufficientData)

	// Usage during the week: social evenings at 21, video mornings at 9
	for day := 0; day < 7; day++ {
		s := testSession("social", time.Date(2026, 3, 1+day, 21, 0, 0, 0, time.UTC), 30)
		require.NoError(t, repo.SaveSession(ctx, s))
		v := testSession("video", time.Date(2026, 3, 1+day, 9, 0, 0, 0, time.UTC), 10)
		require.NoError(t, repo.SaveSession(ctx, v))
	}

	baseline, err := builder.Ensure(ctx, start.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.NotNil(t, baseline)

	assert.True(t, baseline.Completed)
	assert.Equal(t, start.AddDate(0, 0, 7), baseline.ComputedAt, "stamped with the caller's clock")
	assert.InDelta(t, 30, baseline.FirstWeekAppMinutes["social"], 0.001)
	assert.InDelta(t, 10, baseline.FirstWeekAppMinutes["video"], 0.001)
	assert.Equal(t, 21, baseline.PeakHourByApp["social"])
	assert.Equal(t, 9, baseline.PeakHourByApp["video"])
	assert.Equal(t, 21, baseline.PeakUsageHour, "social minutes dominate overall")
	assert.InDelta(t, 2, baseline.AverageDailySessions, 0.001)
	assert.InDelta(t, 20, baseline.AverageSessionMinutes, 0.001)

	assert.Equal(t, 21, baseline.PeakHourFor("social"))
	assert.Equal(t, 21, baseline.PeakHourFor("unseen"), "unseen app falls back to the overall peak")
}

func TestBaselineIsFrozenOnceComputed(t *testing.T) {
	t.Parallel()
	repo := NewMockRepository()
	builder := NewBaselineBuilder(repo, nil, nil)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	_, err := builder.Ensure(ctx, start)
	require.ErrorIs(t, err, ErrInsufficientData)
	require.NoError(t, repo.SaveSession(ctx, testSession("social", start, 30)))

	first, err := builder.Ensure(ctx, start.AddDate(0, 0, 7))
	require.NoError(t, err)

	// Heavy usage after the window must not shift the baseline
	require.NoError(t, repo.SaveSession(ctx, testSession("social", start.AddDate(0, 0, 10), 300)))

	second, err := builder.Ensure(ctx, start.AddDate(0, 0, 20))
	require.NoError(t, err)
	assert.Equal(t, first.FirstWeekAppMinutes, second.FirstWeekAppMinutes)
	assert.Equal(t, first.AverageSessionMinutes, second.AverageSessionMinutes)
}

func TestBaselineEmptyWindow(t *testing.T) {
	t.Parallel()
	repo := NewMockRepository()
	builder := NewBaselineBuilder(repo, nil, nil)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	_, err := builder.Ensure(ctx, start)
	require.ErrorIs(t, err, ErrInsufficientData)

	baseline, err := builder.Ensure(ctx, start.AddDate(0, 0, 8))
	require.NoError(t, err)
	assert.True(t, baseline.Completed)
	assert.Equal(t, -1, baseline.PeakUsageHour)
	assert.Equal(t, -1, baseline.PeakHourFor("anything"))
}
