package engine

import (
	"context"
	"testing"
	"time"

	"aware/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendResult(t *testing.T, rec *Recorder, appID string, iType types.InterventionType, choice types.UserChoice, hour int, postUsage time.Duration) {
	t.Helper()
	err := rec.Record(context.Background(), &types.InterventionResult{
		AppID:                 appID,
		Type:                  iType,
		Choice:                choice,
		PostInterventionUsage: postUsage,
		HourOfDay:             hour,
		Score:                 50,
		Level:                 types.LevelModerate,
		CreatedAt:             time.Now(),
	})
	require.NoError(t, err)
}

func TestRecordValidatesInputs(t *testing.T) {
	t.Parallel()
	rec := NewRecorder(NewMockRepository(), nil, nil)
	ctx := context.Background()

	assert.Error(t, rec.Record(ctx, nil))
	assert.Error(t, rec.Record(ctx, &types.InterventionResult{AppID: "app", Score: 101, HourOfDay: 10}))
	assert.Error(t, rec.Record(ctx, &types.InterventionResult{AppID: "app", Score: -1, HourOfDay: 10}))
	assert.Error(t, rec.Record(ctx, &types.InterventionResult{AppID: "app", Score: 50, HourOfDay: 24}))
	assert.NoError(t, rec.Record(ctx, &types.InterventionResult{AppID: "app", Score: 0, HourOfDay: 0}))
	assert.NoError(t, rec.Record(ctx, &types.InterventionResult{AppID: "app", Score: 100, HourOfDay: 23}))
}

func TestEffectivenessSuccessDefinition(t *testing.T) {
	t.Parallel()
	rec := NewRecorder(NewMockRepository(), nil, nil)

	// Quit is always a success; any other answer counts only when the
	// session ended shortly after the intervention.
	appendResult(t, rec, "app", types.InterventionBreathing, types.ChoiceQuit, 10, 0)
	appendResult(t, rec, "app", types.InterventionBreathing, types.ChoiceContinue, 10, 30*time.Second)
	appendResult(t, rec, "app", types.InterventionBreathing, types.ChoiceContinue, 10, 10*time.Minute)
	appendResult(t, rec, "app", types.InterventionBreathing, types.ChoiceSkip, 10, 30*time.Second)
	appendResult(t, rec, "app", types.InterventionBreathing, types.ChoiceSkip, 10, 10*time.Minute)

	data, err := rec.Effectiveness(context.Background(), "app")
	require.NoError(t, err)

	assert.Equal(t, 5, data.TotalShown)
	assert.Equal(t, 3, data.SuccessCount, "quit, quick continue and quick skip")
	assert.InDelta(t, 0.6, data.SuccessRate, 0.001)
	assert.InDelta(t, 0.2, data.QuitRate, 0.001)
	assert.InDelta(t, 0.4, data.SkipRate, 0.001)
	assert.InDelta(t, 0.4, data.ContinueRate, 0.001)
}

func TestEffectivenessThinDataStaysNeutral(t *testing.T) {
	t.Parallel()
	rec := NewRecorder(NewMockRepository(), nil, nil)

	// A single sample must not read as a 100% success rate
	appendResult(t, rec, "app", types.InterventionReflection, types.ChoiceQuit, 14, 0)

	data, err := rec.Effectiveness(context.Background(), "app")
	require.NoError(t, err)

	entry := data.PerType[types.InterventionReflection]
	assert.Equal(t, 1, entry.Shown)
	assert.False(t, entry.Sufficient)
	assert.InDelta(t, neutralRate, entry.Rate, 0.001)
	assert.Equal(t, -1, data.BestHourBucket, "one sample is not enough for a best hour")
}

func TestEffectivenessPerTypeAndBestHour(t *testing.T) {
	t.Parallel()
	rec := NewRecorder(NewMockRepository(), nil, nil)

	// Breathing: 5 shown, 4 quits in the 21-23 bucket
	for i := 0; i < 4; i++ {
		appendResult(t, rec, "app", types.InterventionBreathing, types.ChoiceQuit, 21, 0)
	}
	appendResult(t, rec, "app", types.InterventionBreathing, types.ChoiceContinue, 22, 10*time.Minute)

	// Reflection: 5 shown, 1 quit in the 9-11 bucket
	appendResult(t, rec, "app", types.InterventionReflection, types.ChoiceQuit, 9, 0)
	for i := 0; i < 4; i++ {
		appendResult(t, rec, "app", types.InterventionReflection, types.ChoiceSkip, 10, 0)
	}

	data, err := rec.Effectiveness(context.Background(), "app")
	require.NoError(t, err)

	breathing := data.PerType[types.InterventionBreathing]
	require.True(t, breathing.Sufficient)
	assert.InDelta(t, 0.8, breathing.Rate, 0.001)

	reflection := data.PerType[types.InterventionReflection]
	require.True(t, reflection.Sufficient)
	assert.InDelta(t, 0.2, reflection.Rate, 0.001)

	// Hours 21 and 22 share the 3-hour bucket 7; hours 9 and 10 bucket 3
	assert.Equal(t, 7, data.BestHourBucket)
}

func TestEffectivenessEmptyLog(t *testing.T) {
	t.Parallel()
	rec := NewRecorder(NewMockRepository(), nil, nil)

	data, err := rec.Effectiveness(context.Background(), "app")
	require.NoError(t, err)

	assert.Zero(t, data.TotalShown)
	assert.Zero(t, data.SuccessRate)
	assert.Equal(t, -1, data.BestHourBucket)
	assert.Empty(t, data.PerType)
}
