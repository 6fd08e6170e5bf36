package engine

import (
	"context"
	"fmt"
	"time"

	"aware/internal/infrastructure/logging"
	"aware/internal/repository"
	"aware/internal/types"
)

// Rate reported for a type until it reaches the minimum sample size, so a
// single observation never reads as 100% or 0%.
const neutralRate = 0.5

// hourBucketSize groups hours of day into coarse buckets for the
// best-time-of-day statistic.
const hourBucketSize = 3

// Recorder appends intervention outcomes and aggregates them into the
// success-rate statistics the selector feeds on.
type Recorder struct {
	repo   repository.WellbeingRepository
	config *Config
	logger logging.Logger
}

// NewRecorder creates an effectiveness recorder
func NewRecorder(repo repository.WellbeingRepository, config *Config, logger logging.Logger) *Recorder {
	if config == nil {
		config = DefaultEngineConfig()
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Recorder{repo: repo, config: config, logger: logger}
}

// Record appends one outcome to the analytics log. The log is append-only;
// nothing here is ever mutated.
func (r *Recorder) Record(ctx context.Context, result *types.InterventionResult) error {
	if result == nil {
		return fmt.Errorf("intervention result is nil")
	}
	if result.Score < 0 || result.Score > 100 {
		return fmt.Errorf("opportunity score %.1f outside [0,100]", result.Score)
	}
	if result.HourOfDay < 0 || result.HourOfDay > 23 {
		return fmt.Errorf("hour of day %d outside [0,23]", result.HourOfDay)
	}
	return r.repo.AppendInterventionResult(ctx, result)
}

// wasEffective reports whether one shown intervention worked: the user
// quit, or the session ended within the success window regardless of how
// the intervention was answered. A dismissal followed by a quick close
// still changed behavior.
func (r *Recorder) wasEffective(result *types.InterventionResult) bool {
	if result.Choice == types.ChoiceQuit {
		return true
	}
	window := time.Duration(r.config.SessionEndSuccessSeconds) * time.Second
	return result.PostInterventionUsage > 0 &&
		result.PostInterventionUsage <= window
}

// Effectiveness aggregates the analytics log for one app, or for all apps
// with an empty appID. Below the minimum sample size the per-type rates are
// neutral and the best hour bucket is -1; the caller never sees an error
// for thin data.
func (r *Recorder) Effectiveness(ctx context.Context, appID string) (*types.EffectivenessData, error) {
	results, err := r.repo.GetInterventionResults(ctx, appID, 0)
	if err != nil {
		return nil, err
	}

	data := &types.EffectivenessData{
		PerType:        make(map[types.InterventionType]types.TypeEffectiveness),
		BestHourBucket: -1,
	}

	var quits, skips, continues int
	typeShown := make(map[types.InterventionType]int)
	typeSuccess := make(map[types.InterventionType]int)
	bucketShown := make(map[int]int)
	bucketSuccess := make(map[int]int)

	for i := range results {
		result := &results[i]
		data.TotalShown++

		switch result.Choice {
		case types.ChoiceQuit:
			quits++
		case types.ChoiceSkip:
			skips++
		default:
			continues++
		}

		typeShown[result.Type]++
		bucket := result.HourOfDay / hourBucketSize
		bucketShown[bucket]++

		if r.wasEffective(result) {
			data.SuccessCount++
			typeSuccess[result.Type]++
			bucketSuccess[bucket]++
		}
	}

	if data.TotalShown > 0 {
		total := float64(data.TotalShown)
		data.SuccessRate = float64(data.SuccessCount) / total
		data.QuitRate = float64(quits) / total
		data.SkipRate = float64(skips) / total
		data.ContinueRate = float64(continues) / total
	}

	for t, shown := range typeShown {
		entry := types.TypeEffectiveness{
			Shown:      shown,
			Successes:  typeSuccess[t],
			Rate:       neutralRate,
			Sufficient: shown >= r.config.MinTypeSamples,
		}
		if entry.Sufficient {
			entry.Rate = float64(entry.Successes) / float64(shown)
		}
		data.PerType[t] = entry
	}

	bestRate := -1.0
	for bucket, shown := range bucketShown {
		if shown < r.config.MinHourBucketSamples {
			continue
		}
		rate := float64(bucketSuccess[bucket]) / float64(shown)
		if rate > bestRate || (rate == bestRate && bucket < data.BestHourBucket) {
			bestRate = rate
			data.BestHourBucket = bucket
		}
	}

	return data, nil
}
