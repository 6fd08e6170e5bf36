package engine

import (
	"aware/internal/types"
)

// ScoreInputs are the live and historical signals behind one opportunity
// evaluation. Everything the scorer needs is here; scoring never touches
// storage or the clock.
type ScoreInputs struct {
	// QuickReopen is true when the app was reopened within the configured
	// window of its previous close.
	QuickReopen bool

	// UsedMinutes is the day total so far; DailyLimitMinutes the goal limit.
	UsedMinutes       float64
	DailyLimitMinutes int

	// HourOfDay is the local hour of the triggering event; PeakHour the
	// app's historical peak from the baseline, -1 when unknown.
	HourOfDay int
	PeakHour  int

	CurrentStreak  int
	RecoveryActive bool
}

// Scorer computes intervention opportunity scores. Pure: the same inputs
// and config always produce the same score.
type Scorer struct {
	config *Config
}

// NewScorer creates an opportunity scorer
func NewScorer(config *Config) *Scorer {
	if config == nil {
		config = DefaultEngineConfig()
	}
	return &Scorer{config: config}
}

// Score maps the input signals to a 0-100 opportunity value and its level.
// Each sub-signal is normalized to [0,1] and combined by the configured
// weights.
func (s *Scorer) Score(inputs ScoreInputs) types.OpportunityScore {
	w := s.config.Weights

	value := w.QuickReopen*boolSignal(inputs.QuickReopen) +
		w.LimitProgress*s.limitSignal(inputs) +
		w.PeakHour*s.peakHourSignal(inputs) +
		w.Streak*s.streakSignal(inputs) +
		w.Recovery*boolSignal(inputs.RecoveryActive)

	value *= 100
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}

	return types.OpportunityScore{Value: value, Level: s.Level(value)}
}

// Level buckets a score value
func (s *Scorer) Level(value float64) types.ScoreLevel {
	switch {
	case value >= s.config.ExcellentCutoff:
		return types.LevelExcellent
	case value >= s.config.GoodCutoff:
		return types.LevelGood
	case value >= s.config.ModerateCutoff:
		return types.LevelModerate
	default:
		return types.LevelPoor
	}
}

func boolSignal(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// limitSignal is the proportion of the daily limit already consumed,
// saturating at 1 once the limit is exceeded.
func (s *Scorer) limitSignal(inputs ScoreInputs) float64 {
	if inputs.DailyLimitMinutes <= 0 || inputs.UsedMinutes <= 0 {
		return 0
	}
	progress := inputs.UsedMinutes / float64(inputs.DailyLimitMinutes)
	if progress > 1 {
		return 1
	}
	return progress
}

// peakHourSignal is 1 during the app's historical peak hour, 0.5 in the
// adjacent hours, 0 otherwise or when the baseline has no signal.
func (s *Scorer) peakHourSignal(inputs ScoreInputs) float64 {
	if inputs.PeakHour < 0 || inputs.PeakHour > 23 {
		return 0
	}
	distance := inputs.HourOfDay - inputs.PeakHour
	if distance < 0 {
		distance = -distance
	}
	if distance > 12 {
		distance = 24 - distance
	}
	switch distance {
	case 0:
		return 1
	case 1:
		return 0.5
	default:
		return 0
	}
}

// streakSignal grows linearly with the streak and saturates: a longer
// streak means more to protect.
func (s *Scorer) streakSignal(inputs ScoreInputs) float64 {
	if inputs.CurrentStreak <= 0 {
		return 0
	}
	signal := float64(inputs.CurrentStreak) / float64(s.config.StreakSaturationDays)
	if signal > 1 {
		return 1
	}
	return signal
}

// DetectPersona classifies the user's coarse usage archetype from the
// frozen baseline. Unknown until the observation window completes.
func DetectPersona(baseline *types.UserBaseline) types.Persona {
	if baseline == nil || !baseline.Completed {
		return types.PersonaUnknown
	}

	switch {
	case baseline.PeakUsageHour >= 22 || (baseline.PeakUsageHour >= 0 && baseline.PeakUsageHour <= 4):
		return types.PersonaNightOwl
	case baseline.AverageSessionMinutes < 5 && baseline.AverageDailySessions >= 12:
		return types.PersonaFrequentChecker
	case baseline.AverageSessionMinutes >= 30:
		return types.PersonaBingeUser
	default:
		return types.PersonaSteady
	}
}
