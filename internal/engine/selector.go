package engine

import (
	"math"

	"aware/internal/types"
)

// Settings are the user-configured intervention preferences consumed from
// the settings collaborator.
type Settings struct {
	Frequency    types.InterventionFrequency
	EnabledTypes []types.InterventionType
}

// DefaultSettings enables every type at medium frequency
func DefaultSettings() Settings {
	return Settings{
		Frequency: types.FrequencyMedium,
		EnabledTypes: []types.InterventionType{
			types.InterventionBreathing,
			types.InterventionReflection,
			types.InterventionActivity,
			types.InterventionReminder,
		},
	}
}

// Each type carries a few content variants; rotation spreads them out
const variantsPerType = 3

// Selector maps a score, the user's settings and historical effectiveness
// to an intervention type and friction level.
type Selector struct {
	config *Config
}

// NewSelector creates an intervention selector
func NewSelector(config *Config) *Selector {
	if config == nil {
		config = DefaultEngineConfig()
	}
	return &Selector{config: config}
}

// Burden classifies how intrusive the intervention should be from the score
// level, shifted down one step at low frequency and up one at high.
func (s *Selector) Burden(level types.ScoreLevel, frequency types.InterventionFrequency) types.BurdenLevel {
	var burden types.BurdenLevel
	switch level {
	case types.LevelExcellent:
		burden = types.BurdenCritical
	case types.LevelGood:
		burden = types.BurdenHigh
	case types.LevelModerate:
		burden = types.BurdenModerate
	default:
		burden = types.BurdenLow
	}

	switch frequency {
	case types.FrequencyLow:
		if burden > types.BurdenLow {
			burden--
		}
	case types.FrequencyHigh:
		if burden < types.BurdenCritical {
			burden++
		}
	}
	return burden
}

// Friction maps burden to dismissal effort. Firm friction requires an
// explicit quit/continue choice before dismiss becomes available.
func (s *Selector) Friction(burden types.BurdenLevel) types.FrictionLevel {
	switch burden {
	case types.BurdenCritical:
		return types.FrictionFirm
	case types.BurdenHigh:
		return types.FrictionModerate
	default:
		return types.FrictionGentle
	}
}

// SelectType picks among the enabled types. With enough samples for every
// enabled type the rotation is weighted by historical success rate; below
// the minimum the cold-start path round-robins so early noise cannot
// dominate.
func (s *Selector) SelectType(settings Settings, data *types.EffectivenessData) (types.InterventionType, int, types.DecisionSource) {
	enabled := settings.EnabledTypes
	if len(enabled) == 0 {
		enabled = DefaultSettings().EnabledTypes
	}

	if data != nil && s.sufficientHistory(enabled, data) {
		best := s.rotateByRate(enabled, data)
		return best, data.PerType[best].Shown % variantsPerType, types.SourceHistorical
	}

	var shown int
	if data != nil {
		shown = data.TotalShown
	}
	t := enabled[shown%len(enabled)]
	variant := 0
	if data != nil {
		variant = data.PerType[t].Shown % variantsPerType
	}
	return t, variant, types.SourceColdStart
}

// rotateByRate allots each enabled type a target share of the shown count
// proportional to its success rate and picks the type furthest behind its
// share. Better types show more often without starving the rest; ties go to
// the earlier enabled type, keeping the rotation deterministic.
func (s *Selector) rotateByRate(enabled []types.InterventionType, data *types.EffectivenessData) types.InterventionType {
	totalShown := 0
	totalRate := 0.0
	for _, t := range enabled {
		totalShown += data.PerType[t].Shown
		totalRate += data.PerType[t].Rate
	}

	best := enabled[0]
	bestDeficit := math.Inf(-1)
	for _, t := range enabled {
		share := 1.0 / float64(len(enabled))
		if totalRate > 0 {
			share = data.PerType[t].Rate / totalRate
		}
		deficit := share*float64(totalShown+1) - float64(data.PerType[t].Shown)
		if deficit > bestDeficit {
			best = t
			bestDeficit = deficit
		}
	}
	return best
}

func (s *Selector) sufficientHistory(enabled []types.InterventionType, data *types.EffectivenessData) bool {
	for _, t := range enabled {
		if data.PerType[t].Shown < s.config.MinTypeSamples {
			return false
		}
	}
	return true
}
