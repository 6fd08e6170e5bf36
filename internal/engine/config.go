package engine

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Weights are the opportunity-score signal weights. They must sum to 1.
type Weights struct {
	QuickReopen   float64 `yaml:"quickReopen"`
	LimitProgress float64 `yaml:"limitProgress"`
	PeakHour      float64 `yaml:"peakHour"`
	Streak        float64 `yaml:"streak"`
	Recovery      float64 `yaml:"recovery"`
}

// Sum returns the total of all signal weights
func (w Weights) Sum() float64 {
	return w.QuickReopen + w.LimitProgress + w.PeakHour + w.Streak + w.Recovery
}

// Config holds every decision-engine tunable. All policy values live here
// rather than in the components so tests and deployments can vary them.
type Config struct {
	Weights Weights `yaml:"weights"`

	// Score level cutoffs, value in [0,100]
	ExcellentCutoff float64 `yaml:"excellentCutoff"`
	GoodCutoff      float64 `yaml:"goodCutoff"`
	ModerateCutoff  float64 `yaml:"moderateCutoff"`

	// Re-entry within this window after a close is a quick reopen
	QuickReopenWindowSeconds int `yaml:"quickReopenWindowSeconds"`

	// Streak length at which the streak signal saturates to 1
	StreakSaturationDays int `yaml:"streakSaturationDays"`

	// Recovery policy
	RequiredRecoveryDays int `yaml:"requiredRecoveryDays"`
	RecoveryExpiryDays   int `yaml:"recoveryExpiryDays"`

	// Baseline observation window
	BaselineObservationDays int `yaml:"baselineObservationDays"`

	// Minimum samples before historical data outranks the cold-start path
	MinTypeSamples       int `yaml:"minTypeSamples"`
	MinHourBucketSamples int `yaml:"minHourBucketSamples"`

	// Trend band: changes within this percentage either way read as stable
	TrendBandPercent float64 `yaml:"trendBandPercent"`

	// A session ending within this window after an intervention counts as a
	// success even when the user chose continue
	SessionEndSuccessSeconds int `yaml:"sessionEndSuccessSeconds"`
}

// DefaultEngineConfig returns the stock policy values
func DefaultEngineConfig() *Config {
	return &Config{
		Weights: Weights{
			QuickReopen:   0.35,
			LimitProgress: 0.35,
			PeakHour:      0.15,
			Streak:        0.10,
			Recovery:      0.05,
		},
		ExcellentCutoff:          80,
		GoodCutoff:               60,
		ModerateCutoff:           35,
		QuickReopenWindowSeconds: 120,
		StreakSaturationDays:     30,
		RequiredRecoveryDays:     3,
		RecoveryExpiryDays:       14,
		BaselineObservationDays:  7,
		MinTypeSamples:           5,
		MinHourBucketSamples:     5,
		TrendBandPercent:         5,
		SessionEndSuccessSeconds: 60,
	}
}

// LoadEngineConfig overlays a YAML policy file on the defaults. Fields
// absent from the file keep their default values.
func LoadEngineConfig(path string) (*Config, error) {
	config := DefaultEngineConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading engine config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing engine config %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("engine config %s: %w", path, err)
	}
	return config, nil
}

// Validate checks the config for internal consistency
func (c *Config) Validate() error {
	if math.Abs(c.Weights.Sum()-1.0) > 0.001 {
		return fmt.Errorf("weights must sum to 1, got %.3f", c.Weights.Sum())
	}
	if c.Weights.QuickReopen < 0 || c.Weights.LimitProgress < 0 || c.Weights.PeakHour < 0 ||
		c.Weights.Streak < 0 || c.Weights.Recovery < 0 {
		return fmt.Errorf("weights must be non-negative")
	}
	if !(c.ExcellentCutoff > c.GoodCutoff && c.GoodCutoff > c.ModerateCutoff && c.ModerateCutoff > 0) {
		return fmt.Errorf("cutoffs must be ordered excellent > good > moderate > 0")
	}
	if c.ExcellentCutoff > 100 {
		return fmt.Errorf("excellent cutoff %.1f exceeds the score range", c.ExcellentCutoff)
	}
	if c.QuickReopenWindowSeconds <= 0 {
		return fmt.Errorf("quick reopen window must be positive")
	}
	if c.StreakSaturationDays <= 0 {
		return fmt.Errorf("streak saturation must be positive")
	}
	if c.RequiredRecoveryDays <= 0 {
		return fmt.Errorf("required recovery days must be positive")
	}
	if c.RecoveryExpiryDays < c.RequiredRecoveryDays {
		return fmt.Errorf("recovery expiry window (%d days) shorter than the required days (%d)",
			c.RecoveryExpiryDays, c.RequiredRecoveryDays)
	}
	if c.BaselineObservationDays <= 0 {
		return fmt.Errorf("baseline observation window must be positive")
	}
	if c.MinTypeSamples < 1 || c.MinHourBucketSamples < 1 {
		return fmt.Errorf("minimum sample sizes must be at least 1")
	}
	if c.TrendBandPercent < 0 {
		return fmt.Errorf("trend band must be non-negative")
	}
	if c.SessionEndSuccessSeconds < 0 {
		return fmt.Errorf("session end success window must be non-negative")
	}
	return nil
}
