package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultEngineConfigIsValid(t *testing.T) {
	t.Parallel()
	config := DefaultEngineConfig()
	require.NoError(t, config.Validate())

	assert.InDelta(t, 1.0, config.Weights.Sum(), 0.001)
	assert.Equal(t, 3, config.RequiredRecoveryDays)
	assert.Equal(t, 14, config.RecoveryExpiryDays)
	assert.Equal(t, 120, config.QuickReopenWindowSeconds)
	assert.Equal(t, 7, config.BaselineObservationDays)
}

func TestLoadEngineConfigOverlay(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	content := `
requiredRecoveryDays: 5
recoveryExpiryDays: 21
weights:
  quickReopen: 0.40
  limitProgress: 0.30
  peakHour: 0.15
  streak: 0.10
  recovery: 0.05
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	config, err := LoadEngineConfig(path)
	require.NoError(t, err)

	// Overridden fields
	assert.Equal(t, 5, config.RequiredRecoveryDays)
	assert.Equal(t, 21, config.RecoveryExpiryDays)
	assert.InDelta(t, 0.40, config.Weights.QuickReopen, 0.001)

	// Absent fields keep their defaults
	assert.Equal(t, 120, config.QuickReopenWindowSeconds)
	assert.InDelta(t, 80.0, config.ExcellentCutoff, 0.001)
	assert.Equal(t, 5, config.MinTypeSamples)
}

func TestLoadEngineConfigErrors(t *testing.T) {
	t.Parallel()

	_, err := LoadEngineConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("weights: [not, a, map]"), 0o600))
	_, err = LoadEngineConfig(bad)
	assert.Error(t, err)

	invalid := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("requiredRecoveryDays: -1"), 0o600))
	_, err = LoadEngineConfig(invalid)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"weights off balance", func(c *Config) { c.Weights.QuickReopen = 0.9 }},
		{"negative weight", func(c *Config) { c.Weights.Streak = -0.1; c.Weights.QuickReopen = 0.55 }},
		{"cutoffs out of order", func(c *Config) { c.GoodCutoff = 90 }},
		{"cutoff beyond range", func(c *Config) { c.ExcellentCutoff = 120 }},
		{"zero reopen window", func(c *Config) { c.QuickReopenWindowSeconds = 0 }},
		{"expiry shorter than requirement", func(c *Config) { c.RecoveryExpiryDays = 2 }},
		{"zero observation window", func(c *Config) { c.BaselineObservationDays = 0 }},
		{"zero sample minimum", func(c *Config) { c.MinTypeSamples = 0 }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			config := DefaultEngineConfig()
			tt.mutate(config)
			assert.Error(t, config.Validate())
		})
	}
}
