// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, "manual", cfg.Auth.Mode)
	assert.Equal(t, "auth_token.json", cfg.Auth.TokenFile)
	assert.Equal(t, "https://apptapi.txdpsscheduler.com/api/Eligibility", cfg.Portal.EligibilityURL)
	assert.Equal(t, 30, cfg.Harvest.ManualAttempts)
	assert.Equal(t, 2*time.Second, cfg.Harvest.ManualInterval)
	assert.Equal(t, 5, cfg.Harvest.AutomatedAttempts)
	assert.Equal(t, 5*time.Second, cfg.Harvest.AutomatedInterval)
	assert.Equal(t, 130*time.Millisecond, cfg.Typist.Digit.Min)
	assert.Equal(t, 310*time.Millisecond, cfg.Typist.Digit.Max)
	assert.Equal(t, 50*time.Millisecond, cfg.Typist.Space)
	assert.Equal(t, 1.0, cfg.Keystroke.ReplaySpeed)

	require.NoError(t, cfg.Validate())
}

// -- Loading Tests --

func TestNewConfigFromViper(t *testing.T) {
	yamlConfig := []byte(`
auth:
  mode: synthetic
profile:
  first_name: Jane
  last_name: Doe
  dob: 01/02/1990
  last_4_ssn: "0123"
harvest:
  automated_attempts: 3
typist:
  digit:
    min: 100ms
    max: 200ms
`)
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlConfig)))

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "synthetic", cfg.Auth.Mode)
	assert.Equal(t, "0123", cfg.Profile.LastFourSSN)
	assert.Equal(t, 3, cfg.Harvest.AutomatedAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Typist.Digit.Min)
	// Untouched sections keep their defaults.
	assert.Equal(t, 30, cfg.Harvest.ManualAttempts)
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"UnknownMode", func(c *Config) { c.Auth.Mode = "telepathy" }, "auth.mode"},
		{"MissingEligibilityURL", func(c *Config) { c.Portal.EligibilityURL = "" }, "portal.eligibility_url"},
		{"MissingTokenFile", func(c *Config) { c.Auth.TokenFile = "" }, "auth.token_file"},
		{"ZeroAttempts", func(c *Config) { c.Harvest.AutomatedAttempts = 0 }, "attempt budgets"},
		{"InvertedRange", func(c *Config) { c.Typist.Digit.Max = time.Millisecond }, "digit range"},
		{"ZeroReplaySpeed", func(c *Config) { c.Keystroke.ReplaySpeed = 0 }, "replay_speed"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}

	t.Run("LegacyModeAliases", func(t *testing.T) {
		for _, mode := range []string{"recorded_keystrokes", "automated_sendkeys"} {
			cfg := NewDefaultConfig()
			cfg.Auth.Mode = mode
			assert.NoError(t, cfg.Validate(), mode)
		}
	})
}
