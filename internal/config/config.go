// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/dpsauth/internal/timing"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Portal    PortalConfig    `mapstructure:"portal" yaml:"portal"`
	Auth      AuthConfig      `mapstructure:"auth" yaml:"auth"`
	Profile   ProfileConfig   `mapstructure:"profile" yaml:"profile"`
	Harvest   HarvestConfig   `mapstructure:"harvest" yaml:"harvest"`
	Typist    TypistConfig    `mapstructure:"typist" yaml:"typist"`
	Keystroke KeystrokeConfig `mapstructure:"keystroke" yaml:"keystroke"`
}

// LoggerConfig defines the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig controls the Chrome instance that carries the login flow.
type BrowserConfig struct {
	// Headless defaults to false: manual mode and recording need a visible window.
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	ExecPath          string        `mapstructure:"exec_path" yaml:"exec_path"`
	UserAgent         string        `mapstructure:"user_agent" yaml:"user_agent"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// ActionTimeout bounds a single key or click dispatch so a stuck page
	// surfaces as an error instead of hanging the control flow.
	ActionTimeout time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
}

// PortalConfig names the scheduling portal endpoints.
type PortalConfig struct {
	LoginURL       string `mapstructure:"login_url" yaml:"login_url"`
	EligibilityURL string `mapstructure:"eligibility_url" yaml:"eligibility_url"`
	Origin         string `mapstructure:"origin" yaml:"origin"`
	UserAgent      string `mapstructure:"user_agent" yaml:"user_agent"`
}

// AuthConfig selects the login strategy and where credentials live.
type AuthConfig struct {
	Mode           string `mapstructure:"mode" yaml:"mode"`
	TokenFile      string `mapstructure:"token_file" yaml:"token_file"`
	KeystrokeFile  string `mapstructure:"keystroke_file" yaml:"keystroke_file"`
	ReauthOnExpiry bool   `mapstructure:"reauth_on_expiry" yaml:"reauth_on_expiry"`
}

// ProfileConfig is the identity submitted on the login form. It is read once
// at startup and never mutated.
type ProfileConfig struct {
	FirstName   string `mapstructure:"first_name" yaml:"first_name"`
	LastName    string `mapstructure:"last_name" yaml:"last_name"`
	DateOfBirth string `mapstructure:"dob" yaml:"dob"`
	// LastFourSSN is a string so leading zeros survive.
	LastFourSSN string `mapstructure:"last_4_ssn" yaml:"last_4_ssn"`
}

// HarvestConfig sets the polling budgets of the credential harvester.
type HarvestConfig struct {
	ManualAttempts    int           `mapstructure:"manual_attempts" yaml:"manual_attempts"`
	ManualInterval    time.Duration `mapstructure:"manual_interval" yaml:"manual_interval"`
	AutomatedAttempts int           `mapstructure:"automated_attempts" yaml:"automated_attempts"`
	AutomatedInterval time.Duration `mapstructure:"automated_interval" yaml:"automated_interval"`
	// ClickPause is the random wait before each corrective click.
	ClickPause timing.Range `mapstructure:"click_pause" yaml:"click_pause"`
}

// TypistConfig holds the per character class delay ranges of the synthetic typist.
type TypistConfig struct {
	Uppercase timing.Range  `mapstructure:"uppercase" yaml:"uppercase"`
	Digit     timing.Range  `mapstructure:"digit" yaml:"digit"`
	Other     timing.Range  `mapstructure:"other" yaml:"other"`
	Space     time.Duration `mapstructure:"space" yaml:"space"`
	// Seed makes typing cadence reproducible. Zero seeds from the clock.
	Seed int64 `mapstructure:"seed" yaml:"seed"`
}

// KeystrokeConfig tunes recorded keystroke replay.
type KeystrokeConfig struct {
	// ReplaySpeed divides every recorded delay. 1.0 reproduces the original cadence.
	ReplaySpeed float64 `mapstructure:"replay_speed" yaml:"replay_speed"`
}

// NewDefaultConfig returns a Config populated only with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "dpsauth")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.user_agent", DefaultUserAgent)
	v.SetDefault("browser.navigation_timeout", "90s")
	v.SetDefault("browser.action_timeout", "5s")

	// -- Portal --
	v.SetDefault("portal.login_url", "https://public.txdpsscheduler.com")
	v.SetDefault("portal.eligibility_url", "https://apptapi.txdpsscheduler.com/api/Eligibility")
	v.SetDefault("portal.origin", "https://public.txdpsscheduler.com")
	v.SetDefault("portal.user_agent", DefaultUserAgent)

	// -- Auth --
	v.SetDefault("auth.mode", "manual")
	v.SetDefault("auth.token_file", "auth_token.json")
	v.SetDefault("auth.keystroke_file", "login_recording.json")
	v.SetDefault("auth.reauth_on_expiry", false)

	// -- Harvest --
	v.SetDefault("harvest.manual_attempts", 30)
	v.SetDefault("harvest.manual_interval", "2s")
	v.SetDefault("harvest.automated_attempts", 5)
	v.SetDefault("harvest.automated_interval", "5s")
	v.SetDefault("harvest.click_pause.min", "1s")
	v.SetDefault("harvest.click_pause.max", "3s")

	// -- Typist --
	v.SetDefault("typist.uppercase.min", "80ms")
	v.SetDefault("typist.uppercase.max", "320ms")
	v.SetDefault("typist.digit.min", "130ms")
	v.SetDefault("typist.digit.max", "310ms")
	v.SetDefault("typist.other.min", "80ms")
	v.SetDefault("typist.other.max", "190ms")
	v.SetDefault("typist.space", "50ms")
	v.SetDefault("typist.seed", 0)

	// -- Keystroke --
	v.SetDefault("keystroke.replay_speed", 1.0)
}

// DefaultUserAgent mirrors the desktop Chrome build the portal headers are templated on.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36"

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Portal.LoginURL == "" {
		return fmt.Errorf("portal.login_url is required")
	}
	if c.Portal.EligibilityURL == "" {
		return fmt.Errorf("portal.eligibility_url is required")
	}
	if c.Auth.TokenFile == "" {
		return fmt.Errorf("auth.token_file is required")
	}
	switch strings.ToLower(c.Auth.Mode) {
	case "manual", "recorded", "recorded_keystrokes", "synthetic", "automated_sendkeys":
	default:
		return fmt.Errorf("auth.mode %q is not one of manual, recorded, synthetic", c.Auth.Mode)
	}
	if err := c.Harvest.Validate(); err != nil {
		return fmt.Errorf("harvest configuration invalid: %w", err)
	}
	if err := c.Typist.Validate(); err != nil {
		return fmt.Errorf("typist configuration invalid: %w", err)
	}
	if c.Keystroke.ReplaySpeed <= 0 {
		return fmt.Errorf("keystroke.replay_speed must be positive")
	}
	return nil
}

// Validate checks the harvester budgets. Every loop needs a hard bound.
func (h *HarvestConfig) Validate() error {
	if h.ManualAttempts <= 0 || h.AutomatedAttempts <= 0 {
		return fmt.Errorf("attempt budgets must be positive integers")
	}
	if h.ManualInterval < 0 || h.AutomatedInterval < 0 {
		return fmt.Errorf("poll intervals must not be negative")
	}
	if h.ClickPause.Max < h.ClickPause.Min {
		return fmt.Errorf("click_pause.max must not be below click_pause.min")
	}
	return nil
}

// Validate checks that every class range is well formed.
func (t *TypistConfig) Validate() error {
	ranges := map[string]timing.Range{"uppercase": t.Uppercase, "digit": t.Digit, "other": t.Other}
	for name, r := range ranges {
		if r.Min < 0 || r.Max < r.Min {
			return fmt.Errorf("%s range [%v, %v) is invalid", name, r.Min, r.Max)
		}
	}
	if t.Space < 0 {
		return fmt.Errorf("space delay must not be negative")
	}
	return nil
}
