// Package config loads dashdriver settings: a YAML file with defaults,
// then DASHDRIVER_* environment overrides. Command-line flags are applied
// on top by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/v0xg/dashdriver/internal/wait"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DASHDRIVER_"

// Backend names.
const (
	BackendRod        = "rod"
	BackendPlaywright = "playwright"
)

// Config is the top-level configuration.
type Config struct {
	Browser   BrowserConfig   `yaml:"browser"`
	Wait      WaitConfig      `yaml:"wait"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Record    RecordConfig    `yaml:"record"`
	LogLevel  string          `yaml:"log_level"` // debug | info | warn | error
}

// BrowserConfig selects and launches the driver backend.
type BrowserConfig struct {
	Backend string `yaml:"backend"` // rod | playwright
	// Bin is a browser binary; empty means the backend picks one.
	Bin      string `yaml:"bin"`
	Headless bool   `yaml:"headless"`
	Stealth  bool   `yaml:"stealth"`
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	// Profile is a user data directory for authenticated sessions.
	Profile string `yaml:"profile"`
	// Remote is a DevTools websocket URL to connect to instead of launching.
	Remote string `yaml:"remote"`
}

// WaitConfig bounds every wait.
type WaitConfig struct {
	Timeout  time.Duration `yaml:"timeout"`
	Interval time.Duration `yaml:"interval"`
}

// DashboardConfig tunes dashboard lookups.
type DashboardConfig struct {
	Strict bool `yaml:"strict"`
}

// RecordConfig controls the GIF recorder. An empty Output disables it.
type RecordConfig struct {
	Output   string `yaml:"output"`
	FPS      int    `yaml:"fps"`
	MaxWidth int    `yaml:"max_width"`
	// Hold is how many frames each checkpoint is shown for.
	Hold int `yaml:"hold"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{Browser: BrowserConfig{Headless: true}}
	c.applyDefaults()
	return c
}

// Load reads path, or starts from Default when path is empty, then applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fc, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fc
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML and fills defaults. Unknown keys are errors.
func Parse(data []byte) (*Config, error) {
	cfg := Config{Browser: BrowserConfig{Headless: true}}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Browser.Backend == "" {
		c.Browser.Backend = BackendRod
	}
	if c.Browser.Width <= 0 {
		c.Browser.Width = 1280
	}
	if c.Browser.Height <= 0 {
		c.Browser.Height = 720
	}
	if c.Wait.Timeout <= 0 {
		c.Wait.Timeout = wait.DefaultTimeout
	}
	if c.Wait.Interval <= 0 {
		c.Wait.Interval = wait.DefaultInterval
	}
	if c.Record.FPS <= 0 {
		c.Record.FPS = 2
	}
	if c.Record.MaxWidth <= 0 {
		c.Record.MaxWidth = 800
	}
	if c.Record.Hold <= 0 {
		c.Record.Hold = 2
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// ApplyEnv overrides fields from DASHDRIVER_* variables, e.g.
// DASHDRIVER_WAIT_TIMEOUT=5s or DASHDRIVER_DASHBOARD_STRICT=true.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
			}
			*dst = b
		}
		return nil
	}
	integer := func(key string, dst *int) error {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
			}
			*dst = n
		}
		return nil
	}
	duration := func(key string, dst *time.Duration) error {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
			}
			*dst = d
		}
		return nil
	}

	str("BACKEND", &c.Browser.Backend)
	str("BROWSER_BIN", &c.Browser.Bin)
	str("PROFILE", &c.Browser.Profile)
	str("REMOTE", &c.Browser.Remote)
	str("RECORD", &c.Record.Output)
	str("LOG_LEVEL", &c.LogLevel)

	return errors.Join(
		boolean("HEADLESS", &c.Browser.Headless),
		boolean("STEALTH", &c.Browser.Stealth),
		boolean("DASHBOARD_STRICT", &c.Dashboard.Strict),
		integer("WIDTH", &c.Browser.Width),
		integer("HEIGHT", &c.Browser.Height),
		integer("RECORD_FPS", &c.Record.FPS),
		duration("WAIT_TIMEOUT", &c.Wait.Timeout),
		duration("WAIT_INTERVAL", &c.Wait.Interval),
	)
}

// Validate rejects settings no backend can honor.
func (c *Config) Validate() error {
	var errs []error
	switch c.Browser.Backend {
	case BackendRod, BackendPlaywright:
	default:
		errs = append(errs, fmt.Errorf("config: unknown backend %q", c.Browser.Backend))
	}
	if c.Wait.Interval > c.Wait.Timeout {
		errs = append(errs, fmt.Errorf("config: wait interval %s exceeds timeout %s", c.Wait.Interval, c.Wait.Timeout))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("config: unknown log level %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

// WaitOptions converts the wait section.
func (c *Config) WaitOptions() wait.Options {
	return wait.Options{Timeout: c.Wait.Timeout, Interval: c.Wait.Interval}
}
