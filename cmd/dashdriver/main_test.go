package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/dashdriver/internal/config"
)

func subcommand(t *testing.T, name string, args ...string) *cobra.Command {
	t.Helper()
	root := newRootCmd()
	cmd, _, err := root.Find([]string{name})
	require.NoError(t, err)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestLoadConfigDefaults(t *testing.T) {
	cmd := subcommand(t, "inspect")

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, config.BackendRod, cfg.Browser.Backend)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigFlagsOverrideFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashdriver.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
browser:
  backend: rod
  stealth: true
wait:
  timeout: 10s
record:
  fps: 4
`), 0o644))
	t.Setenv(config.EnvPrefix+"WAIT_INTERVAL", "50ms")

	cmd := subcommand(t, "run",
		"--config", path,
		"--backend", "playwright",
		"--timeout", "3s",
		"--headful",
		"--strict",
		"--record", "out.gif",
		"-v",
	)

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, config.BackendPlaywright, cfg.Browser.Backend)
	assert.False(t, cfg.Browser.Headless)
	assert.True(t, cfg.Browser.Stealth, "file value kept when no flag is given")
	assert.Equal(t, 3*time.Second, cfg.Wait.Timeout)
	assert.Equal(t, 50*time.Millisecond, cfg.Wait.Interval)
	assert.True(t, cfg.Dashboard.Strict)
	assert.Equal(t, "out.gif", cfg.Record.Output)
	assert.Equal(t, 4, cfg.Record.FPS)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigValidatesFlags(t *testing.T) {
	cmd := subcommand(t, "inspect", "--backend", "selenium")

	_, err := loadConfig(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown backend "selenium"`)
}

func TestNewLogger(t *testing.T) {
	ctx := t.Context()
	tests := []struct {
		level   string
		enabled slog.Level
		muted   slog.Level
	}{
		{"debug", slog.LevelDebug, slog.LevelDebug - 1},
		{"info", slog.LevelInfo, slog.LevelDebug},
		{"WARN", slog.LevelWarn, slog.LevelInfo},
		{"error", slog.LevelError, slog.LevelWarn},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			h := newLogger(tt.level).Handler()
			assert.True(t, h.Enabled(ctx, tt.enabled))
			assert.False(t, h.Enabled(ctx, tt.muted))
		})
	}
}
