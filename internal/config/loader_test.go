package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	apify, ok := cfg.Services[ServiceApify]
	require.True(t, ok)
	require.Equal(t, 60, apify.MinuteLimit)
	require.Equal(t, 1000, apify.HourLimit)
	require.Equal(t, 10000, apify.DayLimit)
	require.Equal(t, time.Second, apify.BackoffBase)
	require.Equal(t, 2.0, apify.BackoffMultiplier)
	require.Equal(t, 3, apify.MaxRetries)

	gemini, ok := cfg.Services[ServiceGemini]
	require.True(t, ok)
	require.Equal(t, 1500, gemini.DayLimit)

	require.Equal(t, "gemini-2.5-flash", cfg.Analyzer.Model)
	require.Equal(t, 30*time.Second, cfg.Browser.AcquireTimeout)
	require.Equal(t, "libsql", cfg.Store.Driver)
}

func TestLoadConfigFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	payload := `
services:
  apify:
    minute_limit: 2
    backoff_base: 250ms
    backoff_max: 30s
    max_retries: 1
browser:
  acquire_timeout: 5s
`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	apify := cfg.Services[ServiceApify]
	require.Equal(t, 2, apify.MinuteLimit)
	require.Equal(t, 250*time.Millisecond, apify.BackoffBase)
	require.Equal(t, 30*time.Second, apify.BackoffMax)
	require.Equal(t, 1, apify.MaxRetries)
	require.Equal(t, 5*time.Second, cfg.Browser.AcquireTimeout)

	// Untouched keys keep defaults.
	require.Equal(t, 1000, apify.HourLimit)
	require.Equal(t, "gemini-2.5-flash", cfg.Analyzer.Model)
}

func TestLoadCredentialEnvFallback(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APIFY_API_TOKEN", "apify_api_testtoken")
	t.Setenv("GEMINI_API_KEY", "AIzaTestKey")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "apify_api_testtoken", cfg.Scraper.APIToken)
	require.Equal(t, "AIzaTestKey", cfg.Analyzer.APIKey)
}

func TestEngineSettingsConversion(t *testing.T) {
	cfg := &Config{Services: map[string]ServiceConfig{
		"apify": {
			MinuteLimit:       5,
			HourLimit:         50,
			DayLimit:          500,
			BackoffBase:       time.Second,
			BackoffMultiplier: 3,
			BackoffMax:        time.Minute,
			MaxRetries:        4,
		},
	}}

	settings := cfg.EngineSettings()
	require.Len(t, settings, 1)
	require.Equal(t, 5, settings["apify"].Limits.Minute)
	require.Equal(t, 3.0, settings["apify"].Backoff.Multiplier)
	require.Equal(t, 4, settings["apify"].MaxRetries)
}
