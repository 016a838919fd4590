package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("TRAFIKVERKET_API_KEY", "")
	t.Setenv("TRAINWATCH_DATA_DIR", t.TempDir())

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRAFIKVERKET_API_KEY")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TRAFIKVERKET_API_KEY", "test-key")
	t.Setenv("TRAINWATCH_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.APIKey)
	assert.Equal(t, defaultAPIURL, cfg.APIURL)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8*time.Minute, cfg.LookbackWindow)
	assert.Equal(t, 20, cfg.RetentionHours)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TRAFIKVERKET_API_KEY", "test-key")
	t.Setenv("TRAINWATCH_DATA_DIR", t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("RETENTION_HOURS", "48")
	t.Setenv("CLEANUP_INTERVAL", "30m")
	t.Setenv("LOOKBACK_WINDOW", "2m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 48, cfg.RetentionHours)
	assert.Equal(t, 30*time.Minute, cfg.CleanupInterval)
	assert.Equal(t, 2*time.Minute, cfg.LookbackWindow)
}

func TestValidateRejectsNonPositiveRetention(t *testing.T) {
	cfg := &Config{APIKey: "key", RetentionHours: 0}
	assert.Error(t, cfg.Validate())
}

func TestDatabasePath(t *testing.T) {
	cfg := &Config{DataDir: "/var/lib/trainwatch"}
	assert.Equal(t, "/var/lib/trainwatch/trainwatch.db", cfg.DatabasePath())
}
