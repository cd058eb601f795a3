package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FOLIO_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, time.Hour, cfg.ValuationCacheTTL)
	assert.Equal(t, 5*time.Minute, cfg.LinkCodeTTL)
	assert.Equal(t, "0 0 * * * *", cfg.ValuationSweepSchedule)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("FOLIO_DATA_DIR", t.TempDir())
	t.Setenv("FOLIO_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("VALUATION_CACHE_TTL", "30m")
	t.Setenv("LINK_CODE_TTL", "2m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, 30*time.Minute, cfg.ValuationCacheTTL)
	assert.Equal(t, 2*time.Minute, cfg.LinkCodeTTL)
}

func TestDatabasePath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FOLIO_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cfg.DataDir, "folio.db"), cfg.DatabasePath())
}

func TestValidate_RejectsBadPort(t *testing.T) {
	cfg := &Config{Port: 0, ValuationCacheTTL: time.Hour, LinkCodeTTL: time.Minute}
	assert.Error(t, cfg.Validate())

	cfg.Port = 70000
	assert.Error(t, cfg.Validate())

	cfg.Port = 8080
	assert.NoError(t, cfg.Validate())
}
