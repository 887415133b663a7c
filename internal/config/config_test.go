package config_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostlabs/frostgate/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FG_API_KEY", "")
	t.Setenv("FG_AUTH_ENABLED", "")
	t.Setenv("FG_ENV", "")
	t.Setenv("FG_SQLITE_PATH", "")
	t.Setenv("FG_STATE_DIR", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.False(t, cfg.AuthEnabled)
	assert.Equal(t, config.DevFallbackAPIKey, cfg.APIKey)
	assert.Equal(t, filepath.Join("state", "frostgate.db"), cfg.DBPath)
	assert.Equal(t, int64(300000), cfg.ClockStaleMS)
	assert.Equal(t, 8, cfg.DBPoolSize)
	assert.Equal(t, "frostgate-core", cfg.Service)
}

func TestAuthEnabledByAPIKeyPresence(t *testing.T) {
	t.Setenv("FG_API_KEY", "s3cret")
	t.Setenv("FG_AUTH_ENABLED", "")
	t.Setenv("FG_ENV", "")
	t.Setenv("FG_SQLITE_PATH", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.True(t, cfg.AuthEnabled)
	assert.Equal(t, "s3cret", cfg.APIKey)
}

func TestAuthEnabledEnvOverridesKeyPresence(t *testing.T) {
	t.Setenv("FG_API_KEY", "s3cret")
	t.Setenv("FG_AUTH_ENABLED", "0")
	t.Setenv("FG_ENV", "")
	t.Setenv("FG_SQLITE_PATH", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.False(t, cfg.AuthEnabled)
}

func TestAuthEnabledCallerOverridesEverything(t *testing.T) {
	t.Setenv("FG_API_KEY", "")
	t.Setenv("FG_AUTH_ENABLED", "0")
	t.Setenv("FG_ENV", "")
	t.Setenv("FG_SQLITE_PATH", "")

	on := true
	cfg, err := config.LoadWithOptions(config.Options{AuthEnabled: &on})
	require.NoError(t, err)
	assert.True(t, cfg.AuthEnabled)
}

func TestProdDefaultDBPath(t *testing.T) {
	t.Setenv("FG_API_KEY", "k")
	t.Setenv("FG_ENV", "prod")
	t.Setenv("FG_SQLITE_PATH", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/frostgate/state/frostgate.db", cfg.DBPath)
}

func TestExplicitSQLitePathWins(t *testing.T) {
	t.Setenv("FG_API_KEY", "k")
	t.Setenv("FG_ENV", "prod")
	t.Setenv("FG_SQLITE_PATH", "/tmp/fg.db")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/fg.db", cfg.DBPath)
}

func TestTestEnvDriftToVarLibFails(t *testing.T) {
	t.Setenv("FG_API_KEY", "k")
	t.Setenv("FG_ENV", "test")
	t.Setenv("FG_SQLITE_PATH", "/var/lib/frostgate/state/frostgate.db")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/var/lib")
}

func TestFeatureFlags(t *testing.T) {
	t.Setenv("FG_API_KEY", "k")
	t.Setenv("FG_ENV", "")
	t.Setenv("FG_SQLITE_PATH", "")
	t.Setenv("FG_DEV_EVENTS_ENABLED", "1")
	t.Setenv("FG_FORENSICS_ENABLED", "true")
	t.Setenv("FG_GOVERNANCE_ENABLED", "off")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.True(t, cfg.DevEventsEnabled)
	assert.True(t, cfg.ForensicsEnabled)
	assert.False(t, cfg.GovernanceEnabled)
	assert.False(t, cfg.MissionEnvelopeEnabled)
}
