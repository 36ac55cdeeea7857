package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/overtime-engine/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
auth:
  jwt_secret: "0123456789abcdef-secret"
redis:
  addr: "localhost:6379"
  staging_ttl: 30m
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "uid", cfg.Auth.OwnerClaim)
	assert.Equal(t, "./data/overtime.db", cfg.Database.Path)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 30*time.Minute, cfg.Redis.StagingTTL)
	assert.Equal(t, time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "0123456789abcdef-secret"
`)
	t.Setenv("OVERTIME_SERVER_PORT", "7070")
	t.Setenv("OVERTIME_DB_PATH", ":memory:")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoad_RejectsShortSecret(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "short"
`)

	_, err := config.Load(path)
	assert.ErrorContains(t, err, "jwt_secret")
}

func TestNewLogger(t *testing.T) {
	logger, err := config.NewLogger(config.LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = config.NewLogger(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}
