package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(envPort, "")
	t.Setenv(envRedisHost, "")
	t.Setenv("ROOKLIFT_ADDR", "")
	t.Setenv("ROOKLIFT_BUS_DRIVER", "")
	t.Setenv("ROOKLIFT_BUS_REDIS_URL", "")
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestValidateReportsEveryViolation(t *testing.T) {
	cfg := Default()
	cfg.SendBuffer = 0
	cfg.LogFormat = "xml"
	cfg.Bus.Driver = "kafka"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send_buffer")
	assert.Contains(t, err.Error(), "log_format")
	assert.Contains(t, err.Error(), "bus.driver")
}

func TestValidateBusDrivers(t *testing.T) {
	for _, driver := range []string{"redis", "nats", "none"} {
		cfg := Default()
		cfg.Bus.Driver = driver
		assert.NoError(t, cfg.Validate(), "driver %q should be valid", driver)
	}

	cfg := Default()
	cfg.Bus.RedisURL = ""
	assert.Error(t, cfg.Validate())
}

func TestUpdateFromKeepsZeroValues(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":9090", Bus: BusConfig{Driver: "none"}})

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "none", cfg.Bus.Driver)
	assert.Equal(t, 256, cfg.SendBuffer)
	assert.Equal(t, "redis://127.0.0.1:6379/0", cfg.Bus.RedisURL)
}

func TestLoadWritesDefaultConfigWhenMissing(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	logger := zerolog.Nop()

	cfg, resolved, err := Load(&logger, path)
	require.NoError(t, err)

	assert.Equal(t, path, resolved)
	assert.Equal(t, Default(), cfg)
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9000"
send_buffer: 16
idle_timeout: 90s
log_level: debug
bus:
  driver: nats
  nats_url: nats://bus:4222
  presence_ttl: 1m
`), 0o600))

	cfg, _, err := Load(nil, path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 16, cfg.SendBuffer)
	assert.Equal(t, 90*time.Second, cfg.IdleTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "nats", cfg.Bus.Driver)
	assert.Equal(t, "nats://bus:4222", cfg.Bus.NATSURL)
	assert.Equal(t, time.Minute, cfg.Bus.PresenceTTL)
	assert.Equal(t, 2*time.Second, cfg.Bus.PublishTimeout)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":9000\"\n"), 0o600))

	t.Setenv("ROOKLIFT_BUS_DRIVER", "none")
	t.Setenv(envRedisHost, "redis://cache:6379/1")
	t.Setenv(envPort, "7070")

	cfg, _, err := Load(nil, path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, "none", cfg.Bus.Driver)
	assert.Equal(t, "redis://cache:6379/1", cfg.Bus.RedisURL)
}

func TestLoadRejectsBadPort(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(envPort, "http")

	_, _, err := Load(nil, path)
	assert.Error(t, err)
}
