package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 9090, cfg.Server.MetricsPort)
	assert.Equal(t, 200*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "redis", cfg.Transport.Kind)
	assert.Equal(t, "localhost:6379", cfg.Transport.Redis.Addr)
	assert.Equal(t, 60*time.Second, cfg.Transport.BroadcastTimeout)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Identity.Enabled)

	require.NoError(t, cfg.Validate())
}

func TestLoader_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  http_port: 9000
transport:
  redis:
    addr: redis.internal:6379
identity:
  enabled: true
  secret: topsecret
  badges:
    brazil: some.signed.badge
`), 0o600))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, "redis.internal:6379", cfg.Transport.Redis.Addr)
	assert.True(t, cfg.Identity.Enabled)
	assert.Equal(t, "some.signed.badge", cfg.Identity.Badges["brazil"])
	// Untouched fields keep their defaults.
	assert.Equal(t, 9090, cfg.Server.MetricsPort)
}

func TestLoader_MissingFileIsNotAnError(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_port: 9000\n"), 0o600))

	t.Setenv("CAFEMESH_SERVER_HTTP_PORT", "9001")
	t.Setenv("CAFEMESH_SERVER_REQUEST_TIMEOUT", "90s")
	t.Setenv("CAFEMESH_SERVER_RATE_LIMIT", "2.5")
	t.Setenv("CAFEMESH_TELEMETRY_ENABLED", "true")
	t.Setenv("CAFEMESH_TRANSPORT_REDIS_ADDR", "env.redis:6379")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.HTTPPort)
	assert.Equal(t, 90*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 2.5, cfg.Server.RateLimit)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "env.redis:6379", cfg.Transport.Redis.Addr)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("ACME_SERVER_HTTP_PORT", "7070")

	cfg, err := NewLoader().WithEnvPrefix("ACME").Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.HTTPPort)
}

func TestLoader_BadEnvValue(t *testing.T) {
	t.Setenv("CAFEMESH_SERVER_HTTP_PORT", "not-a-number")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CAFEMESH_SERVER_HTTP_PORT")
}

func TestValidate(t *testing.T) {
	t.Run("bad port", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Server.HTTPPort = 0
		assert.ErrorContains(t, cfg.Validate(), "invalid HTTP port")
	})

	t.Run("unsupported transport", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Transport.Kind = "carrier-pigeon"
		assert.ErrorContains(t, cfg.Validate(), `unsupported transport kind "carrier-pigeon"`)
	})

	t.Run("identity without secret", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Identity.Enabled = true
		assert.ErrorContains(t, cfg.Validate(), "identity enabled without a secret")
	})

	t.Run("non-positive broadcast timeout", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Transport.BroadcastTimeout = 0
		assert.ErrorContains(t, cfg.Validate(), "broadcast_timeout must be positive")
	})
}
