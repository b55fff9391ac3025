package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL())
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
cache:
  ttl: 30s
templates:
  dir: ./templates
  watch: true
`), 0o600))

	t.Setenv("APP_SERVER_PORT", "9100")
	t.Setenv("APP_DATABASE_DSN", "postgres://localhost/studio")
	t.Setenv("APP_TELEMETRY_ENABLED", "true")
	t.Setenv("APP_GRPC_PORT", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9114, cfg.GRPC.Port)
	assert.Equal(t, "postgres://localhost/studio", cfg.Database.DSN)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.True(t, cfg.Templates.Watch)
	assert.Equal(t, "./templates", cfg.Templates.Dir)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL())
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: ["), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestDurations(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 15*time.Minute, cfg.EscalationInterval())
	assert.Equal(t, 10*time.Second, cfg.DiscoveryHeartbeat())

	cfg.Escalation.Interval = "0s"
	cfg.Discovery.Heartbeat = "soon"
	assert.Zero(t, cfg.EscalationInterval())
	assert.Equal(t, 10*time.Second, cfg.DiscoveryHeartbeat())

	t.Setenv("APP_ESCALATION_INTERVAL", "")
	t.Setenv("APP_DISCOVERY_ENABLED", "1")
	loaded, err := Load("")
	require.NoError(t, err)
	assert.True(t, loaded.Discovery.Enabled)
	assert.Equal(t, "15m", loaded.Escalation.Interval)
}
