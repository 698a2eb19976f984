package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rpggio/listingdraft/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LISTINGDRAFT_CONFIG_PATH", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, config.TransportStdio, cfg.Transport.Mode)
	require.Equal(t, config.StoreSQLite, cfg.Store.Driver)
	require.Equal(t, 3, cfg.API.RetryAttempts)
	require.Equal(t, 30*time.Minute, cfg.Lifecycle.PendingMaxAge)
	require.Equal(t, int64(6<<20), cfg.Log.MaxSize)
}

func TestLoadLogMaxSize(t *testing.T) {
	t.Setenv("LISTINGDRAFT_CONFIG_PATH", "")
	t.Setenv("LISTINGDRAFT_LOG_MAX_SIZE", "1024")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, int64(1024), cfg.Log.MaxSize)

	t.Setenv("LISTINGDRAFT_LOG_MAX_SIZE", "-1")
	_, err = config.Load()
	require.Error(t, err)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
transport:
  mode: http
api:
  base_url: https://api.example.test
  retry_delay: 250ms
store:
  driver: redis
redis:
  addr: redis:6379
  ttl: 24h
`), 0o644))

	t.Setenv("LISTINGDRAFT_CONFIG_PATH", path)
	t.Setenv("LISTINGDRAFT_SERVER_PORT", "7070")
	t.Setenv("LISTINGDRAFT_API_TOKEN", "svc-token")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, config.TransportHTTP, cfg.Transport.Mode)
	require.Equal(t, "https://api.example.test", cfg.API.BaseURL)
	require.Equal(t, 250*time.Millisecond, cfg.API.RetryDelay)
	require.Equal(t, "svc-token", cfg.API.Token)
	require.Equal(t, config.StoreRedis, cfg.Store.Driver)
	require.Equal(t, 24*time.Hour, cfg.Redis.TTL)
}

func TestLoadInvalidPort(t *testing.T) {
	t.Setenv("LISTINGDRAFT_SERVER_PORT", "eighty")

	_, err := config.Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	cfg.Transport.Mode = "websocket"
	require.Error(t, cfg.Validate())

	cfg = config.Default()
	cfg.Store.Driver = "postgres"
	require.Error(t, cfg.Validate())
}
