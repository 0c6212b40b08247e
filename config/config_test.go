package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "cardflow", cfg.Database.DBName)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)

	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.Equal(t, 6379, cfg.Redis.Port)

	assert.Equal(t, "mock", cfg.Gateway.Mode)
	assert.Equal(t, 10*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, "USD", cfg.Gateway.DefaultCurrency)

	assert.Equal(t, "*/5 * * * *", cfg.Subscription.RetryCron)
	assert.Equal(t, 30, cfg.Subscription.AutoCancelDays)
	assert.Equal(t, 4, cfg.Subscription.Workers)

	assert.Equal(t, "webhook:events", cfg.Webhook.QueueTopic)
	assert.Equal(t, 5*time.Minute, cfg.Webhook.StaleAfter)
	assert.Equal(t, time.Second, cfg.Webhook.PollInterval)

	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FromYAMLFile(t *testing.T) {
	content := []byte(`
server:
  host: "127.0.0.1"
  port: 9090
  mode: "release"
gateway:
  mode: "rest"
  api_login_id: "login123"
  transaction_key: "key456"
  timeout: "3s"
subscription:
  retry_cron: "*/2 * * * *"
  auto_cancel_days: 14
webhook:
  stale_after: "10m"
`)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "rest", cfg.Gateway.Mode)
	assert.Equal(t, "login123", cfg.Gateway.APILoginID)
	assert.Equal(t, 3*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, "*/2 * * * *", cfg.Subscription.RetryCron)
	assert.Equal(t, 14, cfg.Subscription.AutoCancelDays)
	assert.Equal(t, 10*time.Minute, cfg.Webhook.StaleAfter)

	// Unset keys still fall back to defaults.
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 4, cfg.Subscription.Workers)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CARDFLOW_DATABASE_HOST", "db.internal")
	t.Setenv("CARDFLOW_GATEWAY_MODE", "rest")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "rest", cfg.Gateway.Mode)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "localhost", Port: 5432, User: "u", Password: "p",
		DBName: "cardflow", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://u:p@localhost:5432/cardflow?sslmode=disable", d.DSN())
}

func TestRedisConfig_Addr(t *testing.T) {
	r := RedisConfig{Host: "localhost", Port: 6379}
	assert.Equal(t, "localhost:6379", r.Addr())
}
