package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
app:
  name: ofetch-worker
  env: test
  log_level: debug

mysql:
  dsn: "user:pass@tcp(127.0.0.1:3306)/xyseller"

redis:
  addr: "127.0.0.1:6379"
  channel: order_fetch_complete

lmstfy:
  host: "127.0.0.1"
  port: 7777
  namespace: xyseller

browser:
  pool_size: 2
  headless: true
  nav_timeout: 20s

fetch:
  max_concurrent: 3

workers:
  - name: order-fetch-worker
    queue_name: order_fetch_queue
    callback_queue: order_fetch_callback
    subscriber:
      threads: 2
      rate: 100ms
      timeout: 3s
      ttr: 600s
      error_backoff: 1s
    processor:
      threads: 2
      buffer_size: 16
      timeout: 540s
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worker.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "ofetch-worker", cfg.App.Name)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, 7777, cfg.Lmstfy.Port)
	assert.Equal(t, 2, cfg.Browser.PoolSize)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 20*time.Second, cfg.Browser.NavTimeout)

	require.Len(t, cfg.Workers, 1)
	assert.Equal(t, "order_fetch_queue", cfg.Workers[0].QueueName)
	assert.Equal(t, "order_fetch_callback", cfg.Workers[0].CallbackQueue)
	assert.Equal(t, 600*time.Second, cfg.Workers[0].Subscriber.TTR)

	require.NoError(t, cfg.Validate())
}

// 页面等待与调度参数未配置时填充缺省值
func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Browser.SettleDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.Browser.ScrollPause)
	assert.Equal(t, time.Second, cfg.Browser.ScrollSettle)
	assert.Equal(t, 3, cfg.Fetch.MaxConcurrent)
	assert.Equal(t, 10, cfg.Fetch.ChunkSize)
	assert.Equal(t, 2*time.Second, cfg.Fetch.ChunkDelay)
}

func TestLoad_FileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing app name", func(c *Config) { c.App.Name = "" }},
		{"missing mysql dsn", func(c *Config) { c.MySQL.DSN = "" }},
		{"missing lmstfy host", func(c *Config) { c.Lmstfy.Host = "" }},
		{"no workers", func(c *Config) { c.Workers = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, sampleYAML))
			require.NoError(t, err)
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
