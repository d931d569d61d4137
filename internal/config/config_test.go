package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/concierge/internal/runtime"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := FromMap(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, runtime.DefaultThinkLatency, cfg.ThinkLatency)
	assert.Equal(t, 2*runtime.DefaultResolveTimeout, cfg.StaleAfter())
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concierge.yaml")
	content := `
think_latency: 50ms
resolve_timeout: 2s
store: redis
sink: sqlite
redis:
  addr: cache:6379
  db: 2
  ttl: 24h
sqlite:
  path: /tmp/records.db
pii_patterns:
  - (?i)phone
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, cfg.ThinkLatency)
	assert.Equal(t, 2*time.Second, cfg.ResolveTimeout)
	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, SinkSQLite, cfg.Sink)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTL)
	assert.Equal(t, "concierge:", cfg.Redis.Prefix, "unset keys keep their defaults")
	assert.Equal(t, "/tmp/records.db", cfg.SQLite.Path)
	assert.Equal(t, []string{"(?i)phone"}, cfg.PIIPatterns)
}

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concierge.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"http": {"port": 9090}, "log_level": "debug"}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestFromMap_EnvOverrides(t *testing.T) {
	env := []string{
		"PATH=/usr/bin",
		"CONCIERGE_RESOLVE_TIMEOUT=3s",
		"CONCIERGE_REDIS_ADDR=redis:6380",
		"CONCIERGE_HTTP_PORT=7000",
		"CONCIERGE_METRICS_ENABLED=true",
		"CONCIERGE_PII_PATTERNS=(?i)email,(?i)card",
		"CONCIERGE_MAX_INPUT_SIZE=10",
		"CONCIERGE_STORE=file",
		"CONCIERGE_FILE_DIR=/var/lib/concierge",
	}
	raw := map[string]any{"redis": map[string]any{"addr": "file:6379", "db": 1}}

	cfg, err := FromMap(raw, env)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.ResolveTimeout)
	assert.Equal(t, "redis:6380", cfg.Redis.Addr, "env wins over file")
	assert.Equal(t, 1, cfg.Redis.DB)
	assert.Equal(t, 7000, cfg.HTTP.Port)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, []string{"(?i)email", "(?i)card"}, cfg.PIIPatterns)
	assert.Equal(t, StoreFile, cfg.Store)
	assert.Equal(t, "/var/lib/concierge", cfg.File.Dir)
}

func TestFromMap_Validation(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want string
	}{
		{"unknown store", map[string]any{"store": "postgres"}, "store"},
		{"unknown sink", map[string]any{"sink": "kafka"}, "sink"},
		{"dynamodb without table", map[string]any{"sink": "dynamodb"}, "dynamodb.table"},
		{"bad key", map[string]any{"encryption_key": "abcd"}, "encryption_key"},
		{"bad level", map[string]any{"log_level": "loud"}, "log_level"},
		{"unknown key", map[string]any{"colour": "blue"}, "colour"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromMap(tt.raw, nil)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), "error %q should mention %q", err, tt.want)
		})
	}
}

func TestKeys(t *testing.T) {
	cfg := Default()
	cfg.EncryptionKey = testKey
	cfg.FallbackKeys = []string{strings.Repeat("ff", 32)}
	require.NoError(t, cfg.Validate())

	active, fallback, err := cfg.Keys()
	require.NoError(t, err)
	assert.Len(t, active, 32)
	assert.Equal(t, byte(0x1f), active[31])
	require.Len(t, fallback, 1)
	assert.Equal(t, byte(0xff), fallback[0][0])

	cfg.FallbackKeys = []string{"zz"}
	_, _, err = cfg.Keys()
	assert.ErrorContains(t, err, "fallback_keys[0]")
}
