package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("CLEARING_OPS_ADDR", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("RESILIENCE_TENANT_ISOLATION", "")

	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.False(t, cfg.Resilience.TenantIsolation)
	assert.Equal(t, int64(1), cfg.Codec.NodeID)
	assert.Equal(t, 5*time.Minute, cfg.Redis.CacheTTL)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("CLEARING_OPS_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("RESILIENCE_TENANT_ISOLATION", "true")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("CODEC_NODE_ID", "not-a-number")

	cfg := FromEnv()
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Resilience.TenantIsolation)
	assert.Equal(t, 90*time.Second, cfg.Redis.CacheTTL)
	assert.Equal(t, int64(1), cfg.Codec.NodeID)
}

func TestLoadReadsDotEnvWithoutOverridingEnvironment(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("CLEARING_TEST_ONLY=from-file\nLOG_LEVEL=debug\n"), 0o600))
	t.Setenv("LOG_LEVEL", "warn")
	t.Cleanup(func() { os.Unsetenv("CLEARING_TEST_ONLY") })

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "from-file", os.Getenv("CLEARING_TEST_ONLY"))
}

func TestLoadToleratesMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}
