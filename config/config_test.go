package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigOverridesDefaults(t *testing.T) {
	cfile := filepath.Join(t.TempDir(), "stockroom.yml")
	data := []byte(`
system:
  workdir: /tmp/stockroom
web:
  port: 9090
database:
  type: sqlite
  name: /tmp/stockroom/data/stockroom.db
cart:
  idle_ttl: 60
`)
	require.NoError(t, os.WriteFile(cfile, data, 0o600))

	cfg, err := LoadConfig(cfile)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/stockroom", cfg.System.Workdir)
	assert.Equal(t, 9090, cfg.Web.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, time.Minute, cfg.CartIdleTTL())
	// untouched sections keep their defaults
	assert.Equal(t, 10, cfg.Web.PageSize)
	assert.Equal(t, "storekeeper123", cfg.System.AdminPassword)
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("STOCKROOM_DB_TYPE", "mysql")
	t.Setenv("STOCKROOM_WEB_PORT", "8181")
	t.Setenv("STOCKROOM_KAFKA_ENABLED", "true")
	t.Setenv("STOCKROOM_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
	assert.Nil(t, cfg)

	cfile := filepath.Join(t.TempDir(), "empty.yml")
	require.NoError(t, os.WriteFile(cfile, []byte("{}"), 0o600))
	cfg, err = LoadConfig(cfile)
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Database.Type)
	assert.Equal(t, 8181, cfg.Web.Port)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestValidate(t *testing.T) {
	cfg := DefaultAppConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Database.Type = "oracle"
	assert.Error(t, cfg.Validate())

	cfg = DefaultAppConfig()
	cfg.Web.Secret = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultAppConfig()
	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = nil
	assert.Error(t, cfg.Validate())
}
