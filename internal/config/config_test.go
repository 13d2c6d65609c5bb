package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcdata/railnet/internal/routing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Data.Dir)
	assert.Equal(t, "file", cfg.Data.Source)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTL)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, routing.DefaultConfig(), cfg.Suggestion.Routing())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
data:
  dir: /srv/tc
  source: postgres
suggestion:
  use_sfs: false
  avoid_equipments: [ETCS, LZB]
  policy: keep_junction_neighbours
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("RAILNET_SERVER_PORT", "9090")
	t.Setenv("RAILNET_REDIS_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/tc", cfg.Data.Dir)
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)

	rc := cfg.Suggestion.Routing()
	assert.False(t, rc.UseSFS)
	assert.Equal(t, []string{"ETCS", "LZB"}, rc.AvoidEquipments)
	assert.Equal(t, routing.PolicyKeepJunctionNeighbours, rc.Policy)
}

func TestLoadCommaSeparatedEnvList(t *testing.T) {
	t.Setenv("RAILNET_SUGGESTION_AVOID_EQUIPMENTS", "ETCS, LZB")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"ETCS", "LZB"}, cfg.Suggestion.AvoidEquipments)
}

func TestLoadInvalid(t *testing.T) {
	t.Run("unknown source", func(t *testing.T) {
		t.Setenv("RAILNET_DATA_SOURCE", "ftp")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("unknown policy", func(t *testing.T) {
		t.Setenv("RAILNET_SUGGESTION_POLICY", "sometimes")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}

func TestAddresses(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, ":8080", cfg.Server.Addr())
	assert.Contains(t, cfg.Database.DSN(), "dbname=railnet")
}
