package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Addr)
	assert.Equal(t, 1724, cfg.MapWidth)
	assert.Equal(t, 1291, cfg.MapHeight)
	assert.False(t, cfg.AllowUnboundedFill)
	assert.Equal(t, uint(4), cfg.SaveRetries)
	assert.Equal(t, 30*time.Second, cfg.SaveTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ASGARIA_ADDR", ":8080")
	t.Setenv("ASGARIA_ALLOW_UNBOUNDED_FILL", "true")
	t.Setenv("ASGARIA_MAP_WIDTH", "64")
	t.Setenv("LOG_LEVEL", "loud")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.True(t, cfg.AllowUnboundedFill)
	assert.Equal(t, 64, cfg.MapWidth)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("ASGARIA_MAP_HEIGHT", "not-a-number")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("ASGARIA_MAP_HEIGHT", "0")
	_, err = Load()
	assert.Error(t, err)
}

func TestResolveDBPath(t *testing.T) {
	cfg := &Config{DBPath: "asgaria.db"}
	assert.Equal(t, filepath.Join("/data", "asgaria.db"), cfg.ResolveDBPath("/data"))

	cfg.DBPath = "/abs/x.db"
	assert.Equal(t, "/abs/x.db", cfg.ResolveDBPath("/data"))
}
