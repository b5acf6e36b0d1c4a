package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	cfg, err := Load()
	require.NoError(t, err)

	require.NotNil(t, cfg.Server.Port)
	assert.Equal(t, DefaultServerPort, *cfg.Server.Port)
	assert.Equal(t, "floorcheck.db", cfg.Database.Path)
	assert.Equal(t, "127.0.0.1:9100", cfg.Reader.Addr)
	assert.Equal(t, 3600, cfg.Generator.IntervalSeconds)
	assert.Equal(t, 5, cfg.Directory.TimeoutSeconds)
	assert.NotEmpty(t, cfg.Kiosk.Name, "kiosk name falls back to hostname")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "floorcheck.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[database]
path = "/var/lib/floorcheck/kiosk.db"

[server]
port = 9000

[reader]
addr = "10.0.40.17:4001"

[kiosk]
name = "kiosk-north"
sectors = [2, 1]
`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/floorcheck/kiosk.db", cfg.Database.Path)
	require.NotNil(t, cfg.Server.Port)
	assert.Equal(t, 9000, *cfg.Server.Port)
	assert.Equal(t, "10.0.40.17:4001", cfg.Reader.Addr)
	assert.Equal(t, "kiosk-north", cfg.Kiosk.Name)
	assert.Equal(t, []int64{2, 1}, cfg.Kiosk.Sectors)

	// Unspecified sections keep defaults
	assert.Equal(t, 3600, cfg.Generator.IntervalSeconds)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/floorcheck.toml")
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	t.Setenv("FLOORCHECK_DATABASE_PATH", "/tmp/env-override.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env-override.db", cfg.Database.Path)
}
