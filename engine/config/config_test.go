package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/onyx/engine/core"
	"github.com/spaghettifunk/onyx/engine/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "onyx.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, core.LogLevelInfo, cfg.LogLevel())
	assert.Equal(t, uint64(64<<20), cfg.Budgets()[memory.HostGraphics])
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
[log]
level = "debug"

[memory]
device_local = 512

[scene]
prims = 128

[assets]
scene_file = "scenes/demo.toml"
watch = true

[app]
frames = 10
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, core.LogLevelDebug, cfg.LogLevel())
	assert.Equal(t, uint64(512<<20), cfg.Budgets()[memory.DeviceLocal])
	assert.Equal(t, uint64(64<<20), cfg.Budgets()[memory.HostTransfer])
	assert.Equal(t, 128, cfg.SceneConfig().Prims)
	assert.Equal(t, 8, cfg.SceneConfig().Lights)
	assert.Equal(t, "scenes/demo.toml", cfg.Assets.SceneFile)
	assert.True(t, cfg.Assets.Watch)
	assert.Equal(t, uint64(10), cfg.App.Frames)
	assert.Equal(t, "Onyx", cfg.App.Name)
	assert.Equal(t, DeviceHost, cfg.App.Device)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(writeFile(t, "[memory]\nhost_graphics = 0\n"))
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = Load(writeFile(t, "[memory]\ndefault_alignment = 24\n"))
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = Load(writeFile(t, "[scene]\nprims = -1\n"))
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = Load(writeFile(t, "[app]\ndevice = \"metal\"\n"))
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = Load(writeFile(t, "[memory]\nunknown_key = 1\n"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "[memory\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
