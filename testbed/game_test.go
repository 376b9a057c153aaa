package testbed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/onyx/engine"
	"github.com/spaghettifunk/onyx/engine/config"
	"github.com/spaghettifunk/onyx/engine/math"
	"github.com/spaghettifunk/onyx/engine/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig() *config.Config {
	cfg := config.Default()
	cfg.Memory.HostGraphics = 1
	cfg.Memory.HostTransfer = 1
	cfg.Memory.DeviceLocal = 4
	cfg.Memory.DeviceLocalExternal = 1
	cfg.App.Frames = 10
	return cfg
}

func TestGeneratedSpinner(t *testing.T) {
	g := NewTestGame()
	e, err := engine.New(smallConfig(), memory.NewHostDevice(memory.DefaultLimits), g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())

	state := g.State.(*gameState)
	require.True(t, state.hasOwn)
	before, err := e.Scene().Prim(state.spinner)
	require.NoError(t, err)

	require.NoError(t, e.Run(context.Background()))

	after, err := e.Scene().Prim(state.spinner)
	require.NoError(t, err)
	// Spinning in place keeps the position.
	assert.True(t, after.Xform.Position().Compare(before.Xform.Position(), 1e-4))
	assert.Len(t, e.Scene().Lights(), 1)

	require.NoError(t, e.Shutdown())
	assert.False(t, state.hasOwn)
}

func TestSpinnerFromSceneFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[prim]]\nname = \"spinner\"\nposition = [1.0, 0.0, 0.0]\n"), 0o644))

	cfg := smallConfig()
	cfg.Assets.SceneFile = path
	g := NewTestGame()
	e, err := engine.New(cfg, memory.NewHostDevice(memory.DefaultLimits), g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()

	state := g.State.(*gameState)
	assert.False(t, state.hasOwn)
	h, ok := e.Loader().Prim(SpinnerName)
	require.True(t, ok)
	assert.Equal(t, h, state.spinner)

	require.NoError(t, e.Run(context.Background()))
	p, err := e.Scene().Prim(h)
	require.NoError(t, err)
	assert.True(t, p.Xform.Position().Compare(math.NewVec3(1, 0, 0), 1e-4))
}
