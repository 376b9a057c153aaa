package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/onyx/engine/config"
	"github.com/spaghettifunk/onyx/engine/core"
	"github.com/spaghettifunk/onyx/engine/memory"
	"github.com/spaghettifunk/onyx/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sceneFile = `
[[texture]]
name = "red"
color = [1.0, 0.0, 0.0, 1.0]

[[material]]
name = "paint"
albedo = "red"

[[prim]]
name = "box"
material = "paint"
`

const reloadedSceneFile = `
[[prim]]
name = "box"

[[prim]]
name = "floor"
shape = "plane"
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Memory.HostGraphics = 1
	cfg.Memory.HostTransfer = 1
	cfg.Memory.DeviceLocal = 4
	cfg.Memory.DeviceLocalExternal = 1
	return cfg
}

func newEngine(t *testing.T, cfg *config.Config, g *Game) *Engine {
	t.Helper()
	e, err := New(cfg, memory.NewHostDevice(memory.DefaultLimits), g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	return e
}

func TestRunStopsAfterConfiguredFrames(t *testing.T) {
	cfg := testConfig(t)
	cfg.App.Frames = 5

	var initialized, updates, shutdowns int
	e := newEngine(t, cfg, &Game{
		FnInitialize: func(e *Engine) error { initialized++; return nil },
		FnUpdate:     func(e *Engine, dt float64) error { updates++; return nil },
		FnShutdown:   func(e *Engine) error { shutdowns++; return nil },
	})
	assert.Equal(t, EngineStageInitialized, e.Stage())
	assert.Equal(t, 1, initialized)

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, uint64(5), e.FrameCount())
	assert.Equal(t, 5, updates)

	// The renderer consumed the default texture and cube on the first frame.
	_, ok := e.Renderer().TextureImage(scene.NullTexture)
	assert.True(t, ok)
	assert.Zero(t, e.Scene().DirtyFlags())

	require.NoError(t, e.Shutdown())
	require.NoError(t, e.Shutdown())
	assert.Equal(t, 1, shutdowns)
	assert.Equal(t, EngineStageShutdown, e.Stage())
}

func TestRunStopsOnQuitEventAndCancel(t *testing.T) {
	e := newEngine(t, testConfig(t), &Game{
		FnUpdate: func(e *Engine, dt float64) error {
			if e.FrameCount() == 2 {
				e.Events().Fire(core.EventCodeApplicationQuit, nil, core.EventContext{})
			}
			return nil
		},
	})
	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, uint64(3), e.FrameCount())
	require.NoError(t, e.Shutdown())

	e = newEngine(t, testConfig(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, e.Run(ctx))
	assert.Zero(t, e.FrameCount())
	require.NoError(t, e.Shutdown())
}

func TestSceneFileIsLoadedAndReloaded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.toml")
	require.NoError(t, os.WriteFile(path, []byte(sceneFile), 0o644))

	cfg := testConfig(t)
	cfg.Assets.SceneFile = path
	cfg.Assets.Watch = true
	e := newEngine(t, cfg, nil)
	defer e.Shutdown()

	require.NotNil(t, e.Loader())
	box, ok := e.Loader().Prim("box")
	require.True(t, ok)
	// Default primitive plus the box.
	assert.Equal(t, 2, e.Scene().PrimCount())
	require.NoError(t, e.Frame())

	var reloaded []uint64
	e.Events().Register(core.EventCodeSceneReloaded, t, func(code core.SystemEventCode, sender, listener any, data core.EventContext) bool {
		reloaded = append(reloaded, data.U64[0])
		return true
	})
	require.NoError(t, os.WriteFile(path, []byte(reloadedSceneFile), 0o644))

	assert.Eventually(t, func() bool {
		if err := e.Frame(); err != nil {
			return false
		}
		return len(reloaded) > 0
	}, 5*time.Second, 10*time.Millisecond)

	_, err := e.Scene().Prim(box)
	assert.Error(t, err)
	_, ok = e.Loader().Prim("floor")
	assert.True(t, ok)
	assert.Equal(t, 3, e.Scene().PrimCount())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Memory.DefaultAlignment = 3
	_, err := New(cfg, memory.NewHostDevice(memory.DefaultLimits), nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
