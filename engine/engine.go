package engine

import (
	"context"
	"path/filepath"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/onyx/engine/assets"
	"github.com/spaghettifunk/onyx/engine/config"
	"github.com/spaghettifunk/onyx/engine/core"
	"github.com/spaghettifunk/onyx/engine/memory"
	"github.com/spaghettifunk/onyx/engine/renderer"
	"github.com/spaghettifunk/onyx/engine/scene"
	"github.com/spaghettifunk/onyx/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	EngineStageShutdown
)

// statsInterval is the number of frames between two metric log lines.
const statsInterval = 120

type Engine struct {
	stage  Stage
	config *config.Config
	game   *Game

	device   memory.Device
	manager  *memory.Manager
	scene    *scene.Scene
	renderer *renderer.Renderer
	loader   *assets.Loader
	watcher  *assets.Watcher
	jobs     *systems.JobSystem
	events   *core.EventBus

	clock    *core.Clock
	metrics  *core.Metrics
	lastTime float64
	frame    uint64
	quit     bool
}

// New builds an engine around device. Nothing is allocated until
// Initialize.
func New(cfg *config.Config, device memory.Device, g *Game) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if g == nil {
		g = &Game{}
	}
	return &Engine{
		stage:   EngineStageUninitialized,
		config:  cfg,
		game:    g,
		device:  device,
		events:  core.NewEventBus(),
		clock:   core.NewClock(),
		metrics: core.NewMetrics(),
	}, nil
}

func (e *Engine) Initialize() error {
	if e.stage != EngineStageUninitialized {
		return errors.Newf("engine initialized twice")
	}
	e.stage = EngineStageInitializing

	mgr, err := memory.NewManager(e.device, e.config.Budgets())
	if err != nil {
		return err
	}
	if err := mgr.SetDefaultAlignment(e.config.Memory.DefaultAlignment); err != nil {
		mgr.Shutdown()
		return err
	}
	e.manager = mgr
	e.scene = scene.New(e.config.SceneConfig())
	e.renderer = renderer.New(mgr, memory.DeviceLocal, memory.DeviceLocal)

	e.events.Register(core.EventCodeApplicationQuit, e, e.onQuit)
	e.events.Register(core.EventCodeOutOfMemory, e, e.onOutOfMemory)

	if path := e.config.Assets.SceneFile; path != "" {
		jobs, err := systems.NewJobSystem(runtime.GOMAXPROCS(0), 16)
		if err != nil {
			return err
		}
		e.jobs = jobs
		e.loader = assets.NewLoader(path, memory.DeviceLocal)
		e.loader.SetJobSystem(jobs)
		if err := e.loader.Apply(e.scene, e.manager); err != nil {
			return errors.Wrapf(err, "loading scene %s", path)
		}
		core.LogInfo("Scene %s loaded: %d primitives.", filepath.Base(path), e.scene.PrimCount())
		if e.config.Assets.Watch {
			w, err := assets.NewWatcher(path)
			if err != nil {
				return err
			}
			e.watcher = w
		}
	}

	if e.game.FnInitialize != nil {
		if err := e.game.FnInitialize(e); err != nil {
			return errors.Wrap(err, "initializing game")
		}
	}
	e.stage = EngineStageInitialized
	return nil
}

// Run drives frames until ctx is cancelled, the configured number of
// frames has run or a quit event is fired.
func (e *Engine) Run(ctx context.Context) error {
	if e.stage != EngineStageInitialized {
		return errors.Newf("engine is not initialized")
	}
	e.stage = EngineStageRunning

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	limit := e.config.App.Frames
	for !e.quit && (limit == 0 || e.frame < limit) {
		select {
		case <-ctx.Done():
			core.LogInfo("Interrupted after %d frames.", e.frame)
			return nil
		default:
		}
		if err := e.Frame(); err != nil {
			return err
		}
	}
	return nil
}

// Frame runs one iteration of the loop.
func (e *Engine) Frame() error {
	e.clock.Update()
	current := e.clock.Elapsed()
	delta := current - e.lastTime

	if e.watcher != nil && e.watcher.Poll() {
		e.reload()
	}

	if e.game.FnUpdate != nil {
		if err := e.game.FnUpdate(e, delta); err != nil {
			return errors.Wrap(err, "game update")
		}
	}

	stats, err := e.renderer.Sync(e.scene)
	if err != nil {
		if errors.Is(err, memory.ErrOutOfMemory) {
			e.events.Fire(core.EventCodeOutOfMemory, e, core.EventContext{Name: err.Error()})
		}
		return errors.Wrap(err, "syncing renderer")
	}
	e.scene.EndFrame()
	if e.loader != nil {
		if err := e.loader.Collect(e.manager); err != nil {
			core.LogError("releasing retired geometry: %v", err)
		}
	}

	e.frame++
	e.clock.Update()
	e.metrics.Update(e.clock.Elapsed() - current)
	e.lastTime = current

	if e.frame%statsInterval == 0 {
		e.logStats(stats)
	}
	return nil
}

func (e *Engine) reload() {
	path := e.loader.Path()
	if err := e.loader.Apply(e.scene, e.manager); err != nil {
		core.LogWarn("Keeping previous scene, %s did not load: %v", path, err)
		e.events.Fire(core.EventCodeSceneReloadFailed, e, core.EventContext{Name: err.Error()})
		return
	}
	core.LogInfo("Scene %s reloaded: %d primitives.", filepath.Base(path), e.scene.PrimCount())
	data := core.EventContext{Name: path}
	data.U64[0] = uint64(e.scene.PrimCount())
	e.events.Fire(core.EventCodeSceneReloaded, e, data)
}

func (e *Engine) logStats(stats renderer.FrameStats) {
	fps, frameMS := e.metrics.Frame()
	core.LogInfo("frame %d: %.0f fps, %.3f ms, %d draws, %d lights", stats.Frame, fps, frameMS, stats.DrawCount, stats.LightCount)
	for _, memType := range memory.MemoryTypes {
		ms, err := e.manager.Stats(memType)
		if err != nil {
			continue
		}
		core.LogDebug("%s: %d/%d bytes in %d blocks (%d free)", memType, ms.UsedSize, ms.TotalSize, ms.Blocks, ms.FreeBlocks)
	}
}

// Shutdown releases everything Initialize created. It is safe to call on
// a partially initialized engine.
func (e *Engine) Shutdown() error {
	if e.stage == EngineStageShutdown || e.stage == EngineStageShuttingDown {
		return nil
	}
	e.stage = EngineStageShuttingDown

	var errs error
	if e.watcher != nil {
		errs = errors.CombineErrors(errs, e.watcher.Close())
	}
	if e.game.FnShutdown != nil && e.scene != nil {
		errs = errors.CombineErrors(errs, e.game.FnShutdown(e))
	}
	if e.scene != nil {
		if e.loader != nil {
			e.loader.Unload(e.scene)
		}
		e.scene.EndFrame()
		if e.loader != nil {
			errs = errors.CombineErrors(errs, e.loader.Collect(e.manager))
		}
	}
	if e.renderer != nil {
		errs = errors.CombineErrors(errs, e.renderer.Shutdown())
	}
	if e.jobs != nil {
		e.jobs.Shutdown()
	}
	if e.manager != nil {
		e.manager.Shutdown()
	}
	e.events.Clear()
	e.stage = EngineStageShutdown
	core.LogInfo("Engine shut down after %d frames.", e.frame)
	return errs
}

func (e *Engine) onQuit(code core.SystemEventCode, sender any, listener any, data core.EventContext) bool {
	core.LogInfo("Quit requested, shutting down.")
	e.quit = true
	return true
}

func (e *Engine) onOutOfMemory(code core.SystemEventCode, sender any, listener any, data core.EventContext) bool {
	for _, memType := range memory.MemoryTypes {
		if ms, err := e.manager.Stats(memType); err == nil {
			core.LogError("%s: %d/%d bytes used, largest free block %d", memType, ms.UsedSize, ms.TotalSize, ms.LargestFree)
		}
	}
	return false
}

func (e *Engine) Stage() Stage {
	return e.stage
}

func (e *Engine) Config() *config.Config {
	return e.config
}

func (e *Engine) Manager() *memory.Manager {
	return e.manager
}

func (e *Engine) Scene() *scene.Scene {
	return e.scene
}

func (e *Engine) Renderer() *renderer.Renderer {
	return e.renderer
}

// Loader is nil when no scene file is configured.
func (e *Engine) Loader() *assets.Loader {
	return e.loader
}

func (e *Engine) Events() *core.EventBus {
	return e.events
}

func (e *Engine) FrameCount() uint64 {
	return e.frame
}

func (e *Engine) Metrics() *core.Metrics {
	return e.metrics
}
