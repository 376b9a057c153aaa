package engine

// Game is the application driven by the Engine. Any hook may be nil.
type Game struct {
	State        any
	FnInitialize Initialize
	FnUpdate     Update
	FnShutdown   Shutdown
}

// Initialize runs once, after the scene file (if any) is applied.
type Initialize func(e *Engine) error

// Update runs every frame before the renderer consumes the scene's dirt.
type Update func(e *Engine, deltaTime float64) error

type Shutdown func(e *Engine) error
