package testbed

import (
	"image"
	"image/color"

	"github.com/spaghettifunk/onyx/engine"
	"github.com/spaghettifunk/onyx/engine/assets/loaders"
	"github.com/spaghettifunk/onyx/engine/core"
	"github.com/spaghettifunk/onyx/engine/geometry"
	"github.com/spaghettifunk/onyx/engine/math"
	"github.com/spaghettifunk/onyx/engine/memory"
	"github.com/spaghettifunk/onyx/engine/scene"
)

// SpinnerName is the scene file primitive the testbed spins. Without one
// it builds its own.
const SpinnerName = "spinner"

const (
	screenWidth  = 1280
	screenHeight = 720
	// Radians per second.
	spinSpeed = 0.5
	// Pixels of simulated horizontal drag per second.
	orbitSpeed = 40
)

type gameState struct {
	spinner scene.PrimitiveHandle
	// Objects created by the testbed rather than the scene file.
	ownGeo      *geometry.Geometry
	ownPrim     scene.PrimitiveHandle
	ownMaterial scene.MaterialHandle
	ownTexture  scene.TextureHandle
	ownLight    scene.LightHandle
	hasOwn      bool

	target math.Vec3
}

func NewTestGame() *engine.Game {
	state := &gameState{target: math.NewVec3Zero()}
	return &engine.Game{
		State: state,
		FnInitialize: func(e *engine.Engine) error {
			return state.initialize(e)
		},
		FnUpdate: func(e *engine.Engine, deltaTime float64) error {
			return state.update(e, deltaTime)
		},
		FnShutdown: func(e *engine.Engine) error {
			return state.shutdown(e)
		},
	}
}

func (g *gameState) initialize(e *engine.Engine) error {
	core.LogDebug("testbed: initializing")
	s := e.Scene()

	e.Events().Register(core.EventCodeSceneReloaded, g, g.onSceneReloaded)

	s.UpdateCameraLookAt(math.NewVec3(0, 2, 6), g.target, math.NewVec3Up())
	s.UpdateCameraProjection(float32(screenWidth) / float32(screenHeight))

	if g.findSpinner(e) {
		return nil
	}
	return g.createSpinner(e)
}

func (g *gameState) findSpinner(e *engine.Engine) bool {
	if l := e.Loader(); l != nil {
		if h, ok := l.Prim(SpinnerName); ok {
			g.spinner = h
			return true
		}
	}
	if g.hasOwn {
		g.spinner = g.ownPrim
		return true
	}
	return false
}

func (g *gameState) createSpinner(e *engine.Engine) error {
	s := e.Scene()

	tex := loaders.FromImage(checker(64, 8), loaders.DefaultMaxTextureSize, false)
	g.ownTexture = s.AddTexture(scene.Texture{Name: "checker", Width: tex.Width, Height: tex.Height, Pixels: tex.Pixels})

	mat, err := s.AddMaterial(scene.Material{
		Color:         math.NewVec3(1, 0.4, 0.2),
		Roughness:     0.6,
		TextureAlbedo: g.ownTexture,
	})
	if err != nil {
		return err
	}
	g.ownMaterial = mat

	g.ownGeo = geometry.NewCube(1, 1, 1, 1, 1, SpinnerName)
	if err := g.ownGeo.Upload(e.Manager(), memory.DeviceLocal); err != nil {
		return err
	}
	prim, err := s.AddPrim(g.ownGeo, math.NewMat4Identity(), mat)
	if err != nil {
		return err
	}
	g.ownPrim = prim
	g.ownLight = s.AddLight(scene.Light{
		Type:      scene.LightPoint,
		Color:     math.NewVec3One(),
		Intensity: 10,
		Position:  math.NewVec3(2, 3, 2),
	})
	g.hasOwn = true
	g.spinner = prim
	core.LogInfo("testbed: no %q in the scene, spinning a generated cube", SpinnerName)
	return nil
}

func (g *gameState) update(e *engine.Engine, deltaTime float64) error {
	s := e.Scene()

	p, err := s.Prim(g.spinner)
	if err != nil || p.Flags&scene.PrimRemoved != 0 {
		if !g.findSpinner(e) {
			if err := g.createSpinner(e); err != nil {
				return err
			}
		}
		p, err = s.Prim(g.spinner)
		if err != nil {
			return err
		}
	}
	spin := math.NewMat4EulerY(float32(spinSpeed * deltaTime))
	if err := s.SetPrimXform(g.spinner, spin.Mul(p.Xform)); err != nil {
		return err
	}

	s.UpdateCameraArcball(g.target, scene.ArcballInput{
		ScreenWidth:  screenWidth,
		ScreenHeight: screenHeight,
		DeltaX:       float32(orbitSpeed * deltaTime),
		Tumble:       true,
	})
	return nil
}

func (g *gameState) onSceneReloaded(code core.SystemEventCode, sender, listener any, data core.EventContext) bool {
	e, ok := sender.(*engine.Engine)
	if !ok {
		return false
	}
	if g.findSpinner(e) {
		core.LogDebug("testbed: spinner follows %s", data.Name)
	}
	return false
}

func (g *gameState) shutdown(e *engine.Engine) error {
	if !g.hasOwn {
		return nil
	}
	s := e.Scene()
	if err := s.RemovePrim(g.ownPrim); err != nil {
		core.LogWarn("testbed: removing spinner: %v", err)
	}
	if err := s.RemoveLight(g.ownLight); err != nil {
		core.LogWarn("testbed: removing light: %v", err)
	}
	if err := s.RemoveMaterial(g.ownMaterial); err != nil {
		core.LogWarn("testbed: removing material: %v", err)
	}
	if err := s.RemoveTexture(g.ownTexture); err != nil {
		core.LogWarn("testbed: removing texture: %v", err)
	}
	g.hasOwn = false
	return g.ownGeo.Release(e.Manager())
}

// checker draws a size x size board of cell pixel squares.
func checker(size, cell int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	light := color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	dark := color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if (x/cell+y/cell)%2 == 0 {
				img.SetRGBA(x, y, light)
			} else {
				img.SetRGBA(x, y, dark)
			}
		}
	}
	return img
}
