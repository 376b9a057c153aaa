package scene

import (
	"github.com/spaghettifunk/onyx/engine/math"
)

// Camera keeps its world transform and the view matrix derived from it.
// View is always the inverse of Xform.
type Camera struct {
	Xform  math.Mat4
	View   math.Mat4
	Proj   math.Mat4
	Fov    float32
	Aspect float32
	Near   float32
	Far    float32
}

var (
	defaultCameraPosition = math.NewVec3(0, 1, 5)
	defaultCameraTarget   = math.NewVec3Zero()
)

func newCamera() Camera {
	c := Camera{
		Fov:    math.DegToRad(45),
		Aspect: 16.0 / 9.0,
		Near:   0.01,
		Far:    100,
	}
	c.setXform(math.NewMat4LookAtXform(defaultCameraPosition, defaultCameraTarget, math.NewVec3Up()))
	c.rebuildProj()
	return c
}

func (c *Camera) setXform(xform math.Mat4) {
	c.Xform = xform
	c.View = xform.Inverse()
}

func (c *Camera) rebuildProj() {
	c.Proj = math.NewMat4Perspective(c.Fov, c.Aspect, c.Near, c.Far)
	// Vulkan clip space has Y pointing down.
	c.Proj.Data[5] *= -1
}

// Position returns the camera position in world space.
func (c Camera) Position() math.Vec3 {
	return c.Xform.Position()
}

func (s *Scene) Camera() Camera {
	return s.camera
}

func (s *Scene) SetCameraXform(xform math.Mat4) {
	s.camera.setXform(xform)
	s.dirty |= DirtyCameraView
}

// UpdateCameraLookAt moves the camera to position facing target.
func (s *Scene) UpdateCameraLookAt(position, target, up math.Vec3) {
	s.SetCameraXform(math.NewMat4LookAtXform(position, target, up))
}

// ArcballInput is one frame of pointer input for UpdateCameraArcball.
// Deltas are in pixels.
type ArcballInput struct {
	ScreenWidth  float32
	ScreenHeight float32
	DeltaX       float32
	DeltaY       float32
	Tumble       bool
	Pan          bool
	Zoom         bool
	// Home resets the camera to its starting position.
	Home bool
}

// UpdateCameraArcball tumbles, pans or zooms the camera around target.
func (s *Scene) UpdateCameraArcball(target math.Vec3, in ArcballInput) {
	if in.ScreenWidth <= 0 || in.ScreenHeight <= 0 {
		return
	}
	xform := s.camera.Xform
	dx := in.DeltaX / in.ScreenWidth
	dy := in.DeltaY / in.ScreenHeight

	switch {
	case in.Home:
		xform = math.NewMat4LookAtXform(target.Add(defaultCameraPosition.Sub(defaultCameraTarget)), target, math.NewVec3Up())
	case in.Tumble:
		xform = orbit(xform, target, math.NewVec3Up(), -dx*2*math.K_PI)
		xform = orbit(xform, target, xform.Right(), -dy*math.K_PI)
	case in.Pan:
		dist := xform.Position().Distance(target)
		offset := xform.Right().MulScalar(-dx * dist).Add(xform.Up().MulScalar(dy * dist))
		xform = xform.Mul(math.NewMat4Translation(offset))
	case in.Zoom:
		dist := xform.Position().Distance(target)
		step := min(dy*dist, dist-s.camera.Near)
		xform = xform.Mul(math.NewMat4Translation(xform.Forward().MulScalar(step)))
	default:
		return
	}
	s.SetCameraXform(xform)
}

// orbit rotates xform by angle around an axis through pivot.
func orbit(xform math.Mat4, pivot, axis math.Vec3, angle float32) math.Mat4 {
	rot := math.NewQuatFromAxisAngle(axis, angle, true).ToMat4()
	return xform.
		Mul(math.NewMat4Translation(pivot.MulScalar(-1))).
		Mul(rot).
		Mul(math.NewMat4Translation(pivot))
}

// UpdateCameraProjection changes the aspect ratio, typically after a
// resize.
func (s *Scene) UpdateCameraProjection(aspect float32) {
	if aspect <= 0 {
		return
	}
	s.camera.Aspect = aspect
	s.camera.rebuildProj()
	s.dirty |= DirtyCameraProj
}

func (s *Scene) SetCameraPerspective(fovRadians, aspect, near, far float32) {
	s.camera.Fov = fovRadians
	s.camera.Aspect = aspect
	s.camera.Near = near
	s.camera.Far = far
	s.camera.rebuildProj()
	s.dirty |= DirtyCameraProj
}
