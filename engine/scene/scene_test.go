package scene

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/onyx/engine/containers"
	"github.com/spaghettifunk/onyx/engine/geometry"
	"github.com/spaghettifunk/onyx/engine/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCleanScene(t *testing.T) *Scene {
	t.Helper()
	s := New(Config{Prims: 2, Lights: 1, Materials: 1, Textures: 1})
	s.EndFrame()
	require.Zero(t, s.DirtyFlags())
	return s
}

func TestNewSceneDefaults(t *testing.T) {
	s := New(DefaultConfig())

	assert.Equal(t, []TextureHandle{NullTexture}, s.Textures())
	assert.Equal(t, []MaterialHandle{NullMaterial}, s.Materials())
	require.Len(t, s.Prims(), 1)

	tex, err := s.Texture(NullTexture)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), tex.Width)
	assert.Len(t, tex.Pixels, 4*4*4)
	assert.Equal(t, byte(0xff), tex.Pixels[0])

	prim, err := s.Prim(s.Prims()[0])
	require.NoError(t, err)
	assert.Equal(t, Visibility(0), prim.Visibility)
	assert.Same(t, s.DefaultGeometry(), prim.Geo)

	flags := s.DirtyFlags()
	for _, bit := range []DirtyFlags{DirtyCameraView, DirtyCameraProj, DirtyPrims, DirtyMaterials, DirtyTextures} {
		assert.True(t, flags.Has(bit), "bit %b", bit)
	}

	assert.True(t, errors.Is(s.RemoveTexture(NullTexture), ErrDefaultObject))
	assert.True(t, errors.Is(s.RemoveMaterial(NullMaterial), ErrDefaultObject))
}

func TestTextureRemovalCascade(t *testing.T) {
	s := newCleanScene(t)
	geo := geometry.NewCube(1, 1, 1, 1, 1, "cube")

	tex := s.AddTexture(Texture{Name: "albedo", Width: 1, Height: 1, Pixels: []byte{1, 2, 3, 4}})
	mat, err := s.AddMaterial(Material{TextureAlbedo: tex, TextureNormal: tex, Roughness: 0.5})
	require.NoError(t, err)

	var prims []PrimitiveHandle
	for i := 0; i < 3; i++ {
		p, err := s.AddPrim(geo, math.NewMat4Translation(math.NewVec3(float32(i), 0, 0)), mat)
		require.NoError(t, err)
		prims = append(prims, p)
	}
	s.EndFrame()

	require.NoError(t, s.RemoveTexture(tex))
	// Still visible to the renderer until the frame ends.
	got, err := s.Texture(tex)
	require.NoError(t, err)
	assert.NotZero(t, got.Flags&TextureRemoved)
	assert.Contains(t, s.DirtyTextures(), tex)

	s.EndFrame()

	m, err := s.Material(mat)
	require.NoError(t, err)
	assert.Equal(t, NullTexture, m.TextureAlbedo)
	assert.Equal(t, NullTexture, m.TextureNormal)
	assert.Equal(t, NullTexture, m.TextureRoughness)
	assert.NotContains(t, s.Textures(), tex)

	_, err = s.Texture(tex)
	assert.True(t, errors.Is(err, ErrInvalidHandle))
	assert.True(t, errors.Is(err, containers.ErrStaleHandle))

	for i, p := range prims {
		prim, err := s.Prim(p)
		require.NoError(t, err)
		assert.Equal(t, mat, prim.Material)
		assert.Equal(t, float32(i), prim.Xform.Position().X)
		assert.Zero(t, prim.Flags)
	}
}

func TestMaterialRemovalCascade(t *testing.T) {
	s := newCleanScene(t)
	geo := geometry.NewCube(1, 1, 1, 1, 1, "cube")

	mat, err := s.AddMaterial(Material{Roughness: 0.2})
	require.NoError(t, err)
	a, _ := s.AddPrim(geo, math.NewMat4Identity(), mat)
	b, _ := s.AddPrim(geo, math.NewMat4Identity(), NullMaterial)
	s.EndFrame()

	require.NoError(t, s.RemoveMaterial(mat))
	assert.True(t, s.DirtyFlags().Has(DirtyMaterials))
	s.EndFrame()

	pa, err := s.Prim(a)
	require.NoError(t, err)
	assert.Equal(t, NullMaterial, pa.Material)
	pb, err := s.Prim(b)
	require.NoError(t, err)
	assert.Equal(t, NullMaterial, pb.Material)
	assert.Len(t, s.Materials(), 1)
}

func TestPrimTwoPhaseRemoval(t *testing.T) {
	s := newCleanScene(t)
	geo := geometry.NewPlane(1, 1, 1, 1, 1, 1, "quad")

	a, _ := s.AddPrim(geo, math.NewMat4Identity(), NullMaterial)
	b, _ := s.AddPrim(geo, math.NewMat4Translation(math.NewVec3(0, 7, 0)), NullMaterial)
	s.EndFrame()

	require.NoError(t, s.RemovePrim(a))
	require.NoError(t, s.RemovePrim(a))
	assert.Equal(t, []PrimitiveHandle{a}, s.DirtyPrimitives())

	p, err := s.Prim(a)
	require.NoError(t, err)
	assert.NotZero(t, p.Flags&PrimRemoved)
	assert.True(t, errors.Is(s.UpdatePrimXform(a, math.NewMat4Identity()), ErrPendingRemoval))

	s.EndFrame()
	_, err = s.Prim(a)
	assert.True(t, errors.Is(err, ErrInvalidHandle))

	pb, err := s.Prim(b)
	require.NoError(t, err)
	assert.Equal(t, float32(7), pb.Xform.Position().Y)

	// The freed index comes back with a new generation.
	c, _ := s.AddPrim(geo, math.NewMat4Identity(), NullMaterial)
	assert.Equal(t, a.Index, c.Index)
	assert.NotEqual(t, a.Generation, c.Generation)
	assert.True(t, errors.Is(s.RemovePrim(a), ErrInvalidHandle))
}

func TestDirtyPrimsAreDeduplicated(t *testing.T) {
	s := newCleanScene(t)
	geo := geometry.NewCube(1, 1, 1, 1, 1, "cube")
	h, _ := s.AddPrim(geo, math.NewMat4Identity(), NullMaterial)
	s.EndFrame()

	g1, err := s.PrimGeo(h)
	require.NoError(t, err)
	g2, err := s.PrimGeo(h)
	require.NoError(t, err)
	assert.Same(t, geo, g1)
	assert.Same(t, g1, g2)
	require.NoError(t, s.UpdatePrimXform(h, math.NewMat4Identity()))

	assert.Equal(t, []PrimitiveHandle{h}, s.DirtyPrimitives())
	p, _ := s.Prim(h)
	assert.NotZero(t, p.Flags&PrimTopologyChanged)

	s.EndFrame()
	assert.Empty(t, s.DirtyPrimitives())
	assert.Zero(t, s.DirtyFlags())
}

func TestUpdatePrimXformComposes(t *testing.T) {
	s := newCleanScene(t)
	h, _ := s.AddPrim(geometry.NewCube(1, 1, 1, 1, 1, ""), math.NewMat4Scale(math.NewVec3(2, 2, 2)), NullMaterial)
	s.EndFrame()

	delta := math.NewMat4Translation(math.NewVec3(1, 0, 0))
	require.NoError(t, s.UpdatePrimXform(h, delta))
	require.NoError(t, s.UpdatePrimXform(h, delta))
	assert.True(t, s.DirtyFlags().Has(DirtyXforms))

	p, _ := s.Prim(h)
	want := math.NewMat4Scale(math.NewVec3(2, 2, 2)).Mul(delta).Mul(delta)
	assert.True(t, p.Xform.Compare(want, 1e-6))
	assert.Equal(t, float32(2), p.Xform.Position().X)
}

func TestSetPrimMaterialValidates(t *testing.T) {
	s := newCleanScene(t)
	h, _ := s.AddPrim(geometry.NewCube(1, 1, 1, 1, 1, ""), math.NewMat4Identity(), NullMaterial)

	err := s.SetPrimMaterial(h, MaterialHandle{Index: 42})
	assert.True(t, errors.Is(err, ErrInvalidHandle))

	_, err = s.AddMaterial(Material{TextureAlbedo: TextureHandle{Index: 9}})
	assert.True(t, errors.Is(err, ErrInvalidHandle))

	mat, err := s.AddMaterial(Material{})
	require.NoError(t, err)
	require.NoError(t, s.SetPrimMaterial(h, mat))
	p, _ := s.Prim(h)
	assert.NotZero(t, p.Flags&PrimMaterialChanged)
}

func TestHandleStabilityAcrossRemovals(t *testing.T) {
	s := newCleanScene(t)
	geo := geometry.NewCube(1, 1, 1, 1, 1, "")

	handles := map[PrimitiveHandle]float32{}
	var order []PrimitiveHandle
	for i := 0; i < 10; i++ {
		h, err := s.AddPrim(geo, math.NewMat4Translation(math.NewVec3(float32(i), 0, 0)), NullMaterial)
		require.NoError(t, err)
		handles[h] = float32(i)
		order = append(order, h)
	}
	for _, i := range []int{0, 4, 9, 5} {
		require.NoError(t, s.RemovePrim(order[i]))
		delete(handles, order[i])
	}
	s.EndFrame()

	for h, x := range handles {
		p, err := s.Prim(h)
		require.NoError(t, err)
		assert.Equal(t, x, p.Xform.Position().X)
	}
	// Default primitive plus the survivors.
	assert.Equal(t, len(handles)+1, s.PrimCount())
}

func TestLights(t *testing.T) {
	s := newCleanScene(t)

	sun := s.AddLight(Light{Type: LightDirection, Intensity: 1, Direction: math.NewVec3Down()})
	lamp := s.AddLight(Light{Type: LightPoint, Intensity: 3, Position: math.NewVec3(0, 2, 0)})
	assert.True(t, s.DirtyFlags().Has(DirtyLights))
	s.EndFrame()

	require.NoError(t, s.UpdateLight(lamp, func(l *Light) { l.Intensity = 5 }))
	l, err := s.Light(lamp)
	require.NoError(t, err)
	assert.Equal(t, float32(5), l.Intensity)

	require.NoError(t, s.RemoveLight(sun))
	assert.Equal(t, []LightHandle{lamp}, s.Lights())
	assert.True(t, errors.Is(s.RemoveLight(sun), ErrInvalidHandle))
}

func TestUpdateMaterialAndTexture(t *testing.T) {
	s := newCleanScene(t)
	mat, _ := s.AddMaterial(Material{})
	tex := s.AddTexture(Texture{Name: "t"})
	s.EndFrame()

	require.NoError(t, s.UpdateMaterial(mat, func(m *Material) {
		m.Roughness = 0.7
		m.TextureRoughness = tex
	}))
	assert.Equal(t, []MaterialHandle{mat}, s.DirtyMaterials())
	m, _ := s.Material(mat)
	assert.Equal(t, float32(0.7), m.Roughness)
	assert.Equal(t, MaterialChanged, m.Flags)

	err := s.UpdateMaterial(mat, func(m *Material) { m.TextureNormal = TextureHandle{Index: 77} })
	assert.True(t, errors.Is(err, ErrInvalidHandle))
	m, _ = s.Material(mat)
	assert.Equal(t, NullTexture, m.TextureNormal)

	require.NoError(t, s.UpdateTexture(tex, func(t *Texture) { t.Width = 8 }))
	assert.Equal(t, []TextureHandle{tex}, s.DirtyTextures())
	got, _ := s.Texture(tex)
	assert.Equal(t, uint32(8), got.Width)
	assert.Equal(t, TextureChanged, got.Flags)
}

func TestCamera(t *testing.T) {
	s := newCleanScene(t)

	s.UpdateCameraLookAt(math.NewVec3(0, 0, 10), math.NewVec3Zero(), math.NewVec3Up())
	assert.Equal(t, DirtyCameraView, s.DirtyFlags())
	c := s.Camera()
	assert.True(t, c.View.Mul(c.Xform).Compare(math.NewMat4Identity(), 1e-5))
	assert.True(t, c.Position().Compare(math.NewVec3(0, 0, 10), 1e-5))
	s.EndFrame()

	s.UpdateCameraProjection(4.0 / 3.0)
	assert.Equal(t, DirtyCameraProj, s.DirtyFlags())
	assert.Equal(t, float32(4.0/3.0), s.Camera().Aspect)
	s.EndFrame()

	s.UpdateCameraArcball(math.NewVec3Zero(), ArcballInput{ScreenWidth: 800, ScreenHeight: 600, DeltaX: 200, Tumble: true})
	c = s.Camera()
	assert.True(t, s.DirtyFlags().Has(DirtyCameraView))
	// Tumbling keeps the distance to the target.
	assert.InDelta(t, 10, c.Position().Length(), 1e-3)
	assert.True(t, c.View.Mul(c.Xform).Compare(math.NewMat4Identity(), 1e-4))

	s.UpdateCameraArcball(math.NewVec3Zero(), ArcballInput{ScreenWidth: 800, ScreenHeight: 600, DeltaY: 300, Zoom: true})
	assert.InDelta(t, 5, s.Camera().Position().Length(), 1e-3)
	// Still looking at the target after zooming.
	fwd := s.Camera().Xform.Forward()
	toTarget := s.Camera().Position().MulScalar(-1).Normalized()
	assert.True(t, fwd.Compare(toTarget, 1e-3))
}
