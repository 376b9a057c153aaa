package scene

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/onyx/engine/containers"
	"github.com/spaghettifunk/onyx/engine/geometry"
	"github.com/spaghettifunk/onyx/engine/math"
)

var (
	// ErrInvalidHandle marks lookups with handles that were never issued or
	// whose object is gone. Such errors also match containers.ErrStaleHandle.
	ErrInvalidHandle = errors.New("invalid scene handle")
	// ErrDefaultObject is returned when removing the default texture or
	// material.
	ErrDefaultObject = errors.New("default objects cannot be removed")
	// ErrPendingRemoval is returned when mutating an object that was removed
	// this frame.
	ErrPendingRemoval = errors.New("object is pending removal")
)

type (
	PrimitiveHandle containers.Handle
	LightHandle     containers.Handle
	MaterialHandle  containers.Handle
	TextureHandle   containers.Handle
)

var (
	// NullTexture resolves to the default white texture.
	NullTexture = TextureHandle{}
	// NullMaterial resolves to the default material.
	NullMaterial = MaterialHandle{}
)

// DirtyFlags is the scene level dirt mask.
type DirtyFlags uint32

const (
	DirtyCameraView DirtyFlags = 1 << iota
	DirtyCameraProj
	DirtyLights
	DirtyXforms
	DirtyMaterials
	DirtyTextures
	DirtyPrims
)

func (d DirtyFlags) Has(bits DirtyFlags) bool {
	return d&bits == bits
}

type PrimFlags uint8

const (
	PrimAdded PrimFlags = 1 << iota
	PrimRemoved
	PrimTopologyChanged
	PrimMaterialChanged
)

type Visibility uint8

const (
	VisibleCamera Visibility = 1 << iota
	VisibleShadow

	VisibleAll = VisibleCamera | VisibleShadow
)

// Primitive places a geometry in the scene. The geometry is not owned by
// the scene.
type Primitive struct {
	Geo        *geometry.Geometry
	Xform      math.Mat4
	Material   MaterialHandle
	Flags      PrimFlags
	Visibility Visibility
}

type LightType uint8

const (
	LightDirection LightType = iota
	LightPoint
)

type Light struct {
	Type      LightType
	Color     math.Vec3
	Intensity float32
	// Position is used by point lights, Direction by directional lights.
	Position  math.Vec3
	Direction math.Vec3
}

type MaterialFlags uint8

const (
	MaterialAdded MaterialFlags = 1 << iota
	MaterialRemoved
	MaterialChanged
)

type Material struct {
	Color            math.Vec3
	Roughness        float32
	TextureAlbedo    TextureHandle
	TextureRoughness TextureHandle
	TextureNormal    TextureHandle
	Flags            MaterialFlags
}

// textureSlots returns pointers to every texture reference of m.
func (m *Material) textureSlots() [3]*TextureHandle {
	return [3]*TextureHandle{&m.TextureAlbedo, &m.TextureRoughness, &m.TextureNormal}
}

type TextureFlags uint8

const (
	TextureAdded TextureFlags = 1 << iota
	TextureRemoved
	TextureChanged
)

// Texture holds RGBA8 pixels. Uploading them is left to the renderer.
type Texture struct {
	Name          string
	Width, Height uint32
	Pixels        []byte
	Flags         TextureFlags
}
