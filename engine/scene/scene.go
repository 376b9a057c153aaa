// Package scene keeps primitives, lights, materials, textures and the
// camera behind stable handles and records what changed since the last
// EndFrame so a renderer only has to upload the difference.
package scene

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/onyx/engine/containers"
	"github.com/spaghettifunk/onyx/engine/core"
	"github.com/spaghettifunk/onyx/engine/geometry"
	"github.com/spaghettifunk/onyx/engine/math"
)

// Config holds the initial capacity of each object table.
type Config struct {
	Prims     int
	Lights    int
	Materials int
	Textures  int
}

func DefaultConfig() Config {
	return Config{Prims: 32, Lights: 8, Materials: 16, Textures: 16}
}

const defaultTextureSize = 4

// Scene is not safe for concurrent use. Mutations happen on the frame
// thread; a renderer reads the dirty sets and then calls EndFrame.
type Scene struct {
	prims     *containers.ObjectTable[Primitive]
	lights    *containers.ObjectTable[Light]
	materials *containers.ObjectTable[Material]
	textures  *containers.ObjectTable[Texture]

	camera Camera
	dirty  DirtyFlags

	dirtyPrims     *containers.DedupSet[PrimitiveHandle]
	dirtyMaterials *containers.DedupSet[MaterialHandle]
	dirtyTextures  *containers.DedupSet[TextureHandle]

	defaultGeo *geometry.Geometry
}

// New creates a scene holding the default texture, the default material
// and an invisible default cube.
func New(cfg Config) *Scene {
	s := &Scene{
		prims:          containers.NewObjectTable[Primitive]("prims", max(cfg.Prims, 1)),
		lights:         containers.NewObjectTable[Light]("lights", max(cfg.Lights, 1)),
		materials:      containers.NewObjectTable[Material]("materials", max(cfg.Materials, 1)),
		textures:       containers.NewObjectTable[Texture]("textures", max(cfg.Textures, 1)),
		dirtyPrims:     containers.NewDedupSet[PrimitiveHandle](max(cfg.Prims, 1)),
		dirtyMaterials: containers.NewDedupSet[MaterialHandle](max(cfg.Materials, 1)),
		dirtyTextures:  containers.NewDedupSet[TextureHandle](max(cfg.Textures, 1)),
		camera:         newCamera(),
	}

	white := make([]byte, defaultTextureSize*defaultTextureSize*4)
	for i := range white {
		white[i] = 0xff
	}
	tex := s.AddTexture(Texture{Name: "default", Width: defaultTextureSize, Height: defaultTextureSize, Pixels: white})
	mat, err := s.AddMaterial(Material{Color: math.NewVec3One(), Roughness: 1.0})
	if err != nil || tex != NullTexture || mat != NullMaterial {
		core.LogFatal("scene: default objects not created at the null handles")
	}

	s.defaultGeo = geometry.NewCube(1, 1, 1, 1, 1, geometry.DefaultName)
	prim, err := s.AddPrim(s.defaultGeo, math.NewMat4Identity(), NullMaterial)
	if err != nil {
		core.LogFatal("scene: creating default primitive: %v", err)
	}
	if err := s.SetPrimVisibility(prim, 0); err != nil {
		core.LogFatal("scene: hiding default primitive: %v", err)
	}

	s.dirty |= DirtyCameraView | DirtyCameraProj
	return s
}

// DefaultGeometry returns the cube used by the default primitive.
func (s *Scene) DefaultGeometry() *geometry.Geometry {
	return s.defaultGeo
}

func (s *Scene) DirtyFlags() DirtyFlags {
	return s.dirty
}

// DirtyPrimitives returns each primitive changed since the last EndFrame
// once. The slice is only valid until the next mutation.
func (s *Scene) DirtyPrimitives() []PrimitiveHandle {
	return s.dirtyPrims.Values()
}

func (s *Scene) DirtyMaterials() []MaterialHandle {
	return s.dirtyMaterials.Values()
}

func (s *Scene) DirtyTextures() []TextureHandle {
	return s.dirtyTextures.Values()
}

// EndFrame physically removes objects flagged for removal, resetting
// references to them first, then clears all dirt.
func (s *Scene) EndFrame() {
	for _, th := range s.dirtyTextures.Values() {
		t, err := s.textures.Get(containers.Handle(th))
		if err != nil || t.Flags&TextureRemoved == 0 {
			continue
		}
		s.materials.Each(func(_ containers.Handle, m *Material) bool {
			for _, slot := range m.textureSlots() {
				if *slot == th {
					*slot = NullTexture
				}
			}
			return true
		})
		if err := s.textures.Remove(containers.Handle(th)); err != nil {
			core.LogError("scene: removing texture %v: %v", th, err)
		}
	}

	for _, mh := range s.dirtyMaterials.Values() {
		m, err := s.materials.Get(containers.Handle(mh))
		if err != nil || m.Flags&MaterialRemoved == 0 {
			continue
		}
		s.prims.Each(func(_ containers.Handle, p *Primitive) bool {
			if p.Material == mh {
				p.Material = NullMaterial
			}
			return true
		})
		if err := s.materials.Remove(containers.Handle(mh)); err != nil {
			core.LogError("scene: removing material %v: %v", mh, err)
		}
	}

	for _, ph := range s.dirtyPrims.Values() {
		p, err := s.prims.Get(containers.Handle(ph))
		if err != nil || p.Flags&PrimRemoved == 0 {
			continue
		}
		if err := s.prims.Remove(containers.Handle(ph)); err != nil {
			core.LogError("scene: removing primitive %v: %v", ph, err)
		}
	}

	s.prims.Each(func(_ containers.Handle, p *Primitive) bool {
		p.Flags = 0
		return true
	})
	s.materials.Each(func(_ containers.Handle, m *Material) bool {
		m.Flags = 0
		return true
	})
	s.textures.Each(func(_ containers.Handle, t *Texture) bool {
		t.Flags = 0
		return true
	})

	s.dirty = 0
	s.dirtyPrims.Clear()
	s.dirtyMaterials.Clear()
	s.dirtyTextures.Clear()
}

func lookup[T any](table *containers.ObjectTable[T], h containers.Handle, kind string) (*T, error) {
	v, err := table.Get(h)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "%s %v", kind, h), ErrInvalidHandle)
	}
	return v, nil
}
