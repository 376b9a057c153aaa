package assets

import (
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/onyx/engine/assets/loaders"
	"github.com/spaghettifunk/onyx/engine/core"
	"github.com/spaghettifunk/onyx/engine/geometry"
	"github.com/spaghettifunk/onyx/engine/math"
	"github.com/spaghettifunk/onyx/engine/memory"
	"github.com/spaghettifunk/onyx/engine/scene"
	"github.com/spaghettifunk/onyx/engine/systems"
)

// generation is everything one Apply added to a scene.
type generation struct {
	textures   map[string]scene.TextureHandle
	materials  map[string]scene.MaterialHandle
	prims      map[string]scene.PrimitiveHandle
	lights     map[string]scene.LightHandle
	geometries []*geometry.Geometry
}

func newGeneration() *generation {
	return &generation{
		textures:  map[string]scene.TextureHandle{},
		materials: map[string]scene.MaterialHandle{},
		prims:     map[string]scene.PrimitiveHandle{},
		lights:    map[string]scene.LightHandle{},
	}
}

// Loader populates a scene from a scene file. Applying the file again
// replaces the objects of the previous Apply.
type Loader struct {
	path           string
	memType        memory.MemoryType
	maxTextureSize int
	jobs           *systems.JobSystem

	current *generation
	// retired geometry is still referenced by primitives pending removal
	// until the scene's next EndFrame.
	retired []*geometry.Geometry
}

// NewLoader creates a loader for path. Geometry is uploaded to memType
// when Apply gets a manager.
func NewLoader(path string, memType memory.MemoryType) *Loader {
	return &Loader{
		path:           path,
		memType:        memType,
		maxTextureSize: loaders.DefaultMaxTextureSize,
	}
}

// SetJobSystem makes Apply decode texture files on js.
func (l *Loader) SetJobSystem(js *systems.JobSystem) {
	l.jobs = js
}

func (l *Loader) Path() string {
	return l.path
}

func (l *Loader) Texture(name string) (scene.TextureHandle, bool) {
	if l.current == nil {
		return scene.TextureHandle{}, false
	}
	h, ok := l.current.textures[name]
	return h, ok
}

func (l *Loader) Material(name string) (scene.MaterialHandle, bool) {
	if l.current == nil {
		return scene.MaterialHandle{}, false
	}
	h, ok := l.current.materials[name]
	return h, ok
}

func (l *Loader) Prim(name string) (scene.PrimitiveHandle, bool) {
	if l.current == nil {
		return scene.PrimitiveHandle{}, false
	}
	h, ok := l.current.prims[name]
	return h, ok
}

func (l *Loader) Light(name string) (scene.LightHandle, bool) {
	if l.current == nil {
		return scene.LightHandle{}, false
	}
	h, ok := l.current.lights[name]
	return h, ok
}

// Apply reads the scene file and adds its objects to s. The objects of a
// previous Apply are removed once the new ones are all in place; when any
// step fails the previous objects stay untouched. mgr may be nil, in which
// case geometry stays on the CPU.
func (l *Loader) Apply(s *scene.Scene, mgr *memory.Manager) error {
	sf, err := loaders.LoadSceneFile(l.path)
	if err != nil {
		return err
	}
	pixels, err := l.loadTextures(sf)
	if err != nil {
		return err
	}
	geos, err := l.uploadGeometry(sf, mgr)
	if err != nil {
		return err
	}

	gen := newGeneration()
	gen.geometries = geos
	if err := l.addGeneration(s, sf, pixels, gen); err != nil {
		l.retire(s, gen)
		return err
	}

	if l.current != nil {
		l.retire(s, l.current)
	}
	l.current = gen

	if c := sf.Camera; c != nil {
		s.UpdateCameraLookAt(vec3(c.Position), vec3(c.Target), math.NewVec3Up())
		cam := s.Camera()
		s.SetCameraPerspective(math.DegToRad(c.Fov), cam.Aspect, c.Near, c.Far)
	}

	core.LogInfo("applied %s: %d textures, %d materials, %d prims, %d lights",
		filepath.Base(l.path), len(gen.textures), len(gen.materials), len(gen.prims), len(gen.lights))
	return nil
}

// uploadGeometry builds the geometry of every prim. On error the geometry
// uploaded so far is released.
func (l *Loader) uploadGeometry(sf *loaders.SceneFile, mgr *memory.Manager) ([]*geometry.Geometry, error) {
	geos := make([]*geometry.Geometry, 0, len(sf.Prims))
	for _, pd := range sf.Prims {
		geo := buildGeometry(pd)
		if mgr != nil {
			if err := geo.Upload(mgr, l.memType); err != nil {
				for _, g := range geos {
					_ = g.Release(mgr)
				}
				return nil, errors.Wrapf(err, "prim %q", pd.Name)
			}
		}
		geos = append(geos, geo)
	}
	return geos, nil
}

func (l *Loader) addGeneration(s *scene.Scene, sf *loaders.SceneFile, pixels []*loaders.TextureData, gen *generation) error {
	for i, td := range sf.Textures {
		tex := pixels[i]
		gen.textures[td.Name] = s.AddTexture(scene.Texture{
			Name:   td.Name,
			Width:  tex.Width,
			Height: tex.Height,
			Pixels: tex.Pixels,
		})
	}

	for _, md := range sf.Materials {
		h, err := s.AddMaterial(scene.Material{
			Color:            vec3(md.Color),
			Roughness:        md.Roughness,
			TextureAlbedo:    gen.texture(md.Albedo),
			TextureRoughness: gen.texture(md.RoughMap),
			TextureNormal:    gen.texture(md.Normal),
		})
		if err != nil {
			return errors.Wrapf(err, "material %q", md.Name)
		}
		gen.materials[md.Name] = h
	}

	for i, pd := range sf.Prims {
		material := scene.NullMaterial
		if pd.Material != "" {
			material = gen.materials[pd.Material]
		}
		h, err := s.AddPrim(gen.geometries[i], primXform(pd), material)
		if err != nil {
			return errors.Wrapf(err, "prim %q", pd.Name)
		}
		gen.prims[pd.Name] = h
		vis := scene.VisibleAll
		if pd.Hidden {
			vis &^= scene.VisibleCamera
		}
		if pd.NoShadow {
			vis &^= scene.VisibleShadow
		}
		if vis != scene.VisibleAll {
			if err := s.SetPrimVisibility(h, vis); err != nil {
				return errors.Wrapf(err, "prim %q", pd.Name)
			}
		}
	}

	for _, ld := range sf.Lights {
		light := scene.Light{
			Type:      scene.LightPoint,
			Color:     vec3(ld.Color),
			Intensity: ld.Intensity,
			Position:  vec3(ld.Position),
			Direction: vec3(ld.Direction).Normalized(),
		}
		if ld.Type == loaders.LightDirectional {
			light.Type = scene.LightDirection
		}
		gen.lights[ld.Name] = s.AddLight(light)
	}
	return nil
}

func (l *Loader) loadTextures(sf *loaders.SceneFile) ([]*loaders.TextureData, error) {
	out := make([]*loaders.TextureData, len(sf.Textures))
	var decode []func() error
	for i, td := range sf.Textures {
		if td.Path == "" {
			out[i] = loaders.SolidTexture(td.Size, td.Color)
			continue
		}
		path := td.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(filepath.Dir(l.path), path)
		}
		decode = append(decode, func() error {
			tex, err := loaders.LoadTexture(path, l.maxTextureSize, td.FlipY)
			if err != nil {
				return errors.Wrapf(err, "texture %q", td.Name)
			}
			out[i] = tex
			return nil
		})
	}

	if l.jobs != nil && len(decode) > 1 {
		if err := l.jobs.RunAll(decode...); err != nil {
			return nil, err
		}
		return out, nil
	}
	for _, fn := range decode {
		if err := fn(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// retire removes the objects of gen from s. Its geometry is released by
// the next Collect, once the prims referencing it are gone.
func (l *Loader) retire(s *scene.Scene, gen *generation) {
	for name, h := range gen.prims {
		if err := s.RemovePrim(h); err != nil {
			core.LogWarn("removing prim %q: %v", name, err)
		}
	}
	for name, h := range gen.materials {
		if err := s.RemoveMaterial(h); err != nil {
			core.LogWarn("removing material %q: %v", name, err)
		}
	}
	for name, h := range gen.textures {
		if err := s.RemoveTexture(h); err != nil {
			core.LogWarn("removing texture %q: %v", name, err)
		}
	}
	for name, h := range gen.lights {
		if err := s.RemoveLight(h); err != nil {
			core.LogWarn("removing light %q: %v", name, err)
		}
	}
	l.retired = append(l.retired, gen.geometries...)
	if gen == l.current {
		l.current = nil
	}
}

// Collect releases geometry of replaced generations. Call it after the
// scene's EndFrame.
func (l *Loader) Collect(mgr *memory.Manager) error {
	var errs error
	if mgr != nil {
		for _, g := range l.retired {
			errs = errors.CombineErrors(errs, g.Release(mgr))
		}
	}
	l.retired = nil
	return errs
}

// Unload removes every object of the current generation from s.
func (l *Loader) Unload(s *scene.Scene) {
	if l.current != nil {
		l.retire(s, l.current)
	}
}

func (g *generation) texture(name string) scene.TextureHandle {
	if name == "" {
		return scene.NullTexture
	}
	return g.textures[name]
}

func vec3(v [3]float32) math.Vec3 {
	return math.NewVec3(v[0], v[1], v[2])
}

func buildGeometry(pd loaders.PrimDesc) *geometry.Geometry {
	if pd.Shape == loaders.ShapePlane {
		return geometry.NewPlane(pd.Size[0], pd.Size[1], pd.Segments[0], pd.Segments[1], pd.Tile[0], pd.Tile[1], pd.Name)
	}
	return geometry.NewCube(pd.Size[0], pd.Size[1], pd.Size[2], pd.Tile[0], pd.Tile[1], pd.Name)
}

func primXform(pd loaders.PrimDesc) math.Mat4 {
	rot := math.NewQuatFromEulerXYZ(
		math.DegToRad(pd.Rotation[0]),
		math.DegToRad(pd.Rotation[1]),
		math.DegToRad(pd.Rotation[2]),
	)
	return math.NewTransformFrom(vec3(pd.Position), rot, vec3(pd.Scale)).LocalMatrix()
}
