package loaders

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
)

var ErrInvalidSceneFile = errors.New("invalid scene file")

// SceneFile is the TOML description of a scene. Objects refer to each
// other by name.
type SceneFile struct {
	Camera    *CameraDesc    `toml:"camera"`
	Textures  []TextureDesc  `toml:"texture"`
	Materials []MaterialDesc `toml:"material"`
	Prims     []PrimDesc     `toml:"prim"`
	Lights    []LightDesc    `toml:"light"`
}

// TextureDesc loads Path when set, otherwise it is a solid Color.
type TextureDesc struct {
	Name  string     `toml:"name"`
	Path  string     `toml:"path"`
	Color [4]float32 `toml:"color"`
	Size  uint32     `toml:"size"`
	FlipY bool       `toml:"flip_y"`
}

type MaterialDesc struct {
	Name      string     `toml:"name"`
	Color     [3]float32 `toml:"color"`
	Roughness float32    `toml:"roughness"`
	Albedo    string     `toml:"albedo"`
	RoughMap  string     `toml:"roughness_map"`
	Normal    string     `toml:"normal"`
}

type PrimDesc struct {
	Name     string     `toml:"name"`
	Shape    string     `toml:"shape"`
	Size     [3]float32 `toml:"size"`
	Segments [2]uint32  `toml:"segments"`
	Tile     [2]float32 `toml:"tile"`
	Position [3]float32 `toml:"position"`
	// Rotation is XYZ euler angles in degrees.
	Rotation [3]float32 `toml:"rotation"`
	Scale    [3]float32 `toml:"scale"`
	Material string     `toml:"material"`
	Hidden   bool       `toml:"hidden"`
	NoShadow bool       `toml:"no_shadow"`
}

type LightDesc struct {
	Name      string     `toml:"name"`
	Type      string     `toml:"type"`
	Color     [3]float32 `toml:"color"`
	Intensity float32    `toml:"intensity"`
	Position  [3]float32 `toml:"position"`
	Direction [3]float32 `toml:"direction"`
}

type CameraDesc struct {
	Position [3]float32 `toml:"position"`
	Target   [3]float32 `toml:"target"`
	// Fov is the vertical field of view in degrees.
	Fov  float32 `toml:"fov"`
	Near float32 `toml:"near"`
	Far  float32 `toml:"far"`
}

const (
	ShapeCube  = "cube"
	ShapePlane = "plane"

	LightPoint       = "point"
	LightDirectional = "directional"
)

func LoadSceneFile(path string) (*SceneFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening scene file %s", path)
	}
	defer f.Close()
	sf, err := ParseSceneFile(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrapf(err, "scene file %s", path)
	}
	return sf, nil
}

// ParseSceneFile decodes and validates a scene description. Unnamed
// objects get a random name.
func ParseSceneFile(r io.Reader) (*SceneFile, error) {
	sf := &SceneFile{}
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(sf); err != nil {
		return nil, errors.Wrap(err, "decoding")
	}
	sf.fillDefaults()
	if err := sf.validate(); err != nil {
		return nil, err
	}
	return sf, nil
}

func newName(kind string) string {
	return kind + "-" + uuid.NewString()
}

var one3 = [3]float32{1, 1, 1}

func (sf *SceneFile) fillDefaults() {
	for i := range sf.Textures {
		t := &sf.Textures[i]
		if t.Name == "" {
			t.Name = newName("texture")
		}
		if t.Path == "" && t.Color == [4]float32{} {
			t.Color = [4]float32{1, 1, 1, 1}
		}
	}
	for i := range sf.Materials {
		m := &sf.Materials[i]
		if m.Name == "" {
			m.Name = newName("material")
		}
		if m.Color == [3]float32{} {
			m.Color = one3
		}
	}
	for i := range sf.Prims {
		p := &sf.Prims[i]
		if p.Name == "" {
			p.Name = newName("prim")
		}
		p.Shape = strings.ToLower(p.Shape)
		if p.Shape == "" {
			p.Shape = ShapeCube
		}
		if p.Size == [3]float32{} {
			p.Size = one3
		}
		if p.Scale == [3]float32{} {
			p.Scale = one3
		}
		if p.Tile == [2]float32{} {
			p.Tile = [2]float32{1, 1}
		}
	}
	for i := range sf.Lights {
		l := &sf.Lights[i]
		if l.Name == "" {
			l.Name = newName("light")
		}
		l.Type = strings.ToLower(l.Type)
		if l.Type == "" {
			l.Type = LightPoint
		}
		if l.Color == [3]float32{} {
			l.Color = one3
		}
		if l.Intensity == 0 {
			l.Intensity = 1
		}
	}
	if c := sf.Camera; c != nil {
		if c.Fov == 0 {
			c.Fov = 45
		}
		if c.Near == 0 {
			c.Near = 0.01
		}
		if c.Far == 0 {
			c.Far = 100
		}
	}
}

func (sf *SceneFile) validate() error {
	textures := map[string]bool{}
	for _, t := range sf.Textures {
		if textures[t.Name] {
			return errors.Wrapf(ErrInvalidSceneFile, "duplicate texture %q", t.Name)
		}
		textures[t.Name] = true
	}
	materials := map[string]bool{}
	for _, m := range sf.Materials {
		if materials[m.Name] {
			return errors.Wrapf(ErrInvalidSceneFile, "duplicate material %q", m.Name)
		}
		materials[m.Name] = true
		for _, ref := range []string{m.Albedo, m.RoughMap, m.Normal} {
			if ref != "" && !textures[ref] {
				return errors.Wrapf(ErrInvalidSceneFile, "material %q uses unknown texture %q", m.Name, ref)
			}
		}
	}
	prims := map[string]bool{}
	for _, p := range sf.Prims {
		if prims[p.Name] {
			return errors.Wrapf(ErrInvalidSceneFile, "duplicate prim %q", p.Name)
		}
		prims[p.Name] = true
		if p.Shape != ShapeCube && p.Shape != ShapePlane {
			return errors.Wrapf(ErrInvalidSceneFile, "prim %q has unknown shape %q", p.Name, p.Shape)
		}
		if p.Material != "" && !materials[p.Material] {
			return errors.Wrapf(ErrInvalidSceneFile, "prim %q uses unknown material %q", p.Name, p.Material)
		}
	}
	for _, l := range sf.Lights {
		if l.Type != LightPoint && l.Type != LightDirectional {
			return errors.Wrapf(ErrInvalidSceneFile, "light %q has unknown type %q", l.Name, l.Type)
		}
	}
	if c := sf.Camera; c != nil && c.Position == c.Target {
		return errors.Wrap(ErrInvalidSceneFile, "camera position equals target")
	}
	return nil
}
