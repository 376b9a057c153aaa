package scene

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/onyx/engine/containers"
)

func (s *Scene) material(h MaterialHandle) (*Material, error) {
	return lookup(s.materials, containers.Handle(h), "material")
}

func (s *Scene) checkTextures(m *Material) error {
	for _, slot := range m.textureSlots() {
		if _, err := s.texture(*slot); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scene) markMaterial(h MaterialHandle, m *Material, flags MaterialFlags) {
	m.Flags |= flags
	s.dirty |= DirtyMaterials
	s.dirtyMaterials.Add(h)
}

// AddMaterial stores m. Every texture slot must refer to a live texture;
// NullTexture is always valid.
func (s *Scene) AddMaterial(m Material) (MaterialHandle, error) {
	if err := s.checkTextures(&m); err != nil {
		return MaterialHandle{}, err
	}
	m.Flags = 0
	h := MaterialHandle(s.materials.Add(m))
	stored, _ := s.material(h)
	s.markMaterial(h, stored, MaterialAdded)
	return h, nil
}

// RemoveMaterial flags the material for removal. At the next EndFrame
// primitives using it fall back to NullMaterial.
func (s *Scene) RemoveMaterial(h MaterialHandle) error {
	if h == NullMaterial {
		return errors.Wrap(ErrDefaultObject, "material")
	}
	m, err := s.material(h)
	if err != nil {
		return err
	}
	if m.Flags&MaterialRemoved == 0 {
		s.markMaterial(h, m, MaterialRemoved)
	}
	return nil
}

// UpdateMaterial applies fn to the material in place.
func (s *Scene) UpdateMaterial(h MaterialHandle, fn func(m *Material)) error {
	m, err := s.material(h)
	if err != nil {
		return err
	}
	if m.Flags&MaterialRemoved != 0 {
		return errors.Wrapf(ErrPendingRemoval, "material %v", h)
	}
	updated := *m
	fn(&updated)
	if err := s.checkTextures(&updated); err != nil {
		return err
	}
	updated.Flags = m.Flags
	*m = updated
	s.markMaterial(h, m, MaterialChanged)
	return nil
}

func (s *Scene) Material(h MaterialHandle) (Material, error) {
	m, err := s.material(h)
	if err != nil {
		return Material{}, err
	}
	return *m, nil
}

func (s *Scene) Materials() []MaterialHandle {
	out := make([]MaterialHandle, 0, s.materials.Len())
	for _, h := range s.materials.Handles() {
		out = append(out, MaterialHandle(h))
	}
	return out
}

func (s *Scene) texture(h TextureHandle) (*Texture, error) {
	return lookup(s.textures, containers.Handle(h), "texture")
}

func (s *Scene) markTexture(h TextureHandle, t *Texture, flags TextureFlags) {
	t.Flags |= flags
	s.dirty |= DirtyTextures
	s.dirtyTextures.Add(h)
}

func (s *Scene) AddTexture(t Texture) TextureHandle {
	t.Flags = 0
	h := TextureHandle(s.textures.Add(t))
	stored, _ := s.texture(h)
	s.markTexture(h, stored, TextureAdded)
	return h
}

// RemoveTexture flags the texture for removal. At the next EndFrame every
// material slot referring to it is reset to NullTexture.
func (s *Scene) RemoveTexture(h TextureHandle) error {
	if h == NullTexture {
		return errors.Wrap(ErrDefaultObject, "texture")
	}
	t, err := s.texture(h)
	if err != nil {
		return err
	}
	if t.Flags&TextureRemoved == 0 {
		s.markTexture(h, t, TextureRemoved)
	}
	return nil
}

func (s *Scene) UpdateTexture(h TextureHandle, fn func(t *Texture)) error {
	t, err := s.texture(h)
	if err != nil {
		return err
	}
	if t.Flags&TextureRemoved != 0 {
		return errors.Wrapf(ErrPendingRemoval, "texture %v", h)
	}
	flags := t.Flags
	fn(t)
	t.Flags = flags
	s.markTexture(h, t, TextureChanged)
	return nil
}

func (s *Scene) Texture(h TextureHandle) (Texture, error) {
	t, err := s.texture(h)
	if err != nil {
		return Texture{}, err
	}
	return *t, nil
}

func (s *Scene) Textures() []TextureHandle {
	out := make([]TextureHandle, 0, s.textures.Len())
	for _, h := range s.textures.Handles() {
		out = append(out, TextureHandle(h))
	}
	return out
}
