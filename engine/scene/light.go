package scene

import (
	"github.com/spaghettifunk/onyx/engine/containers"
)

// Lights have no removal notification: they are removed immediately and
// the renderer refreshes all of them when DirtyLights is set.

func (s *Scene) AddLight(l Light) LightHandle {
	h := LightHandle(s.lights.Add(l))
	s.dirty |= DirtyLights
	return h
}

func (s *Scene) RemoveLight(h LightHandle) error {
	if _, err := lookup(s.lights, containers.Handle(h), "light"); err != nil {
		return err
	}
	if err := s.lights.Remove(containers.Handle(h)); err != nil {
		return err
	}
	s.dirty |= DirtyLights
	return nil
}

// UpdateLight applies fn to the light in place.
func (s *Scene) UpdateLight(h LightHandle, fn func(l *Light)) error {
	l, err := lookup(s.lights, containers.Handle(h), "light")
	if err != nil {
		return err
	}
	fn(l)
	s.dirty |= DirtyLights
	return nil
}

func (s *Scene) Light(h LightHandle) (Light, error) {
	l, err := lookup(s.lights, containers.Handle(h), "light")
	if err != nil {
		return Light{}, err
	}
	return *l, nil
}

func (s *Scene) Lights() []LightHandle {
	out := make([]LightHandle, 0, s.lights.Len())
	for _, h := range s.lights.Handles() {
		out = append(out, LightHandle(h))
	}
	return out
}
