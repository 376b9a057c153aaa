package scene

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/onyx/engine/containers"
	"github.com/spaghettifunk/onyx/engine/geometry"
	"github.com/spaghettifunk/onyx/engine/math"
)

func (s *Scene) prim(h PrimitiveHandle) (*Primitive, error) {
	return lookup(s.prims, containers.Handle(h), "primitive")
}

// livePrim is prim for mutations, which are refused once removal is pending.
func (s *Scene) livePrim(h PrimitiveHandle) (*Primitive, error) {
	p, err := s.prim(h)
	if err != nil {
		return nil, err
	}
	if p.Flags&PrimRemoved != 0 {
		return nil, errors.Wrapf(ErrPendingRemoval, "primitive %v", h)
	}
	return p, nil
}

func (s *Scene) markPrim(h PrimitiveHandle, flags PrimFlags, dirty DirtyFlags) {
	if p, err := s.prims.Get(containers.Handle(h)); err == nil {
		p.Flags |= flags
	}
	s.dirty |= dirty
	s.dirtyPrims.Add(h)
}

// AddPrim places geo in the scene. geo stays owned by the caller.
func (s *Scene) AddPrim(geo *geometry.Geometry, xform math.Mat4, material MaterialHandle) (PrimitiveHandle, error) {
	if geo == nil {
		return PrimitiveHandle{}, errors.New("nil geometry")
	}
	if _, err := s.material(material); err != nil {
		return PrimitiveHandle{}, err
	}
	h := PrimitiveHandle(s.prims.Add(Primitive{
		Geo:        geo,
		Xform:      xform,
		Material:   material,
		Visibility: VisibleAll,
	}))
	s.markPrim(h, PrimAdded, DirtyPrims)
	return h, nil
}

// RemovePrim flags the primitive for removal at the next EndFrame. The
// geometry is not released.
func (s *Scene) RemovePrim(h PrimitiveHandle) error {
	p, err := s.prim(h)
	if err != nil {
		return err
	}
	if p.Flags&PrimRemoved != 0 {
		return nil
	}
	s.markPrim(h, PrimRemoved, DirtyPrims)
	return nil
}

// PrimGeo returns the geometry of a primitive for editing and flags its
// topology as changed.
func (s *Scene) PrimGeo(h PrimitiveHandle) (*geometry.Geometry, error) {
	p, err := s.livePrim(h)
	if err != nil {
		return nil, err
	}
	s.markPrim(h, PrimTopologyChanged, DirtyPrims)
	return p.Geo, nil
}

// UpdatePrimXform composes delta onto the current transform.
func (s *Scene) UpdatePrimXform(h PrimitiveHandle, delta math.Mat4) error {
	p, err := s.livePrim(h)
	if err != nil {
		return err
	}
	p.Xform = p.Xform.Mul(delta)
	s.markPrim(h, 0, DirtyXforms)
	return nil
}

// SetPrimXform replaces the transform.
func (s *Scene) SetPrimXform(h PrimitiveHandle, xform math.Mat4) error {
	p, err := s.livePrim(h)
	if err != nil {
		return err
	}
	p.Xform = xform
	s.markPrim(h, 0, DirtyXforms)
	return nil
}

func (s *Scene) SetPrimMaterial(h PrimitiveHandle, material MaterialHandle) error {
	p, err := s.livePrim(h)
	if err != nil {
		return err
	}
	if _, err := s.material(material); err != nil {
		return err
	}
	p.Material = material
	s.markPrim(h, PrimMaterialChanged, DirtyPrims)
	return nil
}

func (s *Scene) SetPrimVisibility(h PrimitiveHandle, v Visibility) error {
	p, err := s.livePrim(h)
	if err != nil {
		return err
	}
	p.Visibility = v
	s.markPrim(h, 0, DirtyPrims)
	return nil
}

// Prim returns a copy of the primitive, including ones pending removal.
func (s *Scene) Prim(h PrimitiveHandle) (Primitive, error) {
	p, err := s.prim(h)
	if err != nil {
		return Primitive{}, err
	}
	return *p, nil
}

// Prims returns the handles of all primitives in storage order.
func (s *Scene) Prims() []PrimitiveHandle {
	out := make([]PrimitiveHandle, 0, s.prims.Len())
	for _, h := range s.prims.Handles() {
		out = append(out, PrimitiveHandle(h))
	}
	return out
}

func (s *Scene) PrimCount() int {
	return s.prims.Len()
}
