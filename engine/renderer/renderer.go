package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/onyx/engine/core"
	"github.com/spaghettifunk/onyx/engine/geometry"
	"github.com/spaghettifunk/onyx/engine/memory"
	"github.com/spaghettifunk/onyx/engine/scene"
)

// FrameStats summarises what one Sync consumed from the scene.
type FrameStats struct {
	Frame            uint64
	CameraChanged    bool
	LightsChanged    bool
	TexturesUploaded int
	TexturesReleased int
	GeometryUploaded int
	PrimsRemoved     int
	// DrawCount is the number of primitives visible to the camera.
	DrawCount  int
	LightCount int
}

// Renderer keeps GPU copies of scene resources in step with the scene's
// dirt. It must be synced once per frame, before Scene.EndFrame.
type Renderer struct {
	mgr        *memory.Manager
	geoMemType memory.MemoryType
	texMemType memory.MemoryType

	textures map[scene.TextureHandle]*memory.Image
	// geometry uploaded here rather than by its owner.
	owned map[*geometry.Geometry]struct{}
	// orphans lost a prim last frame; they are released on the next Sync
	// unless a live prim still draws them.
	orphans []*geometry.Geometry
	frame   uint64
}

func New(mgr *memory.Manager, geoMemType, texMemType memory.MemoryType) *Renderer {
	return &Renderer{
		mgr:        mgr,
		geoMemType: geoMemType,
		texMemType: texMemType,
		textures:   make(map[scene.TextureHandle]*memory.Image),
		owned:      make(map[*geometry.Geometry]struct{}),
	}
}

// TextureImage returns the image backing a scene texture.
func (r *Renderer) TextureImage(h scene.TextureHandle) (*memory.Image, bool) {
	img, ok := r.textures[h]
	return img, ok
}

// Sync consumes the dirt of s. Textures are (re)allocated or released
// and primitives whose geometry is not resident yet get it uploaded.
func (r *Renderer) Sync(s *scene.Scene) (FrameStats, error) {
	r.frame++
	if err := r.releaseOrphans(s); err != nil {
		return FrameStats{Frame: r.frame}, err
	}
	dirty := s.DirtyFlags()
	stats := FrameStats{
		Frame:         r.frame,
		CameraChanged: dirty&(scene.DirtyCameraView|scene.DirtyCameraProj) != 0,
		LightsChanged: dirty.Has(scene.DirtyLights),
	}

	if dirty.Has(scene.DirtyTextures) {
		for _, th := range s.DirtyTextures() {
			uploaded, released, err := r.syncTexture(s, th)
			if err != nil {
				return stats, err
			}
			stats.TexturesUploaded += uploaded
			stats.TexturesReleased += released
		}
	}

	if dirty.Has(scene.DirtyPrims) {
		for _, ph := range s.DirtyPrimitives() {
			p, err := s.Prim(ph)
			if err != nil {
				continue
			}
			if p.Flags&scene.PrimRemoved != 0 {
				stats.PrimsRemoved++
				if _, ok := r.owned[p.Geo]; ok {
					delete(r.owned, p.Geo)
					r.orphans = append(r.orphans, p.Geo)
				}
				continue
			}
			if p.Flags&(scene.PrimAdded|scene.PrimTopologyChanged) == 0 || p.Geo == nil || p.Geo.Uploaded() {
				continue
			}
			if err := p.Geo.Upload(r.mgr, r.geoMemType); err != nil {
				return stats, errors.Wrapf(err, "uploading geometry %q", p.Geo.Name)
			}
			r.owned[p.Geo] = struct{}{}
			stats.GeometryUploaded++
		}
	}

	for _, ph := range s.Prims() {
		p, err := s.Prim(ph)
		if err != nil || p.Flags&scene.PrimRemoved != 0 {
			continue
		}
		if p.Visibility&scene.VisibleCamera != 0 {
			stats.DrawCount++
		}
	}
	stats.LightCount = len(s.Lights())
	return stats, nil
}

// releaseOrphans runs after the EndFrame that dropped the removed prims.
func (r *Renderer) releaseOrphans(s *scene.Scene) error {
	if len(r.orphans) == 0 {
		return nil
	}
	live := make(map[*geometry.Geometry]struct{})
	for _, ph := range s.Prims() {
		if p, err := s.Prim(ph); err == nil && p.Flags&scene.PrimRemoved == 0 {
			live[p.Geo] = struct{}{}
		}
	}
	var errs error
	for _, geo := range r.orphans {
		if _, ok := live[geo]; ok {
			r.owned[geo] = struct{}{}
			continue
		}
		errs = errors.CombineErrors(errs, geo.Release(r.mgr))
	}
	r.orphans = r.orphans[:0]
	return errs
}

func (r *Renderer) syncTexture(s *scene.Scene, th scene.TextureHandle) (uploaded, released int, err error) {
	t, err := s.Texture(th)
	if err != nil {
		return 0, 0, nil
	}
	if old, ok := r.textures[th]; ok && t.Flags&(scene.TextureRemoved|scene.TextureChanged) != 0 {
		if err := r.mgr.TryFreeImage(old); err != nil {
			return 0, 0, errors.Wrapf(err, "releasing texture %q", t.Name)
		}
		delete(r.textures, th)
		released++
	}
	if t.Flags&scene.TextureRemoved != 0 {
		return uploaded, released, nil
	}
	if _, ok := r.textures[th]; ok {
		return uploaded, released, nil
	}

	img, err := r.mgr.TryRequestImage(memory.ImageInfo{
		Width:     t.Width,
		Height:    t.Height,
		Format:    memory.FormatR8G8B8A8Srgb,
		Usage:     memory.ImageUsageSampled | memory.ImageUsageTransferDst,
		Aspect:    memory.AspectColor,
		Samples:   1,
		MipLevels: 1,
	}, r.texMemType)
	if err != nil {
		return uploaded, released, errors.Wrapf(err, "allocating texture %q", t.Name)
	}
	r.textures[th] = img
	core.LogDebug("renderer: texture %q resident at offset %d (%d bytes)", t.Name, img.Offset, img.Size)
	return uploaded + 1, released, nil
}

// Shutdown releases every image and every geometry uploaded by Sync.
func (r *Renderer) Shutdown() error {
	var errs error
	for th, img := range r.textures {
		errs = errors.CombineErrors(errs, r.mgr.TryFreeImage(img))
		delete(r.textures, th)
	}
	for geo := range r.owned {
		errs = errors.CombineErrors(errs, geo.Release(r.mgr))
		delete(r.owned, geo)
	}
	for _, geo := range r.orphans {
		errs = errors.CombineErrors(errs, geo.Release(r.mgr))
	}
	r.orphans = nil
	return errs
}
