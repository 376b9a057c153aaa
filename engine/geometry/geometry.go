// Package geometry builds vertex and index data and uploads it through the
// memory manager. Scenes reference geometry but never own it.
package geometry

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/onyx/engine/core"
	"github.com/spaghettifunk/onyx/engine/math"
	"github.com/spaghettifunk/onyx/engine/memory"
)

const DefaultName = "default"

// Geometry is CPU side vertex and index data plus the regions it was
// uploaded to, if any.
type Geometry struct {
	Name     string
	Vertices []math.Vertex3D
	Indices  []uint32
	Extents  math.Extents3D
	Center   math.Vec3

	VertexRegion *memory.BufferRegion
	IndexRegion  *memory.BufferRegion
}

// Uploaded reports whether g currently holds GPU regions.
func (g *Geometry) Uploaded() bool {
	return g.VertexRegion != nil && g.IndexRegion != nil
}

// Upload copies vertices and indices into regions of memType. Memory that
// is not host visible is filled through a host-transfer staging region.
func (g *Geometry) Upload(mgr *memory.Manager, memType memory.MemoryType) error {
	if g.Uploaded() {
		return errors.Newf("geometry %q is already uploaded", g.Name)
	}
	if len(g.Vertices) == 0 || len(g.Indices) == 0 {
		return errors.Wrapf(memory.ErrInvalidSize, "geometry %q has no data", g.Name)
	}

	vertexBytes, err := encode(g.Vertices)
	if err != nil {
		return err
	}
	indexBytes, err := encode(g.Indices)
	if err != nil {
		return err
	}

	vr, err := upload(mgr, vertexBytes, memory.UsageVertexBuffer, memType)
	if err != nil {
		return errors.Wrapf(err, "uploading vertices of %q", g.Name)
	}
	ir, err := upload(mgr, indexBytes, memory.UsageIndexBuffer, memType)
	if err != nil {
		_ = mgr.TryFreeBufferRegion(vr)
		return errors.Wrapf(err, "uploading indices of %q", g.Name)
	}
	g.VertexRegion, g.IndexRegion = vr, ir
	core.LogDebug("geometry %q uploaded to %s: %d vertices, %d indices", g.Name, memType, len(g.Vertices), len(g.Indices))
	return nil
}

// Release frees the regions of an uploaded geometry.
func (g *Geometry) Release(mgr *memory.Manager) error {
	var errs error
	if g.VertexRegion != nil {
		errs = errors.CombineErrors(errs, mgr.TryFreeBufferRegion(g.VertexRegion))
		g.VertexRegion = nil
	}
	if g.IndexRegion != nil {
		errs = errors.CombineErrors(errs, mgr.TryFreeBufferRegion(g.IndexRegion))
		g.IndexRegion = nil
	}
	return errs
}

func encode(data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, data); err != nil {
		return nil, errors.Wrap(err, "encoding geometry")
	}
	return buf.Bytes(), nil
}

func upload(mgr *memory.Manager, data []byte, usage memory.BufferUsage, memType memory.MemoryType) (*memory.BufferRegion, error) {
	size := math.AlignUp(uint64(len(data)), 4)
	if memType.HostVisible() {
		r, err := mgr.TryRequestBufferRegion(size, usage, memType)
		if err != nil {
			return nil, err
		}
		return r, mgr.CopyToRegion(r, data)
	}

	staging, err := mgr.TryRequestBufferRegion(size, memory.UsageTransferSrc, memory.HostTransfer)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = mgr.TryFreeBufferRegion(staging)
	}()
	if err := mgr.CopyToRegion(staging, data); err != nil {
		return nil, err
	}
	r, err := mgr.TryRequestBufferRegion(size, usage|memory.UsageTransferDst, memType)
	if err != nil {
		return nil, err
	}
	if err := mgr.TransferToDevice(staging, r); err != nil {
		_ = mgr.TryFreeBufferRegion(r)
		return nil, err
	}
	return r, nil
}

func (g *Geometry) computeExtents() {
	if len(g.Vertices) == 0 {
		return
	}
	ext := math.Extents3D{Min: g.Vertices[0].Position, Max: g.Vertices[0].Position}
	for _, v := range g.Vertices[1:] {
		p := v.Position
		ext.Min = math.NewVec3(min(ext.Min.X, p.X), min(ext.Min.Y, p.Y), min(ext.Min.Z, p.Z))
		ext.Max = math.NewVec3(max(ext.Max.X, p.X), max(ext.Max.Y, p.Y), max(ext.Max.Z, p.Z))
	}
	g.Extents = ext
	g.Center = ext.Min.Add(ext.Max).MulScalar(0.5)
}

func nonZero(v float32, what string) float32 {
	if v == 0 {
		core.LogWarn("%s must be nonzero. Defaulting to one.", what)
		return 1.0
	}
	return v
}
