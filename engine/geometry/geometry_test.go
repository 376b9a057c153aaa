package geometry

import (
	"encoding/binary"
	stdmath "math"
	"testing"

	"github.com/spaghettifunk/onyx/engine/math"
	"github.com/spaghettifunk/onyx/engine/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCube(t *testing.T) {
	g := NewCube(2, 4, 6, 1, 1, "")
	assert.Equal(t, DefaultName, g.Name)
	assert.Len(t, g.Vertices, 24)
	assert.Len(t, g.Indices, 36)
	assert.True(t, g.Extents.Min.Compare(math.NewVec3(-1, -2, -3), 1e-6))
	assert.True(t, g.Extents.Max.Compare(math.NewVec3(1, 2, 3), 1e-6))

	// Every triangle winds counter-clockwise around its face normal.
	for i := 0; i < len(g.Indices); i += 3 {
		a, b, c := g.Vertices[g.Indices[i]], g.Vertices[g.Indices[i+1]], g.Vertices[g.Indices[i+2]]
		n := b.Position.Sub(a.Position).Cross(c.Position.Sub(a.Position)).Normalized()
		assert.True(t, n.Compare(a.Normal, 1e-5), "triangle %d", i/3)
	}
}

func TestNewPlane(t *testing.T) {
	g := NewPlane(10, 10, 2, 3, 1, 1, "floor")
	assert.Len(t, g.Vertices, 2*3*4)
	assert.Len(t, g.Indices, 2*3*6)
	assert.True(t, g.Center.Compare(math.NewVec3Zero(), 1e-5))
	assert.True(t, g.Extents.Max.Compare(math.NewVec3(5, 5, 0), 1e-5))
}

func newManager(t *testing.T) *memory.Manager {
	t.Helper()
	m, err := memory.NewManager(memory.NewHostDevice(memory.DefaultLimits), memory.Budgets{
		memory.HostGraphics: 1 << 16,
		memory.HostTransfer: 1 << 16,
		memory.DeviceLocal:  1 << 16,
	})
	require.NoError(t, err)
	t.Cleanup(m.Shutdown)
	return m
}

func TestUploadHostVisible(t *testing.T) {
	m := newManager(t)
	g := NewCube(1, 1, 1, 1, 1, "cube")

	require.NoError(t, g.Upload(m, memory.HostGraphics))
	require.True(t, g.Uploaded())
	assert.Equal(t, uint64(24*60), g.VertexRegion.Size)
	assert.Equal(t, uint64(36*4), g.IndexRegion.Size)

	first := binary.LittleEndian.Uint32(g.VertexRegion.HostData[0:4])
	assert.Equal(t, g.Vertices[0].Position.X, stdmath.Float32frombits(first))
	assert.Equal(t, g.Indices[1], binary.LittleEndian.Uint32(g.IndexRegion.HostData[4:8]))

	assert.Error(t, g.Upload(m, memory.HostGraphics))

	require.NoError(t, g.Release(m))
	assert.False(t, g.Uploaded())
	stats, err := m.Stats(memory.HostGraphics)
	require.NoError(t, err)
	assert.Zero(t, stats.UsedSize)
}

func TestUploadDeviceLocal(t *testing.T) {
	m := newManager(t)
	g := NewPlane(1, 1, 1, 1, 1, 1, "quad")

	require.NoError(t, g.Upload(m, memory.DeviceLocal))
	assert.Nil(t, g.VertexRegion.HostData)

	staging, err := m.Stats(memory.HostTransfer)
	require.NoError(t, err)
	assert.Zero(t, staging.UsedSize)

	require.NoError(t, g.Release(m))
}
