package memory

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *HostDevice) {
	t.Helper()
	dev := NewHostDevice(DefaultLimits)
	m, err := NewManager(dev, Budgets{
		HostGraphics: 1 << 16,
		HostTransfer: 1 << 16,
		DeviceLocal:  1 << 20,
	})
	require.NoError(t, err)
	// Surface fatal errors as test failures instead of exiting.
	m.fatal = func(err error) { t.Fatalf("fatal: %+v", err) }
	t.Cleanup(m.Shutdown)
	return m, dev
}

func TestAlignmentFor(t *testing.T) {
	m, _ := newTestManager(t)

	assert.Equal(t, DefaultAlignment, m.AlignmentFor(UsageVertexBuffer))
	assert.Equal(t, uint64(64), m.AlignmentFor(UsageStorageBuffer))
	assert.Equal(t, uint64(64), m.AlignmentFor(UsageUniformBuffer|UsageTransferDst))
	assert.Equal(t, uint64(256), m.AlignmentFor(UsageAccelerationStructureStorage|UsageStorageBuffer))
	assert.Equal(t, uint64(128), m.AlignmentFor(UsageScratchBuffer))
}

func TestRequestBufferRegion(t *testing.T) {
	m, _ := newTestManager(t)

	host := m.RequestBufferRegion(100, UsageVertexBuffer, HostGraphics)
	require.NotNil(t, host)
	assert.Len(t, host.HostData, 100)
	assert.Equal(t, HostGraphics, host.Chain)

	storage := m.RequestBufferRegion(64, UsageStorageBuffer, HostGraphics)
	assert.Zero(t, storage.Offset%64)

	device := m.RequestBufferRegion(256, UsageVertexBuffer, DeviceLocal)
	assert.Nil(t, device.HostData)

	_, err := m.TryRequestBufferRegion(10, UsageVertexBuffer, HostGraphics)
	assert.True(t, errors.Is(err, ErrInvalidSize))

	_, err = m.TryRequestBufferRegion(16, UsageVertexBuffer, DeviceLocalExternal)
	assert.True(t, errors.Is(err, ErrChainUnavailable))

	_, err = m.TryRequestBufferRegion(1<<20, UsageVertexBuffer, HostTransfer)
	assert.True(t, errors.Is(err, ErrInvalidSize))

	_, err = m.TryRequestBufferRegion(1<<15, UsageVertexBuffer, HostTransfer)
	require.NoError(t, err)
	_, err = m.TryRequestBufferRegion(1<<15, UsageVertexBuffer, HostTransfer)
	assert.True(t, errors.Is(err, ErrOutOfMemory))
}

func TestRequestBufferRegionArray(t *testing.T) {
	m, _ := newTestManager(t)

	r := m.RequestBufferRegionArray(20, 10, UsageUniformBuffer, HostGraphics)
	assert.Equal(t, uint64(64), r.Stride)
	assert.Equal(t, uint64(640), r.Size)
	assert.Zero(t, r.Offset%64)
}

func TestResizeInPlace(t *testing.T) {
	m, _ := newTestManager(t)

	// Slack donated by the second request widens the first block.
	a := m.RequestBufferRegionAligned(100, UsageVertexBuffer, HostGraphics, 4)
	m.RequestBufferRegionAligned(16, UsageVertexBuffer, HostGraphics, 128)

	offset := a.Offset
	m.ResizeBufferRegion(a, 120)
	assert.Equal(t, offset, a.Offset)
	assert.Equal(t, uint64(120), a.Size)
	assert.Len(t, a.HostData, 120)
}

func TestResizeMovesHostData(t *testing.T) {
	m, _ := newTestManager(t)

	a := m.RequestBufferRegion(16, UsageVertexBuffer, HostGraphics)
	m.RequestBufferRegion(16, UsageVertexBuffer, HostGraphics)
	require.NoError(t, m.CopyToRegion(a, []byte("0123456789abcdef")))

	oldOffset := a.Offset
	m.ResizeBufferRegion(a, 64)
	assert.NotEqual(t, oldOffset, a.Offset)
	assert.Equal(t, uint64(64), a.Size)
	assert.Equal(t, []byte("0123456789abcdef"), a.HostData[:16])

	c, err := m.Chain(HostGraphics)
	require.NoError(t, err)
	require.NoError(t, c.Validate())
}

func TestResizeUnsupported(t *testing.T) {
	m, _ := newTestManager(t)

	a := m.RequestBufferRegion(64, UsageVertexBuffer, HostGraphics)
	assert.True(t, errors.Is(m.TryResizeBufferRegion(a, 32), ErrUnsupported))

	d := m.RequestBufferRegion(64, UsageVertexBuffer, DeviceLocal)
	m.RequestBufferRegion(64, UsageVertexBuffer, DeviceLocal)
	assert.True(t, errors.Is(m.TryResizeBufferRegion(d, 1024), ErrUnsupported))
}

func TestStaleRegionCannotResize(t *testing.T) {
	m, _ := newTestManager(t)
	r, err := m.TryRequestBufferRegion(64, UsageVertexBuffer, HostGraphics)
	require.NoError(t, err)
	stale := *r
	require.NoError(t, m.TryFreeBufferRegion(r))

	err = m.TryResizeBufferRegion(&stale, 1024)
	assert.True(t, errors.Is(err, ErrBlockNotInUse))

	live, err := m.TryRequestBufferRegion(64, UsageVertexBuffer, HostGraphics)
	require.NoError(t, err)
	assert.Equal(t, stale.Offset, live.Offset)

	err = m.TryResizeBufferRegion(&stale, 1024)
	assert.True(t, errors.Is(err, ErrUnknownBlock))
	assert.Equal(t, uint64(64), stale.Size)
	assert.True(t, errors.Is(m.TryFreeBufferRegion(&stale), ErrUnknownBlock))
}

func TestFreeBufferRegionZeroesHostData(t *testing.T) {
	m, _ := newTestManager(t)

	a := m.RequestBufferRegion(16, UsageVertexBuffer, HostGraphics)
	data := a.HostData
	require.NoError(t, m.CopyToRegion(a, []byte{1, 2, 3, 4}))

	m.FreeBufferRegion(a)
	assert.Equal(t, make([]byte, 16), data)
	assert.Equal(t, BufferRegion{}, *a)

	stats, err := m.Stats(HostGraphics)
	require.NoError(t, err)
	assert.Zero(t, stats.UsedSize)
	assert.Equal(t, 1, stats.Blocks)

	assert.Error(t, m.TryFreeBufferRegion(a))
}

func TestTransferToDevice(t *testing.T) {
	m, dev := newTestManager(t)

	staging := m.RequestBufferRegion(8, UsageTransferSrc, HostTransfer)
	target := m.RequestBufferRegion(16, UsageTransferDst|UsageVertexBuffer, DeviceLocal)
	require.NoError(t, m.CopyToRegion(staging, []byte{9, 8, 7, 6, 5, 4, 3, 2}))
	require.NoError(t, m.TransferToDevice(staging, target))

	c, err := m.Chain(DeviceLocal)
	require.NoError(t, err)
	raw := dev.DeviceData(c.Backing())
	assert.Equal(t, []byte{9, 8, 7, 6, 5, 4, 3, 2}, raw[target.Offset:target.Offset+8])

	assert.True(t, errors.Is(m.TransferToDevice(target, staging), ErrNotHostVisible))
	assert.True(t, errors.Is(m.CopyToRegion(target, []byte{1}), ErrNotHostVisible))
}

func TestImages(t *testing.T) {
	m, dev := newTestManager(t)

	info := ImageInfo{
		Width: 64, Height: 32,
		Format:    FormatR8G8B8A8Unorm,
		Usage:     ImageUsageSampled | ImageUsageTransferDst,
		Aspect:    AspectColor,
		Samples:   1,
		MipLevels: 1,
	}
	img := m.RequestImage(info, DeviceLocal)
	assert.Equal(t, uint64(64*32*4), img.Size)
	assert.Zero(t, img.Offset%hostImageAlignment)
	assert.Equal(t, 1, dev.ImageCount())

	freed := *img
	m.FreeImage(img)
	assert.Equal(t, 0, dev.ImageCount())
	stats, err := m.Stats(DeviceLocal)
	require.NoError(t, err)
	assert.Zero(t, stats.UsedSize)

	// A stale copy of a freed image leaves the device untouched.
	other := m.RequestImage(info, DeviceLocal)
	assert.Equal(t, freed.Offset, other.Offset)
	freed.Resources = other.Resources
	assert.True(t, errors.Is(m.TryFreeImage(&freed), ErrUnknownBlock))
	assert.Equal(t, 1, dev.ImageCount())
	m.FreeImage(other)

	_, err = m.TryRequestImage(ImageInfo{Width: 0, Height: 4, Format: FormatR8Unorm, Samples: 1, MipLevels: 1}, DeviceLocal)
	assert.True(t, errors.Is(err, ErrInvalidSize))
}

func TestMipChainSize(t *testing.T) {
	dev := NewHostDevice(DefaultLimits)
	size, _, err := dev.ImageRequirements(ImageInfo{Width: 4, Height: 4, Format: FormatR8Unorm, Samples: 1, MipLevels: 3})
	require.NoError(t, err)
	// 16 + 4 + 1 rounded up to 4.
	assert.Equal(t, uint64(24), size)
}

func TestFatalPath(t *testing.T) {
	m, _ := newTestManager(t)
	var got error
	m.fatal = func(err error) { got = err }

	r := m.RequestBufferRegion(3, UsageVertexBuffer, HostGraphics)
	assert.Nil(t, r)
	assert.True(t, errors.Is(got, ErrInvalidSize))
}

func TestSetDefaultAlignment(t *testing.T) {
	m, _ := newTestManager(t)
	require.NoError(t, m.SetDefaultAlignment(32))
	assert.Equal(t, uint64(32), m.AlignmentFor(UsageVertexBuffer))
	assert.Equal(t, uint64(64), m.AlignmentFor(UsageStorageBuffer))
	assert.True(t, errors.Is(m.SetDefaultAlignment(48), ErrInvalidAlignment))
}
