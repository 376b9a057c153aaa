package memory

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/onyx/engine/core"
	"github.com/spaghettifunk/onyx/engine/math"
)

// Budgets holds the byte size of each chain. Memory types with a zero
// budget get no chain.
type Budgets map[MemoryType]uint64

// BufferRegion is a caller owned view of an in-use block. It refers to its
// chain by memory type and to its block by id.
type BufferRegion struct {
	Offset uint64
	Size   uint64
	// Stride is the aligned element size of regions created with
	// RequestBufferRegionArray, zero otherwise.
	Stride uint64
	Usage  BufferUsage
	Chain  MemoryType
	Block  BlockID
	// HostData is nil for memory that is not host visible.
	HostData []byte
}

// Manager maps buffer and image requests onto one chain per memory type.
// It is not safe for concurrent use.
type Manager struct {
	device           Device
	limits           Limits
	defaultAlignment uint64
	chains [memoryTypeCount]*Chain
	// fatal handles errors of the non-Try API.
	fatal func(err error)
}

// NewManager allocates one backing per non-zero budget.
func NewManager(device Device, budgets Budgets) (*Manager, error) {
	m := &Manager{
		device:           device,
		limits:           device.Limits(),
		defaultAlignment: DefaultAlignment,
		fatal: func(err error) {
			core.LogFatal("memory: %+v", err)
		},
	}
	for _, t := range MemoryTypes {
		size := budgets[t]
		if size == 0 {
			continue
		}
		backing, err := device.Allocate(t, size)
		if err != nil {
			m.Shutdown()
			return nil, errors.Wrapf(err, "allocating %s chain", t)
		}
		m.chains[t] = NewChain(t, backing, size)
	}
	return m, nil
}

// Chain returns the chain serving memType.
func (m *Manager) Chain(memType MemoryType) (*Chain, error) {
	if !memType.valid() {
		return nil, errors.Wrapf(ErrUnknownMemoryType, "%d", int(memType))
	}
	c := m.chains[memType]
	if c == nil {
		return nil, errors.Wrapf(ErrChainUnavailable, "%s", memType)
	}
	return c, nil
}

// SetDefaultAlignment changes the alignment of buffers whose usage has no
// device requirement.
func (m *Manager) SetDefaultAlignment(alignment uint64) error {
	if !math.IsPowerOfTwo(alignment) {
		return errors.Wrapf(ErrInvalidAlignment, "default alignment %d", alignment)
	}
	m.defaultAlignment = alignment
	return nil
}

// AlignmentFor returns the offset alignment a buffer with the given usage
// needs on this device.
func (m *Manager) AlignmentFor(usage BufferUsage) uint64 {
	alignment := m.defaultAlignment
	if usage.Has(UsageStorageBuffer) {
		alignment = max(alignment, m.limits.MinStorageBufferOffsetAlignment)
	}
	if usage.Has(UsageUniformBuffer) {
		alignment = max(alignment, m.limits.MinUniformBufferOffsetAlignment)
	}
	if usage.Has(UsageAccelerationStructureStorage) {
		alignment = max(alignment, AccelerationStructureAlignment)
	}
	if usage.Has(UsageScratchBuffer) {
		alignment = max(alignment, m.limits.MinScratchOffsetAlignment)
	}
	return alignment
}

func (m *Manager) TryRequestBufferRegion(size uint64, usage BufferUsage, memType MemoryType) (*BufferRegion, error) {
	return m.TryRequestBufferRegionAligned(size, usage, memType, m.AlignmentFor(usage))
}

func (m *Manager) TryRequestBufferRegionAligned(size uint64, usage BufferUsage, memType MemoryType, alignment uint64) (*BufferRegion, error) {
	if size%4 != 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "buffer size %d is not a multiple of 4", size)
	}
	c, err := m.Chain(memType)
	if err != nil {
		return nil, err
	}
	blk, err := c.RequestBlock(size, alignment)
	if err != nil {
		return nil, err
	}
	core.LogDebug("%s: buffer region of %d bytes at offset %d (block %d)", memType, size, blk.Offset, blk.ID)
	return &BufferRegion{
		Offset:   blk.Offset,
		Size:     size,
		Usage:    usage,
		Chain:    memType,
		Block:    blk.ID,
		HostData: c.HostData(blk.Offset, size),
	}, nil
}

// TryRequestBufferRegionArray allocates elemCount elements whose stride is
// elemSize rounded up to the usage alignment.
func (m *Manager) TryRequestBufferRegionArray(elemSize, elemCount uint64, usage BufferUsage, memType MemoryType) (*BufferRegion, error) {
	if elemSize == 0 || elemCount == 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "array of %d elements of %d bytes", elemCount, elemSize)
	}
	alignment := m.AlignmentFor(usage)
	stride := math.AlignUp(elemSize, alignment)
	region, err := m.TryRequestBufferRegionAligned(stride*elemCount, usage, memType, alignment)
	if err != nil {
		return nil, err
	}
	region.Stride = stride
	return region, nil
}

// TryResizeBufferRegion grows region to newSize. The region is widened in
// place when its block is large enough; otherwise host visible contents
// move to a new block. Shrinking and growing device memory are not
// supported.
func (m *Manager) TryResizeBufferRegion(region *BufferRegion, newSize uint64) error {
	if newSize == region.Size {
		return nil
	}
	if newSize < region.Size {
		return errors.Wrapf(ErrUnsupported, "shrinking region from %d to %d bytes", region.Size, newSize)
	}
	if newSize%4 != 0 {
		return errors.Wrapf(ErrInvalidSize, "buffer size %d is not a multiple of 4", newSize)
	}
	c, err := m.Chain(region.Chain)
	if err != nil {
		return err
	}
	blk, err := c.Block(region.Block)
	if err != nil {
		return err
	}
	if blk.Size >= newSize {
		region.Size = newSize
		region.HostData = c.HostData(region.Offset, newSize)
		return nil
	}
	if region.HostData == nil {
		return errors.Wrapf(ErrUnsupported, "growing %s region that is not host visible", region.Chain)
	}

	next, err := c.RequestBlock(newSize, c.Alignment())
	if err != nil {
		return err
	}
	data := c.HostData(next.Offset, newSize)
	copy(data, region.HostData)
	clear(region.HostData)
	if err := c.FreeBlock(region.Block); err != nil {
		return err
	}
	core.LogDebug("%s: region moved from offset %d to %d, %d -> %d bytes", region.Chain, region.Offset, next.Offset, region.Size, newSize)
	region.Offset = next.Offset
	region.Size = newSize
	region.Block = next.ID
	region.HostData = data
	return nil
}

// TryFreeBufferRegion zeroes host visible contents, returns the block to
// its chain and resets region.
func (m *Manager) TryFreeBufferRegion(region *BufferRegion) error {
	c, err := m.Chain(region.Chain)
	if err != nil {
		return err
	}
	clear(region.HostData)
	if err := c.FreeBlock(region.Block); err != nil {
		return err
	}
	*region = BufferRegion{}
	return nil
}

// CopyToRegion writes data at the start of a host visible region.
func (m *Manager) CopyToRegion(region *BufferRegion, data []byte) error {
	if region.HostData == nil {
		return errors.Wrapf(ErrNotHostVisible, "%s region", region.Chain)
	}
	if uint64(len(data)) > region.Size {
		return errors.Wrapf(ErrInvalidSize, "%d bytes into region of %d bytes", len(data), region.Size)
	}
	copy(region.HostData, data)
	return nil
}

// TransferToDevice copies the contents of a host visible region into dst
// and waits for the copy to finish.
func (m *Manager) TransferToDevice(src, dst *BufferRegion) error {
	if src.HostData == nil {
		return errors.Wrapf(ErrNotHostVisible, "transfer source in %s", src.Chain)
	}
	if dst.Size < src.Size {
		return errors.Wrapf(ErrInvalidSize, "transfer of %d bytes into region of %d bytes", src.Size, dst.Size)
	}
	sc, err := m.Chain(src.Chain)
	if err != nil {
		return err
	}
	dc, err := m.Chain(dst.Chain)
	if err != nil {
		return err
	}
	return m.device.Copy(sc.Backing(), src.Offset, dc.Backing(), dst.Offset, src.Size)
}

func (m *Manager) Stats(memType MemoryType) (ChainStats, error) {
	c, err := m.Chain(memType)
	if err != nil {
		return ChainStats{}, err
	}
	return c.Stats(), nil
}

// Shutdown releases every backing. Regions and images become invalid.
func (m *Manager) Shutdown() {
	for i, c := range m.chains {
		if c == nil {
			continue
		}
		if c.UsedSize() > 0 {
			core.LogWarn("%s chain released with %d bytes in use", c.MemoryType(), c.UsedSize())
		}
		m.device.Free(c.Backing())
		m.chains[i] = nil
	}
}

func (m *Manager) RequestBufferRegion(size uint64, usage BufferUsage, memType MemoryType) *BufferRegion {
	r, err := m.TryRequestBufferRegion(size, usage, memType)
	if err != nil {
		m.fatal(err)
	}
	return r
}

func (m *Manager) RequestBufferRegionAligned(size uint64, usage BufferUsage, memType MemoryType, alignment uint64) *BufferRegion {
	r, err := m.TryRequestBufferRegionAligned(size, usage, memType, alignment)
	if err != nil {
		m.fatal(err)
	}
	return r
}

func (m *Manager) RequestBufferRegionArray(elemSize, elemCount uint64, usage BufferUsage, memType MemoryType) *BufferRegion {
	r, err := m.TryRequestBufferRegionArray(elemSize, elemCount, usage, memType)
	if err != nil {
		m.fatal(err)
	}
	return r
}

func (m *Manager) ResizeBufferRegion(region *BufferRegion, newSize uint64) {
	if err := m.TryResizeBufferRegion(region, newSize); err != nil {
		m.fatal(err)
	}
}

func (m *Manager) FreeBufferRegion(region *BufferRegion) {
	if err := m.TryFreeBufferRegion(region); err != nil {
		m.fatal(err)
	}
}
