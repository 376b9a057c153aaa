package memory

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrOutOfMemory is returned when no free block of a chain can hold a
	// request, even after defragmentation.
	ErrOutOfMemory       = errors.New("out of memory")
	ErrInvalidSize       = errors.New("invalid size")
	ErrInvalidAlignment  = errors.New("alignment must be a non-zero power of two")
	ErrUnknownBlock      = errors.New("unknown block")
	ErrBlockNotInUse     = errors.New("block is not in use")
	ErrUnsupported       = errors.New("unsupported operation")
	ErrNotHostVisible    = errors.New("memory is not host visible")
	ErrChainUnavailable  = errors.New("no chain configured for memory type")
	ErrUnknownMemoryType = errors.New("unknown memory type")
	ErrCorruptChain      = errors.New("chain invariant violated")
)

// MemoryType selects one of the chains owned by a Manager.
type MemoryType int

const (
	HostGraphics MemoryType = iota
	HostTransfer
	DeviceLocal
	DeviceLocalExternal
	memoryTypeCount
)

// MemoryTypes lists every category in chain order.
var MemoryTypes = [...]MemoryType{HostGraphics, HostTransfer, DeviceLocal, DeviceLocalExternal}

func (t MemoryType) String() string {
	switch t {
	case HostGraphics:
		return "host-graphics"
	case HostTransfer:
		return "host-transfer"
	case DeviceLocal:
		return "device-local"
	case DeviceLocalExternal:
		return "device-local-external"
	default:
		return fmt.Sprintf("memory-type(%d)", int(t))
	}
}

// HostVisible reports whether blocks of this category are mapped into
// process memory.
func (t MemoryType) HostVisible() bool {
	return t == HostGraphics || t == HostTransfer
}

func (t MemoryType) valid() bool {
	return t >= 0 && t < memoryTypeCount
}

// BufferUsage mirrors the buffer usage bits the engine cares about.
type BufferUsage uint32

const (
	UsageTransferSrc BufferUsage = 1 << iota
	UsageTransferDst
	UsageUniformBuffer
	UsageStorageBuffer
	UsageIndexBuffer
	UsageVertexBuffer
	UsageShaderDeviceAddress
	UsageAccelerationStructureStorage
	UsageAccelerationStructureBuildInput
	UsageScratchBuffer
)

func (u BufferUsage) Has(bits BufferUsage) bool {
	return u&bits == bits
}

// Limits are the alignment requirements reported by a device.
type Limits struct {
	MinUniformBufferOffsetAlignment uint64
	MinStorageBufferOffsetAlignment uint64
	// MinScratchOffsetAlignment applies to acceleration structure build
	// scratch buffers.
	MinScratchOffsetAlignment uint64
	// BufferImageGranularity is the page size at which linear buffers and
	// optimal tiling images sharing one allocation must not meet.
	BufferImageGranularity uint64
}

const (
	// DefaultAlignment is used for buffer requests whose usage carries no
	// stricter device requirement.
	DefaultAlignment uint64 = 16
	// AccelerationStructureAlignment is the fixed offset alignment of
	// acceleration structure storage.
	AccelerationStructureAlignment uint64 = 256
)

type Format int

const (
	FormatUndefined Format = iota
	FormatR8Unorm
	FormatR8G8B8A8Unorm
	FormatR8G8B8A8Srgb
	FormatB8G8R8A8Unorm
	FormatR16G16B16A16Sfloat
	FormatR32G32B32A32Sfloat
	FormatD32Sfloat
)

// BytesPerPixel returns the texel size of f, or 0 for FormatUndefined.
func (f Format) BytesPerPixel() uint64 {
	switch f {
	case FormatR8Unorm:
		return 1
	case FormatR8G8B8A8Unorm, FormatR8G8B8A8Srgb, FormatB8G8R8A8Unorm, FormatD32Sfloat:
		return 4
	case FormatR16G16B16A16Sfloat:
		return 8
	case FormatR32G32B32A32Sfloat:
		return 16
	default:
		return 0
	}
}

type ImageUsage uint32

const (
	ImageUsageTransferSrc ImageUsage = 1 << iota
	ImageUsageTransferDst
	ImageUsageSampled
	ImageUsageStorage
	ImageUsageColorAttachment
	ImageUsageDepthStencilAttachment
)

type ImageAspect uint32

const (
	AspectColor ImageAspect = 1 << iota
	AspectDepth
)

// ImageInfo describes an image request.
type ImageInfo struct {
	Width, Height uint32
	Format        Format
	Usage         ImageUsage
	Aspect        ImageAspect
	Samples       uint32
	MipLevels     uint32
}

func (info ImageInfo) validate() error {
	if info.Width == 0 || info.Height == 0 {
		return errors.Wrapf(ErrInvalidSize, "image extent %dx%d", info.Width, info.Height)
	}
	if info.Format.BytesPerPixel() == 0 {
		return errors.Wrapf(ErrUnsupported, "image format %d", info.Format)
	}
	if info.Samples == 0 || info.MipLevels == 0 {
		return errors.Wrapf(ErrInvalidSize, "image samples %d, mip levels %d", info.Samples, info.MipLevels)
	}
	return nil
}
