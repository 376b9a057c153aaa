package memory

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/onyx/engine/math"
)

// DefaultLimits are the limits most desktop drivers report.
var DefaultLimits = Limits{
	MinUniformBufferOffsetAlignment: 64,
	MinStorageBufferOffsetAlignment: 64,
	MinScratchOffsetAlignment:       128,
	BufferImageGranularity:          1024,
}

const hostImageAlignment uint64 = 1024

type hostBacking struct {
	memType MemoryType
	data    []byte
}

func (b *hostBacking) Size() uint64 {
	return uint64(len(b.data))
}

func (b *hostBacking) HostData() []byte {
	if !b.memType.HostVisible() {
		return nil
	}
	return b.data
}

type hostImage struct {
	offset uint64
	info   ImageInfo
}

// HostDevice is a Device backed by Go byte slices. Device local memory
// is still ordinary memory, it just is not exposed through HostData.
type HostDevice struct {
	limits Limits
	images int
}

var _ Device = (*HostDevice)(nil)

func NewHostDevice(limits Limits) *HostDevice {
	return &HostDevice{limits: limits}
}

func (d *HostDevice) Limits() Limits {
	return d.limits
}

func (d *HostDevice) Allocate(memType MemoryType, size uint64) (Backing, error) {
	if !memType.valid() {
		return nil, errors.Wrapf(ErrUnknownMemoryType, "%d", int(memType))
	}
	if size == 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "%s allocation of 0 bytes", memType)
	}
	return &hostBacking{memType: memType, data: make([]byte, size)}, nil
}

func (d *HostDevice) Free(b Backing) {
	if hb, ok := b.(*hostBacking); ok {
		hb.data = nil
	}
}

// ImageRequirements sums the size of every mip level at every sample.
func (d *HostDevice) ImageRequirements(info ImageInfo) (uint64, uint64, error) {
	if err := info.validate(); err != nil {
		return 0, 0, err
	}
	w, h := uint64(info.Width), uint64(info.Height)
	var size uint64
	for level := uint32(0); level < info.MipLevels; level++ {
		size += w * h * info.Format.BytesPerPixel() * uint64(info.Samples)
		w = max(w/2, 1)
		h = max(h/2, 1)
	}
	return math.AlignUp(size, 4), hostImageAlignment, nil
}

// ImageCount returns the number of images alive on d.
func (d *HostDevice) ImageCount() int {
	return d.images
}

func (d *HostDevice) CreateImage(b Backing, offset uint64, info ImageInfo) (ImageResources, error) {
	size, _, err := d.ImageRequirements(info)
	if err != nil {
		return nil, err
	}
	if offset+size > b.Size() {
		return nil, errors.Wrapf(ErrInvalidSize, "image of %d bytes at offset %d exceeds backing of %d bytes", size, offset, b.Size())
	}
	d.images++
	return &hostImage{offset: offset, info: info}, nil
}

func (d *HostDevice) DestroyImage(res ImageResources) {
	if _, ok := res.(*hostImage); ok {
		d.images--
	}
}

func (d *HostDevice) Copy(src Backing, srcOffset uint64, dst Backing, dstOffset uint64, size uint64) error {
	s, ok := src.(*hostBacking)
	if !ok {
		return errors.Newf("copy source %T is not a host backing", src)
	}
	t, ok := dst.(*hostBacking)
	if !ok {
		return errors.Newf("copy destination %T is not a host backing", dst)
	}
	if srcOffset+size > uint64(len(s.data)) || dstOffset+size > uint64(len(t.data)) {
		return errors.Wrapf(ErrInvalidSize, "copy of %d bytes out of range", size)
	}
	copy(t.data[dstOffset:dstOffset+size], s.data[srcOffset:srcOffset+size])
	return nil
}

// DeviceData exposes the bytes behind any host backing, including device
// local ones. It exists for tests and debugging.
func (d *HostDevice) DeviceData(b Backing) []byte {
	if hb, ok := b.(*hostBacking); ok {
		return hb.data
	}
	return nil
}
