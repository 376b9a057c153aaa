package memory

// Backing is one device allocation owned by a chain.
type Backing interface {
	Size() uint64
	// HostData returns the mapped bytes of the allocation, or nil when it
	// is not host visible.
	HostData() []byte
}

// ImageResources is whatever a Device needs to keep alive for an image
// bound into a chain (image, view, sampler).
type ImageResources any

// Device is the GPU side of the memory manager. Every chain asks it for a
// single backing allocation at startup and releases it at shutdown.
type Device interface {
	Limits() Limits
	Allocate(memType MemoryType, size uint64) (Backing, error)
	Free(b Backing)

	// ImageRequirements returns the byte size and offset alignment of an
	// image created from info.
	ImageRequirements(info ImageInfo) (size, alignment uint64, err error)
	// CreateImage creates an image bound to b at offset.
	CreateImage(b Backing, offset uint64, info ImageInfo) (ImageResources, error)
	DestroyImage(res ImageResources)

	// Copy blocks until size bytes have been copied between two backings.
	Copy(src Backing, srcOffset uint64, dst Backing, dstOffset uint64, size uint64) error
}
