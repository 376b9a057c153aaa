package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/onyx/engine/core"
	"github.com/spaghettifunk/onyx/engine/math"
	"github.com/spaghettifunk/onyx/engine/memory"
)

// chainBufferUsage covers everything a region of a chain can be used for.
const chainBufferUsage = vk.BufferUsageTransferSrcBit |
	vk.BufferUsageTransferDstBit |
	vk.BufferUsageUniformBufferBit |
	vk.BufferUsageStorageBufferBit |
	vk.BufferUsageIndexBufferBit |
	vk.BufferUsageVertexBufferBit

// backing is one vkDeviceMemory allocation with a buffer spanning all of
// it. Host visible allocations stay mapped until they are freed.
type backing struct {
	memType   memory.MemoryType
	size      uint64
	typeIndex uint32
	memory    vk.DeviceMemory
	buffer    vk.Buffer
	mapped    []byte
}

func (b *backing) Size() uint64 {
	return b.size
}

func (b *backing) HostData() []byte {
	return b.mapped
}

type image struct {
	image vk.Image
	view  vk.ImageView
}

// MemoryDevice implements memory.Device on a Vulkan logical device.
type MemoryDevice struct {
	ctx    *Context
	limits memory.Limits
}

var _ memory.Device = (*MemoryDevice)(nil)

func NewMemoryDevice(ctx *Context) *MemoryDevice {
	limits := ctx.Device.Properties.Limits
	return &MemoryDevice{
		ctx: ctx,
		limits: memory.Limits{
			MinUniformBufferOffsetAlignment: uint64(limits.MinUniformBufferOffsetAlignment),
			MinStorageBufferOffsetAlignment: uint64(limits.MinStorageBufferOffsetAlignment),
			// Only reported by the acceleration structure extension.
			MinScratchOffsetAlignment: memory.DefaultLimits.MinScratchOffsetAlignment,
			BufferImageGranularity:    uint64(limits.BufferImageGranularity),
		},
	}
}

func (d *MemoryDevice) Limits() memory.Limits {
	return d.limits
}

func (d *MemoryDevice) Allocate(memType memory.MemoryType, size uint64) (memory.Backing, error) {
	props, err := memoryProperties(memType)
	if err != nil {
		return nil, err
	}
	dev := d.ctx.Device.LogicalDevice
	b := &backing{memType: memType, size: size}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(chainBufferUsage),
		SharingMode: vk.SharingModeExclusive,
	}
	if res := vk.CreateBuffer(dev, &bufferInfo, d.ctx.Allocator, &b.buffer); res != vk.Success {
		return nil, resultError("vkCreateBuffer", res)
	}

	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(dev, b.buffer, &reqs)
	reqs.Deref()

	index := d.ctx.FindMemoryIndex(reqs.MemoryTypeBits, props)
	if index < 0 {
		vk.DestroyBuffer(dev, b.buffer, d.ctx.Allocator)
		return nil, errors.Wrapf(memory.ErrUnsupported, "no memory type for %s", memType)
	}
	b.typeIndex = uint32(index)

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: b.typeIndex,
	}
	if res := vk.AllocateMemory(dev, &allocInfo, d.ctx.Allocator, &b.memory); res != vk.Success {
		vk.DestroyBuffer(dev, b.buffer, d.ctx.Allocator)
		if res == vk.ErrorOutOfDeviceMemory || res == vk.ErrorOutOfHostMemory {
			return nil, errors.Wrapf(memory.ErrOutOfMemory, "allocating %d bytes of %s", size, memType)
		}
		return nil, resultError("vkAllocateMemory", res)
	}
	if res := vk.BindBufferMemory(dev, b.buffer, b.memory, 0); res != vk.Success {
		d.Free(b)
		return nil, resultError("vkBindBufferMemory", res)
	}

	if memType.HostVisible() {
		var ptr unsafe.Pointer
		if res := vk.MapMemory(dev, b.memory, 0, vk.DeviceSize(size), 0, &ptr); res != vk.Success {
			d.Free(b)
			return nil, resultError("vkMapMemory", res)
		}
		b.mapped = unsafe.Slice((*byte)(ptr), size)
	}
	core.LogDebug("Allocated %d bytes of %s from memory type %d.", size, memType, b.typeIndex)
	return b, nil
}

func (d *MemoryDevice) Free(mb memory.Backing) {
	b, ok := mb.(*backing)
	if !ok {
		return
	}
	dev := d.ctx.Device.LogicalDevice
	if b.mapped != nil {
		vk.UnmapMemory(dev, b.memory)
		b.mapped = nil
	}
	if b.buffer != vk.NullBuffer {
		vk.DestroyBuffer(dev, b.buffer, d.ctx.Allocator)
		b.buffer = vk.NullBuffer
	}
	if b.memory != vk.NullDeviceMemory {
		vk.FreeMemory(dev, b.memory, d.ctx.Allocator)
		b.memory = vk.NullDeviceMemory
	}
}

// ImageRequirements creates a throwaway image to ask the driver for its
// size and alignment.
func (d *MemoryDevice) ImageRequirements(info memory.ImageInfo) (uint64, uint64, error) {
	img, err := d.createImage(info)
	if err != nil {
		return 0, 0, err
	}
	defer vk.DestroyImage(d.ctx.Device.LogicalDevice, img, d.ctx.Allocator)

	reqs := d.imageRequirements(img)
	size, alignment := imageFootprint(uint64(reqs.Size), uint64(reqs.Alignment), d.limits.BufferImageGranularity)
	return size, alignment, nil
}

// imageFootprint pads an image to whole granularity pages. Chains hold
// linear buffer regions and images side by side in one allocation, so an
// image must start and end on a page boundary.
func imageFootprint(size, alignment, granularity uint64) (uint64, uint64) {
	if granularity <= 1 {
		return size, alignment
	}
	return math.AlignUp(size, granularity), max(alignment, granularity)
}

func (d *MemoryDevice) CreateImage(mb memory.Backing, offset uint64, info memory.ImageInfo) (memory.ImageResources, error) {
	b, ok := mb.(*backing)
	if !ok {
		return nil, errors.Wrap(memory.ErrUnsupported, "backing was not allocated by this device")
	}
	dev := d.ctx.Device.LogicalDevice

	img, err := d.createImage(info)
	if err != nil {
		return nil, err
	}
	reqs := d.imageRequirements(img)
	if reqs.MemoryTypeBits&(1<<b.typeIndex) == 0 {
		vk.DestroyImage(dev, img, d.ctx.Allocator)
		return nil, errors.Wrapf(memory.ErrUnsupported, "image cannot live in %s memory", b.memType)
	}
	if res := vk.BindImageMemory(dev, img, b.memory, vk.DeviceSize(offset)); res != vk.Success {
		vk.DestroyImage(dev, img, d.ctx.Allocator)
		return nil, resultError("vkBindImageMemory", res)
	}

	format, _ := vulkanFormat(info.Format)
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: imageAspect(info.Aspect),
			LevelCount: info.MipLevels,
			LayerCount: 1,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(dev, &viewInfo, d.ctx.Allocator, &view); res != vk.Success {
		vk.DestroyImage(dev, img, d.ctx.Allocator)
		return nil, resultError("vkCreateImageView", res)
	}
	return &image{image: img, view: view}, nil
}

func (d *MemoryDevice) DestroyImage(res memory.ImageResources) {
	img, ok := res.(*image)
	if !ok {
		return
	}
	dev := d.ctx.Device.LogicalDevice
	if img.view != vk.NullImageView {
		vk.DestroyImageView(dev, img.view, d.ctx.Allocator)
		img.view = vk.NullImageView
	}
	if img.image != vk.NullImage {
		vk.DestroyImage(dev, img.image, d.ctx.Allocator)
		img.image = vk.NullImage
	}
}

// Copy records a buffer to buffer copy and waits for it on the queue.
func (d *MemoryDevice) Copy(src memory.Backing, srcOffset uint64, dst memory.Backing, dstOffset uint64, size uint64) error {
	s, ok := src.(*backing)
	if !ok {
		return errors.Wrap(memory.ErrUnsupported, "source was not allocated by this device")
	}
	t, ok := dst.(*backing)
	if !ok {
		return errors.Wrap(memory.ErrUnsupported, "destination was not allocated by this device")
	}

	cb, err := AllocateAndBeginSingleUse(d.ctx)
	if err != nil {
		return err
	}
	region := vk.BufferCopy{
		SrcOffset: vk.DeviceSize(srcOffset),
		DstOffset: vk.DeviceSize(dstOffset),
		Size:      vk.DeviceSize(size),
	}
	vk.CmdCopyBuffer(cb.Handle, s.buffer, t.buffer, 1, []vk.BufferCopy{region})
	return cb.EndSingleUse(d.ctx)
}

func (d *MemoryDevice) createImage(info memory.ImageInfo) (vk.Image, error) {
	format, ok := vulkanFormat(info.Format)
	if !ok {
		return vk.NullImage, errors.Wrapf(memory.ErrUnsupported, "image format %d", info.Format)
	}
	createInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  info.Width,
			Height: info.Height,
			Depth:  1,
		},
		MipLevels:     info.MipLevels,
		ArrayLayers:   1,
		Samples:       vk.SampleCountFlagBits(info.Samples),
		Tiling:        vk.ImageTilingOptimal,
		Usage:         imageUsage(info.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var img vk.Image
	if res := vk.CreateImage(d.ctx.Device.LogicalDevice, &createInfo, d.ctx.Allocator, &img); res != vk.Success {
		return vk.NullImage, resultError("vkCreateImage", res)
	}
	return img, nil
}

func (d *MemoryDevice) imageRequirements(img vk.Image) vk.MemoryRequirements {
	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.ctx.Device.LogicalDevice, img, &reqs)
	reqs.Deref()
	return reqs
}

// memoryProperties maps a chain category to the property flags its
// allocation must have.
func memoryProperties(memType memory.MemoryType) (vk.MemoryPropertyFlags, error) {
	switch memType {
	case memory.HostGraphics, memory.HostTransfer:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit), nil
	case memory.DeviceLocal, memory.DeviceLocalExternal:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit), nil
	default:
		return 0, errors.Wrapf(memory.ErrUnknownMemoryType, "%d", int(memType))
	}
}

func vulkanFormat(f memory.Format) (vk.Format, bool) {
	switch f {
	case memory.FormatR8Unorm:
		return vk.FormatR8Unorm, true
	case memory.FormatR8G8B8A8Unorm:
		return vk.FormatR8g8b8a8Unorm, true
	case memory.FormatR8G8B8A8Srgb:
		return vk.FormatR8g8b8a8Srgb, true
	case memory.FormatB8G8R8A8Unorm:
		return vk.FormatB8g8r8a8Unorm, true
	case memory.FormatR16G16B16A16Sfloat:
		return vk.FormatR16g16b16a16Sfloat, true
	case memory.FormatR32G32B32A32Sfloat:
		return vk.FormatR32g32b32a32Sfloat, true
	case memory.FormatD32Sfloat:
		return vk.FormatD32Sfloat, true
	default:
		return vk.FormatUndefined, false
	}
}

func imageUsage(u memory.ImageUsage) vk.ImageUsageFlags {
	var flags vk.ImageUsageFlagBits
	bits := []struct {
		from memory.ImageUsage
		to   vk.ImageUsageFlagBits
	}{
		{memory.ImageUsageTransferSrc, vk.ImageUsageTransferSrcBit},
		{memory.ImageUsageTransferDst, vk.ImageUsageTransferDstBit},
		{memory.ImageUsageSampled, vk.ImageUsageSampledBit},
		{memory.ImageUsageStorage, vk.ImageUsageStorageBit},
		{memory.ImageUsageColorAttachment, vk.ImageUsageColorAttachmentBit},
		{memory.ImageUsageDepthStencilAttachment, vk.ImageUsageDepthStencilAttachmentBit},
	}
	for _, b := range bits {
		if u&b.from != 0 {
			flags |= b.to
		}
	}
	return vk.ImageUsageFlags(flags)
}

func imageAspect(a memory.ImageAspect) vk.ImageAspectFlags {
	var flags vk.ImageAspectFlagBits
	if a&memory.AspectColor != 0 {
		flags |= vk.ImageAspectColorBit
	}
	if a&memory.AspectDepth != 0 {
		flags |= vk.ImageAspectDepthBit
	}
	return vk.ImageAspectFlags(flags)
}
