package memory

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/onyx/engine/core"
)

// Image is an image bound to a block of a chain.
type Image struct {
	ImageInfo
	Offset    uint64
	Size      uint64
	Chain     MemoryType
	Block     BlockID
	Resources ImageResources
}

func (m *Manager) TryRequestImage(info ImageInfo, memType MemoryType) (*Image, error) {
	size, alignment, err := m.device.ImageRequirements(info)
	if err != nil {
		return nil, err
	}
	c, err := m.Chain(memType)
	if err != nil {
		return nil, err
	}
	blk, err := c.RequestBlock(size, alignment)
	if err != nil {
		return nil, err
	}
	res, err := m.device.CreateImage(c.Backing(), blk.Offset, info)
	if err != nil {
		if ferr := c.FreeBlock(blk.ID); ferr != nil {
			err = errors.CombineErrors(err, ferr)
		}
		return nil, errors.Wrapf(err, "creating %dx%d image", info.Width, info.Height)
	}
	core.LogDebug("%s: image %dx%d of %d bytes at offset %d (block %d)", memType, info.Width, info.Height, size, blk.Offset, blk.ID)
	return &Image{
		ImageInfo: info,
		Offset:    blk.Offset,
		Size:      size,
		Chain:     memType,
		Block:     blk.ID,
		Resources: res,
	}, nil
}

// TryFreeImage destroys the device resources of img and then releases its
// block.
func (m *Manager) TryFreeImage(img *Image) error {
	c, err := m.Chain(img.Chain)
	if err != nil {
		return err
	}
	if _, err := c.Block(img.Block); err != nil {
		return err
	}
	if img.Resources != nil {
		m.device.DestroyImage(img.Resources)
	}
	if err := c.FreeBlock(img.Block); err != nil {
		return err
	}
	*img = Image{}
	return nil
}

func (m *Manager) RequestImage(info ImageInfo, memType MemoryType) *Image {
	img, err := m.TryRequestImage(info, memType)
	if err != nil {
		m.fatal(err)
	}
	return img
}

func (m *Manager) FreeImage(img *Image) {
	if err := m.TryFreeImage(img); err != nil {
		m.fatal(err)
	}
}
