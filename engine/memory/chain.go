package memory

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/onyx/engine/core"
	"github.com/spaghettifunk/onyx/engine/math"
)

// BlockID identifies a block for as long as it is in use. Every block a
// chain creates gets a new id, so a freed id never names a live block.
// 0 is never issued.
type BlockID uint32

// Block is a byte range [Offset, Offset+Size) of a chain.
type Block struct {
	Offset uint64
	Size   uint64
	ID     BlockID
	InUse  bool
}

// End returns the first offset past b.
func (b Block) End() uint64 {
	return b.Offset + b.Size
}

// ChainStats is a snapshot of a chain's bookkeeping.
type ChainStats struct {
	MemoryType  MemoryType
	TotalSize   uint64
	UsedSize    uint64
	Blocks      int
	FreeBlocks  int
	LargestFree uint64
	Alignment   uint64
}

// Chain sub-allocates a single backing allocation. Blocks are kept in
// ascending offset order, cover the whole extent and no two free blocks
// are ever adjacent once a call returns.
type Chain struct {
	memType     MemoryType
	backing     Backing
	blocks      []Block
	nextBlockID BlockID
	totalSize   uint64
	usedSize    uint64
	// alignment only grows: blocks do not remember the alignment they
	// were requested with.
	alignment uint64
}

// NewChain creates a chain with a single free block spanning size bytes.
func NewChain(memType MemoryType, backing Backing, size uint64) *Chain {
	c := &Chain{
		memType:     memType,
		backing:     backing,
		blocks:      make([]Block, 0, 16),
		nextBlockID: 1,
		totalSize:   size,
		alignment:   1,
	}
	c.blocks = append(c.blocks, Block{Offset: 0, Size: size, ID: c.newID()})
	core.LogDebug("created %s chain of %d bytes", memType, size)
	return c
}

func (c *Chain) newID() BlockID {
	id := c.nextBlockID
	c.nextBlockID++
	return id
}

func (c *Chain) MemoryType() MemoryType {
	return c.memType
}

func (c *Chain) Backing() Backing {
	return c.backing
}

func (c *Chain) TotalSize() uint64 {
	return c.totalSize
}

func (c *Chain) UsedSize() uint64 {
	return c.usedSize
}

// Alignment returns the largest alignment ever requested from c.
func (c *Chain) Alignment() uint64 {
	return c.alignment
}

// RequestBlock reserves size bytes at an offset that is a multiple of
// alignment, using the first free block that fits.
func (c *Chain) RequestBlock(size, alignment uint64) (Block, error) {
	if size == 0 || size >= c.totalSize {
		return Block{}, errors.Wrapf(ErrInvalidSize, "request of %d bytes from %s chain of %d bytes", size, c.memType, c.totalSize)
	}
	if !math.IsPowerOfTwo(alignment) {
		return Block{}, errors.Wrapf(ErrInvalidAlignment, "alignment %d", alignment)
	}
	if len(c.blocks) == 0 {
		return Block{}, errors.Wrapf(ErrCorruptChain, "%s chain has no blocks", c.memType)
	}
	if alignment > c.alignment {
		c.alignment = alignment
	}

	blk, ok, err := c.place(size, alignment)
	if err != nil {
		return Block{}, err
	}
	if !ok {
		c.defragment()
		if blk, ok, err = c.place(size, alignment); err != nil {
			return Block{}, err
		}
	}
	if !ok {
		return Block{}, errors.Wrapf(ErrOutOfMemory, "%s chain: %d bytes at alignment %d (%d of %d bytes used)",
			c.memType, size, alignment, c.usedSize, c.totalSize)
	}
	return blk, nil
}

func (c *Chain) place(size, alignment uint64) (Block, bool, error) {
	for i := range c.blocks {
		cand := c.blocks[i]
		if cand.InUse || cand.Size < size {
			continue
		}
		offset := math.AlignUp(cand.Offset, alignment)
		if offset+size > cand.End() {
			continue
		}

		if offset == cand.Offset && cand.Size == size {
			c.blocks[i].InUse = true
			c.blocks[i].ID = c.newID()
			c.usedSize += size
			return c.blocks[i], true, nil
		}

		if slack := offset - cand.Offset; slack > 0 {
			// The first block starts at offset 0 and is aligned for any
			// power of two, so there is always a previous block here.
			if i == 0 {
				return Block{}, false, errors.Wrapf(ErrCorruptChain, "%s chain: first block at offset %d", c.memType, cand.Offset)
			}
			c.blocks[i-1].Size += slack
			if c.blocks[i-1].InUse {
				c.usedSize += slack
			}
		}

		used := Block{Offset: offset, Size: size, ID: c.newID(), InUse: true}
		c.blocks[i] = used
		c.usedSize += size

		if remainder := cand.End() - used.End(); remainder > 0 {
			c.blocks = slices.Insert(c.blocks, i+1, Block{Offset: used.End(), Size: remainder, ID: c.newID()})
		}
		return used, true, nil
	}
	return Block{}, false, nil
}

// defragment would move live blocks together to make room. Live blocks are
// referenced by offset from outside the chain, so nothing can be moved yet.
func (c *Chain) defragment() {
	core.LogDebug("%s chain: defragmentation requested, nothing moved", c.memType)
}

// FreeBlock releases the block with the given id and coalesces it with its
// free neighbours.
func (c *Chain) FreeBlock(id BlockID) error {
	i := c.indexOf(id)
	if i < 0 {
		return errors.Wrapf(ErrUnknownBlock, "%s chain: block %d", c.memType, id)
	}
	if !c.blocks[i].InUse {
		return errors.Wrapf(ErrBlockNotInUse, "%s chain: block %d", c.memType, id)
	}
	c.blocks[i].InUse = false
	c.usedSize -= c.blocks[i].Size
	c.mergeBlocks()
	return nil
}

// mergeBlocks joins adjacent free blocks, restarting the scan after every
// merge, until no free pair is left.
func (c *Chain) mergeBlocks() {
	for i := 0; i+1 < len(c.blocks); {
		if !c.blocks[i].InUse && !c.blocks[i+1].InUse {
			c.blocks[i].Size += c.blocks[i+1].Size
			c.blocks = slices.Delete(c.blocks, i+1, i+2)
			i = 0
			continue
		}
		i++
	}
}

func (c *Chain) indexOf(id BlockID) int {
	return slices.IndexFunc(c.blocks, func(b Block) bool { return b.ID == id })
}

// Block returns the in-use block with the given id. A freed id is
// reported as ErrBlockNotInUse while its free block still carries it and
// as ErrUnknownBlock afterwards.
func (c *Chain) Block(id BlockID) (Block, error) {
	i := c.indexOf(id)
	if i < 0 {
		return Block{}, errors.Wrapf(ErrUnknownBlock, "%s chain: block %d", c.memType, id)
	}
	if !c.blocks[i].InUse {
		return Block{}, errors.Wrapf(ErrBlockNotInUse, "%s chain: block %d", c.memType, id)
	}
	return c.blocks[i], nil
}

// Blocks returns a copy of the blocks in offset order.
func (c *Chain) Blocks() []Block {
	return slices.Clone(c.blocks)
}

// HostData returns the mapped bytes [offset, offset+size) or nil when the
// backing is not host visible.
func (c *Chain) HostData(offset, size uint64) []byte {
	if c.backing == nil {
		return nil
	}
	data := c.backing.HostData()
	if data == nil || offset+size > uint64(len(data)) {
		return nil
	}
	return data[offset : offset+size : offset+size]
}

func (c *Chain) Stats() ChainStats {
	s := ChainStats{
		MemoryType: c.memType,
		TotalSize:  c.totalSize,
		UsedSize:   c.usedSize,
		Blocks:     len(c.blocks),
		Alignment:  c.alignment,
	}
	for _, b := range c.blocks {
		if b.InUse {
			continue
		}
		s.FreeBlocks++
		s.LargestFree = max(s.LargestFree, b.Size)
	}
	return s
}

// Validate checks ordering, coverage, coalescing, id uniqueness and the
// used byte count.
func (c *Chain) Validate() error {
	var sum, used uint64
	seen := make(map[BlockID]struct{}, len(c.blocks))
	for i, b := range c.blocks {
		if _, dup := seen[b.ID]; dup || b.ID == 0 {
			return errors.Wrapf(ErrCorruptChain, "block id %d issued twice", b.ID)
		}
		seen[b.ID] = struct{}{}
		sum += b.Size
		if b.InUse {
			used += b.Size
		}
		if i == 0 {
			if b.Offset != 0 {
				return errors.Wrapf(ErrCorruptChain, "first block at offset %d", b.Offset)
			}
			continue
		}
		prev := c.blocks[i-1]
		if prev.Offset >= b.Offset {
			return errors.Wrapf(ErrCorruptChain, "blocks %d and %d out of order", prev.ID, b.ID)
		}
		if prev.End() != b.Offset {
			return errors.Wrapf(ErrCorruptChain, "gap or overlap between blocks %d and %d", prev.ID, b.ID)
		}
		if !prev.InUse && !b.InUse {
			return errors.Wrapf(ErrCorruptChain, "adjacent free blocks %d and %d", prev.ID, b.ID)
		}
	}
	if sum != c.totalSize {
		return errors.Wrapf(ErrCorruptChain, "blocks cover %d of %d bytes", sum, c.totalSize)
	}
	if used != c.usedSize {
		return errors.Wrapf(ErrCorruptChain, "used size %d, blocks in use hold %d", c.usedSize, used)
	}
	return nil
}
