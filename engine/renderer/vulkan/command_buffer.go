package vulkan

import (
	vk "github.com/goki/vulkan"
)

type CommandBufferState int

const (
	CommandBufferStateReady CommandBufferState = iota
	CommandBufferStateRecording
	CommandBufferStateRecordingEnded
	CommandBufferStateSubmitted
	CommandBufferStateNotAllocated
)

type CommandBuffer struct {
	Handle vk.CommandBuffer
	State  CommandBufferState
}

func NewCommandBuffer(c *Context, pool vk.CommandPool) (*CommandBuffer, error) {
	handles := make([]vk.CommandBuffer, 1)
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: 1,
		Level:              vk.CommandBufferLevelPrimary,
	}
	if res := vk.AllocateCommandBuffers(c.Device.LogicalDevice, &info, handles); res != vk.Success {
		return nil, resultError("vkAllocateCommandBuffers", res)
	}
	return &CommandBuffer{Handle: handles[0], State: CommandBufferStateReady}, nil
}

func (cb *CommandBuffer) Free(c *Context, pool vk.CommandPool) {
	vk.FreeCommandBuffers(c.Device.LogicalDevice, pool, 1, []vk.CommandBuffer{cb.Handle})
	cb.Handle = nil
	cb.State = CommandBufferStateNotAllocated
}

func (cb *CommandBuffer) Begin(singleUse bool) error {
	info := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if singleUse {
		info.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if res := vk.BeginCommandBuffer(cb.Handle, info); res != vk.Success {
		return resultError("vkBeginCommandBuffer", res)
	}
	cb.State = CommandBufferStateRecording
	return nil
}

func (cb *CommandBuffer) End() error {
	if res := vk.EndCommandBuffer(cb.Handle); res != vk.Success {
		return resultError("vkEndCommandBuffer", res)
	}
	cb.State = CommandBufferStateRecordingEnded
	return nil
}

// AllocateAndBeginSingleUse allocates a primary command buffer from the
// device pool and starts recording it.
func AllocateAndBeginSingleUse(c *Context) (*CommandBuffer, error) {
	cb, err := NewCommandBuffer(c, c.Device.CommandPool)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(true); err != nil {
		cb.Free(c, c.Device.CommandPool)
		return nil, err
	}
	return cb, nil
}

// EndSingleUse submits the buffer, waits for the queue to drain and frees
// the buffer, whether or not submission succeeded.
func (cb *CommandBuffer) EndSingleUse(c *Context) error {
	defer cb.Free(c, c.Device.CommandPool)

	if err := cb.End(); err != nil {
		return err
	}
	submit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb.Handle},
	}
	if res := vk.QueueSubmit(c.Device.Queue, 1, []vk.SubmitInfo{submit}, vk.NullFence); res != vk.Success {
		return resultError("vkQueueSubmit", res)
	}
	cb.State = CommandBufferStateSubmitted
	if res := vk.QueueWaitIdle(c.Device.Queue); res != vk.Success {
		return resultError("vkQueueWaitIdle", res)
	}
	return nil
}
