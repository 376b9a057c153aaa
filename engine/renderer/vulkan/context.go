package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/onyx/engine/core"
)

// Context owns the instance and the logical device every chain of the
// memory manager allocates from. It does not create a surface.
type Context struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks

	Device *Device
}

// NewContext loads the Vulkan loader, creates an instance and selects a
// device with a graphics queue.
func NewContext(appName string, validation bool) (*Context, error) {
	if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return nil, errors.Wrap(err, "loading vulkan")
	}
	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(err, "initializing vulkan")
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Onyx"),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}
	if validation {
		layers := VulkanSafeStrings([]string{"VK_LAYER_KHRONOS_validation"})
		createInfo.EnabledLayerCount = uint32(len(layers))
		createInfo.PpEnabledLayerNames = layers
		core.LogDebug("Validation layers enabled.")
	}

	c := &Context{}
	if res := vk.CreateInstance(&createInfo, c.Allocator, &c.Instance); res != vk.Success {
		return nil, resultError("vkCreateInstance", res)
	}
	if err := vk.InitInstance(c.Instance); err != nil {
		vk.DestroyInstance(c.Instance, c.Allocator)
		return nil, errors.Wrap(err, "initializing vulkan instance")
	}
	core.LogInfo("Vulkan instance created.")

	device, err := createDevice(c)
	if err != nil {
		vk.DestroyInstance(c.Instance, c.Allocator)
		return nil, err
	}
	c.Device = device
	return c, nil
}

// Destroy waits for the device to go idle and tears everything down.
func (c *Context) Destroy() {
	if c.Device != nil {
		c.Device.destroy(c)
		c.Device = nil
	}
	if c.Instance != nil {
		core.LogInfo("Destroying Vulkan instance...")
		vk.DestroyInstance(c.Instance, c.Allocator)
		c.Instance = nil
	}
}

// FindMemoryIndex returns the first memory type allowed by typeFilter
// that has every bit of propertyFlags, or -1.
func (c *Context) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) int32 {
	props := c.Device.Memory
	for i := uint32(0); i < props.MemoryTypeCount; i++ {
		props.MemoryTypes[i].Deref()
		if typeFilter&(1<<i) != 0 && props.MemoryTypes[i].PropertyFlags&propertyFlags == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}
