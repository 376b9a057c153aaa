package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/onyx/engine/core"
)

// ErrNoDevice is returned when no physical device has a graphics queue.
var ErrNoDevice = errors.New("no suitable vulkan device")

type Device struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device

	// Graphics queues can always transfer, so one queue serves both.
	QueueIndex uint32
	Queue      vk.Queue

	CommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Memory     vk.PhysicalDeviceMemoryProperties
}

func createDevice(c *Context) (*Device, error) {
	d := &Device{}
	if err := d.selectPhysicalDevice(c); err != nil {
		return nil, err
	}

	core.LogInfo("Creating logical device...")
	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: d.QueueIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}
	createInfo := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: uint32(len(queueInfos)),
		PQueueCreateInfos:    queueInfos,
	}
	if portabilityRequired(d.PhysicalDevice) {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		createInfo.EnabledExtensionCount = 1
		createInfo.PpEnabledExtensionNames = VulkanSafeStrings([]string{"VK_KHR_portability_subset"})
	}
	if res := vk.CreateDevice(d.PhysicalDevice, &createInfo, c.Allocator, &d.LogicalDevice); res != vk.Success {
		return nil, resultError("vkCreateDevice", res)
	}
	core.LogInfo("Logical device created.")

	vk.GetDeviceQueue(d.LogicalDevice, d.QueueIndex, 0, &d.Queue)

	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: d.QueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	if res := vk.CreateCommandPool(d.LogicalDevice, &poolInfo, c.Allocator, &d.CommandPool); res != vk.Success {
		vk.DestroyDevice(d.LogicalDevice, c.Allocator)
		return nil, resultError("vkCreateCommandPool", res)
	}
	core.LogInfo("Command pool created.")
	return d, nil
}

func (d *Device) destroy(c *Context) {
	vk.DeviceWaitIdle(d.LogicalDevice)

	core.LogInfo("Destroying command pool...")
	vk.DestroyCommandPool(d.LogicalDevice, d.CommandPool, c.Allocator)

	core.LogInfo("Destroying logical device...")
	vk.DestroyDevice(d.LogicalDevice, c.Allocator)
	d.LogicalDevice = nil
	d.PhysicalDevice = nil
	d.Queue = nil
}

// selectPhysicalDevice prefers a discrete GPU and falls back to the first
// device with a graphics queue.
func (d *Device) selectPhysicalDevice(c *Context) error {
	var count uint32
	if res := vk.EnumeratePhysicalDevices(c.Instance, &count, nil); res != vk.Success {
		return resultError("vkEnumeratePhysicalDevices", res)
	}
	if count == 0 {
		return errors.Wrap(ErrNoDevice, "no devices which support Vulkan were found")
	}
	devices := make([]vk.PhysicalDevice, count)
	if res := vk.EnumeratePhysicalDevices(c.Instance, &count, devices); res != vk.Success {
		return resultError("vkEnumeratePhysicalDevices", res)
	}

	selected := -1
	for i, pd := range devices {
		if _, ok := graphicsQueueIndex(pd); !ok {
			continue
		}
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pd, &props)
		props.Deref()
		if selected < 0 || props.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			selected = i
		}
		if props.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			break
		}
	}
	if selected < 0 {
		return ErrNoDevice
	}

	d.PhysicalDevice = devices[selected]
	d.QueueIndex, _ = graphicsQueueIndex(d.PhysicalDevice)
	vk.GetPhysicalDeviceProperties(d.PhysicalDevice, &d.Properties)
	d.Properties.Deref()
	d.Properties.Limits.Deref()
	vk.GetPhysicalDeviceMemoryProperties(d.PhysicalDevice, &d.Memory)
	d.Memory.Deref()

	name := d.Properties.DeviceName[:]
	core.LogInfo("Selected device: '%s'.", string(name[:FindFirstZeroInByteArray(name)]))
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version(d.Properties.ApiVersion).Major(),
		vk.Version(d.Properties.ApiVersion).Minor(),
		vk.Version(d.Properties.ApiVersion).Patch(),
	)
	for i := uint32(0); i < d.Memory.MemoryHeapCount; i++ {
		d.Memory.MemoryHeaps[i].Deref()
		heap := d.Memory.MemoryHeaps[i]
		gib := float64(heap.Size) / 1024 / 1024 / 1024
		if vk.MemoryHeapFlagBits(heap.Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			core.LogInfo("Local GPU memory: %.2f GiB", gib)
		} else {
			core.LogInfo("Shared System memory: %.2f GiB", gib)
		}
	}
	return nil
}

func graphicsQueueIndex(pd vk.PhysicalDevice) (uint32, bool) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, families)
	for i := range families {
		families[i].Deref()
		if vk.QueueFlagBits(families[i].QueueFlags)&vk.QueueGraphicsBit != 0 {
			return uint32(i), true
		}
	}
	return 0, false
}

func portabilityRequired(pd vk.PhysicalDevice) bool {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(pd, "", &count, nil); res != vk.Success || count == 0 {
		return false
	}
	extensions := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(pd, "", &count, extensions); res != vk.Success {
		return false
	}
	for i := range extensions {
		extensions[i].Deref()
		name := extensions[i].ExtensionName[:]
		if string(name[:FindFirstZeroInByteArray(name)]) == "VK_KHR_portability_subset" {
			return true
		}
	}
	return false
}
