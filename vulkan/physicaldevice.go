package vulkan

import (
	"fmt"

	"github.com/kumaashi/gcmd"
	vk "github.com/vulkan-go/vulkan"
)

// PhysicalDevice is a GPU reported by the instance.
type PhysicalDevice struct {
	Name       string
	VK         vk.PhysicalDevice
	Properties vk.PhysicalDeviceProperties
}

func (p *PhysicalDevice) String() string {
	return p.Name
}

// PhysicalDevices lists the GPUs of instance.
func PhysicalDevices(instance vk.Instance) ([]*PhysicalDevice, error) {
	var count uint32
	if err := vk.Error(vk.EnumeratePhysicalDevices(instance, &count, nil)); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := vk.Error(vk.EnumeratePhysicalDevices(instance, &count, devices)); err != nil {
		return nil, err
	}
	ret := make([]*PhysicalDevice, count)
	for i, d := range devices {
		ret[i] = &PhysicalDevice{VK: d}
		vk.GetPhysicalDeviceProperties(d, &ret[i].Properties)
		ret[i].Properties.Deref()
		ret[i].Name = vk.ToString(ret[i].Properties.DeviceName[:])
	}
	return ret, nil
}

// selectPhysicalDevice requires exactly one GPU.
func selectPhysicalDevice(instance vk.Instance) (*PhysicalDevice, error) {
	devices, err := PhysicalDevices(instance)
	if err != nil {
		return nil, fmt.Errorf("%w: enumerate devices: %v", gcmd.ErrSetupFatal, err)
	}
	if len(devices) != 1 {
		return nil, fmt.Errorf("%w: %d physical devices, want 1", gcmd.ErrSetupFatal, len(devices))
	}
	return devices[0], nil
}

// QueueFamily is one queue family of a physical device.
type QueueFamily struct {
	Index      uint32
	Properties vk.QueueFamilyProperties
}

func (q *QueueFamily) IsGraphics() bool {
	return q.Properties.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0
}

func (q *QueueFamily) IsCompute() bool {
	return q.Properties.QueueFlags&vk.QueueFlags(vk.QueueComputeBit) != 0
}

func (q *QueueFamily) IsTransfer() bool {
	return q.Properties.QueueFlags&vk.QueueFlags(vk.QueueTransferBit) != 0
}

func (q *QueueFamily) String() string {
	return fmt.Sprintf("{ Index: %d Compute: %v Graphics: %v Transfer: %v }", q.Index, q.IsCompute(), q.IsGraphics(), q.IsTransfer())
}

// QueueFamilies lists the queue families of p.
func (p *PhysicalDevice) QueueFamilies() []*QueueFamily {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(p.VK, &count, nil)
	if count == 0 {
		return nil
	}
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(p.VK, &count, props)
	ret := make([]*QueueFamily, count)
	for i := range props {
		props[i].Deref()
		ret[i] = &QueueFamily{Index: uint32(i), Properties: props[i]}
	}
	return ret
}

func (p *PhysicalDevice) supportsPresent(q *QueueFamily, surface vk.Surface) bool {
	var supported vk.Bool32
	vk.GetPhysicalDeviceSurfaceSupport(p.VK, q.Index, surface, &supported)
	return supported == vk.True
}

// graphicsQueueFamily returns the first family that can both render and
// present to surface. gcmd drives a single queue.
func (p *PhysicalDevice) graphicsQueueFamily(surface vk.Surface) (*QueueFamily, error) {
	for _, q := range p.QueueFamilies() {
		if q.IsGraphics() && p.supportsPresent(q, surface) {
			return q, nil
		}
	}
	return nil, fmt.Errorf("%w: no graphics and present queue on %s", gcmd.ErrSetupFatal, p)
}

func (p *PhysicalDevice) Features() vk.PhysicalDeviceFeatures {
	var f vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(p.VK, &f)
	f.Deref()
	return f
}

func (p *PhysicalDevice) MemoryProperties() vk.PhysicalDeviceMemoryProperties {
	var m vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(p.VK, &m)
	m.Deref()
	return m
}

// Extensions lists the device extensions of p.
func (p *PhysicalDevice) Extensions() ([]vk.ExtensionProperties, error) {
	var count uint32
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(p.VK, "", &count, nil)); err != nil {
		return nil, err
	}
	exts := make([]vk.ExtensionProperties, count)
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(p.VK, "", &count, exts)); err != nil {
		return nil, err
	}
	for i := range exts {
		exts[i].Deref()
	}
	return exts, nil
}

// MemoryTypes converts the memory types of p, in device order.
func (p *PhysicalDevice) MemoryTypes() []gcmd.MemoryType {
	props := p.MemoryProperties()
	types := make([]gcmd.MemoryType, props.MemoryTypeCount)
	for i := range types {
		mt := props.MemoryTypes[i]
		mt.Deref()
		types[i] = gcmd.MemoryType{
			Properties: memoryProperty(vk.MemoryPropertyFlagBits(mt.PropertyFlags)),
			HeapIndex:  mt.HeapIndex,
		}
	}
	return types
}

// storageCapable reports whether images of format can be bound as storage
// images with optimal tiling.
func (p *PhysicalDevice) storageCapable(format vk.Format) bool {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(p.VK, format, &props)
	props.Deref()
	return props.OptimalTilingFeatures&vk.FormatFeatureFlags(vk.FormatFeatureStorageImageBit) != 0
}

func memoryProperty(f vk.MemoryPropertyFlagBits) gcmd.MemoryProperty {
	var p gcmd.MemoryProperty
	if f&vk.MemoryPropertyDeviceLocalBit != 0 {
		p |= gcmd.MemoryDeviceLocal
	}
	if f&vk.MemoryPropertyHostVisibleBit != 0 {
		p |= gcmd.MemoryHostVisible
	}
	if f&vk.MemoryPropertyHostCoherentBit != 0 {
		p |= gcmd.MemoryHostCoherent
	}
	if f&vk.MemoryPropertyHostCachedBit != 0 {
		p |= gcmd.MemoryHostCached
	}
	return p
}
