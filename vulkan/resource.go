package vulkan

import (
	"unsafe"

	"github.com/kumaashi/gcmd"
	vk "github.com/vulkan-go/vulkan"
)

// image is an image created by the device or handed out by the swapchain.
type image struct {
	vk     vk.Image
	desc   gcmd.ImageDesc
	format vk.Format
	// owned is false for swapchain images, which are destroyed with the
	// swapchain.
	owned bool
}

func (d *Device) AllocateMemory(size uint64, memoryType uint32) (gcmd.Handle, error) {
	info := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: memoryType,
	}
	var mem vk.DeviceMemory
	if err := vk.Error(vk.AllocateMemory(d.device, &info, nil, &mem)); err != nil {
		return 0, err
	}
	return d.handles.put(mem), nil
}

func (d *Device) MapMemory(mem gcmd.Handle, size uint64) ([]byte, error) {
	var ptr unsafe.Pointer
	m := lookup[vk.DeviceMemory](d.handles, mem)
	if err := vk.Error(vk.MapMemory(d.device, m, 0, vk.DeviceSize(size), 0, &ptr)); err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(ptr), size), nil
}

func (d *Device) UnmapMemory(mem gcmd.Handle) {
	vk.UnmapMemory(d.device, lookup[vk.DeviceMemory](d.handles, mem))
}

func (d *Device) CreateImage(desc gcmd.ImageDesc) (gcmd.Handle, error) {
	format := formatOf(desc.Kind)
	info := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  desc.Width,
			Height: desc.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         imageUsage(desc.Kind, d.storage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var img vk.Image
	if err := vk.Error(vk.CreateImage(d.device, &info, nil, &img)); err != nil {
		return 0, err
	}
	return d.handles.put(&image{vk: img, desc: desc, format: format, owned: true}), nil
}

// adoptImage registers a swapchain image.
func (d *Device) adoptImage(img vk.Image, desc gcmd.ImageDesc, format vk.Format) gcmd.Handle {
	return d.handles.put(&image{vk: img, desc: desc, format: format})
}

func (d *Device) imageOf(h gcmd.Handle) *image {
	if img := lookup[*image](d.handles, h); img != nil {
		return img
	}
	return &image{}
}

func (d *Device) ImageRequirements(h gcmd.Handle) gcmd.MemoryRequirements {
	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.device, d.imageOf(h).vk, &req)
	req.Deref()
	return gcmd.MemoryRequirements{
		Size:      uint64(req.Size),
		Alignment: uint64(req.Alignment),
		TypeBits:  req.MemoryTypeBits,
	}
}

func (d *Device) BindImageMemory(h, mem gcmd.Handle) error {
	m := lookup[vk.DeviceMemory](d.handles, mem)
	return vk.Error(vk.BindImageMemory(d.device, d.imageOf(h).vk, m, 0))
}

func (d *Device) CreateImageView(h gcmd.Handle, desc gcmd.ImageDesc) (gcmd.Handle, error) {
	img := d.imageOf(h)
	info := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img.vk,
		ViewType: vk.ImageViewType2d,
		Format:   img.format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleR,
			G: vk.ComponentSwizzleG,
			B: vk.ComponentSwizzleB,
			A: vk.ComponentSwizzleA,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspectOf(desc.Kind),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	var view vk.ImageView
	if err := vk.Error(vk.CreateImageView(d.device, &info, nil, &view)); err != nil {
		return 0, err
	}
	return d.handles.put(view), nil
}

func (d *Device) CreateBuffer(size uint64, usage gcmd.BufferUsage) (gcmd.Handle, error) {
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       bufferUsage(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	var buf vk.Buffer
	if err := vk.Error(vk.CreateBuffer(d.device, &info, nil, &buf)); err != nil {
		return 0, err
	}
	return d.handles.put(buf), nil
}

func (d *Device) BufferRequirements(h gcmd.Handle) gcmd.MemoryRequirements {
	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.device, lookup[vk.Buffer](d.handles, h), &req)
	req.Deref()
	return gcmd.MemoryRequirements{
		Size:      uint64(req.Size),
		Alignment: uint64(req.Alignment),
		TypeBits:  req.MemoryTypeBits,
	}
}

func (d *Device) BindBufferMemory(h, mem gcmd.Handle) error {
	buf := lookup[vk.Buffer](d.handles, h)
	m := lookup[vk.DeviceMemory](d.handles, mem)
	return vk.Error(vk.BindBufferMemory(d.device, buf, m, 0))
}
