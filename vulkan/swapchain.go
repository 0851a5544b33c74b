package vulkan

import (
	"fmt"

	"github.com/kumaashi/gcmd"
	vk "github.com/vulkan-go/vulkan"
)

// Swapchain implements gcmd.Swapchain with FIFO presentation. Its images are
// registered with the device as unowned color images.
type Swapchain struct {
	dev    *Device
	vk     vk.Swapchain
	images []gcmd.Handle
	width  uint32
	height uint32
	format vk.Format
}

var _ gcmd.Swapchain = (*Swapchain)(nil)

// imageCount returns the number of images to request. Surfaces that cannot
// hold requested images are clamped to their limits; a max of zero means no
// upper limit.
func imageCount(requested, min, max uint32) uint32 {
	if requested < min {
		return min
	}
	if max != 0 && requested > max {
		return max
	}
	return requested
}

// surfaceExtent returns the size of the swapchain images. A current extent of
// MaxUint32 lets the window size decide.
func surfaceExtent(current vk.Extent2D, width, height uint32) vk.Extent2D {
	if current.Width == vk.MaxUint32 {
		return vk.Extent2D{Width: width, Height: height}
	}
	return current
}

// surfaceFormat picks colorFormat, falling back to the first reported format.
func surfaceFormat(formats []vk.SurfaceFormat) (vk.SurfaceFormat, bool) {
	if len(formats) == 0 {
		return vk.SurfaceFormat{}, false
	}
	for _, f := range formats {
		f.Deref()
		if f.Format == colorFormat {
			return f, true
		}
	}
	formats[0].Deref()
	return formats[0], true
}

func (p *PhysicalDevice) surfaceFormats(surface vk.Surface) ([]vk.SurfaceFormat, error) {
	var count uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(p.VK, surface, &count, nil)); err != nil {
		return nil, err
	}
	formats := make([]vk.SurfaceFormat, count)
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(p.VK, surface, &count, formats)); err != nil {
		return nil, err
	}
	return formats, nil
}

func (p *PhysicalDevice) surfaceCapabilities(surface vk.Surface) (vk.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(p.VK, surface, &caps)); err != nil {
		return caps, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	return caps, nil
}

func newSwapchain(d *Device, width, height uint32, count int) (*Swapchain, error) {
	formats, err := d.Physical.surfaceFormats(d.surface)
	if err != nil {
		return nil, fmt.Errorf("surface formats: %w", err)
	}
	format, ok := surfaceFormat(formats)
	if !ok {
		return nil, fmt.Errorf("surface reports no formats")
	}
	if format.Format != colorFormat {
		d.log.Warn("surface format differs from render target format", "format", format.Format)
	}
	caps, err := d.Physical.surfaceCapabilities(d.surface)
	if err != nil {
		return nil, fmt.Errorf("surface capabilities: %w", err)
	}
	images := imageCount(uint32(count), caps.MinImageCount, caps.MaxImageCount)
	if images != uint32(count) {
		d.log.Warn("swapchain image count clamped", "requested", count, "actual", images)
	}
	extent := surfaceExtent(caps.CurrentExtent, width, height)

	info := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          d.surface,
		MinImageCount:    images,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      vk.PresentModeFifo,
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}
	s := &Swapchain{dev: d, width: extent.Width, height: extent.Height, format: format.Format}
	if err := vk.Error(vk.CreateSwapchain(d.device, &info, nil, &s.vk)); err != nil {
		return nil, fmt.Errorf("create swapchain: %w", err)
	}

	var n uint32
	if err := vk.Error(vk.GetSwapchainImages(d.device, s.vk, &n, nil)); err != nil {
		s.Destroy()
		return nil, err
	}
	vkImages := make([]vk.Image, n)
	if err := vk.Error(vk.GetSwapchainImages(d.device, s.vk, &n, vkImages)); err != nil {
		s.Destroy()
		return nil, err
	}
	desc := gcmd.ImageDesc{Kind: gcmd.ImageColor, Width: extent.Width, Height: extent.Height}
	for _, img := range vkImages {
		s.images = append(s.images, d.adoptImage(img, desc, format.Format))
	}

	if isNull(d.rendered) {
		semInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
		if err := vk.Error(vk.CreateSemaphore(d.device, &semInfo, nil, &d.rendered)); err != nil {
			s.Destroy()
			return nil, fmt.Errorf("create semaphore: %w", err)
		}
	}
	d.log.Info("swapchain created", "images", len(s.images), "width", s.width, "height", s.height)
	return s, nil
}

func (s *Swapchain) Images() []gcmd.Handle {
	return s.images
}

func (s *Swapchain) Extent() (uint32, uint32) {
	return s.width, s.height
}

// AcquireNextImage blocks until the next image is available. The fence is
// left unsignaled on return.
func (s *Swapchain) AcquireNextImage(fence gcmd.Handle) (uint32, error) {
	d := s.dev
	f := lookup[vk.Fence](d.handles, fence)
	var index uint32
	res := vk.AcquireNextImage(d.device, s.vk, vk.MaxUint64, vk.NullSemaphore, f, &index)
	if res != vk.Suboptimal {
		if err := vk.Error(res); err != nil {
			return 0, err
		}
	}
	if err := vk.Error(vk.WaitForFences(d.device, 1, []vk.Fence{f}, vk.True, vk.MaxUint64)); err != nil {
		return 0, err
	}
	if err := d.ResetFence(fence); err != nil {
		return 0, err
	}
	return index, nil
}

// Present queues image index once the last submission has finished
// rendering.
func (s *Swapchain) Present(index uint32) error {
	d := s.dev
	info := vk.PresentInfo{
		SType:          vk.StructureTypePresentInfo,
		SwapchainCount: 1,
		PSwapchains:    []vk.Swapchain{s.vk},
		PImageIndices:  []uint32{index},
	}
	if !isNull(d.rendered) {
		info.WaitSemaphoreCount = 1
		info.PWaitSemaphores = []vk.Semaphore{d.rendered}
	}
	res := vk.QueuePresent(d.queue, &info)
	if res == vk.Suboptimal {
		return nil
	}
	return vk.Error(res)
}

// Destroy unregisters the swapchain images and destroys the swapchain. The
// device must be idle.
func (s *Swapchain) Destroy() {
	for _, h := range s.images {
		s.dev.Release(h)
	}
	s.images = nil
	if !isNull(s.vk) {
		vk.DestroySwapchain(s.dev.device, s.vk, nil)
		s.vk = vk.NullSwapchain
	}
}
