package vulkan

import (
	"fmt"
	"log/slog"

	"github.com/kumaashi/gcmd"
	"github.com/vulkan-go/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// Device implements gcmd.Device on a Vulkan logical device with a single
// graphics queue.
type Device struct {
	Physical *PhysicalDevice
	Family   *QueueFamily
	Config   gcmd.Config

	instance vk.Instance
	debug    vk.DebugReportCallback
	surface  vk.Surface
	device   vk.Device
	queue    vk.Queue
	pool     vk.CommandPool

	descPool   vk.DescriptorPool
	setLayout  vk.DescriptorSetLayout
	pipeLayout vk.PipelineLayout
	cache      vk.PipelineCache
	sampler    vk.Sampler

	// rendered is signaled by every submit and waited on by present.
	rendered vk.Semaphore
	// storage is set when color images support storage usage.
	storage bool
	types   []gcmd.MemoryType

	handles *table
	armed   map[gcmd.Handle]bool
	log     *slog.Logger
}

var _ gcmd.Device = (*Device)(nil)

// Open creates the instance, device and swapchain for window. Failures wrap
// gcmd.ErrSetupFatal.
func Open(window *glfw.Window, cfg gcmd.Config) (_ *Device, _ *Swapchain, err error) {
	cfg = cfg.WithDefaults()
	if err := initLoader(); err != nil {
		return nil, nil, fmt.Errorf("%w: vulkan loader: %v", gcmd.ErrSetupFatal, err)
	}
	d := &Device{
		Config:  cfg,
		handles: newTable(),
		armed:   make(map[gcmd.Handle]bool),
		log:     gcmd.Logger().With("backend", "vulkan"),
	}
	defer func() {
		if err != nil {
			d.Close()
		}
	}()

	var debug bool
	d.instance, debug, err = createInstance(cfg.AppName, window.GetRequiredInstanceExtensions(), cfg.Validation, d.log)
	if err != nil {
		return nil, nil, err
	}
	if debug {
		if d.debug, err = setDebugCallback(d.instance); err != nil {
			d.log.Warn("debug callback", "err", err)
			err = nil
		}
	}

	surface, err := window.CreateWindowSurface(d.instance, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: create surface: %v", gcmd.ErrSetupFatal, err)
	}
	d.surface = vk.SurfaceFromPointer(surface)

	if d.Physical, err = selectPhysicalDevice(d.instance); err != nil {
		return nil, nil, err
	}
	if d.Family, err = d.Physical.graphicsQueueFamily(d.surface); err != nil {
		return nil, nil, err
	}
	if err = d.createDevice(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", gcmd.ErrSetupFatal, err)
	}
	d.types = d.Physical.MemoryTypes()
	d.storage = d.Physical.storageCapable(colorFormat)
	d.log.Info("device selected",
		"name", d.Physical.Name,
		"queue_family", d.Family.Index,
		"memory_types", len(d.types),
		"storage_images", d.storage)

	if err = d.createBindingState(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", gcmd.ErrSetupFatal, err)
	}

	width, height := cfg.Width, cfg.Height
	if w, h := window.GetFramebufferSize(); w > 0 && h > 0 {
		width, height = uint32(w), uint32(h)
	}
	sc, err := newSwapchain(d, width, height, cfg.BufferCount)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", gcmd.ErrSetupFatal, err)
	}
	return d, sc, nil
}

func (d *Device) createDevice() error {
	features := d.Physical.Features()
	extensions := safeStrings([]string{swapchainExtension})
	info := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos: []vk.DeviceQueueCreateInfo{{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: d.Family.Index,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{features},
	}
	if err := vk.Error(vk.CreateDevice(d.Physical.VK, &info, nil, &d.device)); err != nil {
		return fmt.Errorf("create device: %w", err)
	}
	vk.GetDeviceQueue(d.device, d.Family.Index, 0, &d.queue)

	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit | vk.CommandPoolCreateTransientBit),
		QueueFamilyIndex: d.Family.Index,
	}
	if err := vk.Error(vk.CreateCommandPool(d.device, &poolInfo, nil, &d.pool)); err != nil {
		return fmt.Errorf("create command pool: %w", err)
	}
	return nil
}

// createBindingState creates the objects shared by every pipeline: the
// descriptor pool and layout, the pipeline layout and cache and the sampler.
func (d *Device) createBindingState() error {
	var err error
	if d.descPool, err = d.createDescriptorPool(d.Config.HeapCount); err != nil {
		return err
	}
	if d.setLayout, err = d.createSetLayout(d.Config.SlotCount); err != nil {
		return err
	}
	if d.pipeLayout, err = d.createPipelineLayout(); err != nil {
		return err
	}
	if d.cache, err = d.createPipelineCache(); err != nil {
		return err
	}
	d.sampler, err = d.createSampler(vk.FilterLinear)
	return err
}

func (d *Device) MemoryTypes() []gcmd.MemoryType {
	return d.types
}

func (d *Device) CreateCommandBuffer() (gcmd.CommandBuffer, error) {
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	buffers := make([]vk.CommandBuffer, 1)
	if err := vk.Error(vk.AllocateCommandBuffers(d.device, &info, buffers)); err != nil {
		return nil, err
	}
	return &CommandBuffer{dev: d, vk: buffers[0]}, nil
}

func (d *Device) CreateFence(signaled bool) (gcmd.Handle, error) {
	info := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var fence vk.Fence
	if err := vk.Error(vk.CreateFence(d.device, &info, nil, &fence)); err != nil {
		return 0, err
	}
	return d.handles.put(fence), nil
}

func (d *Device) FenceSignaled(fence gcmd.Handle) bool {
	if d.armed[fence] {
		return true
	}
	return vk.GetFenceStatus(d.device, lookup[vk.Fence](d.handles, fence)) == vk.Success
}

func (d *Device) WaitFence(fence gcmd.Handle) error {
	f := lookup[vk.Fence](d.handles, fence)
	return vk.Error(vk.WaitForFences(d.device, 1, []vk.Fence{f}, vk.True, vk.MaxUint64))
}

func (d *Device) ResetFence(fence gcmd.Handle) error {
	f := lookup[vk.Fence](d.handles, fence)
	if err := vk.Error(vk.ResetFences(d.device, 1, []vk.Fence{f})); err != nil {
		return err
	}
	delete(d.armed, fence)
	return nil
}

func (d *Device) Submit(fence gcmd.Handle, cbs ...gcmd.CommandBuffer) error {
	buffers := make([]vk.CommandBuffer, len(cbs))
	for i, cb := range cbs {
		c, ok := cb.(*CommandBuffer)
		if !ok {
			return fmt.Errorf("vulkan: submit %T", cb)
		}
		buffers[i] = c.vk
	}
	info := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: uint32(len(buffers)),
		PCommandBuffers:    buffers,
	}
	if !isNull(d.rendered) {
		info.SignalSemaphoreCount = 1
		info.PSignalSemaphores = []vk.Semaphore{d.rendered}
	}
	f := lookup[vk.Fence](d.handles, fence)
	if err := vk.Error(vk.QueueSubmit(d.queue, 1, []vk.SubmitInfo{info}, f)); err != nil {
		return err
	}
	d.armed[fence] = true
	return nil
}

func (d *Device) WaitIdle() error {
	if isNull(d.device) {
		return nil
	}
	return vk.Error(vk.DeviceWaitIdle(d.device))
}

// Release destroys the object behind h. Swapchain images are only
// unregistered.
func (d *Device) Release(h gcmd.Handle) {
	obj, ok := d.handles.take(h)
	if !ok {
		return
	}
	switch t := obj.(type) {
	case vk.DeviceMemory:
		vk.FreeMemory(d.device, t, nil)
	case *image:
		if t.owned {
			vk.DestroyImage(d.device, t.vk, nil)
		}
	case vk.ImageView:
		vk.DestroyImageView(d.device, t, nil)
	case vk.Buffer:
		vk.DestroyBuffer(d.device, t, nil)
	case vk.RenderPass:
		vk.DestroyRenderPass(d.device, t, nil)
	case vk.Framebuffer:
		vk.DestroyFramebuffer(d.device, t, nil)
	case vk.DescriptorSet:
		vk.FreeDescriptorSets(d.device, d.descPool, 1, &t)
	case vk.Pipeline:
		vk.DestroyPipeline(d.device, t, nil)
	case vk.Fence:
		vk.DestroyFence(d.device, t, nil)
		delete(d.armed, h)
	default:
		d.log.Warn("release of unknown object", "handle", h, "type", fmt.Sprintf("%T", obj))
	}
}

// Close destroys everything the device still owns. The swapchain must have
// been destroyed first.
func (d *Device) Close() {
	if !isNull(d.device) {
		d.WaitIdle()
		for _, h := range d.handles.keys() {
			d.Release(h)
		}
		if !isNull(d.sampler) {
			vk.DestroySampler(d.device, d.sampler, nil)
		}
		if !isNull(d.cache) {
			vk.DestroyPipelineCache(d.device, d.cache, nil)
		}
		if !isNull(d.pipeLayout) {
			vk.DestroyPipelineLayout(d.device, d.pipeLayout, nil)
		}
		if !isNull(d.setLayout) {
			vk.DestroyDescriptorSetLayout(d.device, d.setLayout, nil)
		}
		if !isNull(d.descPool) {
			vk.DestroyDescriptorPool(d.device, d.descPool, nil)
		}
		if !isNull(d.rendered) {
			vk.DestroySemaphore(d.device, d.rendered, nil)
		}
		if !isNull(d.pool) {
			vk.DestroyCommandPool(d.device, d.pool, nil)
		}
		vk.DestroyDevice(d.device, nil)
		d.device = nil
	}
	if !isNull(d.instance) {
		if !isNull(d.surface) {
			vk.DestroySurface(d.instance, d.surface, nil)
		}
		if !isNull(d.debug) {
			vk.DestroyDebugReportCallback(d.instance, d.debug, nil)
		}
		vk.DestroyInstance(d.instance, nil)
		d.instance = nil
	}
	d.log.Info("device closed")
}
