package gcmd

import "strings"

// Handle is an opaque reference to a backend object. The zero Handle is
// the null handle.
type Handle uint64

// MemoryProperty is a set of memory property flags.
type MemoryProperty uint32

const (
	MemoryDeviceLocal MemoryProperty = 1 << iota
	MemoryHostVisible
	MemoryHostCoherent
	MemoryHostCached
)

var memoryPropertyNames = []struct {
	bit  MemoryProperty
	name string
}{
	{MemoryDeviceLocal, "device-local"},
	{MemoryHostVisible, "host-visible"},
	{MemoryHostCoherent, "host-coherent"},
	{MemoryHostCached, "host-cached"},
}

func (p MemoryProperty) String() string {
	var names []string
	for _, n := range memoryPropertyNames {
		if p&n.bit != 0 {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// MemoryType describes one memory type of the device, in device order.
type MemoryType struct {
	Properties MemoryProperty
	HeapIndex  uint32
}

// MemoryRequirements are reported by the backend for an image or buffer.
type MemoryRequirements struct {
	Size      uint64
	Alignment uint64
	// TypeBits has bit i set when memory type i may back the resource.
	TypeBits uint32
}

// ImageKind selects format and usage of an image.
type ImageKind int

const (
	// ImageColor is a B8G8R8A8 color target that can also be sampled.
	ImageColor ImageKind = iota
	// ImageDepth is a D32 depth target.
	ImageDepth
	// ImageTexture is a sampled B8G8R8A8 image filled by upload.
	ImageTexture
)

// ImageDesc describes an image to create. Images have a single mip level.
type ImageDesc struct {
	Kind   ImageKind
	Width  uint32
	Height uint32
}

// Levels returns the number of mip levels of the image.
func (ImageDesc) Levels() uint32 { return 1 }

// Layout is an image layout.
type Layout int

const (
	LayoutUndefined Layout = iota
	LayoutGeneral
	LayoutTransferDst
	LayoutShaderReadOnly
	LayoutPresentSrc
	LayoutDepthAttachment
)

// BindPoint selects the pipeline kind a binding applies to.
type BindPoint int

const (
	BindGraphics BindPoint = iota
	BindCompute
)

// BufferUsage is a set of buffer usage flags.
type BufferUsage uint32

const (
	BufferVertex BufferUsage = 1 << iota
	BufferIndex
	BufferUniform
	BufferStorage
	BufferTransferSrc
)

// DescriptorKind is the type of a descriptor written into a set.
type DescriptorKind int

const (
	DescriptorSampledImage DescriptorKind = iota
	DescriptorUniformBuffer
	DescriptorStorageImage
)

// DescriptorWrite updates one binding of a descriptor set. Image kinds use
// View, buffer kinds use Buffer and Range.
type DescriptorWrite struct {
	Set     Handle
	Binding uint32
	Kind    DescriptorKind
	View    Handle
	Buffer  Handle
	Range   uint64
}

// Shader names the stages a pipeline is built from.
type Shader struct {
	Name    string
	Source  string
	Compute bool
}

// Device is the GPU a GraphicsContext records against. Creation calls either
// return a valid handle or an error, never both.
type Device interface {
	MemoryTypes() []MemoryType
	AllocateMemory(size uint64, memoryType uint32) (Handle, error)
	// MapMemory maps size bytes of mem. The returned slice is only valid
	// until UnmapMemory.
	MapMemory(mem Handle, size uint64) ([]byte, error)
	UnmapMemory(mem Handle)

	CreateImage(desc ImageDesc) (Handle, error)
	ImageRequirements(image Handle) MemoryRequirements
	BindImageMemory(image, mem Handle) error
	CreateImageView(image Handle, desc ImageDesc) (Handle, error)

	CreateBuffer(size uint64, usage BufferUsage) (Handle, error)
	BufferRequirements(buffer Handle) MemoryRequirements
	BindBufferMemory(buffer, mem Handle) error

	CreateRenderPass(attachments int, presentable bool) (Handle, error)
	CreateFramebuffer(pass Handle, views []Handle, width, height uint32) (Handle, error)
	AllocateDescriptorSet() (Handle, error)
	UpdateDescriptorSet(w DescriptorWrite)
	// CreatePipeline builds a graphics pipeline compatible with pass, or a
	// compute pipeline when shader.Compute is set and pass is zero.
	CreatePipeline(pass Handle, shader Shader) (Handle, error)

	CreateCommandBuffer() (CommandBuffer, error)
	CreateFence(signaled bool) (Handle, error)
	// FenceSignaled reports whether fence is signaled or was handed to a
	// submission since its last reset.
	FenceSignaled(fence Handle) bool
	// WaitFence blocks until fence is signaled. There is no timeout.
	WaitFence(fence Handle) error
	ResetFence(fence Handle) error
	// Submit executes cbs in order and signals fence when all completed.
	Submit(fence Handle, cbs ...CommandBuffer) error

	WaitIdle() error
	// Release destroys any object created by the device, freeing memory for
	// memory handles.
	Release(h Handle)
}

// Swapchain hands out presentable images.
type Swapchain interface {
	Images() []Handle
	Extent() (width, height uint32)
	// AcquireNextImage returns the index of the next image; fence is
	// signaled once the image may be used.
	AcquireNextImage(fence Handle) (uint32, error)
	Present(index uint32) error
}

// CommandBuffer records GPU work for one frame slot.
type CommandBuffer interface {
	Reset() error
	Begin() error
	End() error

	BeginRenderPass(pass, framebuffer Handle, area Rect)
	EndRenderPass()
	SetViewport(r Rect)
	SetScissor(r Rect)
	BindDescriptorSet(set Handle, point BindPoint)
	BindPipeline(pipeline Handle, point BindPoint)
	BindVertexBuffer(buffer Handle)
	BindIndexBuffer(buffer Handle)
	DrawIndexed(first, count uint32)
	Draw(vertexCount uint32)
	Dispatch(x, y, z uint32)

	// ClearColorImage and ClearDepthImage clear images in LayoutGeneral and
	// may only be recorded outside a render pass.
	ClearColorImage(image Handle, rgba [4]float32)
	ClearDepthImage(image Handle, depth float32)
	// ClearColorAttachment and ClearDepthAttachment clear area of the
	// attachments of the open render pass.
	ClearColorAttachment(rgba [4]float32, area Rect)
	ClearDepthAttachment(depth float32, area Rect)
	TransitionImage(image Handle, kind ImageKind, from, to Layout)
	// CopyBufferToImage copies width x height texels whose rows start
	// rowLength texels apart.
	CopyBufferToImage(buffer, image Handle, width, height, rowLength uint32)
}
