package vulkan

import (
	"encoding/binary"
	"math"

	"github.com/kumaashi/gcmd"
	vk "github.com/vulkan-go/vulkan"
)

const (
	colorFormat = vk.FormatB8g8r8a8Unorm
	depthFormat = vk.FormatD32Sfloat
)

func isNull[T comparable](h T) bool {
	var zero T
	return h == zero
}

func formatOf(kind gcmd.ImageKind) vk.Format {
	if kind == gcmd.ImageDepth {
		return depthFormat
	}
	return colorFormat
}

func aspectOf(kind gcmd.ImageKind) vk.ImageAspectFlags {
	if kind == gcmd.ImageDepth {
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}

// imageUsage returns the usage of an image of kind. Color images are
// sampled by later passes and may be cleared or written outside a pass.
// Textures get the same usage: names are shared, so a texture may later be
// bound as a render target.
func imageUsage(kind gcmd.ImageKind, storage bool) vk.ImageUsageFlags {
	if kind == gcmd.ImageDepth {
		return vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit | vk.ImageUsageTransferDstBit)
	}
	u := vk.ImageUsageColorAttachmentBit | vk.ImageUsageSampledBit | vk.ImageUsageTransferDstBit
	if storage {
		u |= vk.ImageUsageStorageBit
	}
	return vk.ImageUsageFlags(u)
}

func bufferUsage(u gcmd.BufferUsage) vk.BufferUsageFlags {
	var f vk.BufferUsageFlagBits
	if u&gcmd.BufferVertex != 0 {
		f |= vk.BufferUsageVertexBufferBit
	}
	if u&gcmd.BufferIndex != 0 {
		f |= vk.BufferUsageIndexBufferBit
	}
	if u&gcmd.BufferUniform != 0 {
		f |= vk.BufferUsageUniformBufferBit
	}
	if u&gcmd.BufferStorage != 0 {
		f |= vk.BufferUsageStorageBufferBit
	}
	if u&gcmd.BufferTransferSrc != 0 {
		f |= vk.BufferUsageTransferSrcBit
	}
	return vk.BufferUsageFlags(f)
}

func imageLayout(l gcmd.Layout) vk.ImageLayout {
	switch l {
	case gcmd.LayoutGeneral:
		return vk.ImageLayoutGeneral
	case gcmd.LayoutTransferDst:
		return vk.ImageLayoutTransferDstOptimal
	case gcmd.LayoutShaderReadOnly:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case gcmd.LayoutPresentSrc:
		return vk.ImageLayoutPresentSrc
	case gcmd.LayoutDepthAttachment:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	}
	return vk.ImageLayoutUndefined
}

// scope is one side of an image barrier.
type scope struct {
	access vk.AccessFlagBits
	stage  vk.PipelineStageFlagBits
}

// layoutScope returns the accesses that use an image in layout l and the
// stages they run in.
func layoutScope(l gcmd.Layout) scope {
	switch l {
	case gcmd.LayoutGeneral:
		return scope{
			vk.AccessShaderReadBit | vk.AccessShaderWriteBit | vk.AccessTransferWriteBit,
			vk.PipelineStageComputeShaderBit | vk.PipelineStageFragmentShaderBit | vk.PipelineStageTransferBit,
		}
	case gcmd.LayoutTransferDst:
		return scope{vk.AccessTransferWriteBit, vk.PipelineStageTransferBit}
	case gcmd.LayoutShaderReadOnly:
		return scope{
			vk.AccessShaderReadBit,
			vk.PipelineStageFragmentShaderBit | vk.PipelineStageComputeShaderBit,
		}
	case gcmd.LayoutPresentSrc:
		return scope{vk.AccessColorAttachmentWriteBit, vk.PipelineStageColorAttachmentOutputBit}
	case gcmd.LayoutDepthAttachment:
		return scope{
			vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit,
			vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit,
		}
	}
	return scope{0, vk.PipelineStageTopOfPipeBit}
}

func descriptorType(k gcmd.DescriptorKind) vk.DescriptorType {
	switch k {
	case gcmd.DescriptorUniformBuffer:
		return vk.DescriptorTypeUniformBuffer
	case gcmd.DescriptorStorageImage:
		return vk.DescriptorTypeStorageImage
	}
	return vk.DescriptorTypeCombinedImageSampler
}

// slotDescriptorTypes is indexed by the kind offsets within a shader slot.
var slotDescriptorTypes = [gcmd.SlotKindCount]vk.DescriptorType{
	gcmd.SlotSRV: vk.DescriptorTypeCombinedImageSampler,
	gcmd.SlotCBV: vk.DescriptorTypeUniformBuffer,
	gcmd.SlotUAV: vk.DescriptorTypeStorageImage,
}

func clearColor(rgba [4]float32) vk.ClearColorValue {
	var v vk.ClearColorValue
	for i, c := range rgba {
		binary.LittleEndian.PutUint32(v[i*4:], math.Float32bits(c))
	}
	return v
}

func rect2D(r gcmd.Rect) vk.Rect2D {
	return vk.Rect2D{
		Offset: vk.Offset2D{X: r.X, Y: r.Y},
		Extent: vk.Extent2D{Width: r.W, Height: r.H},
	}
}
