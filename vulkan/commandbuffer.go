package vulkan

import (
	"github.com/kumaashi/gcmd"
	vk "github.com/vulkan-go/vulkan"
)

// CommandBuffer records into a primary Vulkan command buffer allocated from
// the device pool.
type CommandBuffer struct {
	dev *Device
	vk  vk.CommandBuffer
}

var _ gcmd.CommandBuffer = (*CommandBuffer)(nil)

// VK is a utility function for accessing the native vulkan command buffer
func (c *CommandBuffer) VK() vk.CommandBuffer {
	return c.vk
}

func (c *CommandBuffer) Reset() error {
	return vk.Error(vk.ResetCommandBuffer(c.vk, 0))
}

// Begin starts recording. A frame slot's buffers may still be pending when
// they are resubmitted after a wait on the slot fence, hence simultaneous use.
func (c *CommandBuffer) Begin() error {
	info := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageSimultaneousUseBit),
	}
	return vk.Error(vk.BeginCommandBuffer(c.vk, &info))
}

func (c *CommandBuffer) End() error {
	return vk.Error(vk.EndCommandBuffer(c.vk))
}

func (c *CommandBuffer) BeginRenderPass(pass, framebuffer gcmd.Handle, area gcmd.Rect) {
	info := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  lookup[vk.RenderPass](c.dev.handles, pass),
		Framebuffer: lookup[vk.Framebuffer](c.dev.handles, framebuffer),
		RenderArea:  rect2D(area),
	}
	vk.CmdBeginRenderPass(c.vk, &info, vk.SubpassContentsInline)
}

func (c *CommandBuffer) EndRenderPass() {
	vk.CmdEndRenderPass(c.vk)
}

func (c *CommandBuffer) SetViewport(r gcmd.Rect) {
	vk.CmdSetViewport(c.vk, 0, 1, []vk.Viewport{{
		X:        float32(r.X),
		Y:        float32(r.Y),
		Width:    float32(r.W),
		Height:   float32(r.H),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}})
}

func (c *CommandBuffer) SetScissor(r gcmd.Rect) {
	vk.CmdSetScissor(c.vk, 0, 1, []vk.Rect2D{rect2D(r)})
}

func bindPoint(p gcmd.BindPoint) vk.PipelineBindPoint {
	if p == gcmd.BindCompute {
		return vk.PipelineBindPointCompute
	}
	return vk.PipelineBindPointGraphics
}

func (c *CommandBuffer) BindDescriptorSet(set gcmd.Handle, point gcmd.BindPoint) {
	sets := []vk.DescriptorSet{lookup[vk.DescriptorSet](c.dev.handles, set)}
	vk.CmdBindDescriptorSets(c.vk, bindPoint(point), c.dev.pipeLayout, 0, 1, sets, 0, nil)
}

func (c *CommandBuffer) BindPipeline(pipeline gcmd.Handle, point gcmd.BindPoint) {
	vk.CmdBindPipeline(c.vk, bindPoint(point), lookup[vk.Pipeline](c.dev.handles, pipeline))
}

func (c *CommandBuffer) BindVertexBuffer(buffer gcmd.Handle) {
	buffers := []vk.Buffer{lookup[vk.Buffer](c.dev.handles, buffer)}
	vk.CmdBindVertexBuffers(c.vk, 0, 1, buffers, []vk.DeviceSize{0})
}

func (c *CommandBuffer) BindIndexBuffer(buffer gcmd.Handle) {
	vk.CmdBindIndexBuffer(c.vk, lookup[vk.Buffer](c.dev.handles, buffer), 0, vk.IndexTypeUint32)
}

func (c *CommandBuffer) DrawIndexed(first, count uint32) {
	vk.CmdDrawIndexed(c.vk, count, 1, first, 0, 0)
}

func (c *CommandBuffer) Draw(vertexCount uint32) {
	vk.CmdDraw(c.vk, vertexCount, 1, 0, 0)
}

func (c *CommandBuffer) Dispatch(x, y, z uint32) {
	vk.CmdDispatch(c.vk, x, y, z)
}

func subresourceRange(aspect vk.ImageAspectFlags) vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     aspect,
		BaseMipLevel:   0,
		LevelCount:     1,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}

func (c *CommandBuffer) ClearColorImage(image gcmd.Handle, rgba [4]float32) {
	color := clearColor(rgba)
	ranges := []vk.ImageSubresourceRange{subresourceRange(aspectOf(gcmd.ImageColor))}
	vk.CmdClearColorImage(c.vk, c.dev.imageOf(image).vk, vk.ImageLayoutGeneral, &color, 1, ranges)
}

func (c *CommandBuffer) ClearDepthImage(image gcmd.Handle, depth float32) {
	value := vk.ClearDepthStencilValue{Depth: depth}
	ranges := []vk.ImageSubresourceRange{subresourceRange(aspectOf(gcmd.ImageDepth))}
	vk.CmdClearDepthStencilImage(c.vk, c.dev.imageOf(image).vk, vk.ImageLayoutGeneral, &value, 1, ranges)
}

func (c *CommandBuffer) clearAttachment(attachment vk.ClearAttachment, area gcmd.Rect) {
	rects := []vk.ClearRect{{
		Rect:           rect2D(area),
		BaseArrayLayer: 0,
		LayerCount:     1,
	}}
	vk.CmdClearAttachments(c.vk, 1, []vk.ClearAttachment{attachment}, 1, rects)
}

func (c *CommandBuffer) ClearColorAttachment(rgba [4]float32, area gcmd.Rect) {
	var value vk.ClearValue
	value.SetColor(rgba[:])
	c.clearAttachment(vk.ClearAttachment{
		AspectMask:      aspectOf(gcmd.ImageColor),
		ColorAttachment: 0,
		ClearValue:      value,
	}, area)
}

func (c *CommandBuffer) ClearDepthAttachment(depth float32, area gcmd.Rect) {
	var value vk.ClearValue
	value.SetDepthStencil(depth, 0)
	c.clearAttachment(vk.ClearAttachment{
		AspectMask: aspectOf(gcmd.ImageDepth),
		ClearValue: value,
	}, area)
}

// imageBarrier describes a whole-image layout change. The access masks and
// stages come from the layouts on either side.
func imageBarrier(img vk.Image, kind gcmd.ImageKind, from, to gcmd.Layout) (vk.ImageMemoryBarrier, vk.PipelineStageFlags, vk.PipelineStageFlags) {
	src, dst := layoutScope(from), layoutScope(to)
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(src.access),
		DstAccessMask:       vk.AccessFlags(dst.access),
		OldLayout:           imageLayout(from),
		NewLayout:           imageLayout(to),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img,
		SubresourceRange:    subresourceRange(aspectOf(kind)),
	}
	return barrier, vk.PipelineStageFlags(src.stage), vk.PipelineStageFlags(dst.stage)
}

func (c *CommandBuffer) TransitionImage(image gcmd.Handle, kind gcmd.ImageKind, from, to gcmd.Layout) {
	barrier, srcStage, dstStage := imageBarrier(c.dev.imageOf(image).vk, kind, from, to)
	vk.CmdPipelineBarrier(c.vk, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

// CopyBufferToImage copies texels with rows rowLength texels apart into
// image, which must be in LayoutTransferDst.
func (c *CommandBuffer) CopyBufferToImage(buffer, image gcmd.Handle, width, height, rowLength uint32) {
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   max(rowLength, width),
		BufferImageHeight: height,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     aspectOf(gcmd.ImageTexture),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: vk.Offset3D{},
		ImageExtent: vk.Extent3D{Width: width, Height: height, Depth: 1},
	}
	vk.CmdCopyBufferToImage(c.vk, lookup[vk.Buffer](c.dev.handles, buffer), c.dev.imageOf(image).vk,
		vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}
