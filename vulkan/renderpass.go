package vulkan

import (
	"github.com/kumaashi/gcmd"
	vk "github.com/vulkan-go/vulkan"
)

// renderPassInfo describes a single subpass pass with a color attachment and,
// when attachments is 2, a depth attachment. Attachment contents are not
// loaded; clears happen inside the pass. The color attachment ends ready to
// present or to be sampled.
func renderPassInfo(attachments int, presentable bool) vk.RenderPassCreateInfo {
	final := vk.ImageLayoutShaderReadOnlyOptimal
	if presentable {
		final = vk.ImageLayoutPresentSrc
	}
	descriptions := []vk.AttachmentDescription{{
		Format:         colorFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpDontCare,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    final,
	}}
	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments: []vk.AttachmentReference{{
			Attachment: 0,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}},
	}
	if attachments > 1 {
		descriptions = append(descriptions, vk.AttachmentDescription{
			Format:         depthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpDontCare,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		})
		subpass.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: 1,
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
	}
	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageComputeShaderBit),
		SrcAccessMask: vk.AccessFlags(vk.AccessShaderWriteBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageFragmentShaderBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit | vk.AccessShaderReadBit),
	}
	return vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(descriptions)),
		PAttachments:    descriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}
}

func (d *Device) CreateRenderPass(attachments int, presentable bool) (gcmd.Handle, error) {
	info := renderPassInfo(attachments, presentable)
	var pass vk.RenderPass
	if err := vk.Error(vk.CreateRenderPass(d.device, &info, nil, &pass)); err != nil {
		return 0, err
	}
	return d.handles.put(pass), nil
}

func (d *Device) CreateFramebuffer(pass gcmd.Handle, views []gcmd.Handle, width, height uint32) (gcmd.Handle, error) {
	attachments := make([]vk.ImageView, len(views))
	for i, v := range views {
		attachments[i] = lookup[vk.ImageView](d.handles, v)
	}
	info := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      lookup[vk.RenderPass](d.handles, pass),
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}
	var fb vk.Framebuffer
	if err := vk.Error(vk.CreateFramebuffer(d.device, &info, nil, &fb)); err != nil {
		return 0, err
	}
	return d.handles.put(fb), nil
}
