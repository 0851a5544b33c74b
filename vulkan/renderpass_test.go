package vulkan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestRenderPassInfoColor(t *testing.T) {
	info := renderPassInfo(1, false)
	require.Equal(t, uint32(1), info.AttachmentCount)
	require.Len(t, info.PAttachments, 1)

	color := info.PAttachments[0]
	assert.Equal(t, colorFormat, color.Format)
	assert.Equal(t, vk.AttachmentLoadOpDontCare, color.LoadOp)
	assert.Equal(t, vk.AttachmentStoreOpStore, color.StoreOp)
	assert.Equal(t, vk.ImageLayoutUndefined, color.InitialLayout)
	assert.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, color.FinalLayout)

	require.Len(t, info.PSubpasses, 1)
	assert.Nil(t, info.PSubpasses[0].PDepthStencilAttachment)
	assert.Equal(t, uint32(1), info.DependencyCount)
}

func TestRenderPassInfoPresentableWithDepth(t *testing.T) {
	info := renderPassInfo(2, true)
	require.Len(t, info.PAttachments, 2)
	assert.Equal(t, vk.ImageLayoutPresentSrc, info.PAttachments[0].FinalLayout)

	depth := info.PAttachments[1]
	assert.Equal(t, depthFormat, depth.Format)
	assert.Equal(t, vk.AttachmentStoreOpDontCare, depth.StoreOp)
	assert.Equal(t, vk.ImageLayoutDepthStencilAttachmentOptimal, depth.FinalLayout)

	ref := info.PSubpasses[0].PDepthStencilAttachment
	require.NotNil(t, ref)
	assert.Equal(t, uint32(1), ref.Attachment)
}
