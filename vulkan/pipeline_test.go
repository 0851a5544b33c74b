package vulkan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func TestShaderFiles(t *testing.T) {
	stages := shaderFiles("shaders", "bloom.hlsl", false)
	require.Len(t, stages, 2)
	assert.Equal(t, filepath.Join("shaders", "bloom.vert.spv"), stages[0].path)
	assert.Equal(t, vk.ShaderStageVertexBit, stages[0].bit)
	assert.Equal(t, filepath.Join("shaders", "bloom.frag.spv"), stages[1].path)
	assert.Equal(t, vk.ShaderStageFragmentBit, stages[1].bit)

	stages = shaderFiles(".", "blur", true)
	require.Len(t, stages, 1)
	assert.Equal(t, "blur.comp.spv", stages[0].path)
	assert.Equal(t, vk.ShaderStageComputeBit, stages[0].bit)
}

func TestSliceUint32(t *testing.T) {
	data := []byte{0x03, 0x02, 0x23, 0x07, 1, 0, 0, 0, 0xff}
	words := sliceUint32(data)
	require.Len(t, words, 2)
	assert.Equal(t, uint32(1), words[1])
	assert.Nil(t, sliceUint32([]byte{1, 2}))
}

func TestLoadShaderRejectsMissingAndOddFiles(t *testing.T) {
	d := &Device{}
	_, err := d.loadShader(filepath.Join(t.TempDir(), "missing.vert.spv"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	odd := filepath.Join(t.TempDir(), "odd.vert.spv")
	require.NoError(t, os.WriteFile(odd, []byte{1, 2, 3}, 0o644))
	_, err = d.loadShader(odd)
	assert.ErrorContains(t, err, "not SPIR-V")
}

func TestVertexLayout(t *testing.T) {
	b := vertexBindings()
	require.Len(t, b, 1)
	assert.Equal(t, uint32(36), b[0].Stride)

	attrs := vertexAttributes()
	require.Len(t, attrs, 3)
	assert.Equal(t, vk.FormatR32g32b32a32Sfloat, attrs[0].Format)
	assert.Equal(t, uint32(0), attrs[0].Offset)
	assert.Equal(t, vk.FormatR32g32b32Sfloat, attrs[1].Format)
	assert.Equal(t, uint32(16), attrs[1].Offset)
	assert.Equal(t, vk.FormatR32g32Sfloat, attrs[2].Format)
	assert.Equal(t, uint32(28), attrs[2].Offset)
	for i, a := range attrs {
		assert.Equal(t, uint32(i), a.Location)
	}
}

func TestGraphicsPipelineInfo(t *testing.T) {
	info := graphicsPipelineInfo(vk.NullRenderPass, vk.NullPipelineLayout, nil)
	assert.Equal(t, vk.PrimitiveTopologyTriangleList, info.PInputAssemblyState.Topology)
	assert.Equal(t, vk.CullModeFlags(vk.CullModeBackBit), info.PRasterizationState.CullMode)
	assert.Equal(t, vk.FrontFaceCounterClockwise, info.PRasterizationState.FrontFace)
	assert.Equal(t, vk.Bool32(vk.True), info.PDepthStencilState.DepthTestEnable)
	assert.Equal(t, vk.Bool32(vk.True), info.PDepthStencilState.DepthWriteEnable)
	assert.Equal(t, vk.CompareOpLessOrEqual, info.PDepthStencilState.DepthCompareOp)
	assert.Equal(t, vk.ColorComponentFlags(0xf), info.PColorBlendState.PAttachments[0].ColorWriteMask)
	assert.ElementsMatch(t,
		[]vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor},
		info.PDynamicState.PDynamicStates)
	assert.Equal(t, uint32(1), info.PViewportState.ViewportCount)
}
