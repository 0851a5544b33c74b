package vulkan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unsafe"

	"github.com/kumaashi/gcmd"
	vk "github.com/vulkan-go/vulkan"
)

const entryPoint = "main"

// Vertex layout shared by every graphics pipeline: position vec4, normal
// vec3, uv vec2.
const (
	vertexStride   = gcmd.VertexStride
	normalOffset   = 16
	texcoordOffset = 28
)

func (d *Device) createPipelineLayout() (vk.PipelineLayout, error) {
	info := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{d.setLayout},
	}
	var layout vk.PipelineLayout
	if err := vk.Error(vk.CreatePipelineLayout(d.device, &info, nil, &layout)); err != nil {
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}
	return layout, nil
}

func (d *Device) createPipelineCache() (vk.PipelineCache, error) {
	info := vk.PipelineCacheCreateInfo{SType: vk.StructureTypePipelineCacheCreateInfo}
	var cache vk.PipelineCache
	if err := vk.Error(vk.CreatePipelineCache(d.device, &info, nil, &cache)); err != nil {
		return nil, fmt.Errorf("create pipeline cache: %w", err)
	}
	return cache, nil
}

// stage pairs a SPIR-V file with the stage it feeds.
type stage struct {
	path string
	bit  vk.ShaderStageFlagBits
}

// shaderFiles returns the SPIR-V files a shader source is built from. The
// extension of source is dropped, so "clear.hlsl" reads "clear.vert.spv" and
// "clear.frag.spv".
func shaderFiles(dir, source string, compute bool) []stage {
	stem := filepath.Join(dir, strings.TrimSuffix(source, filepath.Ext(source)))
	if compute {
		return []stage{{stem + ".comp.spv", vk.ShaderStageComputeBit}}
	}
	return []stage{
		{stem + ".vert.spv", vk.ShaderStageVertexBit},
		{stem + ".frag.spv", vk.ShaderStageFragmentBit},
	}
}

func sliceUint32(data []byte) []uint32 {
	if len(data) < 4 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}

func (d *Device) loadShader(path string) (vk.ShaderModule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("%s: not SPIR-V (%d bytes)", path, len(data))
	}
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(data)),
		PCode:    sliceUint32(data),
	}
	var module vk.ShaderModule
	if err := vk.Error(vk.CreateShaderModule(d.device, &info, nil, &module)); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return module, nil
}

// loadStages creates a module per stage. The caller destroys the modules
// once the pipeline is built.
func (d *Device) loadStages(stages []stage) ([]vk.PipelineShaderStageCreateInfo, []vk.ShaderModule, error) {
	infos := make([]vk.PipelineShaderStageCreateInfo, 0, len(stages))
	modules := make([]vk.ShaderModule, 0, len(stages))
	for _, s := range stages {
		module, err := d.loadShader(s.path)
		if err != nil {
			d.destroyModules(modules)
			return nil, nil, err
		}
		modules = append(modules, module)
		infos = append(infos, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  s.bit,
			Module: module,
			PName:  safeString(entryPoint),
		})
	}
	return infos, modules, nil
}

func (d *Device) destroyModules(modules []vk.ShaderModule) {
	for _, m := range modules {
		vk.DestroyShaderModule(d.device, m, nil)
	}
}

func vertexBindings() []vk.VertexInputBindingDescription {
	return []vk.VertexInputBindingDescription{{
		Binding:   0,
		Stride:    vertexStride,
		InputRate: vk.VertexInputRateVertex,
	}}
}

func vertexAttributes() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32a32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: normalOffset},
		{Location: 2, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: texcoordOffset},
	}
}

// graphicsPipelineInfo fills the fixed state every graphics pipeline shares:
// indexed triangle lists, back face culling, depth test and write with
// LessOrEqual and no blending. Viewport and scissor are dynamic.
func graphicsPipelineInfo(pass vk.RenderPass, layout vk.PipelineLayout, stages []vk.PipelineShaderStageCreateInfo) vk.GraphicsPipelineCreateInfo {
	bindings := vertexBindings()
	attributes := vertexAttributes()
	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindings)),
		PVertexBindingDescriptions:      bindings,
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}
	viewport := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}
	raster := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		CullMode:                vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
		LineWidth:               1.0,
	}
	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: vk.SampleCount1Bit,
	}
	blend := []vk.PipelineColorBlendAttachmentState{{
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
		BlendEnable:    vk.False,
	}}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: uint32(len(blend)),
		PAttachments:    blend,
	}
	dynamics := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamic := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamics)),
		PDynamicStates:    dynamics,
	}
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       vk.True,
		DepthWriteEnable:      vk.True,
		DepthCompareOp:        vk.CompareOpLessOrEqual,
		DepthBoundsTestEnable: vk.False,
		MinDepthBounds:        0.0,
		MaxDepthBounds:        1.0,
		StencilTestEnable:     vk.False,
	}
	return vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewport,
		PRasterizationState: &raster,
		PMultisampleState:   &multisample,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamic,
		Layout:              layout,
		RenderPass:          pass,
		Subpass:             0,
	}
}

func (d *Device) CreatePipeline(pass gcmd.Handle, shader gcmd.Shader) (gcmd.Handle, error) {
	stages, modules, err := d.loadStages(shaderFiles(d.Config.ShaderDir, shader.Source, shader.Compute))
	if err != nil {
		return 0, fmt.Errorf("shader %q: %w", shader.Name, err)
	}
	defer d.destroyModules(modules)

	pipelines := make([]vk.Pipeline, 1)
	if shader.Compute {
		info := vk.ComputePipelineCreateInfo{
			SType:  vk.StructureTypeComputePipelineCreateInfo,
			Stage:  stages[0],
			Layout: d.pipeLayout,
		}
		err = vk.Error(vk.CreateComputePipelines(d.device, d.cache, 1, []vk.ComputePipelineCreateInfo{info}, nil, pipelines))
	} else {
		info := graphicsPipelineInfo(lookup[vk.RenderPass](d.handles, pass), d.pipeLayout, stages)
		err = vk.Error(vk.CreateGraphicsPipelines(d.device, d.cache, 1, []vk.GraphicsPipelineCreateInfo{info}, nil, pipelines))
	}
	if err != nil {
		return 0, fmt.Errorf("shader %q: %w", shader.Name, err)
	}
	d.log.Debug("pipeline created", "name", shader.Name, "source", shader.Source, "compute", shader.Compute)
	return d.handles.put(pipelines[0]), nil
}
