/*
Package vulkan implements gcmd.Device, gcmd.Swapchain and gcmd.CommandBuffer
on top of github.com/vulkan-go/vulkan, with glfw providing the loader and the
window surface.

Open picks the only physical device of the instance and the first queue family
that can both render and present, then creates every object shared by all
pipelines:

	one command pool, resettable per buffer
	one descriptor pool holding HeapCount descriptors of each kind
	one descriptor set layout of SlotCount shader slots, visible to all stages
	one pipeline layout and pipeline cache
	one linear sampler used by every sampled texture

Device objects cross the gcmd interfaces as integer handles; the device keeps
the table that maps them back.

Shaders are read as SPIR-V from Config.ShaderDir. A shader source "bloom.hlsl"
loads bloom.vert.spv and bloom.frag.spv, or bloom.comp.spv when the shader is
flagged as compute. Every stage uses entry point main.

PresentGraphics wraps all of this behind one call per frame:

	for !window.ShouldClose() {
		glfw.PollEvents()
		vulkan.PresentGraphics("app", stream.Commands(), window, 1280, 720, 2, 1024, 8)
	}
	vulkan.PresentGraphics("app", nil, nil, 0, 0, 0, 0, 0)
*/
package vulkan
