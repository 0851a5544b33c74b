/*
Package gcmd turns a per frame list of named rendering commands into Vulkan work.

A producer describes a frame as an ordered list of commands, each addressing a
resource by name: render targets, textures, constant, vertex and index buffers
and shaders. The first time a name is seen the object behind it is created; it
then stays bound to that name until the context is closed. Payloads sent with
later commands for an existing name are ignored, so data that changes every
frame needs one name per buffered frame (constcommon0, constcommon1, ...).

Components

	Allocator	picks a memory type and allocates memory for images and buffers
	Directory	the name keyed cache of images, views, buffers, render passes,
			framebuffers, descriptor sets and pipelines
	Interpreter	records the commands of one frame into a slot's command buffers
	Scheduler	rotates frame slots: wait, acquire, record, submit, present
	GraphicsContext	owns all of the above for one device and swapchain

A frame goes through these steps:

	1. Wait for the fence of the current slot if it is signaled, then reset it
	2. Acquire the next swapchain image and free the slot's staging buffers
	3. Record the commands, ending any render pass still open
	4. Submit the slot's command buffers signaling its fence
	5. Present the acquired image and move to slot (frame+1) % BufferCount

Descriptor bindings

Every render target owns a descriptor set bound at set 0 while its pass is
open. Shader slot s spans three bindings: s*3 for a sampled texture, s*3+1 for
a uniform buffer and s*3+2 for a storage image. SetTexture and SetConstant
write into the set of the last SetRenderTarget, so they must follow one.

The Vulkan implementation of Device and Swapchain lives in package
github.com/kumaashi/gcmd/vulkan, together with the PresentGraphics entry point.
*/
package gcmd
