package gcmd

import "fmt"

// Image is a named image and the memory bound to it. Memory is nil for images
// owned by someone else, such as swapchain images. Layout is the layout the
// image is left in by the last recorded command touching it.
type Image struct {
	Name   string
	Handle Handle
	Desc   ImageDesc
	Memory *Allocation
	Layout Layout
}

// Buffer is a named host visible buffer.
type Buffer struct {
	Name   string
	Handle Handle
	Size   uint64
	Memory *Allocation
}

// RenderTarget groups everything SetRenderTarget derives from a name.
type RenderTarget struct {
	Name        string
	Color       *Image
	Depth       *Image
	ColorView   Handle
	DepthView   Handle
	Pass        Handle
	Framebuffer Handle
	Presentable bool
}

const bufferUsage = BufferVertex | BufferIndex | BufferUniform | BufferStorage | BufferTransferSrc

// Directory caches GPU objects by name. A name, once bound, keeps its object
// until Close; later requests with different parameters get the first object.
// Failed creations are not cached. Directory is not safe for concurrent use.
type Directory struct {
	dev   Device
	alloc *Allocator

	images       map[string]*Image
	views        map[string]Handle
	buffers      map[string]*Buffer
	passes       map[string]Handle
	framebuffers map[string]Handle
	sets         map[string]Handle
	pipelines    map[string]Handle
	targets      map[string]*RenderTarget
}

func NewDirectory(dev Device, alloc *Allocator) *Directory {
	return &Directory{
		dev:          dev,
		alloc:        alloc,
		images:       make(map[string]*Image),
		views:        make(map[string]Handle),
		buffers:      make(map[string]*Buffer),
		passes:       make(map[string]Handle),
		framebuffers: make(map[string]Handle),
		sets:         make(map[string]Handle),
		pipelines:    make(map[string]Handle),
		targets:      make(map[string]*RenderTarget),
	}
}

func created(kind ResourceKind, name string, h Handle) {
	Logger().Debug("create", "kind", kind, "name", name, "handle", h)
}

// AdoptImage registers an image the directory does not own. No memory is
// allocated for it and Close does not destroy it.
func (d *Directory) AdoptImage(name string, h Handle, desc ImageDesc) *Image {
	if img, ok := d.images[name]; ok {
		return img
	}
	img := &Image{Name: name, Handle: h, Desc: desc}
	d.images[name] = img
	return img
}

// LookupImage returns the image bound to name, if any.
func (d *Directory) LookupImage(name string) (*Image, bool) {
	img, ok := d.images[name]
	return img, ok
}

// LookupBuffer returns the buffer bound to name, if any.
func (d *Directory) LookupBuffer(name string) (*Buffer, bool) {
	buf, ok := d.buffers[name]
	return buf, ok
}

// Image returns the image bound to name, creating it with device local
// memory on first use. The bool reports whether this call created it.
func (d *Directory) Image(name string, desc ImageDesc) (*Image, bool, error) {
	if img, ok := d.images[name]; ok {
		return img, false, nil
	}
	h, err := d.dev.CreateImage(desc)
	if err != nil {
		return nil, false, newResourceError(KindImage, name, err)
	}
	mem, err := d.alloc.AllocateImage(h, MemoryDeviceLocal)
	if err != nil {
		d.dev.Release(h)
		return nil, false, newResourceError(KindMemory, name, err)
	}
	img := &Image{Name: name, Handle: h, Desc: desc, Memory: mem}
	d.images[name] = img
	created(KindImage, name, h)
	return img, true, nil
}

// View returns the view of the image bound to name.
func (d *Directory) View(name string) (Handle, error) {
	if v, ok := d.views[name]; ok {
		return v, nil
	}
	img, ok := d.images[name]
	if !ok {
		return 0, newResourceError(KindView, name, fmt.Errorf("no image"))
	}
	v, err := d.dev.CreateImageView(img.Handle, img.Desc)
	if err != nil {
		return 0, newResourceError(KindView, name, err)
	}
	d.views[name] = v
	created(KindView, name, v)
	return v, nil
}

// Buffer returns the buffer bound to name, creating a host visible, host
// coherent buffer of size bytes on first use.
func (d *Directory) Buffer(name string, size uint64) (*Buffer, bool, error) {
	if buf, ok := d.buffers[name]; ok {
		return buf, false, nil
	}
	h, err := d.dev.CreateBuffer(size, bufferUsage)
	if err != nil {
		return nil, false, newResourceError(KindBuffer, name, err)
	}
	mem, err := d.alloc.AllocateBuffer(h, MemoryHostVisible|MemoryHostCoherent)
	if err != nil {
		d.dev.Release(h)
		return nil, false, newResourceError(KindMemory, name, err)
	}
	buf := &Buffer{Name: name, Handle: h, Size: size, Memory: mem}
	d.buffers[name] = buf
	created(KindBuffer, name, h)
	return buf, true, nil
}

// RenderPass returns the render pass bound to name.
func (d *Directory) RenderPass(name string, attachments int, presentable bool) (Handle, error) {
	if p, ok := d.passes[name]; ok {
		return p, nil
	}
	p, err := d.dev.CreateRenderPass(attachments, presentable)
	if err != nil {
		return 0, newResourceError(KindRenderPass, name, err)
	}
	d.passes[name] = p
	created(KindRenderPass, name, p)
	return p, nil
}

// Framebuffer returns the framebuffer bound to name.
func (d *Directory) Framebuffer(name string, pass Handle, views []Handle, w, h uint32) (Handle, error) {
	if fb, ok := d.framebuffers[name]; ok {
		return fb, nil
	}
	fb, err := d.dev.CreateFramebuffer(pass, views, w, h)
	if err != nil {
		return 0, newResourceError(KindFramebuffer, name, err)
	}
	d.framebuffers[name] = fb
	created(KindFramebuffer, name, fb)
	return fb, nil
}

// DescriptorSet returns the descriptor set bound to name.
func (d *Directory) DescriptorSet(name string) (Handle, error) {
	if s, ok := d.sets[name]; ok {
		return s, nil
	}
	s, err := d.dev.AllocateDescriptorSet()
	if err != nil {
		return 0, newResourceError(KindDescriptorSet, name, err)
	}
	d.sets[name] = s
	created(KindDescriptorSet, name, s)
	return s, nil
}

// Pipeline returns the pipeline bound to name, building it for pass on first
// use.
func (d *Directory) Pipeline(name string, shader Shader, pass Handle) (Handle, bool, error) {
	if p, ok := d.pipelines[name]; ok {
		return p, false, nil
	}
	p, err := d.dev.CreatePipeline(pass, shader)
	if err != nil {
		return 0, false, newResourceError(KindPipeline, name, err)
	}
	d.pipelines[name] = p
	created(KindPipeline, name, p)
	return p, true, nil
}

// RenderTarget resolves the color and depth images of name, their views,
// the render pass and the framebuffer. Parts created before a failure stay
// cached; the rest is retried on the next call.
func (d *Directory) RenderTarget(name string, w, h uint32, presentable bool) (*RenderTarget, error) {
	if rt, ok := d.targets[name]; ok {
		return rt, nil
	}
	color, _, err := d.Image(name, ImageDesc{Kind: ImageColor, Width: w, Height: h})
	if err != nil {
		return nil, err
	}
	depthName := DepthName(name)
	depth, _, err := d.Image(depthName, ImageDesc{Kind: ImageDepth, Width: w, Height: h})
	if err != nil {
		return nil, err
	}
	colorView, err := d.View(name)
	if err != nil {
		return nil, err
	}
	depthView, err := d.View(depthName)
	if err != nil {
		return nil, err
	}
	pass, err := d.RenderPass(name, 2, presentable)
	if err != nil {
		return nil, err
	}
	fb, err := d.Framebuffer(name, pass, []Handle{colorView, depthView}, w, h)
	if err != nil {
		return nil, err
	}
	rt := &RenderTarget{
		Name:        name,
		Color:       color,
		Depth:       depth,
		ColorView:   colorView,
		DepthView:   depthView,
		Pass:        pass,
		Framebuffer: fb,
		Presentable: presentable,
	}
	d.targets[name] = rt
	return rt, nil
}

// Count returns the number of cached objects of kind.
func (d *Directory) Count(kind ResourceKind) int {
	switch kind {
	case KindImage:
		return len(d.images)
	case KindView:
		return len(d.views)
	case KindBuffer:
		return len(d.buffers)
	case KindRenderPass:
		return len(d.passes)
	case KindFramebuffer:
		return len(d.framebuffers)
	case KindDescriptorSet:
		return len(d.sets)
	case KindPipeline:
		return len(d.pipelines)
	}
	return 0
}

// Close destroys every object the directory owns and empties it. The device
// must be idle.
func (d *Directory) Close() {
	for _, p := range d.pipelines {
		d.dev.Release(p)
	}
	for _, s := range d.sets {
		d.dev.Release(s)
	}
	for _, fb := range d.framebuffers {
		d.dev.Release(fb)
	}
	for _, p := range d.passes {
		d.dev.Release(p)
	}
	for _, v := range d.views {
		d.dev.Release(v)
	}
	for _, img := range d.images {
		if img.Memory == nil {
			continue
		}
		d.dev.Release(img.Handle)
		d.alloc.Free(img.Memory)
	}
	for _, buf := range d.buffers {
		d.dev.Release(buf.Handle)
		d.alloc.Free(buf.Memory)
	}
	clear(d.images)
	clear(d.views)
	clear(d.buffers)
	clear(d.passes)
	clear(d.framebuffers)
	clear(d.sets)
	clear(d.pipelines)
	clear(d.targets)
}
