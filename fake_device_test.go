package gcmd

import (
	"errors"
	"fmt"
	"testing"
)

var errFake = errors.New("fake failure")

// fakeDevice is an in-memory Device. Submitted work completes immediately and
// every call that matters for ordering is appended to trace.
type fakeDevice struct {
	next  Handle
	trace []string

	memory map[Handle][]byte
	bound  map[Handle]Handle
	sizes  map[Handle]uint64
	fences map[Handle]bool

	released map[Handle]bool
	writes   []DescriptorWrite
	waits    []Handle
	submits  int

	failImages int
	failMap    bool
	failSets   bool
	failPipes  bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		memory:   make(map[Handle][]byte),
		bound:    make(map[Handle]Handle),
		sizes:    make(map[Handle]uint64),
		fences:   make(map[Handle]bool),
		released: make(map[Handle]bool),
	}
}

func (d *fakeDevice) handle() Handle {
	d.next++
	return d.next
}

func (d *fakeDevice) record(format string, args ...any) {
	d.trace = append(d.trace, fmt.Sprintf(format, args...))
}

func (d *fakeDevice) MemoryTypes() []MemoryType {
	return []MemoryType{
		{Properties: MemoryDeviceLocal},
		{Properties: MemoryHostVisible | MemoryHostCoherent, HeapIndex: 1},
	}
}

func (d *fakeDevice) AllocateMemory(size uint64, memoryType uint32) (Handle, error) {
	h := d.handle()
	d.memory[h] = make([]byte, size)
	return h, nil
}

func (d *fakeDevice) MapMemory(mem Handle, size uint64) ([]byte, error) {
	if d.failMap {
		return nil, errFake
	}
	return d.memory[mem][:size], nil
}

func (d *fakeDevice) UnmapMemory(Handle) {}

func (d *fakeDevice) CreateImage(desc ImageDesc) (Handle, error) {
	if d.failImages > 0 {
		d.failImages--
		return 0, errFake
	}
	h := d.handle()
	d.sizes[h] = uint64(desc.Width) * uint64(desc.Height) * 4
	d.record("CreateImage %d", h)
	return h, nil
}

func (d *fakeDevice) ImageRequirements(image Handle) MemoryRequirements {
	return MemoryRequirements{Size: d.sizes[image], Alignment: 256, TypeBits: 0b11}
}

func (d *fakeDevice) BindImageMemory(image, mem Handle) error {
	d.bound[image] = mem
	return nil
}

func (d *fakeDevice) CreateImageView(image Handle, desc ImageDesc) (Handle, error) {
	return d.handle(), nil
}

func (d *fakeDevice) CreateBuffer(size uint64, usage BufferUsage) (Handle, error) {
	h := d.handle()
	d.sizes[h] = size
	d.record("CreateBuffer %d", h)
	return h, nil
}

func (d *fakeDevice) BufferRequirements(buffer Handle) MemoryRequirements {
	return MemoryRequirements{Size: d.sizes[buffer], Alignment: 16, TypeBits: 0b11}
}

func (d *fakeDevice) BindBufferMemory(buffer, mem Handle) error {
	d.bound[buffer] = mem
	return nil
}

func (d *fakeDevice) CreateRenderPass(attachments int, presentable bool) (Handle, error) {
	h := d.handle()
	d.record("CreateRenderPass %d presentable=%t", h, presentable)
	return h, nil
}

func (d *fakeDevice) CreateFramebuffer(pass Handle, views []Handle, w, h uint32) (Handle, error) {
	return d.handle(), nil
}

func (d *fakeDevice) AllocateDescriptorSet() (Handle, error) {
	if d.failSets {
		return 0, errFake
	}
	return d.handle(), nil
}

func (d *fakeDevice) UpdateDescriptorSet(w DescriptorWrite) {
	d.writes = append(d.writes, w)
}

func (d *fakeDevice) CreatePipeline(pass Handle, shader Shader) (Handle, error) {
	if d.failPipes {
		return 0, errFake
	}
	h := d.handle()
	d.record("CreatePipeline %s", shader.Name)
	return h, nil
}

func (d *fakeDevice) CreateCommandBuffer() (CommandBuffer, error) {
	return &fakeCommandBuffer{dev: d, id: d.handle()}, nil
}

func (d *fakeDevice) CreateFence(signaled bool) (Handle, error) {
	h := d.handle()
	d.fences[h] = signaled
	return h, nil
}

func (d *fakeDevice) FenceSignaled(fence Handle) bool {
	return d.fences[fence]
}

func (d *fakeDevice) WaitFence(fence Handle) error {
	d.waits = append(d.waits, fence)
	d.record("WaitFence %d", fence)
	return nil
}

func (d *fakeDevice) ResetFence(fence Handle) error {
	d.fences[fence] = false
	return nil
}

func (d *fakeDevice) Submit(fence Handle, cbs ...CommandBuffer) error {
	d.submits++
	d.fences[fence] = true
	d.record("Submit %d", fence)
	return nil
}

func (d *fakeDevice) WaitIdle() error {
	d.record("WaitIdle")
	return nil
}

func (d *fakeDevice) Release(h Handle) {
	d.released[h] = true
}

// contents returns the bytes of the memory bound to image or buffer h.
func (d *fakeDevice) contents(h Handle) []byte {
	return d.memory[d.bound[h]]
}

// ops returns the trace entries starting with one of prefixes.
func (d *fakeDevice) ops(prefixes ...string) []string {
	var out []string
	for _, op := range d.trace {
		for _, p := range prefixes {
			if len(op) >= len(p) && op[:len(p)] == p {
				out = append(out, op)
				break
			}
		}
	}
	return out
}

type fakeCommandBuffer struct {
	dev *fakeDevice
	id  Handle
}

func (cb *fakeCommandBuffer) Reset() error { return nil }
func (cb *fakeCommandBuffer) Begin() error { return nil }
func (cb *fakeCommandBuffer) End() error   { return nil }

func (cb *fakeCommandBuffer) BeginRenderPass(pass, framebuffer Handle, area Rect) {
	cb.dev.record("BeginRenderPass %d", pass)
}

func (cb *fakeCommandBuffer) EndRenderPass() {
	cb.dev.record("EndRenderPass")
}

func (cb *fakeCommandBuffer) SetViewport(r Rect) { cb.dev.record("SetViewport %dx%d", r.W, r.H) }
func (cb *fakeCommandBuffer) SetScissor(r Rect)  { cb.dev.record("SetScissor %dx%d", r.W, r.H) }

func (cb *fakeCommandBuffer) BindDescriptorSet(set Handle, point BindPoint) {
	cb.dev.record("BindDescriptorSet %d", set)
}

func (cb *fakeCommandBuffer) BindPipeline(p Handle, point BindPoint) {
	cb.dev.record("BindPipeline %d", p)
}

func (cb *fakeCommandBuffer) BindVertexBuffer(b Handle) { cb.dev.record("BindVertexBuffer %d", b) }
func (cb *fakeCommandBuffer) BindIndexBuffer(b Handle)  { cb.dev.record("BindIndexBuffer %d", b) }

func (cb *fakeCommandBuffer) DrawIndexed(first, count uint32) {
	cb.dev.record("DrawIndexed %d %d", first, count)
}

func (cb *fakeCommandBuffer) Draw(n uint32)          { cb.dev.record("Draw %d", n) }
func (cb *fakeCommandBuffer) Dispatch(x, y, z uint32) { cb.dev.record("Dispatch %d %d %d", x, y, z) }

func (cb *fakeCommandBuffer) ClearColorImage(img Handle, rgba [4]float32) {
	cb.dev.record("ClearColorImage %d", img)
}

func (cb *fakeCommandBuffer) ClearDepthImage(img Handle, depth float32) {
	cb.dev.record("ClearDepthImage %d", img)
}

func (cb *fakeCommandBuffer) ClearColorAttachment(rgba [4]float32, area Rect) {
	cb.dev.record("ClearColorAttachment")
}

func (cb *fakeCommandBuffer) ClearDepthAttachment(depth float32, area Rect) {
	cb.dev.record("ClearDepthAttachment")
}

func (cb *fakeCommandBuffer) TransitionImage(img Handle, kind ImageKind, from, to Layout) {
	cb.dev.record("TransitionImage %d %d->%d", img, from, to)
}

func (cb *fakeCommandBuffer) CopyBufferToImage(buf, img Handle, w, h, rowLength uint32) {
	copy(cb.dev.contents(img), cb.dev.contents(buf))
	cb.dev.record("CopyBufferToImage %d %d %dx%d row=%d", buf, img, w, h, rowLength)
}

type fatalExit int

// trapExit makes fatal errors panic with fatalExit for the duration of t.
func trapExit(t *testing.T) {
	t.Helper()
	prev := Exit
	Exit = func(code int) { panic(fatalExit(code)) }
	t.Cleanup(func() { Exit = prev })
}
