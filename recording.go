package gcmd

import "fmt"

// RecordingState is the state threaded through the commands of one frame.
// At most one render pass is open at a time.
type RecordingState struct {
	cb CommandBuffer

	target *RenderTarget
	area   Rect
	set    Handle

	pipeline Handle
	compute  bool
	vertex   bool
	index    bool

	// storage images moved to LayoutGeneral since the last pass.
	general []*Image
	// set by a rejected storage binding, consumed by the next dispatch.
	skipDispatch bool
	// name of the last SetRenderTarget that could not be set up.
	failedTarget string
}

func newRecordingState(cb CommandBuffer) *RecordingState {
	return &RecordingState{cb: cb}
}

// Open reports whether a render pass is open.
func (r *RecordingState) Open() bool {
	return r.target != nil
}

// Target returns the render target of the open pass, or nil.
func (r *RecordingState) Target() *RenderTarget {
	return r.target
}

// DescriptorSet returns the set bound by the last SetRenderTarget.
func (r *RecordingState) DescriptorSet() Handle {
	return r.set
}

// reset drops the bindings of the previous target. Descriptor writes fail
// until the next target binds its own set.
func (r *RecordingState) reset(target string) {
	r.set = 0
	r.pipeline = 0
	r.compute = false
	r.vertex = false
	r.index = false
	r.failedTarget = target
}

// checkSet reports why descriptor writes can not be recorded, if they can't.
func (r *RecordingState) checkSet() error {
	switch {
	case r.set != 0:
		return nil
	case r.failedTarget != "":
		return fmt.Errorf("render target %q: %w", r.failedTarget, ErrTargetUnavailable)
	}
	return ErrNoDescriptorSet
}

func (r *RecordingState) begin(rt *RenderTarget, area Rect) {
	r.cb.BeginRenderPass(rt.Pass, rt.Framebuffer, area)
	r.target = rt
	r.area = area
}

// CloseIfOpen ends the open render pass, if any, and records the layouts the
// pass leaves its attachments in.
func (r *RecordingState) CloseIfOpen() {
	if r.target == nil {
		return
	}
	r.cb.EndRenderPass()
	if r.target.Presentable {
		r.target.Color.Layout = LayoutPresentSrc
	} else {
		r.target.Color.Layout = LayoutShaderReadOnly
	}
	r.target.Depth.Layout = LayoutDepthAttachment
	r.target = nil
}

func (r *RecordingState) transition(img *Image, to Layout) {
	if img.Layout == to {
		return
	}
	r.cb.TransitionImage(img.Handle, img.Desc.Kind, img.Layout, to)
	img.Layout = to
}

// restoreSampled moves storage images back to LayoutShaderReadOnly. Barriers
// can not be recorded inside a pass, so this runs before each pass begins.
func (r *RecordingState) restoreSampled() {
	for _, img := range r.general {
		r.transition(img, LayoutShaderReadOnly)
	}
	r.general = r.general[:0]
}
