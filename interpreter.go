package gcmd

import (
	"errors"
	"fmt"
	"log/slog"
)

// Interpreter replays a frame's commands into the command buffers of a slot,
// creating named resources through the directory as they are referenced.
type Interpreter struct {
	dev   Device
	alloc *Allocator
	dir   *Directory
	log   *slog.Logger
}

func NewInterpreter(dev Device, alloc *Allocator, dir *Directory, log *slog.Logger) *Interpreter {
	if log == nil {
		log = Logger()
	}
	return &Interpreter{dev: dev, alloc: alloc, dir: dir, log: log}
}

// frame is the per call context of Run.
type frame struct {
	slot       *Slot
	backbuffer string
	state      *RecordingState
}

// Run records cmds into slot. Uploads go to slot.Uploads, everything else to
// slot.Commands; both must have been begun. Commands that fail are logged and
// skipped, except for the fatal descriptor set errors.
func (in *Interpreter) Run(slot *Slot, cmds []Command) {
	f := &frame{
		slot:       slot,
		backbuffer: BackbufferName(slot.Index),
		state:      newRecordingState(slot.Commands),
	}
	for _, c := range cmds {
		in.log.Debug("command", "type", c.Type(), "name", c.Target())
		if err := in.execute(f, c); err != nil {
			if isFatal(err) {
				Fatal(err)
				return
			}
			if errors.Is(err, ErrMipLevel) {
				in.log.Debug("command skipped", "type", c.Type(), "name", c.Target(), "err", err)
				continue
			}
			in.log.Warn("command skipped", "type", c.Type(), "name", c.Target(), "err", err)
		}
	}
	f.state.CloseIfOpen()
	f.state.restoreSampled()
}

func isFatal(err error) bool {
	if errors.Is(err, ErrNoDescriptorSet) {
		return true
	}
	var re *ResourceError
	return errors.As(err, &re) && re.Kind == KindDescriptorSet
}

func (in *Interpreter) execute(f *frame, c Command) error {
	switch c := c.(type) {
	case SetRenderTargetCommand:
		return in.setRenderTarget(f, c)
	case SetTextureCommand:
		return in.setTexture(f, c)
	case SetConstantCommand:
		return in.setConstant(f, c)
	case SetVertexCommand:
		return in.setVertex(f, c)
	case SetIndexCommand:
		return in.setIndex(f, c)
	case SetShaderCommand:
		return in.setShader(f, c)
	case ClearCommand:
		return in.clear(f, c)
	case ClearDepthCommand:
		return in.clearDepth(f, c)
	case DrawIndexCommand:
		return in.drawIndex(f, c)
	case DrawCommand:
		return in.draw(f, c)
	case DispatchCommand:
		return in.dispatch(f, c)
	case SetBarrierToPresentCommand:
		return in.barrierToPresent(f, c)
	}
	return fmt.Errorf("%w: %T", ErrUnknownCommand, c)
}

func (in *Interpreter) setRenderTarget(f *frame, c SetRenderTargetCommand) error {
	f.state.CloseIfOpen()
	f.state.reset(c.Name)
	if err := Validate(c, false); err != nil {
		return err
	}
	rt, err := in.dir.RenderTarget(c.Name, c.Rect.W, c.Rect.H, c.Name == f.backbuffer)
	if err != nil {
		return err
	}
	f.state.restoreSampled()
	cb := f.state.cb
	cb.SetViewport(c.Rect)
	cb.SetScissor(c.Rect)
	f.state.begin(rt, c.Rect)
	set, err := in.dir.DescriptorSet(c.Name)
	if err != nil {
		return err
	}
	cb.BindDescriptorSet(set, BindGraphics)
	f.state.set = set
	f.state.failedTarget = ""
	return nil
}

func (in *Interpreter) setTexture(f *frame, c SetTextureCommand) error {
	if err := f.state.checkSet(); err != nil {
		return fmt.Errorf("%s %q: %w", c.Type(), c.Name, err)
	}
	_, exists := in.dir.LookupImage(c.Name)
	if err := Validate(c, exists); err != nil {
		return err
	}
	img, created, err := in.dir.Image(c.Name, ImageDesc{Kind: ImageTexture, Width: c.Rect.W, Height: c.Rect.H})
	if err != nil {
		return err
	}
	if created && len(c.Data) > 0 {
		if err := in.upload(f, img, c.Data, c.RowPitch()/TexelSize); err != nil {
			in.log.Warn("texture upload skipped", "name", c.Name, "err", err)
		}
	}
	if c.UAV && c.MipLevel >= img.Desc.Levels() {
		f.state.skipDispatch = true
		return fmt.Errorf("%s %q level %d: %w", c.Type(), c.Name, c.MipLevel, ErrMipLevel)
	}
	view, err := in.dir.View(c.Name)
	if err != nil {
		return err
	}
	w := DescriptorWrite{Set: f.state.set, View: view}
	if c.UAV {
		if !f.state.Open() {
			f.state.transition(img, LayoutGeneral)
			f.state.general = append(f.state.general, img)
		}
		w.Kind = DescriptorStorageImage
		w.Binding = Binding(c.Slot, SlotUAV)
	} else {
		w.Kind = DescriptorSampledImage
		w.Binding = Binding(c.Slot, SlotSRV)
	}
	in.dev.UpdateDescriptorSet(w)
	return nil
}

// upload copies data into a freshly created texture through a scratch buffer
// that lives until the slot is reused. rowLength is in texels.
func (in *Interpreter) upload(f *frame, img *Image, data []byte, rowLength uint32) error {
	buf, err := in.dev.CreateBuffer(uint64(len(data)), BufferTransferSrc)
	if err != nil {
		return newResourceError(KindBuffer, img.Name, err)
	}
	mem, err := in.alloc.AllocateBuffer(buf, MemoryHostVisible|MemoryHostCoherent)
	if err != nil {
		in.dev.Release(buf)
		return newResourceError(KindMemory, img.Name, err)
	}
	f.slot.keep(buf, mem)
	if err := in.alloc.Upload(mem, data); err != nil {
		return err
	}
	cb := f.slot.Uploads
	cb.TransitionImage(img.Handle, img.Desc.Kind, LayoutUndefined, LayoutTransferDst)
	cb.CopyBufferToImage(buf, img.Handle, img.Desc.Width, img.Desc.Height, rowLength)
	cb.TransitionImage(img.Handle, img.Desc.Kind, LayoutTransferDst, LayoutShaderReadOnly)
	img.Layout = LayoutShaderReadOnly
	return nil
}

// buffer resolves a named buffer, uploading data only when it is created.
func (in *Interpreter) buffer(c Command, data []byte) (*Buffer, error) {
	_, exists := in.dir.LookupBuffer(c.Target())
	if err := Validate(c, exists); err != nil {
		return nil, err
	}
	buf, created, err := in.dir.Buffer(c.Target(), uint64(len(data)))
	if err != nil {
		return nil, err
	}
	if created {
		if err := in.alloc.Upload(buf.Memory, data); err != nil {
			in.log.Warn("buffer upload skipped", "name", buf.Name, "err", err)
		}
	}
	return buf, nil
}

func (in *Interpreter) setConstant(f *frame, c SetConstantCommand) error {
	if err := f.state.checkSet(); err != nil {
		return fmt.Errorf("%s %q: %w", c.Type(), c.Name, err)
	}
	buf, err := in.buffer(c, c.Data)
	if err != nil {
		return err
	}
	in.dev.UpdateDescriptorSet(DescriptorWrite{
		Set:     f.state.set,
		Binding: Binding(c.Slot, SlotCBV),
		Kind:    DescriptorUniformBuffer,
		Buffer:  buf.Handle,
		Range:   buf.Size,
	})
	return nil
}

func (in *Interpreter) setVertex(f *frame, c SetVertexCommand) error {
	buf, err := in.buffer(c, c.Data)
	if err != nil {
		return err
	}
	f.state.cb.BindVertexBuffer(buf.Handle)
	f.state.vertex = true
	return nil
}

func (in *Interpreter) setIndex(f *frame, c SetIndexCommand) error {
	buf, err := in.buffer(c, c.Data)
	if err != nil {
		return err
	}
	f.state.cb.BindIndexBuffer(buf.Handle)
	f.state.index = true
	return nil
}

func (in *Interpreter) setShader(f *frame, c SetShaderCommand) error {
	compute := c.Flags&ShaderCompute != 0
	var pass Handle
	if compute {
		f.state.CloseIfOpen()
	} else {
		if !f.state.Open() {
			return fmt.Errorf("%s %q: %w", c.Type(), c.Name, ErrNoRenderPass)
		}
		pass = f.state.target.Pass
	}
	p, created, err := in.dir.Pipeline(c.Name, Shader{Name: c.Name, Source: c.Source, Compute: compute}, pass)
	if err != nil {
		return err
	}
	if !created && c.Flags&ShaderReload != 0 {
		in.log.Info("pipeline reload ignored", "name", c.Name)
	}
	point := BindGraphics
	if compute {
		point = BindCompute
		if f.state.set != 0 {
			f.state.cb.BindDescriptorSet(f.state.set, BindCompute)
		}
	}
	f.state.cb.BindPipeline(p, point)
	f.state.pipeline = p
	f.state.compute = compute
	return nil
}

func (in *Interpreter) clear(f *frame, c ClearCommand) error {
	if rt := f.state.target; rt != nil {
		if rt.Name != c.Name {
			return fmt.Errorf("%s %q: pass of %q is open", c.Type(), c.Name, rt.Name)
		}
		f.state.cb.ClearColorAttachment(c.Color, f.state.area)
		return nil
	}
	img, ok := in.dir.LookupImage(c.Name)
	if !ok {
		return fmt.Errorf("%s %q: no image", c.Type(), c.Name)
	}
	f.state.transition(img, LayoutGeneral)
	f.state.cb.ClearColorImage(img.Handle, c.Color)
	return nil
}

func (in *Interpreter) clearDepth(f *frame, c ClearDepthCommand) error {
	if rt := f.state.target; rt != nil {
		if rt.Name != c.Name {
			return fmt.Errorf("%s %q: pass of %q is open", c.Type(), c.Name, rt.Name)
		}
		f.state.cb.ClearDepthAttachment(c.Depth, f.state.area)
		return nil
	}
	img, ok := in.dir.LookupImage(DepthName(c.Name))
	if !ok {
		return fmt.Errorf("%s %q: no depth image", c.Type(), c.Name)
	}
	f.state.transition(img, LayoutGeneral)
	f.state.cb.ClearDepthImage(img.Handle, c.Depth)
	return nil
}

func (f *frame) checkDraw(c Command, indexed bool) error {
	switch {
	case !f.state.Open():
		return fmt.Errorf("%s %q: %w", c.Type(), c.Target(), ErrNoRenderPass)
	case f.state.pipeline == 0 || f.state.compute:
		return fmt.Errorf("%s %q: %w", c.Type(), c.Target(), ErrNoPipeline)
	case !f.state.vertex || (indexed && !f.state.index):
		return fmt.Errorf("%s %q: %w", c.Type(), c.Target(), ErrNoVertexState)
	}
	return nil
}

func (in *Interpreter) drawIndex(f *frame, c DrawIndexCommand) error {
	if err := f.checkDraw(c, true); err != nil {
		return err
	}
	f.state.cb.DrawIndexed(c.Start, c.Count)
	return nil
}

func (in *Interpreter) draw(f *frame, c DrawCommand) error {
	if err := f.checkDraw(c, false); err != nil {
		return err
	}
	f.state.cb.Draw(c.VertexCount)
	return nil
}

func (in *Interpreter) dispatch(f *frame, c DispatchCommand) error {
	if f.state.Open() {
		return fmt.Errorf("%s %q: render pass of %q is open", c.Type(), c.Name, f.state.target.Name)
	}
	if f.state.skipDispatch {
		f.state.skipDispatch = false
		return fmt.Errorf("%s %q: %w", c.Type(), c.Name, ErrMipLevel)
	}
	if f.state.pipeline == 0 || !f.state.compute {
		return fmt.Errorf("%s %q: %w", c.Type(), c.Name, ErrNoPipeline)
	}
	f.state.cb.Dispatch(c.X, c.Y, c.Z)
	return nil
}

func (in *Interpreter) barrierToPresent(f *frame, c SetBarrierToPresentCommand) error {
	f.state.CloseIfOpen()
	img, ok := in.dir.LookupImage(c.Name)
	if !ok {
		return fmt.Errorf("%s %q: no image", c.Type(), c.Name)
	}
	f.state.transition(img, LayoutPresentSrc)
	return nil
}
