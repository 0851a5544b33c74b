package gcmd

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type interpreterFixture struct {
	dev    *fakeDevice
	dir    *Directory
	interp *Interpreter
	slot   *Slot
}

func newInterpreterFixture(t *testing.T) *interpreterFixture {
	t.Helper()
	dev := newFakeDevice()
	alloc := NewAllocator(dev)
	dir := NewDirectory(dev, alloc)
	cmds, err := dev.CreateCommandBuffer()
	require.NoError(t, err)
	uploads, err := dev.CreateCommandBuffer()
	require.NoError(t, err)
	return &interpreterFixture{
		dev:    dev,
		dir:    dir,
		interp: NewInterpreter(dev, alloc, dir, nil),
		slot:   &Slot{Index: 0, Commands: cmds, Uploads: uploads},
	}
}

func (f *interpreterFixture) run(s *Stream) {
	f.interp.Run(f.slot, s.Commands())
}

func pattern(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i)
	}
	return b
}

func TestInterpreterEndsPassBeforeNextBegin(t *testing.T) {
	f := newInterpreterFixture(t)

	var s Stream
	s.SetRenderTarget("x", 16, 16).
		SetRenderTarget("y", 16, 16).
		SetRenderTarget("x", 16, 16)
	f.run(&s)

	ops := f.dev.ops("BeginRenderPass", "EndRenderPass")
	require.Len(t, ops, 6)
	for i, op := range ops {
		if i%2 == 0 {
			assert.Contains(t, op, "BeginRenderPass", "op %d", i)
		} else {
			assert.Equal(t, "EndRenderPass", op, "op %d", i)
		}
	}
}

func TestInterpreterRenderTargetSetup(t *testing.T) {
	f := newInterpreterFixture(t)

	var s Stream
	s.SetRenderTarget("rt0", 64, 32)
	f.run(&s)

	rt, err := f.dir.RenderTarget("rt0", 0, 0, false)
	require.NoError(t, err)
	set, err := f.dir.DescriptorSet("rt0")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"SetViewport 64x32",
		"SetScissor 64x32",
		fmt.Sprintf("BeginRenderPass %d", rt.Pass),
		fmt.Sprintf("BindDescriptorSet %d", set),
		"EndRenderPass",
	}, f.dev.ops("SetViewport", "SetScissor", "BeginRenderPass", "BindDescriptorSet", "EndRenderPass"))
	assert.Equal(t, LayoutShaderReadOnly, rt.Color.Layout)
}

func TestInterpreterPresentableOnlyForSlotBackbuffer(t *testing.T) {
	f := newInterpreterFixture(t)
	f.dir.AdoptImage(BackbufferName(0), 500, ImageDesc{Kind: ImageColor, Width: 8, Height: 8})
	f.dir.AdoptImage(BackbufferName(1), 501, ImageDesc{Kind: ImageColor, Width: 8, Height: 8})

	var s Stream
	s.SetRenderTarget("offscreen0", 8, 8).
		SetRenderTarget(BackbufferName(1), 8, 8).
		SetRenderTarget(BackbufferName(0), 8, 8)
	f.run(&s)

	ops := f.dev.ops("CreateRenderPass")
	require.Len(t, ops, 3)
	assert.Contains(t, ops[0], "presentable=false")
	assert.Contains(t, ops[1], "presentable=false")
	assert.Contains(t, ops[2], "presentable=true")

	bb, _ := f.dir.LookupImage(BackbufferName(0))
	assert.Equal(t, LayoutPresentSrc, bb.Layout)
}

func TestInterpreterWriteOnceBuffers(t *testing.T) {
	f := newInterpreterFixture(t)

	first := pattern(16, 1)
	var s Stream
	s.SetRenderTarget("rt", 8, 8).
		SetVertex("vb", first, VertexStride).
		SetIndex("ib", first).
		SetConstant("cb", 0, first)
	f.run(&s)

	s.Reset()
	s.SetRenderTarget("rt", 8, 8).
		SetVertex("vb", pattern(16, 100), VertexStride).
		SetIndex("ib", pattern(16, 100)).
		SetConstant("cb", 0, pattern(16, 100))
	f.run(&s)

	for _, name := range []string{"vb", "ib", "cb"} {
		buf, ok := f.dir.LookupBuffer(name)
		require.True(t, ok, name)
		assert.Equal(t, first, f.dev.contents(buf.Handle)[:16], name)
	}
	assert.Len(t, f.dev.ops("CreateBuffer"), 3)
}

func TestInterpreterWriteOnceTexture(t *testing.T) {
	f := newInterpreterFixture(t)

	first := pattern(64, 1)
	var s Stream
	s.SetRenderTarget("rt", 8, 8).SetTexture("tex", 0, 4, 4, first, 16)
	f.run(&s)
	assert.Equal(t, 1, f.slot.Scratch())

	s.Reset()
	s.SetRenderTarget("rt", 8, 8).SetTexture("tex", 0, 4, 4, pattern(64, 100), 16)
	f.run(&s)

	img, ok := f.dir.LookupImage("tex")
	require.True(t, ok)
	assert.True(t, bytes.Equal(first, f.dev.contents(img.Handle)[:64]))
	assert.Len(t, f.dev.ops("CopyBufferToImage"), 1)
	assert.Equal(t, []string{
		fmt.Sprintf("TransitionImage %d %d->%d", img.Handle, LayoutUndefined, LayoutTransferDst),
		fmt.Sprintf("TransitionImage %d %d->%d", img.Handle, LayoutTransferDst, LayoutShaderReadOnly),
	}, f.dev.ops("TransitionImage"))
	assert.Equal(t, LayoutShaderReadOnly, img.Layout)
}

func TestInterpreterDescriptorBindings(t *testing.T) {
	f := newInterpreterFixture(t)

	var s Stream
	s.SetRenderTarget("rt", 8, 8).
		SetTexture("tex", 2, 4, 4, pattern(64, 0), 16).
		SetConstant("cb", 1, pattern(48, 0)).
		SetTextureUAV("tex", 1, 4, 4, 0)
	f.run(&s)

	set, err := f.dir.DescriptorSet("rt")
	require.NoError(t, err)
	cb, _ := f.dir.LookupBuffer("cb")

	require.Len(t, f.dev.writes, 3)
	assert.Equal(t, set, f.dev.writes[0].Set)
	assert.Equal(t, uint32(6), f.dev.writes[0].Binding)
	assert.Equal(t, DescriptorSampledImage, f.dev.writes[0].Kind)
	assert.Equal(t, uint32(4), f.dev.writes[1].Binding)
	assert.Equal(t, DescriptorUniformBuffer, f.dev.writes[1].Kind)
	assert.Equal(t, cb.Handle, f.dev.writes[1].Buffer)
	assert.Equal(t, uint64(48), f.dev.writes[1].Range)
	assert.Equal(t, uint32(5), f.dev.writes[2].Binding)
	assert.Equal(t, DescriptorStorageImage, f.dev.writes[2].Kind)
}

func TestInterpreterDescriptorWriteWithoutTargetIsFatal(t *testing.T) {
	trapExit(t)
	f := newInterpreterFixture(t)

	var s Stream
	s.SetConstant("cb", 0, pattern(16, 0))
	assert.PanicsWithValue(t, fatalExit(1), func() { f.run(&s) })
}

func TestInterpreterDescriptorSetFailureIsFatal(t *testing.T) {
	trapExit(t)
	f := newInterpreterFixture(t)
	f.dev.failSets = true

	var s Stream
	s.SetRenderTarget("rt", 8, 8)
	assert.PanicsWithValue(t, fatalExit(1), func() { f.run(&s) })
}

func TestInterpreterFailedTargetSkipsWrites(t *testing.T) {
	f := newInterpreterFixture(t)

	var s Stream
	s.SetRenderTarget("a", 8, 8)
	f.run(&s)
	setA, err := f.dir.DescriptorSet("a")
	require.NoError(t, err)

	f.dev.failImages = 1
	s.Reset()
	s.SetRenderTarget("a", 8, 8).
		SetShader("s", "s", 0).
		SetRenderTarget("b", 8, 8).
		SetConstant("cb", 0, pattern(16, 0)).
		SetTexture("tex", 0, 4, 4, pattern(64, 0), 16).
		SetVertex("vb", pattern(16, 0), VertexStride).
		Draw("b", 3)
	assert.NotPanics(t, func() { f.run(&s) })
	assert.Empty(t, f.dev.writes, "writes after a failed target must not land in another set")
	assert.Empty(t, f.dev.ops("Draw"))
	_, ok := f.dir.LookupImage("b")
	assert.False(t, ok)

	// the next reference retries and binds its own set
	s.Reset()
	s.SetRenderTarget("b", 8, 8).SetConstant("cb", 0, pattern(16, 0))
	f.run(&s)
	setB, err := f.dir.DescriptorSet("b")
	require.NoError(t, err)
	require.Len(t, f.dev.writes, 1)
	assert.Equal(t, setB, f.dev.writes[0].Set)
	assert.NotEqual(t, setA, setB)
}

func TestInterpreterStateDoesNotCrossTargets(t *testing.T) {
	f := newInterpreterFixture(t)

	var s Stream
	s.SetRenderTarget("a", 8, 8).
		SetShader("s", "s", 0).
		SetVertex("vb", pattern(36, 0), VertexStride).
		SetIndex("ib", pattern(12, 0)).
		DrawIndex("a", 0, 3).
		SetRenderTarget("b", 8, 8).
		DrawIndex("b", 0, 3)
	f.run(&s)

	assert.Equal(t, []string{"DrawIndexed 0 3"}, f.dev.ops("Draw"))
}

func TestInterpreterFailedTargetWriteIsNotFatal(t *testing.T) {
	f := newInterpreterFixture(t)
	f.dev.failImages = 1

	var s Stream
	s.SetRenderTarget("a", 8, 8).SetConstant("cb", 0, pattern(16, 0))
	fr := &frame{slot: f.slot, state: newRecordingState(f.slot.Commands)}
	for _, c := range s.Commands() {
		err := f.interp.execute(fr, c)
		if c.Type() == CmdSetConstant {
			assert.ErrorIs(t, err, ErrTargetUnavailable)
			assert.False(t, isFatal(err))
		}
	}
}

func TestInterpreterTextureRowPitch(t *testing.T) {
	f := newInterpreterFixture(t)

	var s Stream
	s.SetRenderTarget("rt", 8, 8).
		SetTexture("short", 0, 64, 64, pattern(8, 0), 0).
		SetTexture("empty", 1, 0, 0, pattern(8, 0), 0).
		SetTexture("padded", 2, 4, 2, pattern(64, 0), 32)
	f.run(&s)

	_, ok := f.dir.LookupImage("short")
	assert.False(t, ok, "a payload shorter than its rect is not uploaded")
	_, ok = f.dir.LookupImage("empty")
	assert.False(t, ok)

	img, ok := f.dir.LookupImage("padded")
	require.True(t, ok)
	buf := f.dev.ops("CreateBuffer")
	require.Len(t, buf, 1)
	copies := f.dev.ops("CopyBufferToImage")
	require.Len(t, copies, 1)
	assert.Contains(t, copies[0], fmt.Sprintf(" %d 4x2 row=8", img.Handle))
	assert.Len(t, f.dev.writes, 1)
}

func TestInterpreterVertexStride(t *testing.T) {
	f := newInterpreterFixture(t)

	var s Stream
	s.SetRenderTarget("rt", 8, 8).
		SetVertex("narrow", pattern(24, 0), 24).
		SetVertex("vb", pattern(36, 0), 0)
	f.run(&s)

	_, ok := f.dir.LookupBuffer("narrow")
	assert.False(t, ok)
	_, ok = f.dir.LookupBuffer("vb")
	assert.True(t, ok)
	assert.Len(t, f.dev.ops("BindVertexBuffer"), 1)
}

func TestInterpreterDrawNeedsState(t *testing.T) {
	f := newInterpreterFixture(t)

	var s Stream
	s.DrawIndex("nopass", 0, 3).
		SetRenderTarget("rt", 8, 8).
		DrawIndex("nopipe", 0, 3).
		SetShader("s", "s", 0).
		DrawIndex("novertex", 0, 3).
		SetVertex("vb", pattern(16, 0), VertexStride).
		DrawIndex("noindex", 0, 3).
		Draw("ok", 3).
		SetIndex("ib", pattern(12, 0)).
		DrawIndex("ok", 0, 3)
	f.run(&s)

	assert.Equal(t, []string{"Draw 3", "DrawIndexed 0 3"}, f.dev.ops("Draw"))
}

func TestInterpreterShaderNeedsPass(t *testing.T) {
	f := newInterpreterFixture(t)

	var s Stream
	s.SetShader("s", "s", 0)
	f.run(&s)
	assert.Empty(t, f.dev.ops("CreatePipeline"))

	s.Reset()
	s.SetRenderTarget("rt", 8, 8).SetShader("s", "s", 0).SetShader("s", "s", ShaderReload)
	f.run(&s)
	assert.Len(t, f.dev.ops("CreatePipeline"), 1)
	assert.Len(t, f.dev.ops("BindPipeline"), 2)
}

func TestInterpreterFailedPipelineIsRetried(t *testing.T) {
	f := newInterpreterFixture(t)
	f.dev.failPipes = true

	var s Stream
	s.SetRenderTarget("rt", 8, 8).SetShader("s", "s", 0)
	f.run(&s)
	assert.Equal(t, 0, f.dir.Count(KindPipeline))

	f.dev.failPipes = false
	f.run(&s)
	assert.Equal(t, 1, f.dir.Count(KindPipeline))
}

func TestInterpreterClear(t *testing.T) {
	f := newInterpreterFixture(t)

	var s Stream
	s.SetRenderTarget("a", 8, 8).
		Clear("a", [4]float32{0, 1, 1, 1}).
		ClearDepth("a", 1).
		Clear("b", [4]float32{})
	f.run(&s)
	assert.Equal(t, []string{"ClearColorAttachment", "ClearDepthAttachment"}, f.dev.ops("Clear"))

	s.Reset()
	s.SetRenderTarget("b", 8, 8).
		SetBarrierToPresent("b").
		Clear("a", [4]float32{1, 0, 0, 1}).
		ClearDepth("a", 1)
	f.run(&s)

	a, _ := f.dir.LookupImage("a")
	ad, _ := f.dir.LookupImage(DepthName("a"))
	assert.Equal(t, []string{
		"ClearColorAttachment",
		"ClearDepthAttachment",
		fmt.Sprintf("ClearColorImage %d", a.Handle),
		fmt.Sprintf("ClearDepthImage %d", ad.Handle),
	}, f.dev.ops("Clear"))
	assert.Equal(t, LayoutGeneral, a.Layout)
	assert.Equal(t, LayoutGeneral, ad.Layout)
}

func TestInterpreterBarrierToPresent(t *testing.T) {
	f := newInterpreterFixture(t)
	f.dir.AdoptImage(BackbufferName(0), 500, ImageDesc{Kind: ImageColor, Width: 8, Height: 8})

	var s Stream
	s.SetRenderTarget(BackbufferName(0), 8, 8).
		SetBarrierToPresent(BackbufferName(0)).
		SetRenderTarget("offscreen", 8, 8).
		SetBarrierToPresent("offscreen")
	f.run(&s)

	off, _ := f.dir.LookupImage("offscreen")
	assert.Equal(t, []string{
		fmt.Sprintf("TransitionImage %d %d->%d", off.Handle, LayoutShaderReadOnly, LayoutPresentSrc),
	}, f.dev.ops("TransitionImage"))
}

func TestInterpreterCompute(t *testing.T) {
	f := newInterpreterFixture(t)

	var s Stream
	s.SetRenderTarget("rt", 8, 8).
		Dispatch("inpass", 1, 1, 1).
		GenerateMipmap("rt", "mip", 8, 8).
		SetTextureUAV("rt", 0, 0, 0, 0).
		Dispatch("blur", 2, 2, 1).
		SetRenderTarget("next", 8, 8)
	f.run(&s)

	// images have one level, so the mip chain dispatches are all skipped
	rt, _ := f.dir.LookupImage("rt")
	assert.Equal(t, []string{"Dispatch 2 2 1"}, f.dev.ops("Dispatch"))
	assert.Equal(t, []string{
		fmt.Sprintf("TransitionImage %d %d->%d", rt.Handle, LayoutShaderReadOnly, LayoutGeneral),
		fmt.Sprintf("TransitionImage %d %d->%d", rt.Handle, LayoutGeneral, LayoutShaderReadOnly),
	}, f.dev.ops("TransitionImage"))

	// the barrier back to sampled happens before the next pass begins
	trace := f.dev.ops("TransitionImage", "BeginRenderPass")
	assert.Contains(t, trace[len(trace)-1], "BeginRenderPass")
}

func TestInterpreterMapFailureSkipsUpload(t *testing.T) {
	f := newInterpreterFixture(t)
	f.dev.failMap = true

	var s Stream
	s.SetRenderTarget("rt", 8, 8).SetTexture("tex", 0, 4, 4, pattern(64, 1), 16)
	f.run(&s)

	assert.Empty(t, f.dev.ops("CopyBufferToImage"))
	assert.Equal(t, 1, f.slot.Scratch())
	assert.Len(t, f.dev.writes, 1)
}

type unknownCommand struct{}

func (unknownCommand) Type() CommandType { return CommandType(99) }
func (unknownCommand) Target() string    { return "x" }

func TestInterpreterUnknownCommand(t *testing.T) {
	f := newInterpreterFixture(t)
	err := f.interp.execute(&frame{slot: f.slot, state: newRecordingState(f.slot.Commands)}, unknownCommand{})
	assert.ErrorIs(t, err, ErrUnknownCommand)
}
