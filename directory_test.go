package gcmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDirectory() (*fakeDevice, *Directory) {
	dev := newFakeDevice()
	return dev, NewDirectory(dev, NewAllocator(dev))
}

func TestDirectoryRenderTargetIdempotent(t *testing.T) {
	dev, dir := newTestDirectory()

	a, err := dir.RenderTarget("rt0", 64, 64, false)
	require.NoError(t, err)
	b, err := dir.RenderTarget("rt0", 128, 128, true)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, uint32(64), b.Color.Desc.Width)
	assert.False(t, b.Presentable)
	assert.Len(t, dev.ops("CreateImage"), 2)
	assert.Len(t, dev.ops("CreateRenderPass"), 1)

	depth, ok := dir.LookupImage(DepthName("rt0"))
	require.True(t, ok)
	assert.Same(t, a.Depth, depth)
	assert.Equal(t, ImageDepth, depth.Desc.Kind)
}

func TestDirectoryNamesAreIndependent(t *testing.T) {
	dev, dir := newTestDirectory()

	a, _, err := dir.Buffer("a", 16)
	require.NoError(t, err)
	b, _, err := dir.Buffer("b", 16)
	require.NoError(t, err)
	assert.NotEqual(t, a.Handle, b.Handle)
	assert.NotEqual(t, a.Memory.Memory, b.Memory.Memory)

	copy(dev.contents(a.Handle), []byte{1, 2, 3})
	again, created, err := dir.Buffer("b", 16)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, b, again)
	assert.Equal(t, []byte{0, 0, 0}, dev.contents(b.Handle)[:3])
}

func TestDirectoryFailedCreationIsRetried(t *testing.T) {
	dev, dir := newTestDirectory()
	dev.failImages = 1

	_, _, err := dir.Image("tex", ImageDesc{Kind: ImageTexture, Width: 4, Height: 4})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrResourceCreation))
	var re *ResourceError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, KindImage, re.Kind)
	assert.Equal(t, "tex", re.Name)
	assert.Equal(t, 0, dir.Count(KindImage))

	img, created, err := dir.Image("tex", ImageDesc{Kind: ImageTexture, Width: 4, Height: 4})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotNil(t, img.Memory)
}

func TestDirectoryRenderTargetPartialFailure(t *testing.T) {
	dev, dir := newTestDirectory()

	color, _, err := dir.Image("rt", ImageDesc{Kind: ImageColor, Width: 8, Height: 8})
	require.NoError(t, err)

	dev.failImages = 1
	_, err = dir.RenderTarget("rt", 8, 8, false)
	require.Error(t, err)
	assert.Equal(t, 1, dir.Count(KindImage))
	assert.Equal(t, 0, dir.Count(KindRenderPass))

	rt, err := dir.RenderTarget("rt", 8, 8, false)
	require.NoError(t, err)
	assert.Same(t, color, rt.Color)
	assert.NotZero(t, rt.Framebuffer)
	assert.Equal(t, 2, dir.Count(KindImage))
}

func TestDirectoryAdoptImage(t *testing.T) {
	dev, dir := newTestDirectory()

	img := dir.AdoptImage(BackbufferName(0), 77, ImageDesc{Kind: ImageColor, Width: 32, Height: 32})
	assert.Nil(t, img.Memory)

	rt, err := dir.RenderTarget(BackbufferName(0), 32, 32, true)
	require.NoError(t, err)
	assert.Equal(t, Handle(77), rt.Color.Handle)
	assert.True(t, rt.Presentable)
	// only the depth image is created
	assert.Len(t, dev.ops("CreateImage"), 1)

	dir.Close()
	assert.False(t, dev.released[77])
	assert.True(t, dev.released[rt.Depth.Handle])
	assert.True(t, dev.released[rt.Pass])
	assert.Equal(t, 0, dir.Count(KindImage))
}

func TestDirectoryViewNeedsImage(t *testing.T) {
	_, dir := newTestDirectory()
	_, err := dir.View("missing")
	assert.ErrorIs(t, err, ErrResourceCreation)
}
