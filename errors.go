package gcmd

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrSetupFatal marks initialization failures that end the process.
	ErrSetupFatal = errors.New("gcmd: fatal setup error")
	// ErrResourceCreation is wrapped by every ResourceError.
	ErrResourceCreation = errors.New("gcmd: resource creation failed")
	// ErrMapFailed is returned when host visible memory can not be mapped.
	ErrMapFailed = errors.New("gcmd: memory map failed")
	// ErrNoMemoryType is returned when no memory type satisfies a request.
	ErrNoMemoryType = errors.New("gcmd: no matching memory type")
	// ErrNoDescriptorSet is raised by descriptor writes issued before any
	// SetRenderTarget of the frame.
	ErrNoDescriptorSet = errors.New("gcmd: no descriptor set bound")
	// ErrTargetUnavailable is reported for descriptor writes that follow a
	// SetRenderTarget which failed; they are skipped.
	ErrTargetUnavailable = errors.New("gcmd: render target unavailable")
	// ErrNoPipeline is reported for draws with no pipeline bound.
	ErrNoPipeline = errors.New("gcmd: no pipeline bound")
	// ErrNoVertexState is reported for draws with no vertex or index buffer
	// bound.
	ErrNoVertexState = errors.New("gcmd: no vertex state bound")
	// ErrNoRenderPass is reported by SetShader outside of a render pass.
	ErrNoRenderPass = errors.New("gcmd: no render pass open")
	// ErrMipLevel is reported for storage bindings of a mip level the image
	// does not have. The next Dispatch is skipped with it.
	ErrMipLevel = errors.New("gcmd: mip level out of range")
	// ErrUnknownCommand is reported for command types the interpreter does
	// not handle.
	ErrUnknownCommand = errors.New("gcmd: unknown command")
	// ErrClosed is returned by a GraphicsContext after Close.
	ErrClosed = errors.New("gcmd: context closed")
)

// ResourceKind names a directory category.
type ResourceKind string

const (
	KindImage         ResourceKind = "image"
	KindView          ResourceKind = "view"
	KindBuffer        ResourceKind = "buffer"
	KindMemory        ResourceKind = "memory"
	KindRenderPass    ResourceKind = "renderpass"
	KindFramebuffer   ResourceKind = "framebuffer"
	KindDescriptorSet ResourceKind = "descriptorset"
	KindPipeline      ResourceKind = "pipeline"
)

// ResourceError reports a failed creation. Nothing is cached for Name, so the
// next reference tries again.
type ResourceError struct {
	Kind ResourceKind
	Name string
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("gcmd: create %s %q: %v", e.Kind, e.Name, e.Err)
}

func (e *ResourceError) Unwrap() []error {
	return []error{ErrResourceCreation, e.Err}
}

func newResourceError(kind ResourceKind, name string, err error) error {
	return &ResourceError{Kind: kind, Name: name, Err: err}
}

// Exit terminates the process after a fatal error. Tests replace it.
var Exit = os.Exit

// Fatal logs err and calls Exit(1).
func Fatal(err error) {
	Logger().Error("fatal", "err", err)
	Exit(1)
}
