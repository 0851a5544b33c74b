package gcmd

import (
	"errors"
	"fmt"
)

// CommandType identifies the kind of a command in a frame stream.
type CommandType uint8

const (
	CmdSetRenderTarget CommandType = iota
	CmdSetTexture
	CmdSetTextureUAV
	CmdSetConstant
	CmdSetVertex
	CmdSetIndex
	CmdSetShader
	CmdClear
	CmdClearDepth
	CmdDrawIndex
	CmdDraw
	CmdDispatch
	CmdSetBarrierToPresent
)

var commandTypeNames = [...]string{
	CmdSetRenderTarget:     "SetRenderTarget",
	CmdSetTexture:          "SetTexture",
	CmdSetTextureUAV:       "SetTextureUAV",
	CmdSetConstant:         "SetConstant",
	CmdSetVertex:           "SetVertex",
	CmdSetIndex:            "SetIndex",
	CmdSetShader:           "SetShader",
	CmdClear:               "Clear",
	CmdClearDepth:          "ClearDepth",
	CmdDrawIndex:           "DrawIndex",
	CmdDraw:                "Draw",
	CmdDispatch:            "Dispatch",
	CmdSetBarrierToPresent: "SetBarrierToPresent",
}

// String returns the name of the command type.
func (c CommandType) String() string {
	if int(c) < len(commandTypeNames) {
		return commandTypeNames[c]
	}
	return "Unknown"
}

// Command is one entry of a frame's command stream. Every command addresses a
// named resource.
type Command interface {
	Type() CommandType
	Target() string
}

// Rect is a region in pixels.
type Rect struct {
	X, Y int32
	W, H uint32
}

// ShaderFlags modify how a SetShader command is treated.
type ShaderFlags uint32

const (
	// ShaderReload asks for the pipeline to be rebuilt. Pipelines are
	// write-once, so the request is only logged.
	ShaderReload ShaderFlags = 1 << iota
	// ShaderCompute builds a compute pipeline from Source. The open render
	// pass, if any, is ended first.
	ShaderCompute
)

// SetRenderTargetCommand begins a render pass on the named target.
type SetRenderTargetCommand struct {
	Name string
	Rect Rect
}

// SetTextureCommand binds a texture at a shader slot, uploading Data the first
// time the name is seen.
type SetTextureCommand struct {
	Name string
	Slot uint32
	Rect Rect
	Data []byte
	// Pitch is the byte distance between rows of Data. Zero means tightly
	// packed rows of Rect.W texels.
	Pitch    uint32
	MipLevel uint32
	// UAV binds the image as a storage image instead of a sampled one.
	UAV bool
}

// SetConstantCommand binds a uniform buffer at a shader slot.
type SetConstantCommand struct {
	Name string
	Slot uint32
	Data []byte
}

// SetVertexCommand binds a vertex buffer.
type SetVertexCommand struct {
	Name string
	Data []byte
	// Stride must be zero or VertexStride; every pipeline reads that fixed
	// layout.
	Stride uint32
}

// SetIndexCommand binds a 32-bit index buffer.
type SetIndexCommand struct {
	Name string
	Data []byte
}

// SetShaderCommand binds the graphics pipeline built from Source.
type SetShaderCommand struct {
	Name   string
	Source string
	Flags  ShaderFlags
}

// ClearCommand clears a color image.
type ClearCommand struct {
	Name  string
	Color [4]float32
}

// ClearDepthCommand clears the depth image of a render target.
type ClearDepthCommand struct {
	Name  string
	Depth float32
}

// DrawIndexCommand draws indexed primitives.
type DrawIndexCommand struct {
	Name  string
	Start uint32
	Count uint32
}

// DrawCommand draws non-indexed primitives.
type DrawCommand struct {
	Name        string
	VertexCount uint32
}

// DispatchCommand dispatches compute work groups.
type DispatchCommand struct {
	Name    string
	X, Y, Z uint32
}

// SetBarrierToPresentCommand moves the named image into the presentable
// layout.
type SetBarrierToPresentCommand struct {
	Name string
}

func (c SetRenderTargetCommand) Type() CommandType { return CmdSetRenderTarget }
func (c SetTextureCommand) Type() CommandType {
	if c.UAV {
		return CmdSetTextureUAV
	}
	return CmdSetTexture
}
func (SetConstantCommand) Type() CommandType         { return CmdSetConstant }
func (SetVertexCommand) Type() CommandType           { return CmdSetVertex }
func (SetIndexCommand) Type() CommandType            { return CmdSetIndex }
func (SetShaderCommand) Type() CommandType           { return CmdSetShader }
func (ClearCommand) Type() CommandType               { return CmdClear }
func (ClearDepthCommand) Type() CommandType          { return CmdClearDepth }
func (DrawIndexCommand) Type() CommandType           { return CmdDrawIndex }
func (DrawCommand) Type() CommandType                { return CmdDraw }
func (DispatchCommand) Type() CommandType            { return CmdDispatch }
func (SetBarrierToPresentCommand) Type() CommandType { return CmdSetBarrierToPresent }

func (c SetRenderTargetCommand) Target() string     { return c.Name }
func (c SetTextureCommand) Target() string          { return c.Name }
func (c SetConstantCommand) Target() string         { return c.Name }
func (c SetVertexCommand) Target() string           { return c.Name }
func (c SetIndexCommand) Target() string            { return c.Name }
func (c SetShaderCommand) Target() string           { return c.Name }
func (c ClearCommand) Target() string               { return c.Name }
func (c ClearDepthCommand) Target() string          { return c.Name }
func (c DrawIndexCommand) Target() string           { return c.Name }
func (c DrawCommand) Target() string                { return c.Name }
func (c DispatchCommand) Target() string            { return c.Name }
func (c SetBarrierToPresentCommand) Target() string { return c.Name }

// ErrEmptyPayload is returned when a buffer command carries no bytes for a
// buffer that does not exist yet.
var ErrEmptyPayload = errors.New("gcmd: empty payload")

// ErrEmptyName is returned for commands without a resource name.
var ErrEmptyName = errors.New("gcmd: empty resource name")

// ErrShortPayload is returned when texture data does not cover its rect.
var ErrShortPayload = errors.New("gcmd: payload shorter than rect")

// ErrVertexStride is returned for vertex buffers whose stride differs from
// VertexStride.
var ErrVertexStride = errors.New("gcmd: unsupported vertex stride")

const (
	// TexelSize is the size in bytes of one B8G8R8A8 texel.
	TexelSize = 4
	// VertexStride is the size of the vertex every pipeline reads: position
	// vec4, normal vec3 and uv vec2.
	VertexStride = 36
)

// RowPitch returns the byte distance between rows of c.Data.
func (c SetTextureCommand) RowPitch() uint32 {
	return max(c.Pitch, c.Rect.W*TexelSize)
}

// Validate checks the shape of a command. Buffer commands must carry data
// when they create their buffer, and textures need a rect covered by their
// data; exists reports whether the named resource is already in the
// directory.
func Validate(c Command, exists bool) error {
	if c.Target() == "" {
		return fmt.Errorf("%s: %w", c.Type(), ErrEmptyName)
	}
	var data []byte
	switch c := c.(type) {
	case SetTextureCommand:
		if exists {
			return nil
		}
		return validateTexture(c)
	case SetConstantCommand:
		data = c.Data
	case SetVertexCommand:
		if c.Stride != 0 && c.Stride != VertexStride {
			return fmt.Errorf("%s %q: stride %d: %w", c.Type(), c.Name, c.Stride, ErrVertexStride)
		}
		data = c.Data
	case SetIndexCommand:
		data = c.Data
	case SetRenderTargetCommand:
		if c.Rect.W == 0 || c.Rect.H == 0 {
			return fmt.Errorf("%s %q: zero sized rect", c.Type(), c.Name)
		}
		return nil
	default:
		return nil
	}
	if !exists && len(data) == 0 {
		return fmt.Errorf("%s %q: %w", c.Type(), c.Target(), ErrEmptyPayload)
	}
	return nil
}

func validateTexture(c SetTextureCommand) error {
	if c.Rect.W == 0 || c.Rect.H == 0 {
		return fmt.Errorf("%s %q: zero sized rect", c.Type(), c.Name)
	}
	if len(c.Data) == 0 {
		return nil
	}
	if c.Pitch%TexelSize != 0 {
		return fmt.Errorf("%s %q: pitch %d is not a multiple of %d", c.Type(), c.Name, c.Pitch, TexelSize)
	}
	need := uint64(c.Rect.H) * uint64(c.RowPitch())
	if uint64(len(c.Data)) < need {
		return fmt.Errorf("%s %q: %d bytes, %dx%d needs %d: %w",
			c.Type(), c.Name, len(c.Data), c.Rect.W, c.Rect.H, need, ErrShortPayload)
	}
	return nil
}
