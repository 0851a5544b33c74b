package gcmd

// Stream accumulates the commands of one frame. The producer owns it and
// calls Reset after the frame was presented.
type Stream struct {
	cmds []Command
}

// Commands returns the recorded commands in order.
func (s *Stream) Commands() []Command {
	return s.cmds
}

// Len returns the number of recorded commands.
func (s *Stream) Len() int {
	return len(s.cmds)
}

// Reset drops all commands while keeping the backing storage.
func (s *Stream) Reset() {
	for i := range s.cmds {
		s.cmds[i] = nil
	}
	s.cmds = s.cmds[:0]
}

// Add appends raw commands.
func (s *Stream) Add(cmds ...Command) *Stream {
	s.cmds = append(s.cmds, cmds...)
	return s
}

func (s *Stream) SetRenderTarget(name string, w, h uint32) *Stream {
	return s.Add(SetRenderTargetCommand{Name: name, Rect: Rect{W: w, H: h}})
}

// SetTexture binds name at slot. data may be nil when the texture already
// exists, typically a render target produced earlier in the frame.
func (s *Stream) SetTexture(name string, slot, w, h uint32, data []byte, pitch uint32) *Stream {
	return s.Add(SetTextureCommand{
		Name:  name,
		Slot:  slot,
		Rect:  Rect{W: w, H: h},
		Data:  data,
		Pitch: pitch,
	})
}

func (s *Stream) SetTextureUAV(name string, slot, w, h, mipLevel uint32) *Stream {
	return s.Add(SetTextureCommand{
		Name:     name,
		Slot:     slot,
		Rect:     Rect{W: w, H: h},
		MipLevel: mipLevel,
		UAV:      true,
	})
}

func (s *Stream) SetConstant(name string, slot uint32, data []byte) *Stream {
	return s.Add(SetConstantCommand{Name: name, Slot: slot, Data: data})
}

func (s *Stream) SetVertex(name string, data []byte, stride uint32) *Stream {
	return s.Add(SetVertexCommand{Name: name, Data: data, Stride: stride})
}

func (s *Stream) SetIndex(name string, data []byte) *Stream {
	return s.Add(SetIndexCommand{Name: name, Data: data})
}

// SetShader binds the pipeline name, built from the SPIR-V pair found under
// source.
func (s *Stream) SetShader(name, source string, flags ShaderFlags) *Stream {
	return s.Add(SetShaderCommand{Name: name, Source: source, Flags: flags})
}

func (s *Stream) Clear(name string, rgba [4]float32) *Stream {
	return s.Add(ClearCommand{Name: name, Color: rgba})
}

func (s *Stream) ClearDepth(name string, depth float32) *Stream {
	return s.Add(ClearDepthCommand{Name: name, Depth: depth})
}

func (s *Stream) DrawIndex(name string, start, count uint32) *Stream {
	return s.Add(DrawIndexCommand{Name: name, Start: start, Count: count})
}

func (s *Stream) Draw(name string, vertexCount uint32) *Stream {
	return s.Add(DrawCommand{Name: name, VertexCount: vertexCount})
}

func (s *Stream) Dispatch(name string, x, y, z uint32) *Stream {
	return s.Add(DispatchCommand{Name: name, X: x, Y: y, Z: z})
}

func (s *Stream) SetBarrierToPresent(name string) *Stream {
	return s.Add(SetBarrierToPresentCommand{Name: name})
}

// GenerateMipmap emits one dispatch per mip level of name, reading level i-1
// through UAV slot 0 and writing level i through UAV slot 1.
func (s *Stream) GenerateMipmap(name, shader string, w, h uint32) *Stream {
	s.SetShader(shader, shader, ShaderCompute)
	levels := MipmapMax(w, h)
	for i := uint32(1); i < levels; i++ {
		s.SetTextureUAV(name, 0, 0, 0, i-1)
		s.SetTextureUAV(name, 1, 0, 0, i)
		s.Dispatch("mip"+name, max(w>>i, 1), max(h>>i, 1), 1)
	}
	return s
}
