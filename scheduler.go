package gcmd

import (
	"fmt"
	"log/slog"
)

type scratch struct {
	buffer Handle
	mem    *Allocation
}

// Slot is one buffered frame: the command buffers recorded for it, the fence
// signaled when its GPU work completes and the staging buffers that must live
// until then.
type Slot struct {
	Index    int
	Commands CommandBuffer
	// Uploads is submitted ahead of Commands and carries texture copies,
	// which can not be recorded inside a render pass.
	Uploads CommandBuffer
	Fence   Handle

	scratch []scratch
}

func (s *Slot) keep(buffer Handle, mem *Allocation) {
	s.scratch = append(s.scratch, scratch{buffer: buffer, mem: mem})
}

// Scratch returns the number of staging buffers held by the slot.
func (s *Slot) Scratch() int {
	return len(s.scratch)
}

func (s *Slot) freeScratch(dev Device, alloc *Allocator) {
	for _, sc := range s.scratch {
		dev.Release(sc.buffer)
		alloc.Free(sc.mem)
	}
	s.scratch = s.scratch[:0]
}

// Scheduler rotates frame slots and drives acquire, submit and present.
type Scheduler struct {
	dev   Device
	sc    Swapchain
	alloc *Allocator
	log   *slog.Logger

	slots      []*Slot
	frameCount uint64
	current    int
}

// NewScheduler creates count slots. Fences start unsignaled, so the first
// use of a slot does not wait.
func NewScheduler(dev Device, sc Swapchain, alloc *Allocator, count int, log *slog.Logger) (*Scheduler, error) {
	if count < 1 {
		return nil, fmt.Errorf("gcmd: buffer count %d", count)
	}
	if log == nil {
		log = Logger()
	}
	s := &Scheduler{dev: dev, sc: sc, alloc: alloc, log: log}
	for i := 0; i < count; i++ {
		slot, err := s.newSlot(i)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.slots = append(s.slots, slot)
	}
	return s, nil
}

func (s *Scheduler) newSlot(i int) (*Slot, error) {
	cmds, err := s.dev.CreateCommandBuffer()
	if err != nil {
		return nil, fmt.Errorf("slot %d command buffer: %w", i, err)
	}
	uploads, err := s.dev.CreateCommandBuffer()
	if err != nil {
		return nil, fmt.Errorf("slot %d upload command buffer: %w", i, err)
	}
	fence, err := s.dev.CreateFence(false)
	if err != nil {
		return nil, fmt.Errorf("slot %d fence: %w", i, err)
	}
	return &Slot{Index: i, Commands: cmds, Uploads: uploads, Fence: fence}, nil
}

// Current returns the slot the next frame records into.
func (s *Scheduler) Current() *Slot {
	return s.slots[s.current]
}

// FrameCount returns the number of frames presented so far.
func (s *Scheduler) FrameCount() uint64 {
	return s.frameCount
}

// Len returns the number of slots.
func (s *Scheduler) Len() int {
	return len(s.slots)
}

// WaitSlot blocks until the GPU work last submitted from the current slot is
// done. It only waits when the fence is already signaled.
func (s *Scheduler) WaitSlot() error {
	slot := s.Current()
	if !s.dev.FenceSignaled(slot.Fence) {
		return nil
	}
	if err := s.dev.WaitFence(slot.Fence); err != nil {
		return fmt.Errorf("wait slot %d: %w", slot.Index, err)
	}
	return s.dev.ResetFence(slot.Fence)
}

// Acquire gets the next swapchain image, signaling the slot fence, and frees
// the staging buffers of the slot's previous frame.
func (s *Scheduler) Acquire() (uint32, error) {
	slot := s.Current()
	index, err := s.sc.AcquireNextImage(slot.Fence)
	if err != nil {
		return 0, fmt.Errorf("acquire: %w", err)
	}
	if int(index) != slot.Index {
		s.log.Debug("acquired image differs from slot", "image", index, "slot", slot.Index)
	}
	slot.freeScratch(s.dev, s.alloc)
	return index, nil
}

// Begin resets and begins the command buffers of the current slot.
func (s *Scheduler) Begin() error {
	slot := s.Current()
	for _, cb := range []CommandBuffer{slot.Uploads, slot.Commands} {
		if err := cb.Reset(); err != nil {
			return fmt.Errorf("reset command buffer: %w", err)
		}
		if err := cb.Begin(); err != nil {
			return fmt.Errorf("begin command buffer: %w", err)
		}
	}
	return nil
}

// End ends the command buffers of the current slot.
func (s *Scheduler) End() error {
	slot := s.Current()
	if err := slot.Uploads.End(); err != nil {
		return fmt.Errorf("end command buffer: %w", err)
	}
	if err := slot.Commands.End(); err != nil {
		return fmt.Errorf("end command buffer: %w", err)
	}
	return nil
}

// Submit resets the slot fence and submits the slot's work signaling it.
func (s *Scheduler) Submit() error {
	slot := s.Current()
	if err := s.dev.ResetFence(slot.Fence); err != nil {
		return fmt.Errorf("reset fence: %w", err)
	}
	if err := s.dev.Submit(slot.Fence, slot.Uploads, slot.Commands); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return nil
}

// Present queues swapchain image index for presentation.
func (s *Scheduler) Present(index uint32) error {
	if err := s.sc.Present(index); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	return nil
}

// Advance moves to the next slot.
func (s *Scheduler) Advance() {
	s.frameCount++
	s.current = int(s.frameCount % uint64(len(s.slots)))
}

// Close frees staging buffers and fences. The device must be idle.
func (s *Scheduler) Close() {
	for _, slot := range s.slots {
		slot.freeScratch(s.dev, s.alloc)
		s.dev.Release(slot.Fence)
	}
	s.slots = nil
}
