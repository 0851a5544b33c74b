package gcmd

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/rs/xid"
)

// GraphicsContext owns the directory, the allocator and the frame slots of
// one device and swapchain. PresentGraphics may be called from several
// goroutines; calls are serialized.
type GraphicsContext struct {
	mu sync.Mutex

	ID     xid.ID
	Config Config

	dev    Device
	sc     Swapchain
	alloc  *Allocator
	dir    *Directory
	sched  *Scheduler
	interp *Interpreter
	log    *slog.Logger
	closed bool
}

// NewGraphicsContext wires a context on top of dev and sc. Swapchain images
// are registered as BackbufferName(i).
func NewGraphicsContext(dev Device, sc Swapchain, cfg Config) (*GraphicsContext, error) {
	cfg = cfg.WithDefaults()
	id := xid.New()
	log := Logger().With("ctx", id.String())

	alloc := NewAllocator(dev)
	dir := NewDirectory(dev, alloc)
	w, h := sc.Extent()
	for i, img := range sc.Images() {
		dir.AdoptImage(BackbufferName(i), img, ImageDesc{Kind: ImageColor, Width: w, Height: h})
	}
	sched, err := NewScheduler(dev, sc, alloc, cfg.BufferCount, log)
	if err != nil {
		return nil, err
	}
	log.Info("graphics context ready",
		"app", cfg.AppName,
		"extent", fmt.Sprintf("%dx%d", w, h),
		"buffers", cfg.BufferCount,
		"backbuffers", len(sc.Images()))
	return &GraphicsContext{
		ID:     id,
		Config: cfg,
		dev:    dev,
		sc:     sc,
		alloc:  alloc,
		dir:    dir,
		sched:  sched,
		interp: NewInterpreter(dev, alloc, dir, log),
		log:    log,
	}, nil
}

// Directory returns the named resource cache of the context.
func (c *GraphicsContext) Directory() *Directory {
	return c.dir
}

// Allocator returns the memory allocator of the context.
func (c *GraphicsContext) Allocator() *Allocator {
	return c.alloc
}

// FrameCount returns the number of frames presented.
func (c *GraphicsContext) FrameCount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sched.FrameCount()
}

// Extent returns the size of the swapchain images. Backbuffer render
// targets must use it.
func (c *GraphicsContext) Extent() (uint32, uint32) {
	return c.sc.Extent()
}

// BufferCount returns the number of frame slots.
func (c *GraphicsContext) BufferCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sched.Len()
}

// Slot returns the index of the slot the next frame records into. Producers
// use it to pick per frame resource names.
func (c *GraphicsContext) Slot() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sched.Current().Index
}

// PresentGraphics records cmds into the next slot, submits and presents it.
// Failures of single commands are logged; errors are returned for failures of
// the frame itself.
func (c *GraphicsContext) PresentGraphics(cmds []Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	s := c.sched
	if err := s.WaitSlot(); err != nil {
		return err
	}
	index, err := s.Acquire()
	if err != nil {
		return err
	}
	if err := s.Begin(); err != nil {
		return err
	}
	c.interp.Run(s.Current(), cmds)
	if err := s.End(); err != nil {
		return err
	}
	if err := s.Submit(); err != nil {
		return err
	}
	if err := s.Present(index); err != nil {
		return err
	}
	s.Advance()
	return nil
}

// Close waits for the device to go idle and releases everything the context
// created. The device and swapchain themselves are left to their owner.
func (c *GraphicsContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	err := c.dev.WaitIdle()
	c.sched.Close()
	c.dir.Close()
	c.log.Info("graphics context closed", "frames", c.sched.FrameCount())
	return err
}
