package vulkan

import (
	"errors"
	"sync"

	"github.com/kumaashi/gcmd"
	"github.com/vulkan-go/glfw/v3.3/glfw"
)

// Presenter owns the device, swapchain and graphics context behind
// PresentGraphics. They are created on the first call with a window and torn
// down by a call with a nil window.
type Presenter struct {
	// Config supplies every setting the call arguments leave zero.
	Config gcmd.Config

	mu  sync.Mutex
	dev *Device
	sc  *Swapchain
	ctx *gcmd.GraphicsContext
}

// config merges the arguments of a Present call over p.Config.
func (p *Presenter) config(appName string, width, height uint32, bufferCount, heapCount, slotCount int) gcmd.Config {
	cfg := p.Config
	if appName != "" {
		cfg.AppName = appName
	}
	if width > 0 {
		cfg.Width = width
	}
	if height > 0 {
		cfg.Height = height
	}
	if bufferCount > 0 {
		cfg.BufferCount = bufferCount
	}
	if heapCount > 0 {
		cfg.HeapCount = heapCount
	}
	if slotCount > 0 {
		cfg.SlotCount = slotCount
	}
	return cfg.WithDefaults()
}

// Open creates the device, swapchain and context for window unless they
// exist already, and returns the context. Producers use it to learn the
// swapchain extent and slot before building their first frame. Setup
// failures are fatal.
func (p *Presenter) Open(appName string, window *glfw.Window, width, height uint32, bufferCount, heapCount, slotCount int) (*gcmd.GraphicsContext, error) {
	if window == nil {
		return nil, errors.New("vulkan: open without a window")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx == nil {
		if err := p.open(window, p.config(appName, width, height, bufferCount, heapCount, slotCount)); err != nil {
			if errors.Is(err, gcmd.ErrSetupFatal) {
				gcmd.Fatal(err)
			}
			return nil, err
		}
	}
	return p.ctx, nil
}

// Present records and presents cmds on window, opening it first if needed.
// A nil window tears everything down.
func (p *Presenter) Present(appName string, cmds []gcmd.Command, window *glfw.Window, width, height uint32, bufferCount, heapCount, slotCount int) error {
	if window == nil {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.close()
	}
	ctx, err := p.Open(appName, window, width, height, bufferCount, heapCount, slotCount)
	if err != nil {
		return err
	}
	return ctx.PresentGraphics(cmds)
}

func (p *Presenter) open(window *glfw.Window, cfg gcmd.Config) error {
	dev, sc, err := Open(window, cfg)
	if err != nil {
		return err
	}
	ctx, err := gcmd.NewGraphicsContext(dev, sc, cfg)
	if err != nil {
		sc.Destroy()
		dev.Close()
		return err
	}
	p.dev, p.sc, p.ctx = dev, sc, ctx
	return nil
}

// close releases the context, then the swapchain, then the device.
func (p *Presenter) close() error {
	if p.ctx == nil {
		return nil
	}
	err := p.ctx.Close()
	p.sc.Destroy()
	p.dev.Close()
	p.dev, p.sc, p.ctx = nil, nil, nil
	return err
}

// Context returns the graphics context, or nil before the first present.
func (p *Presenter) Context() *gcmd.GraphicsContext {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctx
}

var (
	defaultOnce      sync.Once
	defaultPresenter *Presenter
)

func presenter() *Presenter {
	defaultOnce.Do(func() {
		cfg, err := gcmd.LoadConfig("")
		if err != nil {
			gcmd.Logger().Warn("config", "err", err)
			cfg = gcmd.DefaultConfig()
		}
		defaultPresenter = &Presenter{Config: cfg}
	})
	return defaultPresenter
}

// PresentGraphics records cmds into the next frame slot of the process-wide
// presenter and presents it on window. The first call creates the Vulkan
// device for window; a nil window waits for the GPU and destroys everything.
func PresentGraphics(appName string, cmds []gcmd.Command, window *glfw.Window, width, height uint32, bufferCount, heapCount, slotCount int) error {
	return presenter().Present(appName, cmds, window, width, height, bufferCount, heapCount, slotCount)
}
