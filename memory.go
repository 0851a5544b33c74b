package gcmd

import (
	"fmt"

	units "github.com/docker/go-units"
)

// Allocation is a block of device memory of one memory type.
type Allocation struct {
	Memory     Handle
	Size       uint64
	TypeIndex  uint32
	Properties MemoryProperty
}

func (a *Allocation) String() string {
	return fmt.Sprintf("{mem:%d size:%s type:%d}", a.Memory, units.BytesSize(float64(a.Size)), a.TypeIndex)
}

// Allocator picks memory types and allocates device memory for images and
// buffers.
type Allocator struct {
	dev   Device
	types []MemoryType
}

// NewAllocator snapshots the memory types of dev.
func NewAllocator(dev Device) *Allocator {
	return &Allocator{dev: dev, types: dev.MemoryTypes()}
}

func alignUp(a, align uint64) uint64 {
	if align == 0 {
		return a
	}
	m := a % align
	if m == 0 {
		return a
	}
	return a - m + align
}

// FindMemoryType returns the first memory type allowed by typeBits whose
// properties contain props.
func (a *Allocator) FindMemoryType(typeBits uint32, props MemoryProperty) (uint32, error) {
	for i, mt := range a.types {
		if typeBits&(1<<uint(i)) != 0 && mt.Properties&props == props {
			return uint32(i), nil
		}
	}
	return 0, fmt.Errorf("%w: bits %#x props %s", ErrNoMemoryType, typeBits, props)
}

// Allocate allocates memory satisfying req with the given properties. The
// size is rounded up to the required alignment.
func (a *Allocator) Allocate(req MemoryRequirements, props MemoryProperty) (*Allocation, error) {
	index, err := a.FindMemoryType(req.TypeBits, props)
	if err != nil {
		return nil, err
	}
	size := alignUp(req.Size, req.Alignment)
	mem, err := a.dev.AllocateMemory(size, index)
	if err != nil {
		return nil, err
	}
	alloc := &Allocation{Memory: mem, Size: size, TypeIndex: index, Properties: a.types[index].Properties}
	Logger().Debug("allocate", "alloc", alloc)
	return alloc, nil
}

// Free releases the memory of alloc.
func (a *Allocator) Free(alloc *Allocation) {
	if alloc == nil || alloc.Memory == 0 {
		return
	}
	a.dev.Release(alloc.Memory)
	alloc.Memory = 0
}

// Upload maps alloc, copies data to its start and unmaps it.
func (a *Allocator) Upload(alloc *Allocation, data []byte) error {
	size := uint64(len(data))
	if size > alloc.Size {
		size = alloc.Size
	}
	dst, err := a.dev.MapMemory(alloc.Memory, size)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMapFailed, err)
	}
	if dst == nil {
		return ErrMapFailed
	}
	copy(dst, data[:size])
	a.dev.UnmapMemory(alloc.Memory)
	return nil
}

// AllocateImage allocates props memory for image and binds it.
func (a *Allocator) AllocateImage(image Handle, props MemoryProperty) (*Allocation, error) {
	alloc, err := a.Allocate(a.dev.ImageRequirements(image), props)
	if err != nil {
		return nil, err
	}
	if err := a.dev.BindImageMemory(image, alloc.Memory); err != nil {
		a.Free(alloc)
		return nil, err
	}
	return alloc, nil
}

// AllocateBuffer allocates props memory for buffer and binds it.
func (a *Allocator) AllocateBuffer(buffer Handle, props MemoryProperty) (*Allocation, error) {
	alloc, err := a.Allocate(a.dev.BufferRequirements(buffer), props)
	if err != nil {
		return nil, err
	}
	if err := a.dev.BindBufferMemory(buffer, alloc.Memory); err != nil {
		a.Free(alloc)
		return nil, err
	}
	return alloc, nil
}
