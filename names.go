package gcmd

import "strconv"

// Descriptor kinds within one shader slot. Each slot spans SlotKindCount
// consecutive bindings.
const (
	SlotSRV uint32 = iota
	SlotCBV
	SlotUAV

	SlotKindCount
)

const depthSuffix = "_depth"

// BackbufferName returns the directory name of swapchain image i.
func BackbufferName(i int) string {
	return "backbuffer" + strconv.Itoa(i)
}

// DepthName returns the name of the depth target paired with render target
// name.
func DepthName(name string) string {
	return name + depthSuffix
}

// Binding returns the descriptor binding of kind at slot.
func Binding(slot, kind uint32) uint32 {
	return slot*SlotKindCount + kind
}

// MipmapMax returns the number of mip levels of a w×h image, down to 1×1.
func MipmapMax(w, h uint32) uint32 {
	levels := uint32(1)
	for w > 1 || h > 1 {
		w >>= 1
		h >>= 1
		levels++
	}
	return levels
}
