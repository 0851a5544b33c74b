package vulkan

import (
	"fmt"

	"github.com/kumaashi/gcmd"
	vk "github.com/vulkan-go/vulkan"
)

// maxDescriptorSets bounds the sets live at once; one is allocated per
// shader pass per frame slot.
const maxDescriptorSets = 0xFFFF

// poolSizes reserves heap descriptors of every kind a slot can hold.
func poolSizes(heap int) []vk.DescriptorPoolSize {
	sizes := make([]vk.DescriptorPoolSize, 0, len(slotDescriptorTypes))
	for _, t := range slotDescriptorTypes {
		sizes = append(sizes, vk.DescriptorPoolSize{
			Type:            t,
			DescriptorCount: uint32(heap),
		})
	}
	return sizes
}

// layoutBindings lays out slots shader slots of SlotKindCount consecutive
// bindings each, visible to every stage.
func layoutBindings(slots int) []vk.DescriptorSetLayoutBinding {
	bindings := make([]vk.DescriptorSetLayoutBinding, 0, slots*int(gcmd.SlotKindCount))
	for slot := uint32(0); slot < uint32(slots); slot++ {
		for kind, t := range slotDescriptorTypes {
			bindings = append(bindings, vk.DescriptorSetLayoutBinding{
				Binding:         gcmd.Binding(slot, uint32(kind)),
				DescriptorType:  t,
				DescriptorCount: 1,
				StageFlags:      vk.ShaderStageFlags(vk.ShaderStageAll),
			})
		}
	}
	return bindings
}

func (d *Device) createDescriptorPool(heap int) (vk.DescriptorPool, error) {
	sizes := poolSizes(heap)
	info := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxDescriptorSets,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	var pool vk.DescriptorPool
	if err := vk.Error(vk.CreateDescriptorPool(d.device, &info, nil, &pool)); err != nil {
		return nil, fmt.Errorf("create descriptor pool: %w", err)
	}
	return pool, nil
}

func (d *Device) createSetLayout(slots int) (vk.DescriptorSetLayout, error) {
	bindings := layoutBindings(slots)
	info := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	if err := vk.Error(vk.CreateDescriptorSetLayout(d.device, &info, nil, &layout)); err != nil {
		return nil, fmt.Errorf("create descriptor set layout: %w", err)
	}
	return layout, nil
}

func (d *Device) createSampler(filter vk.Filter) (vk.Sampler, error) {
	info := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               filter,
		MinFilter:               filter,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1,
		CompareOp:               vk.CompareOpAlways,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
	}
	var sampler vk.Sampler
	if err := vk.Error(vk.CreateSampler(d.device, &info, nil, &sampler)); err != nil {
		return nil, fmt.Errorf("create sampler: %w", err)
	}
	return sampler, nil
}

func (d *Device) AllocateDescriptorSet() (gcmd.Handle, error) {
	info := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     d.descPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{d.setLayout},
	}
	var set vk.DescriptorSet
	if err := vk.Error(vk.AllocateDescriptorSets(d.device, &info, &set)); err != nil {
		return 0, err
	}
	return d.handles.put(set), nil
}

// writeDescriptor builds the write for w. Sampled images are read in
// ShaderReadOnly layout, storage images in General.
func (d *Device) writeDescriptor(w gcmd.DescriptorWrite) vk.WriteDescriptorSet {
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          lookup[vk.DescriptorSet](d.handles, w.Set),
		DstBinding:      w.Binding,
		DescriptorCount: 1,
		DescriptorType:  descriptorType(w.Kind),
	}
	switch w.Kind {
	case gcmd.DescriptorUniformBuffer:
		write.PBufferInfo = []vk.DescriptorBufferInfo{{
			Buffer: lookup[vk.Buffer](d.handles, w.Buffer),
			Range:  vk.DeviceSize(w.Range),
		}}
	case gcmd.DescriptorStorageImage:
		write.PImageInfo = []vk.DescriptorImageInfo{{
			ImageView:   lookup[vk.ImageView](d.handles, w.View),
			ImageLayout: vk.ImageLayoutGeneral,
		}}
	default:
		write.PImageInfo = []vk.DescriptorImageInfo{{
			Sampler:     d.sampler,
			ImageView:   lookup[vk.ImageView](d.handles, w.View),
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		}}
	}
	return write
}

func (d *Device) UpdateDescriptorSet(w gcmd.DescriptorWrite) {
	vk.UpdateDescriptorSets(d.device, 1, []vk.WriteDescriptorSet{d.writeDescriptor(w)}, 0, nil)
}
