package vulkan

import (
	vk "github.com/goki/vulkan"
)

type VulkanDescriptorPool struct {
	Handle vk.DescriptorPool
}

// DescriptorPoolCreate sizes the pool for the descriptor types the
// reflection parser can produce.
func DescriptorPoolCreate(context *VulkanContext, maxSets uint32) (*VulkanDescriptorPool, error) {
	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: maxSets * 4},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: maxSets * 8},
		{Type: vk.DescriptorTypeSampler, DescriptorCount: maxSets * 2},
		{Type: vk.DescriptorTypeStorageImage, DescriptorCount: maxSets * 2},
	}

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
		MaxSets:       maxSets,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
	}

	var handle vk.DescriptorPool
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &handle); res != vk.Success {
		return nil, ResultToError(res, "create descriptor pool")
	}
	return &VulkanDescriptorPool{Handle: handle}, nil
}

func (dp *VulkanDescriptorPool) Destroy(context *VulkanContext) {
	if dp.Handle != nil {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, dp.Handle, context.Allocator)
		dp.Handle = nil
	}
}

// Allocate returns one descriptor set per layout.
func (dp *VulkanDescriptorPool) Allocate(context *VulkanContext, layouts []vk.DescriptorSetLayout) ([]vk.DescriptorSet, error) {
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     dp.Handle,
		DescriptorSetCount: uint32(len(layouts)),
		PSetLayouts:        layouts,
	}
	sets := make([]vk.DescriptorSet, len(layouts))
	if res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &allocInfo, &sets[0]); res != vk.Success {
		return nil, ResultToError(res, "allocate descriptor sets")
	}
	return sets, nil
}

// WriteUniformBuffer points a uniform buffer binding at the buffer.
func WriteUniformBuffer(context *VulkanContext, set vk.DescriptorSet, binding uint32, buffer *VulkanBuffer) {
	bufferInfo := vk.DescriptorBufferInfo{
		Buffer: buffer.Handle,
		Offset: 0,
		Range:  buffer.Size,
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

// WriteCombinedImageSampler points a combined image sampler binding at
// the view/sampler pair in the given layout.
func WriteCombinedImageSampler(context *VulkanContext, set vk.DescriptorSet, binding uint32, view vk.ImageView, sampler vk.Sampler, layout vk.ImageLayout) {
	imageInfo := vk.DescriptorImageInfo{
		Sampler:     sampler,
		ImageView:   view,
		ImageLayout: layout,
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo:      []vk.DescriptorImageInfo{imageInfo},
	}
	vk.UpdateDescriptorSets(context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

// SamplerCreate builds a clamped linear sampler. compareEnable turns
// on the depth comparison mode shadow lookups use.
func SamplerCreate(context *VulkanContext, compareEnable bool) (vk.Sampler, error) {
	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		AddressModeU:            vk.SamplerAddressModeClampToEdge,
		AddressModeV:            vk.SamplerAddressModeClampToEdge,
		AddressModeW:            vk.SamplerAddressModeClampToEdge,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1.0,
		BorderColor:             vk.BorderColorFloatOpaqueWhite,
		UnnormalizedCoordinates: vk.False,
		MinLod:                  0,
		MaxLod:                  1,
	}
	if compareEnable {
		samplerInfo.CompareEnable = vk.True
		samplerInfo.CompareOp = vk.CompareOpLessOrEqual
	}

	var sampler vk.Sampler
	if res := vk.CreateSampler(context.Device.LogicalDevice, &samplerInfo, context.Allocator, &sampler); res != vk.Success {
		return vk.NullSampler, ResultToError(res, "create sampler")
	}
	return sampler, nil
}
