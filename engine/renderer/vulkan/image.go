package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
)

// VulkanImage owns an image, its backing memory and a default view
// covering every layer.
type VulkanImage struct {
	Handle      vk.Image
	Memory      vk.DeviceMemory
	View        vk.ImageView
	Width       uint32
	Height      uint32
	Format      vk.Format
	ArrayLayers uint32
}

// ImageCreateInfo names the knobs the attachment and shadow modules
// actually vary. Everything else is fixed to optimal tiling, exclusive
// sharing and a single mip level.
type ImageCreateInfo struct {
	Width       uint32
	Height      uint32
	Format      vk.Format
	Usage       vk.ImageUsageFlagBits
	Aspect      vk.ImageAspectFlagBits
	Samples     vk.SampleCountFlagBits
	ArrayLayers uint32
	CreateView  bool
}

func ImageCreate(context *VulkanContext, info *ImageCreateInfo) (*VulkanImage, error) {
	layers := info.ArrayLayers
	if layers == 0 {
		layers = 1
	}
	samples := info.Samples
	if samples == 0 {
		samples = vk.SampleCount1Bit
	}

	image := &VulkanImage{
		Width:       info.Width,
		Height:      info.Height,
		Format:      info.Format,
		ArrayLayers: layers,
	}

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    info.Format,
		Extent: vk.Extent3D{
			Width:  info.Width,
			Height: info.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   layers,
		Samples:       samples,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(info.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	var handle vk.Image
	if res := vk.CreateImage(context.Device.LogicalDevice, &imageCreateInfo, context.Allocator, &handle); res != vk.Success {
		return nil, ResultToError(res, "create image")
	}
	image.Handle = handle

	var memReq vk.MemoryRequirements
	vk.GetImageMemoryRequirements(context.Device.LogicalDevice, image.Handle, &memReq)
	memReq.Deref()

	memoryIndex := context.FindMemoryIndex(memReq.MemoryTypeBits, uint32(vk.MemoryPropertyDeviceLocalBit))
	if memoryIndex < 0 {
		image.Destroy(context)
		return nil, errors.New("no device local memory type for image")
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReq.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocInfo, context.Allocator, &memory); res != vk.Success {
		image.Destroy(context)
		return nil, ResultToError(res, "allocate image memory")
	}
	image.Memory = memory

	if res := vk.BindImageMemory(context.Device.LogicalDevice, image.Handle, image.Memory, 0); res != vk.Success {
		image.Destroy(context)
		return nil, ResultToError(res, "bind image memory")
	}

	if info.CreateView {
		viewType := vk.ImageViewType2d
		if layers > 1 {
			viewType = vk.ImageViewType2dArray
		}
		view, err := ImageViewCreate(context, image, viewType, info.Aspect, 0, layers)
		if err != nil {
			image.Destroy(context)
			return nil, err
		}
		image.View = view
	}

	return image, nil
}

// ImageViewCreate builds a view over a layer range of the image. The
// shadow module uses it to address single cascade layers.
func ImageViewCreate(context *VulkanContext, image *VulkanImage, viewType vk.ImageViewType, aspect vk.ImageAspectFlagBits, baseLayer, layerCount uint32) (vk.ImageView, error) {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image.Handle,
		ViewType: viewType,
		Format:   image.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(aspect),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: baseLayer,
			LayerCount:     layerCount,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(context.Device.LogicalDevice, &viewCreateInfo, context.Allocator, &view); res != vk.Success {
		return nil, ResultToError(res, "create image view")
	}
	return view, nil
}

func (vi *VulkanImage) Destroy(context *VulkanContext) {
	if vi.View != nil {
		vk.DestroyImageView(context.Device.LogicalDevice, vi.View, context.Allocator)
		vi.View = nil
	}
	if vi.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, vi.Memory, context.Allocator)
		vi.Memory = nil
	}
	if vi.Handle != nil {
		vk.DestroyImage(context.Device.LogicalDevice, vi.Handle, context.Allocator)
		vi.Handle = nil
	}
}

// TransitionLayout records a pipeline barrier moving every layer of
// the image between layouts.
func (vi *VulkanImage) TransitionLayout(commandBuffer *VulkanCommandBuffer, aspect vk.ImageAspectFlagBits, oldLayout, newLayout vk.ImageLayout) error {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               vi.Handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(aspect),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     vi.ArrayLayers,
		},
	}

	var srcStage, dstStage vk.PipelineStageFlags

	switch {
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal:
		barrier.SrcAccessMask = 0
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutDepthStencilReadOnlyOptimal:
		barrier.SrcAccessMask = 0
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	default:
		return errors.Newf("unsupported layout transition %d -> %d", oldLayout, newLayout)
	}

	vk.CmdPipelineBarrier(commandBuffer.Handle,
		srcStage, dstStage,
		0,
		0, nil,
		0, nil,
		1, []vk.ImageMemoryBarrier{barrier})
	return nil
}

// CopyFromBuffer records a full-extent copy of a staging buffer into
// layer zero of the image.
func (vi *VulkanImage) CopyFromBuffer(commandBuffer *VulkanCommandBuffer, buffer vk.Buffer) {
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageExtent: vk.Extent3D{
			Width:  vi.Width,
			Height: vi.Height,
			Depth:  1,
		},
	}
	vk.CmdCopyBufferToImage(commandBuffer.Handle, buffer, vi.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}
