package vulkan

import (
	vk "github.com/goki/vulkan"
)

type VulkanRenderPassState int

const (
	READY VulkanRenderPassState = iota
	RECORDING
	IN_RENDER_PASS
	RECORDING_ENDED
	SUBMITTED
	NOT_ALLOCATED
)

// RenderpassAttachmentConfig describes one attachment slot of a render
// pass. Attachment order here is framebuffer order.
type RenderpassAttachmentConfig struct {
	Format        vk.Format
	Samples       vk.SampleCountFlagBits
	LoadOp        vk.AttachmentLoadOp
	StoreOp       vk.AttachmentStoreOp
	InitialLayout vk.ImageLayout
	FinalLayout   vk.ImageLayout
	IsDepth       bool
}

// RenderpassConfig drives the generalized render pass builder. All
// color attachments land in one subpass in declaration order; at most
// one depth attachment is allowed.
type RenderpassConfig struct {
	Name        string
	Attachments []RenderpassAttachmentConfig

	ClearColor   [4]float32
	ClearDepth   float32
	ClearStencil uint32

	Dependencies []vk.SubpassDependency
}

type VulkanRenderpass struct {
	Handle vk.RenderPass
	Name   string
	Config RenderpassConfig
	State  VulkanRenderPassState
}

func RenderpassCreate(context *VulkanContext, config RenderpassConfig) (*VulkanRenderpass, error) {
	outRenderpass := &VulkanRenderpass{
		Name:   config.Name,
		Config: config,
	}

	attachmentDescriptions := make([]vk.AttachmentDescription, len(config.Attachments))
	var colorRefs []vk.AttachmentReference
	var depthRef *vk.AttachmentReference

	for i, a := range config.Attachments {
		samples := a.Samples
		if samples == 0 {
			samples = vk.SampleCount1Bit
		}
		attachmentDescriptions[i] = vk.AttachmentDescription{
			Format:         a.Format,
			Samples:        samples,
			LoadOp:         a.LoadOp,
			StoreOp:        a.StoreOp,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  a.InitialLayout,
			FinalLayout:    a.FinalLayout,
		}

		if a.IsDepth {
			depthRef = &vk.AttachmentReference{
				Attachment: uint32(i),
				Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
			}
		} else {
			colorRefs = append(colorRefs, vk.AttachmentReference{
				Attachment: uint32(i),
				Layout:     vk.ImageLayoutColorAttachmentOptimal,
			})
		}
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    uint32(len(colorRefs)),
		PColorAttachments:       colorRefs,
		PDepthStencilAttachment: depthRef,
	}

	dependencies := config.Dependencies
	if len(dependencies) == 0 {
		dependencies = []vk.SubpassDependency{{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			SrcAccessMask: 0,
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		}}
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachmentDescriptions)),
		PAttachments:    attachmentDescriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}

	var pRenderPass vk.RenderPass
	if res := vk.CreateRenderPass(context.Device.LogicalDevice, &renderpassCreateInfo, context.Allocator, &pRenderPass); res != vk.Success {
		return nil, ResultToError(res, "create render pass "+config.Name)
	}
	outRenderpass.Handle = pRenderPass
	return outRenderpass, nil
}

func (vr *VulkanRenderpass) RenderpassDestroy(context *VulkanContext) {
	if vr.Handle != nil {
		vk.DestroyRenderPass(context.Device.LogicalDevice, vr.Handle, context.Allocator)
		vr.Handle = nil
	}
}

// ClearValues builds one clear value per attachment in declaration
// order. Attachments loaded with LoadOpLoad still need a slot.
func (vr *VulkanRenderpass) ClearValues() []vk.ClearValue {
	clearValues := make([]vk.ClearValue, len(vr.Config.Attachments))
	for i, a := range vr.Config.Attachments {
		if a.IsDepth {
			clearValues[i].SetDepthStencil(vr.Config.ClearDepth, vr.Config.ClearStencil)
		} else {
			color := vr.Config.ClearColor
			clearValues[i].SetColor(color[:])
		}
	}
	return clearValues
}

func (vr *VulkanRenderpass) RenderpassBegin(commandBuffer *VulkanCommandBuffer, frameBuffer vk.Framebuffer, width, height uint32) {
	clearValues := vr.ClearValues()
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vr.Handle,
		Framebuffer: frameBuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{
				Width:  width,
				Height: height,
			},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}

	vk.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsInline)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (vr *VulkanRenderpass) RenderpassEnd(commandBuffer *VulkanCommandBuffer) {
	vk.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
}
