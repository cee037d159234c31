package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/core"
)

// VulkanPipeline holds a pipeline and its layout.
type VulkanPipeline struct {
	Handle         vk.Pipeline
	PipelineLayout vk.PipelineLayout
}

type VulkanPipelineConfig struct {
	Renderpass *VulkanRenderpass
	Shader     *VulkanShader

	// Vertex layout. A zero stride means a vertex-pulling shader with
	// no vertex buffer, like the fullscreen triangle.
	Stride     uint32
	Attributes []vk.VertexInputAttributeDescription

	// Rasterization samples, matching the pass attachments.
	Samples       vk.SampleCountFlagBits
	SampleShading bool

	CullMode  vk.CullModeFlagBits
	FrontFace vk.FrontFace

	DepthTest  bool
	DepthWrite bool
	// Constant depth bias for shadow rendering.
	DepthBias float32

	// Number of color attachments in the subpass; each gets the same
	// blend state.
	ColorAttachmentCount uint32
	BlendEnable          bool

	PushConstantSize uint32

	// Fragment stage specialization constant 0, used to bake the MSAA
	// sample count into the compose shader. Nil disables it.
	FragmentSpecialization []uint32
}

func NewGraphicsPipeline(context *VulkanContext, config *VulkanPipelineConfig) (*VulkanPipeline, error) {
	outPipeline := &VulkanPipeline{}

	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: config.Shader.VertexModule,
			PName:  VulkanSafeString("main"),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: config.Shader.FragmentModule,
			PName:  VulkanSafeString("main"),
		},
	}

	if len(config.FragmentSpecialization) > 0 {
		entries := make([]vk.SpecializationMapEntry, len(config.FragmentSpecialization))
		for i := range entries {
			entries[i] = vk.SpecializationMapEntry{
				ConstantID: uint32(i),
				Offset:     uint32(i * 4),
				Size:       4,
			}
		}
		specInfo := vk.SpecializationInfo{
			MapEntryCount: uint32(len(entries)),
			PMapEntries:   entries,
			DataSize:      uint(len(config.FragmentSpecialization) * 4),
			PData:         unsafe.Pointer(&config.FragmentSpecialization[0]),
		}
		stages[1].PSpecializationInfo = &specInfo
	}

	viewport := vk.Viewport{
		X: 0, Y: 0,
		Width:    float32(context.FramebufferWidth),
		Height:   float32(context.FramebufferHeight),
		MinDepth: 0, MaxDepth: 1,
	}
	scissor := vk.Rect2D{
		Extent: vk.Extent2D{Width: context.FramebufferWidth, Height: context.FramebufferHeight},
	}
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    []vk.Viewport{viewport},
		ScissorCount:  1,
		PScissors:     []vk.Rect2D{scissor},
	}

	frontFace := config.FrontFace
	if frontFace == 0 {
		frontFace = vk.FrontFaceCounterClockwise
	}
	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                vk.CullModeFlags(config.CullMode),
		FrontFace:               frontFace,
	}
	if config.DepthBias != 0 {
		rasterizerCreateInfo.DepthBiasEnable = vk.True
		rasterizerCreateInfo.DepthBiasConstantFactor = config.DepthBias
		rasterizerCreateInfo.DepthBiasSlopeFactor = 1.75
	}

	samples := config.Samples
	if samples == 0 {
		samples = vk.SampleCount1Bit
	}
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: samples,
		MinSampleShading:     1.0,
	}
	if config.SampleShading {
		multisamplingCreateInfo.SampleShadingEnable = vk.True
		multisamplingCreateInfo.MinSampleShading = 0.25
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType: vk.StructureTypePipelineDepthStencilStateCreateInfo,
	}
	if config.DepthTest {
		depthStencil.DepthTestEnable = vk.True
		depthStencil.DepthCompareOp = vk.CompareOpLess
	}
	if config.DepthWrite {
		depthStencil.DepthWriteEnable = vk.True
	}

	blendStates := make([]vk.PipelineColorBlendAttachmentState, config.ColorAttachmentCount)
	for i := range blendStates {
		blendStates[i] = vk.PipelineColorBlendAttachmentState{
			ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
				vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
		}
		if config.BlendEnable {
			blendStates[i].BlendEnable = vk.True
			blendStates[i].SrcColorBlendFactor = vk.BlendFactorSrcAlpha
			blendStates[i].DstColorBlendFactor = vk.BlendFactorOneMinusSrcAlpha
			blendStates[i].ColorBlendOp = vk.BlendOpAdd
			blendStates[i].SrcAlphaBlendFactor = vk.BlendFactorSrcAlpha
			blendStates[i].DstAlphaBlendFactor = vk.BlendFactorOneMinusSrcAlpha
			blendStates[i].AlphaBlendOp = vk.BlendOpAdd
		}
	}
	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: uint32(len(blendStates)),
		PAttachments:    blendStates,
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}
	if config.Stride > 0 {
		bindingDescription := vk.VertexInputBindingDescription{
			Binding:   0,
			Stride:    config.Stride,
			InputRate: vk.VertexInputRateVertex,
		}
		vertexInputInfo.VertexBindingDescriptionCount = 1
		vertexInputInfo.PVertexBindingDescriptions = []vk.VertexInputBindingDescription{bindingDescription}
		vertexInputInfo.VertexAttributeDescriptionCount = uint32(len(config.Attributes))
		vertexInputInfo.PVertexAttributeDescriptions = config.Attributes
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(config.Shader.SetLayouts)),
		PSetLayouts:    config.Shader.SetLayouts,
	}
	if config.PushConstantSize > 0 {
		pipelineLayoutCreateInfo.PushConstantRangeCount = 1
		pipelineLayoutCreateInfo.PPushConstantRanges = []vk.PushConstantRange{{
			StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
			Offset:     0,
			Size:       config.PushConstantSize,
		}}
	}

	var pPipelineLayout vk.PipelineLayout
	result := vk.CreatePipelineLayout(
		context.Device.LogicalDevice,
		&pipelineLayoutCreateInfo,
		context.Allocator,
		&pPipelineLayout)
	if !VulkanResultIsSuccess(result) {
		return nil, errors.Wrapf(core.ErrPipelineConstructionFailed, "create pipeline layout: %s", VulkanResultString(result))
	}
	outPipeline.PipelineLayout = pPipelineLayout

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              outPipeline.PipelineLayout,
		RenderPass:          config.Renderpass.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pPipelines := make([]vk.Pipeline, 1)
	result = vk.CreateGraphicsPipelines(
		context.Device.LogicalDevice,
		vk.NullPipelineCache,
		1,
		[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
		context.Allocator,
		pPipelines)
	if !VulkanResultIsSuccess(result) {
		outPipeline.Destroy(context)
		return nil, errors.Wrapf(core.ErrPipelineConstructionFailed, "pass %s: %s", config.Renderpass.Name, VulkanResultString(result))
	}
	outPipeline.Handle = pPipelines[0]

	core.LogDebug("graphics pipeline created for pass %s", config.Renderpass.Name)
	return outPipeline, nil
}

func (pipeline *VulkanPipeline) Destroy(context *VulkanContext) {
	if pipeline.Handle != nil {
		vk.DestroyPipeline(context.Device.LogicalDevice, pipeline.Handle, context.Allocator)
		pipeline.Handle = nil
	}
	if pipeline.PipelineLayout != nil {
		vk.DestroyPipelineLayout(context.Device.LogicalDevice, pipeline.PipelineLayout, context.Allocator)
		pipeline.PipelineLayout = nil
	}
}

func (pipeline *VulkanPipeline) Bind(commandBuffer *VulkanCommandBuffer, bindPoint vk.PipelineBindPoint) {
	vk.CmdBindPipeline(commandBuffer.Handle, bindPoint, pipeline.Handle)
}
