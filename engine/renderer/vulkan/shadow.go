package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/renderer/camera"
)

// ShadowMapFormat is a 16 bit depth format; cascade depth ranges are
// short enough that the extra precision of D32 buys nothing.
const ShadowMapFormat = vk.FormatD16Unorm

// ShadowAtlas is one square depth image with a layer per cascade. The
// compose pass samples the whole array through View; each cascade pass
// renders into its own layer framebuffer.
type ShadowAtlas struct {
	Image *VulkanImage

	// One view and framebuffer per layer for rendering.
	LayerViews        []vk.ImageView
	LayerFramebuffers []*VulkanFramebuffer

	// Comparison sampler for PCF lookups.
	Sampler vk.Sampler

	Size uint32
}

// ShadowRenderpassConfig is the depth-only pass every cascade layer is
// rendered through.
func ShadowRenderpassConfig() RenderpassConfig {
	return RenderpassConfig{
		Name: "shadow",
		Attachments: []RenderpassAttachmentConfig{{
			Format:        ShadowMapFormat,
			Samples:       vk.SampleCount1Bit,
			LoadOp:        vk.AttachmentLoadOpClear,
			StoreOp:       vk.AttachmentStoreOpStore,
			InitialLayout: vk.ImageLayoutUndefined,
			FinalLayout:   vk.ImageLayoutDepthStencilReadOnlyOptimal,
			IsDepth:       true,
		}},
		ClearDepth: 1.0,
		Dependencies: []vk.SubpassDependency{
			{
				SrcSubpass:    vk.SubpassExternal,
				DstSubpass:    0,
				SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
				SrcAccessMask: vk.AccessFlags(vk.AccessShaderReadBit),
				DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit),
				DstAccessMask: vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit),
			},
			{
				SrcSubpass:    0,
				DstSubpass:    vk.SubpassExternal,
				SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit),
				SrcAccessMask: vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit),
				DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
				DstAccessMask: vk.AccessFlags(vk.AccessShaderReadBit),
			},
		},
	}
}

func ShadowAtlasCreate(context *VulkanContext, renderpass *VulkanRenderpass, size uint32) (*ShadowAtlas, error) {
	if !DeviceSupportsFormat(context.Device, ShadowMapFormat, vk.FormatFeatureDepthStencilAttachmentBit) {
		return nil, errors.Newf("device does not support shadow map format %d", ShadowMapFormat)
	}

	atlas := &ShadowAtlas{Size: size}

	img, err := ImageCreate(context, &ImageCreateInfo{
		Width:       size,
		Height:      size,
		Format:      ShadowMapFormat,
		Usage:       vk.ImageUsageDepthStencilAttachmentBit | vk.ImageUsageSampledBit,
		Aspect:      vk.ImageAspectDepthBit,
		Samples:     vk.SampleCount1Bit,
		ArrayLayers: camera.CascadeCount,
		CreateView:  true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create shadow atlas image")
	}
	atlas.Image = img

	for layer := uint32(0); layer < camera.CascadeCount; layer++ {
		view, err := ImageViewCreate(context, img, vk.ImageViewType2d, vk.ImageAspectDepthBit, layer, 1)
		if err != nil {
			atlas.Destroy(context)
			return nil, errors.Wrapf(err, "shadow layer %d view", layer)
		}
		atlas.LayerViews = append(atlas.LayerViews, view)

		fb, err := FramebufferCreate(context, renderpass, size, size, []vk.ImageView{view})
		if err != nil {
			atlas.Destroy(context)
			return nil, errors.Wrapf(err, "shadow layer %d framebuffer", layer)
		}
		atlas.LayerFramebuffers = append(atlas.LayerFramebuffers, fb)
	}

	sampler, err := SamplerCreate(context, true)
	if err != nil {
		atlas.Destroy(context)
		return nil, err
	}
	atlas.Sampler = sampler

	core.LogInfo("shadow atlas created: %d layers of %dx%d", camera.CascadeCount, size, size)
	return atlas, nil
}

func (sa *ShadowAtlas) Destroy(context *VulkanContext) {
	if sa.Sampler != vk.NullSampler {
		vk.DestroySampler(context.Device.LogicalDevice, sa.Sampler, context.Allocator)
		sa.Sampler = vk.NullSampler
	}
	for _, fb := range sa.LayerFramebuffers {
		if fb != nil {
			fb.Destroy(context)
		}
	}
	sa.LayerFramebuffers = nil
	for _, view := range sa.LayerViews {
		if view != nil {
			vk.DestroyImageView(context.Device.LogicalDevice, view, context.Allocator)
		}
	}
	sa.LayerViews = nil
	if sa.Image != nil {
		sa.Image.Destroy(context)
		sa.Image = nil
	}
}
