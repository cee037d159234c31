package vulkan

import (
	"fmt"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/core"
)

// Geometry buffer formats. The compose shader decodes these layouts,
// so they are fixed rather than negotiated.
const (
	GBufferAlbedoFormat   = vk.FormatR8g8b8a8Srgb
	GBufferPositionFormat = vk.FormatR16g16b16a16Sfloat
	GBufferNormalFormat   = vk.FormatR16g16b16a16Sfloat
	GBufferDepthFormat    = vk.FormatD32Sfloat
)

// AttachmentSpec is the renderer-side description of one attachment,
// kept separate from vk structs so it can be validated and described
// without a device.
type AttachmentSpec struct {
	Name    string
	Format  vk.Format
	Samples vk.SampleCountFlagBits
	Usage   vk.ImageUsageFlagBits
	Aspect  vk.ImageAspectFlagBits
	IsDepth bool
}

// Describe returns a stable human readable summary, used in logs and
// construction error messages.
func (s AttachmentSpec) Describe() string {
	kind := "color"
	if s.IsDepth {
		kind = "depth"
	}
	return fmt.Sprintf("%s (%s, format=%d, samples=%d)", s.Name, kind, s.Format, s.Samples)
}

// GBufferSpecs returns the attachment set of the geometry pass in
// framebuffer order: albedo, position, normal, depth.
func GBufferSpecs(samples vk.SampleCountFlagBits) []AttachmentSpec {
	return []AttachmentSpec{
		{
			Name:    "gbuffer-albedo",
			Format:  GBufferAlbedoFormat,
			Samples: samples,
			Usage:   vk.ImageUsageColorAttachmentBit | vk.ImageUsageSampledBit,
			Aspect:  vk.ImageAspectColorBit,
		},
		{
			Name:    "gbuffer-position",
			Format:  GBufferPositionFormat,
			Samples: samples,
			Usage:   vk.ImageUsageColorAttachmentBit | vk.ImageUsageSampledBit,
			Aspect:  vk.ImageAspectColorBit,
		},
		{
			Name:    "gbuffer-normal",
			Format:  GBufferNormalFormat,
			Samples: samples,
			Usage:   vk.ImageUsageColorAttachmentBit | vk.ImageUsageSampledBit,
			Aspect:  vk.ImageAspectColorBit,
		},
		{
			Name:    "gbuffer-depth",
			Format:  GBufferDepthFormat,
			Samples: samples,
			Usage:   vk.ImageUsageDepthStencilAttachmentBit,
			Aspect:  vk.ImageAspectDepthBit,
			IsDepth: true,
		},
	}
}

// ValidateAttachments checks a spec list against the render pass it
// will be bound into. Slot order, format, sample count and depth role
// must all agree.
func ValidateAttachments(specs []AttachmentSpec, config RenderpassConfig) error {
	if len(specs) != len(config.Attachments) {
		return errors.Wrapf(core.ErrAttachmentMismatch,
			"pass %s declares %d attachments, got %d", config.Name, len(config.Attachments), len(specs))
	}
	for i, spec := range specs {
		passAtt := config.Attachments[i]
		specSamples := spec.Samples
		if specSamples == 0 {
			specSamples = vk.SampleCount1Bit
		}
		passSamples := passAtt.Samples
		if passSamples == 0 {
			passSamples = vk.SampleCount1Bit
		}
		if spec.Format != passAtt.Format {
			return errors.Wrapf(core.ErrAttachmentMismatch,
				"pass %s slot %d: %s has format %d, pass wants %d", config.Name, i, spec.Describe(), spec.Format, passAtt.Format)
		}
		if specSamples != passSamples {
			return errors.Wrapf(core.ErrAttachmentMismatch,
				"pass %s slot %d: %s has %d samples, pass wants %d", config.Name, i, spec.Describe(), specSamples, passSamples)
		}
		if spec.IsDepth != passAtt.IsDepth {
			return errors.Wrapf(core.ErrAttachmentMismatch,
				"pass %s slot %d: %s depth role mismatch", config.Name, i, spec.Describe())
		}
	}
	return nil
}

// GBuffer owns the geometry pass targets and their framebuffer. All
// four images share the configured MSAA sample count and the swapchain
// extent.
type GBuffer struct {
	Albedo   *VulkanImage
	Position *VulkanImage
	Normal   *VulkanImage
	Depth    *VulkanImage

	Framebuffer *VulkanFramebuffer

	Width  uint32
	Height uint32

	// Framebuffer size generation the targets were built for.
	generation uint64
}

func GBufferCreate(context *VulkanContext, renderpass *VulkanRenderpass, width, height uint32) (*GBuffer, error) {
	specs := GBufferSpecs(context.SampleCount)
	if err := ValidateAttachments(specs, renderpass.Config); err != nil {
		return nil, err
	}

	g := &GBuffer{
		Width:      width,
		Height:     height,
		generation: context.FramebufferSizeGeneration,
	}

	images := make([]*VulkanImage, len(specs))
	for i, spec := range specs {
		img, err := ImageCreate(context, &ImageCreateInfo{
			Width:      width,
			Height:     height,
			Format:     spec.Format,
			Usage:      spec.Usage,
			Aspect:     spec.Aspect,
			Samples:    spec.Samples,
			CreateView: true,
		})
		if err != nil {
			g.Destroy(context)
			return nil, errors.Wrapf(err, "create %s", spec.Describe())
		}
		images[i] = img
	}
	g.Albedo, g.Position, g.Normal, g.Depth = images[0], images[1], images[2], images[3]

	fb, err := FramebufferCreate(context, renderpass, width, height, []vk.ImageView{
		g.Albedo.View, g.Position.View, g.Normal.View, g.Depth.View,
	})
	if err != nil {
		g.Destroy(context)
		return nil, err
	}
	g.Framebuffer = fb

	core.LogDebug("geometry buffer created %dx%d", width, height)
	return g, nil
}

// Refresh rebuilds the targets when the framebuffer size generation
// has moved. Calling it again for the same generation is a no-op.
func (g *GBuffer) Refresh(context *VulkanContext, renderpass *VulkanRenderpass) (*GBuffer, error) {
	if g.generation == context.FramebufferSizeGeneration {
		return g, nil
	}
	g.Destroy(context)
	return GBufferCreate(context, renderpass, context.FramebufferWidth, context.FramebufferHeight)
}

func (g *GBuffer) Destroy(context *VulkanContext) {
	if g.Framebuffer != nil {
		g.Framebuffer.Destroy(context)
		g.Framebuffer = nil
	}
	for _, img := range []*VulkanImage{g.Albedo, g.Position, g.Normal, g.Depth} {
		if img != nil {
			img.Destroy(context)
		}
	}
	g.Albedo, g.Position, g.Normal, g.Depth = nil, nil, nil, nil
}
