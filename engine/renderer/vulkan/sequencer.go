package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/renderer/camera"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

// SceneUniformFloats is the float count of the per-frame scene uniform
// block: view, projection, four cascade matrices, split depths, light
// direction, light color with ambient in w, camera position.
const SceneUniformFloats = 16 + 16 + camera.CascadeCount*16 + 4 + 4 + 4 + 4

// SceneUniformSize is the scene uniform block size in bytes.
const SceneUniformSize = SceneUniformFloats * 4

// PackSceneUniform lays out the scene uniform block in std140 order.
func PackSceneUniform(view, proj mgl32.Mat4, cascades []camera.Cascade, light metadata.LightData, cameraPos mgl32.Vec3) []float32 {
	out := make([]float32, 0, SceneUniformFloats)
	out = append(out, view[:]...)
	out = append(out, proj[:]...)
	for i := 0; i < camera.CascadeCount; i++ {
		out = append(out, cascades[i].ViewProj[:]...)
	}
	for i := 0; i < camera.CascadeCount; i++ {
		out = append(out, cascades[i].SplitDepth)
	}
	dir := light.Direction.Normalize()
	out = append(out, dir.X(), dir.Y(), dir.Z(), 0)
	out = append(out, light.Color.X(), light.Color.Y(), light.Color.Z(), light.Ambient)
	out = append(out, cameraPos.X(), cameraPos.Y(), cameraPos.Z(), 1)
	return out
}

// Push constant sizes. The shadow pass pushes the cascade matrix and
// the model matrix together; mesh passes push the model matrix alone;
// the overlay pushes the framebuffer size for pixel-to-clip mapping.
const (
	ShadowPushSize  = 128
	ModelPushSize   = 64
	OverlayPushSize = 16
)

// FrameInputs is everything Record needs for one frame.
type FrameInputs struct {
	Slot       uint32
	ImageIndex uint32
	Packet     *metadata.RenderPacket
	Cascades   []camera.Cascade

	// GeometryID to uploaded mesh.
	Meshes map[uint32]*GeometryBuffers
}

// Sequencer records the fixed pass order of a frame: the four shadow
// cascades and the geometry pass into the offscreen command buffer,
// then compose and overlay into the compose command buffer. It borrows
// every resource from the backend and owns none of them.
type Sequencer struct {
	ShadowPass   *VulkanRenderpass
	GeometryPass *VulkanRenderpass
	ComposePass  *VulkanRenderpass
	OverlayPass  *VulkanRenderpass

	ShadowPipeline   *VulkanPipeline
	SkyboxPipeline   *VulkanPipeline
	TerrainPipeline  *VulkanPipeline
	GeometryPipeline *VulkanPipeline
	ComposePipeline  *VulkanPipeline
	OverlayPipeline  *VulkanPipeline

	GBuffer     *GBuffer
	ShadowAtlas *ShadowAtlas
	Overlay     *OverlayMesh

	// Per frame slot descriptor sets.
	SceneSets   []vk.DescriptorSet
	ComposeSets []vk.DescriptorSet
	OverlaySet  vk.DescriptorSet

	// One framebuffer per swapchain image, shared by compose and
	// overlay which target the same attachment.
	PresentFramebuffers []*VulkanFramebuffer
}

func setViewport(commandBuffer *VulkanCommandBuffer, width, height uint32) {
	viewport := vk.Viewport{
		X: 0, Y: 0,
		Width:    float32(width),
		Height:   float32(height),
		MinDepth: 0, MaxDepth: 1,
	}
	scissor := vk.Rect2D{Extent: vk.Extent2D{Width: width, Height: height}}
	vk.CmdSetViewport(commandBuffer.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(commandBuffer.Handle, 0, 1, []vk.Rect2D{scissor})
}

func pushFloats(commandBuffer *VulkanCommandBuffer, layout vk.PipelineLayout, data []float32) {
	vk.CmdPushConstants(commandBuffer.Handle, layout,
		vk.ShaderStageFlags(vk.ShaderStageVertexBit)|vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		0, uint32(len(data)*4), unsafe.Pointer(&data[0]))
}

func bindSet(commandBuffer *VulkanCommandBuffer, layout vk.PipelineLayout, set vk.DescriptorSet) {
	vk.CmdBindDescriptorSets(commandBuffer.Handle, vk.PipelineBindPointGraphics,
		layout, 0, 1, []vk.DescriptorSet{set}, 0, nil)
}

// RecordOffscreen writes the shadow cascade passes and the geometry
// pass into the frame's offscreen command buffer.
func (s *Sequencer) RecordOffscreen(context *VulkanContext, frame *FrameContext, inputs *FrameInputs) error {
	cmd := frame.OffscreenCmd
	cmd.Reset()
	if err := cmd.Begin(false, false, false); err != nil {
		return err
	}

	s.recordShadowCascades(cmd, inputs)
	s.recordGeometryPass(cmd, inputs)

	return cmd.End()
}

func (s *Sequencer) recordShadowCascades(cmd *VulkanCommandBuffer, inputs *FrameInputs) {
	setViewport(cmd, s.ShadowAtlas.Size, s.ShadowAtlas.Size)

	for layer := 0; layer < camera.CascadeCount; layer++ {
		s.ShadowPass.RenderpassBegin(cmd, s.ShadowAtlas.LayerFramebuffers[layer].Handle, s.ShadowAtlas.Size, s.ShadowAtlas.Size)
		s.ShadowPipeline.Bind(cmd, vk.PipelineBindPointGraphics)

		lightViewProj := inputs.Cascades[layer].ViewProj
		s.drawCasters(cmd, inputs, lightViewProj)

		s.ShadowPass.RenderpassEnd(cmd)
	}
}

func (s *Sequencer) drawCasters(cmd *VulkanCommandBuffer, inputs *FrameInputs, lightViewProj mgl32.Mat4) {
	push := make([]float32, 0, 32)

	drawOne := func(g *metadata.GeometryRenderData) {
		mesh := inputs.Meshes[g.GeometryID]
		if mesh == nil {
			return
		}
		push = push[:0]
		push = append(push, lightViewProj[:]...)
		push = append(push, g.Model[:]...)
		pushFloats(cmd, s.ShadowPipeline.PipelineLayout, push)
		mesh.Draw(cmd)
	}

	if t := inputs.Packet.Terrain; t != nil && t.CastsShadow {
		drawOne(t)
	}
	for _, g := range inputs.Packet.Geometries {
		if g.CastsShadow {
			drawOne(g)
		}
	}
}

func (s *Sequencer) recordGeometryPass(cmd *VulkanCommandBuffer, inputs *FrameInputs) {
	setViewport(cmd, s.GBuffer.Width, s.GBuffer.Height)
	s.GeometryPass.RenderpassBegin(cmd, s.GBuffer.Framebuffer.Handle, s.GBuffer.Width, s.GBuffer.Height)

	sceneSet := s.SceneSets[inputs.Slot]

	// Skybox first: depth writes are off so everything else overdraws
	// it, and the compose pass treats untouched texels as sky.
	if sky := inputs.Packet.Skybox; sky != nil {
		if mesh := inputs.Meshes[sky.GeometryID]; mesh != nil {
			s.SkyboxPipeline.Bind(cmd, vk.PipelineBindPointGraphics)
			bindSet(cmd, s.SkyboxPipeline.PipelineLayout, sceneSet)
			model := sky.Model
			pushFloats(cmd, s.SkyboxPipeline.PipelineLayout, model[:])
			mesh.Draw(cmd)
		}
	}

	if terrain := inputs.Packet.Terrain; terrain != nil {
		if mesh := inputs.Meshes[terrain.GeometryID]; mesh != nil {
			s.TerrainPipeline.Bind(cmd, vk.PipelineBindPointGraphics)
			bindSet(cmd, s.TerrainPipeline.PipelineLayout, sceneSet)
			model := terrain.Model
			pushFloats(cmd, s.TerrainPipeline.PipelineLayout, model[:])
			mesh.Draw(cmd)
		}
	}

	if len(inputs.Packet.Geometries) > 0 {
		s.GeometryPipeline.Bind(cmd, vk.PipelineBindPointGraphics)
		bindSet(cmd, s.GeometryPipeline.PipelineLayout, sceneSet)
		for _, g := range inputs.Packet.Geometries {
			mesh := inputs.Meshes[g.GeometryID]
			if mesh == nil {
				continue
			}
			model := g.Model
			pushFloats(cmd, s.GeometryPipeline.PipelineLayout, model[:])
			mesh.Draw(cmd)
		}
	}

	s.GeometryPass.RenderpassEnd(cmd)
}

// CheckRecordedExtent fails when the framebuffer size moved between
// command recording and submission. Such command buffers carry stale
// viewports and framebuffer handles and must not reach the queue; the
// frame is dropped and re-recorded at the new size.
func CheckRecordedExtent(context *VulkanContext, width, height uint32) error {
	if context.FramebufferWidth != width || context.FramebufferHeight != height {
		return errors.Wrapf(core.ErrFrameAborted,
			"framebuffer resized %dx%d -> %dx%d after recording",
			width, height, context.FramebufferWidth, context.FramebufferHeight)
	}
	return nil
}

// RecordCompose writes the compose and overlay passes into the frame's
// compose command buffer, targeting the acquired swapchain image.
func (s *Sequencer) RecordCompose(context *VulkanContext, frame *FrameContext, inputs *FrameInputs) error {
	if int(inputs.ImageIndex) >= len(s.PresentFramebuffers) {
		return errors.Newf("image index %d out of range", inputs.ImageIndex)
	}
	cmd := frame.ComposeCmd
	cmd.Reset()
	if err := cmd.Begin(false, false, false); err != nil {
		return err
	}

	framebuffer := s.PresentFramebuffers[inputs.ImageIndex].Handle
	width := context.FramebufferWidth
	height := context.FramebufferHeight
	setViewport(cmd, width, height)

	// Fullscreen lighting resolve: one triangle, no vertex buffer.
	s.ComposePass.RenderpassBegin(cmd, framebuffer, width, height)
	s.ComposePipeline.Bind(cmd, vk.PipelineBindPointGraphics)
	bindSet(cmd, s.ComposePipeline.PipelineLayout, s.ComposeSets[inputs.Slot])
	vk.CmdDraw(cmd.Handle, 3, 1, 0, 0)
	s.ComposePass.RenderpassEnd(cmd)

	// Overlay loads the composed image and blends text on top.
	s.OverlayPass.RenderpassBegin(cmd, framebuffer, width, height)
	if s.Overlay.IndexCounts[inputs.Slot] > 0 {
		s.OverlayPipeline.Bind(cmd, vk.PipelineBindPointGraphics)
		bindSet(cmd, s.OverlayPipeline.PipelineLayout, s.OverlaySet)
		pushFloats(cmd, s.OverlayPipeline.PipelineLayout, []float32{float32(width), float32(height), 0, 0})
		s.Overlay.Draw(cmd, inputs.Slot)
	}
	s.OverlayPass.RenderpassEnd(cmd)

	return cmd.End()
}
