package vulkan

import (
	gomath "math"
	"runtime"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/assets"
	"github.com/spaghettifunk/penumbra/engine/config"
	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/platform"
	"github.com/spaghettifunk/penumbra/engine/renderer/camera"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

// VulkanRenderer owns the device, the render passes of the deferred
// pipeline and every resource they draw from. One frame flows through
// it as: shadow cascades, geometry buffer, compose, overlay, present.
type VulkanRenderer struct {
	platform *platform.Platform
	assets   *assets.AssetManager
	config   *config.Config

	context *VulkanContext

	cachedFramebufferWidth  uint32
	cachedFramebufferHeight uint32

	shadowPass   *VulkanRenderpass
	geometryPass *VulkanRenderpass
	composePass  *VulkanRenderpass
	overlayPass  *VulkanRenderpass

	gbuffer     *GBuffer
	shadowAtlas *ShadowAtlas
	framePool   *FramePool

	sceneRing      *UniformRing
	descriptorPool *VulkanDescriptorPool

	shadowShader   *VulkanShader
	skyboxShader   *VulkanShader
	terrainShader  *VulkanShader
	geometryShader *VulkanShader
	composeShader  *VulkanShader
	overlayShader  *VulkanShader

	shadowPipeline   *VulkanPipeline
	skyboxPipeline   *VulkanPipeline
	terrainPipeline  *VulkanPipeline
	geometryPipeline *VulkanPipeline
	composePipeline  *VulkanPipeline
	overlayPipeline  *VulkanPipeline

	font        *metadata.FontData
	fontAtlas   *VulkanImage
	fontSampler vk.Sampler
	gbufSampler vk.Sampler

	overlay   *OverlayMesh
	sequencer *Sequencer

	presentFramebuffers []*VulkanFramebuffer

	meshes map[uint32]*GeometryBuffers

	FrameNumber uint64
	debug       bool
}

func New(p *platform.Platform, am *assets.AssetManager, cfg *config.Config) *VulkanRenderer {
	return &VulkanRenderer{
		platform: p,
		assets:   am,
		config:   cfg,
		context: &VulkanContext{
			Allocator: nil,
		},
		meshes: make(map[uint32]*GeometryBuffers),
		debug:  true,
	}
}

// Font returns the overlay font metrics, nil before Initialize.
func (vr *VulkanRenderer) Font() *metadata.FontData {
	return vr.font
}

func (vr *VulkanRenderer) Initialize() error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return errors.New("GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		return errors.Wrap(err, "initialize vulkan loader")
	}

	width, height := vr.platform.FramebufferSize()
	vr.context.FramebufferWidth = width
	vr.context.FramebufferHeight = height

	if err := vr.createInstance(); err != nil {
		return err
	}
	if vr.debug {
		if err := vr.createDebugMessenger(); err != nil {
			return err
		}
	}

	surface, err := vr.platform.CreateVulkanSurface(vr.context.Instance)
	if err != nil {
		return errors.Wrap(err, "create window surface")
	}
	vr.context.Surface = surface

	vr.context.Device = &VulkanDevice{}
	if err := DeviceCreate(vr.context); err != nil {
		return err
	}
	if !DeviceDetectDepthFormat(vr.context.Device) {
		return errors.New("no supported depth format")
	}

	vr.context.SampleCount = vr.pickSampleCount(vr.config.Renderer.SampleCount)

	sc, err := SwapchainCreate(vr.context, width, height, vr.config.Renderer.VSync)
	if err != nil {
		return err
	}
	vr.context.Swapchain = sc

	if err := vr.createRenderpasses(); err != nil {
		return err
	}
	if err := vr.createTargets(); err != nil {
		return err
	}
	if err := vr.createShadersAndPipelines(); err != nil {
		return err
	}
	if err := vr.createDescriptors(); err != nil {
		return err
	}

	vr.framePool, err = NewFramePool(vr.context, vr.config.Renderer.FramePoolSize)
	if err != nil {
		return err
	}

	vr.sequencer = &Sequencer{
		ShadowPass:          vr.shadowPass,
		GeometryPass:        vr.geometryPass,
		ComposePass:         vr.composePass,
		OverlayPass:         vr.overlayPass,
		ShadowPipeline:      vr.shadowPipeline,
		SkyboxPipeline:      vr.skyboxPipeline,
		TerrainPipeline:     vr.terrainPipeline,
		GeometryPipeline:    vr.geometryPipeline,
		ComposePipeline:     vr.composePipeline,
		OverlayPipeline:     vr.overlayPipeline,
		GBuffer:             vr.gbuffer,
		ShadowAtlas:         vr.shadowAtlas,
		Overlay:             vr.overlay,
		PresentFramebuffers: vr.presentFramebuffers,
	}
	if err := vr.writeDescriptors(); err != nil {
		return err
	}

	core.LogInfo("Vulkan renderer initialized (%dx%d, %d samples, %d frames in flight).",
		width, height, vr.context.SampleCount, vr.framePool.Size())
	return nil
}

func (vr *VulkanRenderer) createInstance() error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(vr.config.Application.Name),
		PEngineName:        VulkanSafeString("Penumbra Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := []string{"VK_KHR_surface"}
	requiredExtensions = append(requiredExtensions, vr.platform.GetRequiredInstanceExtensions()...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
	}
	if vr.debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}
	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	var layerNames []string
	if vr.debug {
		if runtime.GOOS == "darwin" {
			createInfo.Flags |= 1
		}
		if vr.validationLayerAvailable("VK_LAYER_KHRONOS_validation") {
			layerNames = []string{"VK_LAYER_KHRONOS_validation"}
		} else {
			core.LogWarn("validation layer requested but not available")
		}
	}
	createInfo.EnabledLayerCount = uint32(len(layerNames))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layerNames)

	if res := vk.CreateInstance(&createInfo, vr.context.Allocator, &vr.context.Instance); res != vk.Success {
		return ResultToError(res, "create instance")
	}
	if err := vk.InitInstance(vr.context.Instance); err != nil {
		return errors.Wrap(err, "init instance proc addrs")
	}
	core.LogInfo("Vulkan instance created.")
	return nil
}

func (vr *VulkanRenderer) validationLayerAvailable(name string) bool {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return false
	}
	layers := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, layers); res != vk.Success {
		return false
	}
	for i := range layers {
		layers[i].Deref()
		layerName := string(layers[i].LayerName[:findFirstZero(layers[i].LayerName[:])])
		if layerName == name {
			return true
		}
	}
	return false
}

func (vr *VulkanRenderer) createDebugMessenger() error {
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
		PfnCallback: dbgCallbackFunc,
	}
	var dbg vk.DebugReportCallback
	if res := vk.CreateDebugReportCallback(vr.context.Instance, &debugCreateInfo, nil, &dbg); res != vk.Success {
		return ResultToError(res, "create debug callback")
	}
	vr.context.debugMessenger = dbg
	return nil
}

// pickSampleCount clamps the configured MSAA count to what the device
// framebuffers support.
func (vr *VulkanRenderer) pickSampleCount(requested uint32) vk.SampleCountFlagBits {
	vr.context.Device.Properties.Deref()
	vr.context.Device.Properties.Limits.Deref()
	supported := vk.SampleCountFlagBits(vr.context.Device.Properties.Limits.FramebufferColorSampleCounts) &
		vk.SampleCountFlagBits(vr.context.Device.Properties.Limits.FramebufferDepthSampleCounts)

	// The compose pass reads the geometry buffer through multisampled
	// samplers, so it needs at least two samples.
	if requested < 2 {
		requested = 2
	}
	for count := requested; count >= 1; count /= 2 {
		bit := vk.SampleCountFlagBits(count)
		if supported&bit != 0 {
			if count != requested {
				core.LogWarn("MSAA x%d not supported, falling back to x%d", requested, count)
			}
			return bit
		}
	}
	return vk.SampleCount1Bit
}

func gbufferPassConfig(samples vk.SampleCountFlagBits) RenderpassConfig {
	colorAttachment := func(format vk.Format) RenderpassAttachmentConfig {
		return RenderpassAttachmentConfig{
			Format:        format,
			Samples:       samples,
			LoadOp:        vk.AttachmentLoadOpClear,
			StoreOp:       vk.AttachmentStoreOpStore,
			InitialLayout: vk.ImageLayoutUndefined,
			FinalLayout:   vk.ImageLayoutShaderReadOnlyOptimal,
		}
	}
	return RenderpassConfig{
		Name: "gbuffer",
		Attachments: []RenderpassAttachmentConfig{
			colorAttachment(GBufferAlbedoFormat),
			colorAttachment(GBufferPositionFormat),
			colorAttachment(GBufferNormalFormat),
			{
				Format:        GBufferDepthFormat,
				Samples:       samples,
				LoadOp:        vk.AttachmentLoadOpClear,
				StoreOp:       vk.AttachmentStoreOpDontCare,
				InitialLayout: vk.ImageLayoutUndefined,
				FinalLayout:   vk.ImageLayoutDepthStencilAttachmentOptimal,
				IsDepth:       true,
			},
		},
		ClearDepth: 1.0,
		Dependencies: []vk.SubpassDependency{
			{
				SrcSubpass:    vk.SubpassExternal,
				DstSubpass:    0,
				SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
				SrcAccessMask: vk.AccessFlags(vk.AccessShaderReadBit),
				DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
				DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
			},
			{
				SrcSubpass:    0,
				DstSubpass:    vk.SubpassExternal,
				SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
				SrcAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
				DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
				DstAccessMask: vk.AccessFlags(vk.AccessShaderReadBit),
			},
		},
	}
}

func composePassConfig(format vk.Format) RenderpassConfig {
	return RenderpassConfig{
		Name: "compose",
		Attachments: []RenderpassAttachmentConfig{{
			Format:        format,
			Samples:       vk.SampleCount1Bit,
			LoadOp:        vk.AttachmentLoadOpClear,
			StoreOp:       vk.AttachmentStoreOpStore,
			InitialLayout: vk.ImageLayoutUndefined,
			FinalLayout:   vk.ImageLayoutColorAttachmentOptimal,
		}},
	}
}

func overlayPassConfig(format vk.Format) RenderpassConfig {
	return RenderpassConfig{
		Name: "overlay",
		Attachments: []RenderpassAttachmentConfig{{
			Format:        format,
			Samples:       vk.SampleCount1Bit,
			LoadOp:        vk.AttachmentLoadOpLoad,
			StoreOp:       vk.AttachmentStoreOpStore,
			InitialLayout: vk.ImageLayoutColorAttachmentOptimal,
			FinalLayout:   vk.ImageLayoutPresentSrc,
		}},
	}
}

func (vr *VulkanRenderer) createRenderpasses() error {
	var err error
	if vr.shadowPass, err = RenderpassCreate(vr.context, ShadowRenderpassConfig()); err != nil {
		return err
	}
	if vr.geometryPass, err = RenderpassCreate(vr.context, gbufferPassConfig(vr.context.SampleCount)); err != nil {
		return err
	}
	swapFormat := vr.context.Swapchain.ImageFormat.Format
	if vr.composePass, err = RenderpassCreate(vr.context, composePassConfig(swapFormat)); err != nil {
		return err
	}
	if vr.overlayPass, err = RenderpassCreate(vr.context, overlayPassConfig(swapFormat)); err != nil {
		return err
	}
	return nil
}

func (vr *VulkanRenderer) createTargets() error {
	var err error
	vr.gbuffer, err = GBufferCreate(vr.context, vr.geometryPass, vr.context.FramebufferWidth, vr.context.FramebufferHeight)
	if err != nil {
		return err
	}
	vr.shadowAtlas, err = ShadowAtlasCreate(vr.context, vr.shadowPass, vr.config.Shadows.MapSize)
	if err != nil {
		return err
	}
	if err := vr.createPresentFramebuffers(); err != nil {
		return err
	}
	vr.context.FramebufferSizeLastGeneration = vr.context.FramebufferSizeGeneration
	return nil
}

func (vr *VulkanRenderer) createPresentFramebuffers() error {
	for i := uint32(0); i < vr.context.Swapchain.ImageCount; i++ {
		fb, err := FramebufferCreate(vr.context, vr.composePass,
			vr.context.FramebufferWidth, vr.context.FramebufferHeight,
			[]vk.ImageView{vr.context.Swapchain.Views[i]})
		if err != nil {
			return err
		}
		vr.presentFramebuffers = append(vr.presentFramebuffers, fb)
	}
	return nil
}

func (vr *VulkanRenderer) destroyPresentFramebuffers() {
	for _, fb := range vr.presentFramebuffers {
		if fb != nil {
			fb.Destroy(vr.context)
		}
	}
	vr.presentFramebuffers = nil
}

func (vr *VulkanRenderer) loadShader(name string) (*VulkanShader, error) {
	vertRes, err := vr.assets.LoadAsset(name+".vert", metadata.ResourceTypeShader, nil)
	if err != nil {
		return nil, err
	}
	fragRes, err := vr.assets.LoadAsset(name+".frag", metadata.ResourceTypeShader, nil)
	if err != nil {
		return nil, err
	}
	vertWords := vertRes.Data.(*metadata.ShaderResourceData).Words
	fragWords := fragRes.Data.(*metadata.ShaderResourceData).Words

	shader, err := ShaderCreate(vr.context, vertWords, fragWords)
	if err != nil {
		return nil, errors.Wrapf(err, "shader %s", name)
	}
	return shader, nil
}

func (vr *VulkanRenderer) createShadersAndPipelines() error {
	type stage struct {
		name     string
		shader   **VulkanShader
		pipeline **VulkanPipeline
		config   VulkanPipelineConfig
	}

	sampleBits := uint32(vr.context.SampleCount)
	stages := []stage{
		{
			name: "shadow", shader: &vr.shadowShader, pipeline: &vr.shadowPipeline,
			config: VulkanPipelineConfig{
				Renderpass: vr.shadowPass,
				Stride:     VertexStride,
				Attributes: VertexAttributes(),
				CullMode:   vk.CullModeFrontBit,
				DepthTest:  true, DepthWrite: true,
				DepthBias:        1.25,
				PushConstantSize: ShadowPushSize,
			},
		},
		{
			name: "skybox", shader: &vr.skyboxShader, pipeline: &vr.skyboxPipeline,
			config: VulkanPipelineConfig{
				Renderpass: vr.geometryPass,
				Stride:     VertexStride,
				Attributes: VertexAttributes(),
				Samples:    vr.context.SampleCount,
				CullMode:   vk.CullModeFrontBit,
				// Depth is neither tested nor written so geometry always
				// covers the sky.
				ColorAttachmentCount: 3,
				PushConstantSize:     ModelPushSize,
			},
		},
		{
			name: "terrain", shader: &vr.terrainShader, pipeline: &vr.terrainPipeline,
			config: VulkanPipelineConfig{
				Renderpass: vr.geometryPass,
				Stride:     VertexStride,
				Attributes: VertexAttributes(),
				Samples:    vr.context.SampleCount,
				CullMode:   vk.CullModeBackBit,
				DepthTest:  true, DepthWrite: true,
				ColorAttachmentCount: 3,
				PushConstantSize:     ModelPushSize,
			},
		},
		{
			name: "gbuffer", shader: &vr.geometryShader, pipeline: &vr.geometryPipeline,
			config: VulkanPipelineConfig{
				Renderpass: vr.geometryPass,
				Stride:     VertexStride,
				Attributes: VertexAttributes(),
				Samples:    vr.context.SampleCount,
				CullMode:   vk.CullModeBackBit,
				DepthTest:  true, DepthWrite: true,
				ColorAttachmentCount: 3,
				PushConstantSize:     ModelPushSize,
			},
		},
		{
			name: "compose", shader: &vr.composeShader, pipeline: &vr.composePipeline,
			config: VulkanPipelineConfig{
				Renderpass: vr.composePass,
				// Fullscreen triangle generated in the vertex shader.
				Stride:               0,
				SampleShading:        true,
				CullMode:             vk.CullModeBackBit,
				ColorAttachmentCount: 1,
				// Constant 0 bakes the geometry buffer sample count into
				// the per-sample resolve loop.
				FragmentSpecialization: []uint32{sampleBits},
			},
		},
		{
			name: "overlay", shader: &vr.overlayShader, pipeline: &vr.overlayPipeline,
			config: VulkanPipelineConfig{
				Renderpass:           vr.overlayPass,
				Stride:               OverlayVertexStride,
				Attributes:           OverlayAttributes(),
				CullMode:             vk.CullModeNone,
				ColorAttachmentCount: 1,
				BlendEnable:          true,
				PushConstantSize:     OverlayPushSize,
			},
		},
	}

	for i := range stages {
		st := &stages[i]
		shader, err := vr.loadShader(st.name)
		if err != nil {
			return err
		}
		*st.shader = shader
		st.config.Shader = shader
		pipeline, err := NewGraphicsPipeline(vr.context, &st.config)
		if err != nil {
			return err
		}
		*st.pipeline = pipeline
	}
	return nil
}

func (vr *VulkanRenderer) createDescriptors() error {
	slots := vr.config.Renderer.FramePoolSize

	var err error
	vr.sceneRing, err = UniformRingCreate(vr.context, slots, SceneUniformSize)
	if err != nil {
		return err
	}

	// Scene set and compose set per frame slot, plus one overlay set.
	vr.descriptorPool, err = DescriptorPoolCreate(vr.context, slots*2+1)
	if err != nil {
		return err
	}

	vr.gbufSampler, err = SamplerCreate(vr.context, false)
	if err != nil {
		return err
	}

	if err := vr.loadFont(); err != nil {
		return err
	}

	vr.overlay, err = OverlayMeshCreate(vr.context, slots)
	if err != nil {
		return err
	}
	return nil
}

func (vr *VulkanRenderer) loadFont() error {
	font, atlasWidth, atlasHeight, pixels, err := vr.loadFontAsset()
	if err != nil {
		core.LogWarn("overlay font unavailable (%v), using the built-in face; run 'mage assets:fetch'", err)
		font, atlasWidth, atlasHeight, pixels = FallbackFont()
	}
	vr.font = font

	vr.fontAtlas, err = TextureUpload(vr.context, atlasWidth, atlasHeight, pixels)
	if err != nil {
		return err
	}
	vr.fontSampler, err = SamplerCreate(vr.context, false)
	return err
}

func (vr *VulkanRenderer) loadFontAsset() (*metadata.FontData, uint32, uint32, []byte, error) {
	fontRes, err := vr.assets.LoadAsset("default32", metadata.ResourceTypeBitmapFont, nil)
	if err != nil {
		return nil, 0, 0, nil, errors.Wrap(err, "load overlay font")
	}
	fontData := fontRes.Data.(*metadata.BitmapFontResourceData)
	if len(fontData.Pages) == 0 {
		return nil, 0, 0, nil, errors.New("overlay font has no atlas pages")
	}

	atlasRes, err := vr.assets.LoadAssetFromPath(
		"assets/fonts/"+fontData.Pages[0].File, metadata.ResourceTypeImage, nil)
	if err != nil {
		return nil, 0, 0, nil, errors.Wrap(err, "load font atlas")
	}
	atlas := atlasRes.Data.(*metadata.ImageResourceData)
	return fontData.Data, atlas.Width, atlas.Height, atlas.Pixels, nil
}

// writeDescriptors allocates and fills the per-slot descriptor sets.
// Called again after a resize to rebind the rebuilt geometry buffer.
func (vr *VulkanRenderer) writeDescriptors() error {
	slots := int(vr.framePool.Size())

	if vr.sequencer.SceneSets == nil {
		sceneLayouts := make([]vk.DescriptorSetLayout, slots)
		composeLayouts := make([]vk.DescriptorSetLayout, slots)
		for i := 0; i < slots; i++ {
			sceneLayouts[i] = vr.geometryShader.SetLayouts[0]
			composeLayouts[i] = vr.composeShader.SetLayouts[0]
		}
		var err error
		if vr.sequencer.SceneSets, err = vr.descriptorPool.Allocate(vr.context, sceneLayouts); err != nil {
			return err
		}
		if vr.sequencer.ComposeSets, err = vr.descriptorPool.Allocate(vr.context, composeLayouts); err != nil {
			return err
		}
		overlaySets, err := vr.descriptorPool.Allocate(vr.context, []vk.DescriptorSetLayout{vr.overlayShader.SetLayouts[0]})
		if err != nil {
			return err
		}
		vr.sequencer.OverlaySet = overlaySets[0]
	}

	for slot := 0; slot < slots; slot++ {
		sceneBuffer := vr.sceneRing.Buffers[slot]
		WriteUniformBuffer(vr.context, vr.sequencer.SceneSets[slot], 0, sceneBuffer)

		composeSet := vr.sequencer.ComposeSets[slot]
		WriteUniformBuffer(vr.context, composeSet, 0, sceneBuffer)
		WriteCombinedImageSampler(vr.context, composeSet, 1, vr.gbuffer.Albedo.View, vr.gbufSampler, vk.ImageLayoutShaderReadOnlyOptimal)
		WriteCombinedImageSampler(vr.context, composeSet, 2, vr.gbuffer.Position.View, vr.gbufSampler, vk.ImageLayoutShaderReadOnlyOptimal)
		WriteCombinedImageSampler(vr.context, composeSet, 3, vr.gbuffer.Normal.View, vr.gbufSampler, vk.ImageLayoutShaderReadOnlyOptimal)
		WriteCombinedImageSampler(vr.context, composeSet, 4, vr.shadowAtlas.Image.View, vr.shadowAtlas.Sampler, vk.ImageLayoutDepthStencilReadOnlyOptimal)
	}

	WriteCombinedImageSampler(vr.context, vr.sequencer.OverlaySet, 0, vr.fontAtlas.View, vr.fontSampler, vk.ImageLayoutShaderReadOnlyOptimal)
	return nil
}

// UploadMesh moves a mesh to the GPU and returns the geometry id draw
// packets reference it by.
func (vr *VulkanRenderer) UploadMesh(vertices []float32, indices []uint32) (uint32, error) {
	geo, err := GeometryUpload(vr.context, vertices, indices)
	if err != nil {
		return metadata.InvalidID, err
	}
	id := core.IdentifierAcquireNewID(geo)
	vr.meshes[id] = geo
	return id, nil
}

// Resized records the new framebuffer size. The swapchain and every
// size-dependent target are rebuilt at the top of the next frame.
func (vr *VulkanRenderer) Resized(width, height uint32) {
	vr.cachedFramebufferWidth = width
	vr.cachedFramebufferHeight = height
	vr.context.FramebufferSizeGeneration++
}

func (vr *VulkanRenderer) recreateSizedResources() error {
	if vr.cachedFramebufferWidth == 0 || vr.cachedFramebufferHeight == 0 {
		// Minimized. Keep skipping frames until the window comes back.
		return errors.WithStack(core.ErrFrameAborted)
	}
	vr.context.RecreatingSwapchain = true
	vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)

	vr.context.FramebufferWidth = vr.cachedFramebufferWidth
	vr.context.FramebufferHeight = vr.cachedFramebufferHeight

	if err := DeviceQuerySwapchainSupport(vr.context.Device.PhysicalDevice, vr.context.Surface, &vr.context.Device.SwapchainSupport); err != nil {
		return err
	}
	sc, err := vr.context.Swapchain.SwapchainRecreate(vr.context, vr.context.FramebufferWidth, vr.context.FramebufferHeight)
	if err != nil {
		return err
	}
	vr.context.Swapchain = sc

	vr.gbuffer, err = vr.gbuffer.Refresh(vr.context, vr.geometryPass)
	if err != nil {
		return err
	}
	vr.sequencer.GBuffer = vr.gbuffer

	vr.destroyPresentFramebuffers()
	if err := vr.createPresentFramebuffers(); err != nil {
		return err
	}
	vr.sequencer.PresentFramebuffers = vr.presentFramebuffers

	if err := vr.writeDescriptors(); err != nil {
		return err
	}

	vr.context.FramebufferSizeLastGeneration = vr.context.FramebufferSizeGeneration
	vr.context.RecreatingSwapchain = false
	core.LogInfo("swapchain recreated at %dx%d", vr.context.FramebufferWidth, vr.context.FramebufferHeight)
	return nil
}

// rearmFence re-signals a fence whose frame was aborted after the
// fence reset, with an empty submission, so the next acquire of the
// slot does not deadlock.
func (vr *VulkanRenderer) rearmFence(frame *FrameContext) {
	fence, ok := frame.InFlight.(*VulkanFence)
	if !ok {
		return
	}
	vk.QueueSubmit(vr.context.Device.GraphicsQueue, 0, nil, fence.Handle)
	fence.IsSignaled = true
}

// abortFrame drops the current frame after its fence was already
// reset: the fence is rearmed so the slot stays usable, and the error
// is marked so the frame loop skips to the next frame instead of
// shutting down.
func (vr *VulkanRenderer) abortFrame(frame *FrameContext, err error) error {
	vr.rearmFence(frame)
	return errors.Mark(err, core.ErrFrameAborted)
}

// DrawFrame renders and presents one frame. An ErrFrameAborted return
// means the frame was skipped cleanly (resize in progress) and the
// caller should simply continue with the next one.
func (vr *VulkanRenderer) DrawFrame(packet *metadata.RenderPacket, cam *camera.Camera) error {
	if vr.context.FramebufferSizeGeneration != vr.context.FramebufferSizeLastGeneration {
		if err := vr.recreateSizedResources(); err != nil {
			return err
		}
	}

	frame, err := vr.framePool.Acquire(vr.context, gomath.MaxUint64)
	if err != nil {
		return err
	}
	// The slot rotates even when this frame bails out early.
	defer vr.framePool.Advance()

	imageIndex, err := vr.context.Swapchain.SwapchainAcquireNextImageIndex(vr.context, gomath.MaxUint64, frame.ImageAvailable, nil)
	if err != nil {
		vr.rearmFence(frame)
		if errors.Is(err, core.ErrSwapchainOutOfDate) {
			vr.Resized(vr.platform.FramebufferSize())
			return errors.WithStack(core.ErrFrameAborted)
		}
		return err
	}
	vr.context.ImageIndex = imageIndex

	cascades := camera.ComputeCascades(cam, packet.Light.Direction, vr.config.Shadows.SplitLambda)

	sceneData := PackSceneUniform(cam.ViewMatrix(), cam.ProjectionMatrix(), cascades, packet.Light, cam.Position)
	if err := vr.sceneRing.Write(frame.Index, floatBytes(sceneData)); err != nil {
		return vr.abortFrame(frame, err)
	}
	if err := vr.overlay.Update(frame.Index, vr.font, packet.Texts); err != nil {
		return vr.abortFrame(frame, err)
	}

	recordedWidth, recordedHeight := vr.context.FramebufferWidth, vr.context.FramebufferHeight
	inputs := &FrameInputs{
		Slot:       frame.Index,
		ImageIndex: imageIndex,
		Packet:     packet,
		Cascades:   cascades,
		Meshes:     vr.meshes,
	}
	if err := vr.sequencer.RecordOffscreen(vr.context, frame, inputs); err != nil {
		return vr.abortFrame(frame, err)
	}
	if err := vr.sequencer.RecordCompose(vr.context, frame, inputs); err != nil {
		return vr.abortFrame(frame, err)
	}
	if err := CheckRecordedExtent(vr.context, recordedWidth, recordedHeight); err != nil {
		vr.rearmFence(frame)
		return err
	}

	offscreenSubmit := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{frame.OffscreenCmd.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{frame.OffscreenComplete},
	}
	if res := vk.QueueSubmit(vr.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{offscreenSubmit}, nil); res != vk.Success {
		vr.rearmFence(frame)
		return ResultToError(res, "submit offscreen work")
	}
	frame.OffscreenCmd.UpdateSubmitted()

	composeSubmit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 2,
		PWaitSemaphores:    []vk.Semaphore{frame.OffscreenComplete, frame.ImageAvailable},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{frame.ComposeCmd.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{frame.RenderComplete},
	}
	fence := frame.InFlight.(*VulkanFence)
	if res := vk.QueueSubmit(vr.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{composeSubmit}, fence.Handle); res != vk.Success {
		vr.rearmFence(frame)
		return ResultToError(res, "submit compose work")
	}
	frame.ComposeCmd.UpdateSubmitted()

	err = vr.context.Swapchain.SwapchainPresent(vr.context, vr.context.Device.PresentQueue, frame.RenderComplete, imageIndex)
	if err != nil {
		if errors.Is(err, core.ErrSwapchainOutOfDate) {
			vr.Resized(vr.platform.FramebufferSize())
			return nil
		}
		return err
	}

	vr.FrameNumber++
	return nil
}

func (vr *VulkanRenderer) Shutdown() error {
	if vr.context.Device != nil && vr.context.Device.LogicalDevice != nil {
		vk.DeviceWaitIdle(vr.context.Device.LogicalDevice)
	}

	for id, mesh := range vr.meshes {
		mesh.Destroy(vr.context)
		core.IdentifierReleaseID(id)
	}
	vr.meshes = map[uint32]*GeometryBuffers{}

	if vr.overlay != nil {
		vr.overlay.Destroy(vr.context)
	}
	if vr.fontAtlas != nil {
		vr.fontAtlas.Destroy(vr.context)
	}
	if vr.fontSampler != vk.NullSampler {
		vk.DestroySampler(vr.context.Device.LogicalDevice, vr.fontSampler, vr.context.Allocator)
	}
	if vr.gbufSampler != vk.NullSampler {
		vk.DestroySampler(vr.context.Device.LogicalDevice, vr.gbufSampler, vr.context.Allocator)
	}

	if vr.framePool != nil {
		vr.framePool.Destroy(vr.context)
	}
	if vr.descriptorPool != nil {
		vr.descriptorPool.Destroy(vr.context)
	}
	if vr.sceneRing != nil {
		vr.sceneRing.Destroy(vr.context)
	}

	for _, pipeline := range []*VulkanPipeline{
		vr.shadowPipeline, vr.skyboxPipeline, vr.terrainPipeline,
		vr.geometryPipeline, vr.composePipeline, vr.overlayPipeline,
	} {
		if pipeline != nil {
			pipeline.Destroy(vr.context)
		}
	}
	for _, shader := range []*VulkanShader{
		vr.shadowShader, vr.skyboxShader, vr.terrainShader,
		vr.geometryShader, vr.composeShader, vr.overlayShader,
	} {
		if shader != nil {
			shader.Destroy(vr.context)
		}
	}

	vr.destroyPresentFramebuffers()
	if vr.shadowAtlas != nil {
		vr.shadowAtlas.Destroy(vr.context)
	}
	if vr.gbuffer != nil {
		vr.gbuffer.Destroy(vr.context)
	}

	for _, pass := range []*VulkanRenderpass{vr.shadowPass, vr.geometryPass, vr.composePass, vr.overlayPass} {
		if pass != nil {
			pass.RenderpassDestroy(vr.context)
		}
	}

	if vr.context.Swapchain != nil {
		vr.context.Swapchain.SwapchainDestroy(vr.context)
	}
	if vr.context.Device != nil {
		DeviceDestroy(vr.context)
	}
	if vr.context.Surface != vk.NullSurface {
		vk.DestroySurface(vr.context.Instance, vr.context.Surface, vr.context.Allocator)
		vr.context.Surface = vk.NullSurface
	}
	if vr.context.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(vr.context.Instance, vr.context.debugMessenger, nil)
	}
	if vr.context.Instance != nil {
		vk.DestroyInstance(vr.context.Instance, vr.context.Allocator)
		vr.context.Instance = nil
	}

	core.LogInfo("Vulkan renderer shut down.")
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] Code %d: %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] Code %d: %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("[%s] Code %d: %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
