package vulkan

import (
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/renderer/camera"
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

func TestPackSceneUniformLayout(t *testing.T) {
	view := mgl32.Ident4()
	proj := mgl32.Ident4()
	cascades := make([]camera.Cascade, camera.CascadeCount)
	for i := range cascades {
		cascades[i] = camera.Cascade{
			SplitDepth: float32(i+1) * 10,
			ViewProj:   mgl32.Ident4(),
		}
	}
	light := metadata.LightData{
		Direction: mgl32.Vec3{0, -2, 0},
		Color:     mgl32.Vec3{1, 0.5, 0.25},
		Ambient:   0.1,
	}

	data := PackSceneUniform(view, proj, cascades, light, mgl32.Vec3{1, 2, 3})

	if len(data) != SceneUniformFloats {
		t.Fatalf("packed %d floats, want %d", len(data), SceneUniformFloats)
	}

	// Split depths follow the cascade matrices.
	splitBase := 16 + 16 + camera.CascadeCount*16
	for i := 0; i < camera.CascadeCount; i++ {
		if data[splitBase+i] != float32(i+1)*10 {
			t.Errorf("split %d = %v, want %v", i, data[splitBase+i], float32(i+1)*10)
		}
	}

	// The light direction is normalized during packing.
	dirBase := splitBase + 4
	if data[dirBase] != 0 || data[dirBase+1] != -1 || data[dirBase+2] != 0 {
		t.Errorf("light direction = (%v, %v, %v), want (0, -1, 0)",
			data[dirBase], data[dirBase+1], data[dirBase+2])
	}

	// Ambient rides in the light color's w component.
	colorBase := dirBase + 4
	if data[colorBase+3] != 0.1 {
		t.Errorf("ambient = %v, want 0.1", data[colorBase+3])
	}

	cameraBase := colorBase + 4
	if data[cameraBase] != 1 || data[cameraBase+1] != 2 || data[cameraBase+2] != 3 {
		t.Error("camera position not packed last")
	}
}

func TestCheckRecordedExtentAcceptsUnchangedSize(t *testing.T) {
	context := &VulkanContext{FramebufferWidth: 1280, FramebufferHeight: 720}
	if err := CheckRecordedExtent(context, 1280, 720); err != nil {
		t.Fatalf("unchanged extent rejected: %v", err)
	}
}

func TestCheckRecordedExtentRejectsResizeAfterRecording(t *testing.T) {
	context := &VulkanContext{FramebufferWidth: 1280, FramebufferHeight: 720}
	context.FramebufferWidth, context.FramebufferHeight = 1920, 1080

	err := CheckRecordedExtent(context, 1280, 720)
	if !errors.Is(err, core.ErrFrameAborted) {
		t.Fatalf("want ErrFrameAborted, got %v", err)
	}
	if !strings.Contains(err.Error(), "1280x720") || !strings.Contains(err.Error(), "1920x1080") {
		t.Errorf("error should name both extents: %v", err)
	}
}

func TestSceneUniformSizeMatchesFloatCount(t *testing.T) {
	if SceneUniformSize != SceneUniformFloats*4 {
		t.Fatalf("uniform size %d does not match %d floats", SceneUniformSize, SceneUniformFloats)
	}
}
