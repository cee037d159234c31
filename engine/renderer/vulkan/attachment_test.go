package vulkan

import (
	"reflect"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/core"
)

func TestGBufferSpecsMatchGeometryPass(t *testing.T) {
	for _, samples := range []vk.SampleCountFlagBits{vk.SampleCount1Bit, vk.SampleCount2Bit, vk.SampleCount4Bit, vk.SampleCount8Bit} {
		specs := GBufferSpecs(samples)
		if err := ValidateAttachments(specs, gbufferPassConfig(samples)); err != nil {
			t.Errorf("samples=%d: %v", samples, err)
		}
	}
}

func TestValidateAttachmentsSampleMismatch(t *testing.T) {
	specs := GBufferSpecs(vk.SampleCount4Bit)
	err := ValidateAttachments(specs, gbufferPassConfig(vk.SampleCount2Bit))
	if !errors.Is(err, core.ErrAttachmentMismatch) {
		t.Fatalf("want ErrAttachmentMismatch, got %v", err)
	}
}

func TestValidateAttachmentsFormatMismatch(t *testing.T) {
	specs := GBufferSpecs(vk.SampleCount4Bit)
	config := gbufferPassConfig(vk.SampleCount4Bit)
	config.Attachments[1].Format = vk.FormatR8g8b8a8Unorm

	err := ValidateAttachments(specs, config)
	if !errors.Is(err, core.ErrAttachmentMismatch) {
		t.Fatalf("want ErrAttachmentMismatch, got %v", err)
	}
	if !strings.Contains(err.Error(), "gbuffer-position") {
		t.Errorf("error should name the offending attachment: %v", err)
	}
}

func TestValidateAttachmentsCountMismatch(t *testing.T) {
	specs := GBufferSpecs(vk.SampleCount4Bit)[:3]
	err := ValidateAttachments(specs, gbufferPassConfig(vk.SampleCount4Bit))
	if !errors.Is(err, core.ErrAttachmentMismatch) {
		t.Fatalf("want ErrAttachmentMismatch, got %v", err)
	}
}

func TestValidateAttachmentsDepthRoleMismatch(t *testing.T) {
	specs := GBufferSpecs(vk.SampleCount4Bit)
	config := gbufferPassConfig(vk.SampleCount4Bit)
	config.Attachments[3].IsDepth = false

	err := ValidateAttachments(specs, config)
	if !errors.Is(err, core.ErrAttachmentMismatch) {
		t.Fatalf("want ErrAttachmentMismatch, got %v", err)
	}
}

func TestValidateAttachmentsDefaultSampleCount(t *testing.T) {
	// A zero sample count means single sampled on both sides.
	specs := []AttachmentSpec{{Name: "ui-color", Format: vk.FormatB8g8r8a8Unorm}}
	config := RenderpassConfig{
		Name:        "overlay",
		Attachments: []RenderpassAttachmentConfig{{Format: vk.FormatB8g8r8a8Unorm, Samples: vk.SampleCount1Bit}},
	}
	if err := ValidateAttachments(specs, config); err != nil {
		t.Fatalf("zero samples should equal SampleCount1Bit: %v", err)
	}
}

func TestPassConfigsStableAcrossRebuilds(t *testing.T) {
	// Swapchain recreation rebuilds targets against the same pass
	// configs. Repeated calls must produce identical descriptions, and
	// mutating one call's result must not leak into the next.
	for _, samples := range []vk.SampleCountFlagBits{vk.SampleCount2Bit, vk.SampleCount4Bit} {
		if !reflect.DeepEqual(gbufferPassConfig(samples), gbufferPassConfig(samples)) {
			t.Errorf("gbuffer pass config not stable at %d samples", samples)
		}

		first := GBufferSpecs(samples)
		second := GBufferSpecs(samples)
		for i := range first {
			if first[i].Describe() != second[i].Describe() {
				t.Errorf("attachment %d description changed between builds: %q vs %q",
					i, first[i].Describe(), second[i].Describe())
			}
		}
	}

	if !reflect.DeepEqual(ShadowRenderpassConfig(), ShadowRenderpassConfig()) {
		t.Error("shadow pass config not stable")
	}

	mutated := gbufferPassConfig(vk.SampleCount4Bit)
	mutated.Attachments[0].Format = vk.FormatR8g8b8a8Unorm
	if gbufferPassConfig(vk.SampleCount4Bit).Attachments[0].Format != GBufferAlbedoFormat {
		t.Error("pass configs must not share attachment slices")
	}
}

func TestAttachmentSpecDescribe(t *testing.T) {
	spec := GBufferSpecs(vk.SampleCount4Bit)[3]
	desc := spec.Describe()
	if !strings.Contains(desc, "gbuffer-depth") || !strings.Contains(desc, "depth") {
		t.Errorf("describe output incomplete: %q", desc)
	}
}
