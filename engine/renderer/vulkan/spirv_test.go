package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/core"
)

func spirvInstr(opcode uint32, operands ...uint32) []uint32 {
	out := []uint32{uint32(len(operands)+1)<<16 | opcode}
	return append(out, operands...)
}

func spirvModule(instrs ...[]uint32) []uint32 {
	// magic, version 1.0, generator, bound, schema
	words := []uint32{SpirvMagic, 0x00010000, 0, 100, 0}
	for _, in := range instrs {
		words = append(words, in...)
	}
	return words
}

func TestReflectRejectsBadMagic(t *testing.T) {
	words := spirvModule(spirvInstr(opEntryPoint, executionModelVertex, 1, 0))
	words[0] = 0xDEADBEEF
	_, err := ReflectSPIRV(words)
	if !errors.Is(err, core.ErrInvalidBytecode) {
		t.Fatalf("want ErrInvalidBytecode, got %v", err)
	}
}

func TestReflectRejectsBadVersion(t *testing.T) {
	for _, version := range []uint32{0, 0x00000100, 0xFF010000, 0x00010001} {
		words := spirvModule(spirvInstr(opEntryPoint, executionModelVertex, 1, 0))
		words[1] = version
		_, err := ReflectSPIRV(words)
		if !errors.Is(err, core.ErrInvalidBytecode) {
			t.Errorf("version 0x%08x: want ErrInvalidBytecode, got %v", version, err)
		}
	}
}

func TestReflectRejectsTruncatedBlob(t *testing.T) {
	_, err := ReflectSPIRV([]uint32{SpirvMagic, 0x00010000})
	if !errors.Is(err, core.ErrInvalidBytecode) {
		t.Fatalf("want ErrInvalidBytecode, got %v", err)
	}
}

func TestReflectRejectsMissingEntryPoint(t *testing.T) {
	_, err := ReflectSPIRV(spirvModule(spirvInstr(opTypeSampler, 2)))
	if !errors.Is(err, core.ErrInvalidBytecode) {
		t.Fatalf("want ErrInvalidBytecode, got %v", err)
	}
}

func TestReflectVertexUniformBuffer(t *testing.T) {
	words := spirvModule(
		spirvInstr(opEntryPoint, executionModelVertex, 1, 0),
		spirvInstr(opDecorate, 4, decorationDescriptorSet, 0),
		spirvInstr(opDecorate, 4, decorationBinding, 0),
		spirvInstr(opTypeStruct, 2),
		spirvInstr(opTypePointer, 3, storageClassUniform, 2),
		spirvInstr(opVariable, 3, 4, storageClassUniform),
	)
	refl, err := ReflectSPIRV(words)
	if err != nil {
		t.Fatalf("reflect: %v", err)
	}
	if refl.Stage != vk.ShaderStageVertexBit {
		t.Errorf("stage = %d, want vertex", refl.Stage)
	}
	if len(refl.Bindings) != 1 {
		t.Fatalf("got %d bindings, want 1", len(refl.Bindings))
	}
	b := refl.Bindings[0]
	if b.Set != 0 || b.Binding != 0 || b.Type != BindingUniformBuffer || b.Count != 1 {
		t.Errorf("unexpected binding %+v", b)
	}
}

func TestReflectFragmentCombinedImageSampler(t *testing.T) {
	words := spirvModule(
		spirvInstr(opEntryPoint, executionModelFragment, 1, 0),
		spirvInstr(opDecorate, 10, decorationDescriptorSet, 1),
		spirvInstr(opDecorate, 10, decorationBinding, 2),
		spirvInstr(opTypeImage, 5, 6, 1, 0, 0, 0, 1, 0),
		spirvInstr(opTypeSampledImage, 7, 5),
		spirvInstr(opTypePointer, 8, storageClassUniformConstant, 7),
		spirvInstr(opVariable, 8, 10, storageClassUniformConstant),
	)
	refl, err := ReflectSPIRV(words)
	if err != nil {
		t.Fatalf("reflect: %v", err)
	}
	if refl.Stage != vk.ShaderStageFragmentBit {
		t.Errorf("stage = %d, want fragment", refl.Stage)
	}
	if len(refl.Bindings) != 1 {
		t.Fatalf("got %d bindings, want 1", len(refl.Bindings))
	}
	b := refl.Bindings[0]
	if b.Set != 1 || b.Binding != 2 || b.Type != BindingCombinedImageSampler {
		t.Errorf("unexpected binding %+v", b)
	}
	if b.Type.DescriptorType() != vk.DescriptorTypeCombinedImageSampler {
		t.Errorf("descriptor type mapping wrong: %d", b.Type.DescriptorType())
	}
}

func TestReflectSamplerArrayCount(t *testing.T) {
	words := spirvModule(
		spirvInstr(opEntryPoint, executionModelFragment, 1, 0),
		spirvInstr(opDecorate, 20, decorationDescriptorSet, 0),
		spirvInstr(opDecorate, 20, decorationBinding, 3),
		spirvInstr(opTypeSampler, 11),
		spirvInstr(opConstant, 12, 13, 4),
		spirvInstr(opTypeArray, 14, 11, 13),
		spirvInstr(opTypePointer, 15, storageClassUniformConstant, 14),
		spirvInstr(opVariable, 15, 20, storageClassUniformConstant),
	)
	refl, err := ReflectSPIRV(words)
	if err != nil {
		t.Fatalf("reflect: %v", err)
	}
	if len(refl.Bindings) != 1 {
		t.Fatalf("got %d bindings, want 1", len(refl.Bindings))
	}
	b := refl.Bindings[0]
	if b.Type != BindingSampler || b.Count != 4 {
		t.Errorf("unexpected binding %+v, want sampler count 4", b)
	}
}

func TestReflectStorageImage(t *testing.T) {
	words := spirvModule(
		spirvInstr(opEntryPoint, executionModelFragment, 1, 0),
		spirvInstr(opDecorate, 20, decorationDescriptorSet, 0),
		spirvInstr(opDecorate, 20, decorationBinding, 0),
		spirvInstr(opTypeImage, 5, 6, 1, 0, 0, 0, 2, 0),
		spirvInstr(opTypePointer, 8, storageClassUniformConstant, 5),
		spirvInstr(opVariable, 8, 20, storageClassUniformConstant),
	)
	refl, err := ReflectSPIRV(words)
	if err != nil {
		t.Fatalf("reflect: %v", err)
	}
	if refl.Bindings[0].Type != BindingStorageImage {
		t.Errorf("want storage image, got %v", refl.Bindings[0].Type)
	}
}

func TestReflectRejectsStorageBuffer(t *testing.T) {
	words := spirvModule(
		spirvInstr(opEntryPoint, executionModelFragment, 1, 0),
		spirvInstr(opDecorate, 20, decorationDescriptorSet, 0),
		spirvInstr(opDecorate, 20, decorationBinding, 0),
		spirvInstr(opTypeStruct, 2),
		spirvInstr(opTypePointer, 3, storageClassStorageBuffer, 2),
		spirvInstr(opVariable, 3, 20, storageClassStorageBuffer),
	)
	_, err := ReflectSPIRV(words)
	if !errors.Is(err, core.ErrUnsupportedReflection) {
		t.Fatalf("want ErrUnsupportedReflection, got %v", err)
	}
}

func TestReflectRejectsStandaloneSampledImage(t *testing.T) {
	words := spirvModule(
		spirvInstr(opEntryPoint, executionModelFragment, 1, 0),
		spirvInstr(opDecorate, 20, decorationDescriptorSet, 0),
		spirvInstr(opDecorate, 20, decorationBinding, 0),
		spirvInstr(opTypeImage, 5, 6, 1, 0, 0, 0, 1, 0),
		spirvInstr(opTypePointer, 8, storageClassUniformConstant, 5),
		spirvInstr(opVariable, 8, 20, storageClassUniformConstant),
	)
	_, err := ReflectSPIRV(words)
	if !errors.Is(err, core.ErrUnsupportedReflection) {
		t.Fatalf("want ErrUnsupportedReflection, got %v", err)
	}
}

func TestReflectPushConstantFlagged(t *testing.T) {
	words := spirvModule(
		spirvInstr(opEntryPoint, executionModelVertex, 1, 0),
		spirvInstr(opTypeStruct, 2),
		spirvInstr(opTypePointer, 3, storageClassPushConstant, 2),
		spirvInstr(opVariable, 3, 4, storageClassPushConstant),
	)
	refl, err := ReflectSPIRV(words)
	if err != nil {
		t.Fatalf("reflect: %v", err)
	}
	if !refl.HasPushConstant {
		t.Error("push constant not detected")
	}
	if len(refl.Bindings) != 0 {
		t.Errorf("push constants must not appear as bindings: %+v", refl.Bindings)
	}
}

func TestReflectBindingsSorted(t *testing.T) {
	words := spirvModule(
		spirvInstr(opEntryPoint, executionModelFragment, 1, 0),
		// set 1 binding 0
		spirvInstr(opDecorate, 30, decorationDescriptorSet, 1),
		spirvInstr(opDecorate, 30, decorationBinding, 0),
		// set 0 binding 1
		spirvInstr(opDecorate, 31, decorationDescriptorSet, 0),
		spirvInstr(opDecorate, 31, decorationBinding, 1),
		// set 0 binding 0
		spirvInstr(opDecorate, 32, decorationDescriptorSet, 0),
		spirvInstr(opDecorate, 32, decorationBinding, 0),
		spirvInstr(opTypeStruct, 2),
		spirvInstr(opTypePointer, 3, storageClassUniform, 2),
		spirvInstr(opVariable, 3, 30, storageClassUniform),
		spirvInstr(opVariable, 3, 31, storageClassUniform),
		spirvInstr(opVariable, 3, 32, storageClassUniform),
	)
	refl, err := ReflectSPIRV(words)
	if err != nil {
		t.Fatalf("reflect: %v", err)
	}
	if len(refl.Bindings) != 3 {
		t.Fatalf("got %d bindings, want 3", len(refl.Bindings))
	}
	want := []struct{ set, binding uint32 }{{0, 0}, {0, 1}, {1, 0}}
	for i, w := range want {
		if refl.Bindings[i].Set != w.set || refl.Bindings[i].Binding != w.binding {
			t.Errorf("binding %d = set %d binding %d, want set %d binding %d",
				i, refl.Bindings[i].Set, refl.Bindings[i].Binding, w.set, w.binding)
		}
	}
}
