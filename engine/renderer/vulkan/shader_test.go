package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
)

func reflVert(bindings ...ReflectedBinding) *ShaderReflection {
	return &ShaderReflection{Stage: vk.ShaderStageVertexBit, Bindings: bindings}
}

func reflFrag(bindings ...ReflectedBinding) *ShaderReflection {
	return &ShaderReflection{Stage: vk.ShaderStageFragmentBit, Bindings: bindings}
}

func TestMergeReflectionsCombinesStages(t *testing.T) {
	merged, err := MergeReflections(
		reflVert(ReflectedBinding{Set: 0, Binding: 0, Type: BindingUniformBuffer, Count: 1}),
		reflFrag(
			ReflectedBinding{Set: 0, Binding: 0, Type: BindingUniformBuffer, Count: 1},
			ReflectedBinding{Set: 0, Binding: 1, Type: BindingCombinedImageSampler, Count: 1},
		),
	)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(merged) != 2 {
		t.Fatalf("got %d bindings, want 2", len(merged))
	}

	shared := merged[0]
	wantFlags := vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	if shared.StageFlags != wantFlags {
		t.Errorf("shared binding stage flags = %d, want %d", shared.StageFlags, wantFlags)
	}

	fragOnly := merged[1]
	if fragOnly.StageFlags != vk.ShaderStageFlags(vk.ShaderStageFragmentBit) {
		t.Errorf("fragment-only binding has flags %d", fragOnly.StageFlags)
	}
}

func TestMergeReflectionsTypeConflict(t *testing.T) {
	_, err := MergeReflections(
		reflVert(ReflectedBinding{Set: 0, Binding: 0, Type: BindingUniformBuffer, Count: 1}),
		reflFrag(ReflectedBinding{Set: 0, Binding: 0, Type: BindingCombinedImageSampler, Count: 1}),
	)
	if err == nil {
		t.Fatal("conflicting binding types must be rejected")
	}
}

func TestMergeReflectionsSortedOutput(t *testing.T) {
	merged, err := MergeReflections(
		reflFrag(
			ReflectedBinding{Set: 1, Binding: 0, Type: BindingSampler, Count: 1},
			ReflectedBinding{Set: 0, Binding: 2, Type: BindingCombinedImageSampler, Count: 1},
			ReflectedBinding{Set: 0, Binding: 0, Type: BindingUniformBuffer, Count: 1},
		),
	)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	want := []struct{ set, binding uint32 }{{0, 0}, {0, 2}, {1, 0}}
	for i, w := range want {
		if merged[i].Set != w.set || merged[i].Binding != w.binding {
			t.Errorf("merged[%d] = set %d binding %d, want set %d binding %d",
				i, merged[i].Set, merged[i].Binding, w.set, w.binding)
		}
	}
}
