package vulkan

import (
	"sort"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
)

// MergedBinding is a descriptor binding with the stage visibility of
// every module that declares it.
type MergedBinding struct {
	Set        uint32
	Binding    uint32
	Type       BindingType
	Count      uint32
	StageFlags vk.ShaderStageFlags
}

// MergeReflections folds per-stage reflections into one binding list.
// A binding declared by several stages must agree on type and count.
func MergeReflections(reflections ...*ShaderReflection) ([]MergedBinding, error) {
	type key struct{ set, binding uint32 }
	merged := map[key]*MergedBinding{}

	for _, refl := range reflections {
		for _, b := range refl.Bindings {
			k := key{b.Set, b.Binding}
			if existing, ok := merged[k]; ok {
				if existing.Type != b.Type || existing.Count != b.Count {
					return nil, errors.Newf(
						"set %d binding %d declared as %s x%d and %s x%d in different stages",
						b.Set, b.Binding, existing.Type, existing.Count, b.Type, b.Count)
				}
				existing.StageFlags |= vk.ShaderStageFlags(refl.Stage)
				continue
			}
			merged[k] = &MergedBinding{
				Set:        b.Set,
				Binding:    b.Binding,
				Type:       b.Type,
				Count:      b.Count,
				StageFlags: vk.ShaderStageFlags(refl.Stage),
			}
		}
	}

	out := make([]MergedBinding, 0, len(merged))
	for _, mb := range merged {
		out = append(out, *mb)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Set != out[b].Set {
			return out[a].Set < out[b].Set
		}
		return out[a].Binding < out[b].Binding
	})
	return out, nil
}

// VulkanShader is a vertex/fragment module pair plus the descriptor
// set layouts reflected from their bytecode.
type VulkanShader struct {
	VertexModule   vk.ShaderModule
	FragmentModule vk.ShaderModule

	Bindings   []MergedBinding
	SetLayouts []vk.DescriptorSetLayout
}

func ShaderModuleCreate(context *VulkanContext, words []uint32) (vk.ShaderModule, error) {
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(words)) * 4,
		PCode:    words,
	}
	var module vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &module); res != vk.Success {
		return vk.NullShaderModule, ResultToError(res, "create shader module")
	}
	return module, nil
}

// ShaderCreate reflects both stages, merges their bindings and builds
// one descriptor set layout per reflected set index.
func ShaderCreate(context *VulkanContext, vertexWords, fragmentWords []uint32) (*VulkanShader, error) {
	vertRefl, err := ReflectSPIRV(vertexWords)
	if err != nil {
		return nil, errors.Wrap(err, "vertex stage")
	}
	if vertRefl.Stage != vk.ShaderStageVertexBit {
		return nil, errors.Newf("expected a vertex module, got stage %d", vertRefl.Stage)
	}
	fragRefl, err := ReflectSPIRV(fragmentWords)
	if err != nil {
		return nil, errors.Wrap(err, "fragment stage")
	}
	if fragRefl.Stage != vk.ShaderStageFragmentBit {
		return nil, errors.Newf("expected a fragment module, got stage %d", fragRefl.Stage)
	}

	bindings, err := MergeReflections(vertRefl, fragRefl)
	if err != nil {
		return nil, err
	}

	shader := &VulkanShader{Bindings: bindings}

	shader.VertexModule, err = ShaderModuleCreate(context, vertexWords)
	if err != nil {
		return nil, err
	}
	shader.FragmentModule, err = ShaderModuleCreate(context, fragmentWords)
	if err != nil {
		shader.Destroy(context)
		return nil, err
	}

	maxSet := uint32(0)
	for _, b := range bindings {
		if b.Set > maxSet {
			maxSet = b.Set
		}
	}
	setCount := maxSet + 1
	if len(bindings) == 0 {
		setCount = 0
	}

	for set := uint32(0); set < setCount; set++ {
		var layoutBindings []vk.DescriptorSetLayoutBinding
		for _, b := range bindings {
			if b.Set != set {
				continue
			}
			layoutBindings = append(layoutBindings, vk.DescriptorSetLayoutBinding{
				Binding:         b.Binding,
				DescriptorType:  b.Type.DescriptorType(),
				DescriptorCount: b.Count,
				StageFlags:      b.StageFlags,
			})
		}
		layoutInfo := vk.DescriptorSetLayoutCreateInfo{
			SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
			BindingCount: uint32(len(layoutBindings)),
			PBindings:    layoutBindings,
		}
		var layout vk.DescriptorSetLayout
		if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutInfo, context.Allocator, &layout); res != vk.Success {
			shader.Destroy(context)
			return nil, ResultToError(res, "create descriptor set layout")
		}
		shader.SetLayouts = append(shader.SetLayouts, layout)
	}

	return shader, nil
}

func (vs *VulkanShader) Destroy(context *VulkanContext) {
	for _, layout := range vs.SetLayouts {
		vk.DestroyDescriptorSetLayout(context.Device.LogicalDevice, layout, context.Allocator)
	}
	vs.SetLayouts = nil
	if vs.VertexModule != vk.NullShaderModule {
		vk.DestroyShaderModule(context.Device.LogicalDevice, vs.VertexModule, context.Allocator)
		vs.VertexModule = vk.NullShaderModule
	}
	if vs.FragmentModule != vk.NullShaderModule {
		vk.DestroyShaderModule(context.Device.LogicalDevice, vs.FragmentModule, context.Allocator)
		vs.FragmentModule = vk.NullShaderModule
	}
}
