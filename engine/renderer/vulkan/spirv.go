package vulkan

import (
	"sort"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/core"
)

// SpirvMagic is the first word of every valid SPIR-V blob.
const SpirvMagic uint32 = 0x07230203

// Opcodes and enum values from the SPIR-V specification, limited to
// what reflection needs.
const (
	opEntryPoint       = 15
	opTypeImage        = 25
	opTypeSampler      = 26
	opTypeSampledImage = 27
	opTypeArray        = 28
	opTypeStruct       = 30
	opTypePointer      = 32
	opConstant         = 43
	opVariable         = 59
	opDecorate         = 71

	executionModelVertex   = 0
	executionModelFragment = 4

	storageClassUniformConstant = 0
	storageClassUniform         = 2
	storageClassPushConstant    = 9
	storageClassStorageBuffer   = 12

	decorationBinding       = 33
	decorationDescriptorSet = 34
)

// BindingType classifies a reflected descriptor binding.
type BindingType int

const (
	BindingUniformBuffer BindingType = iota
	BindingCombinedImageSampler
	BindingSampler
	BindingStorageImage
)

func (bt BindingType) DescriptorType() vk.DescriptorType {
	switch bt {
	case BindingUniformBuffer:
		return vk.DescriptorTypeUniformBuffer
	case BindingCombinedImageSampler:
		return vk.DescriptorTypeCombinedImageSampler
	case BindingSampler:
		return vk.DescriptorTypeSampler
	case BindingStorageImage:
		return vk.DescriptorTypeStorageImage
	}
	return vk.DescriptorTypeUniformBuffer
}

func (bt BindingType) String() string {
	switch bt {
	case BindingUniformBuffer:
		return "uniform buffer"
	case BindingCombinedImageSampler:
		return "combined image sampler"
	case BindingSampler:
		return "sampler"
	case BindingStorageImage:
		return "storage image"
	}
	return "unknown"
}

// ReflectedBinding is one descriptor binding discovered in a module.
type ReflectedBinding struct {
	Set     uint32
	Binding uint32
	Type    BindingType
	Count   uint32
}

// ShaderReflection is the reflected interface of one SPIR-V module.
type ShaderReflection struct {
	Stage           vk.ShaderStageFlagBits
	Bindings        []ReflectedBinding
	HasPushConstant bool
}

type spirvType struct {
	opcode uint32
	// For pointers: pointee type id. For arrays: element type id.
	// For sampled images: underlying image type id.
	target uint32
	// Pointer storage class.
	storageClass uint32
	// OpTypeImage "sampled" operand: 1 sampled, 2 storage.
	imageSampled uint32
	// Array length constant id.
	lengthID uint32
}

// ReflectSPIRV walks a SPIR-V blob and extracts its descriptor
// bindings and stage. Bindings are returned ordered by set then
// binding number.
func ReflectSPIRV(words []uint32) (*ShaderReflection, error) {
	if len(words) < 5 {
		return nil, errors.Wrapf(core.ErrInvalidBytecode, "blob of %d words is too short for a header", len(words))
	}
	if words[0] != SpirvMagic {
		return nil, errors.Wrapf(core.ErrInvalidBytecode, "bad magic 0x%08x", words[0])
	}
	// The version word is 0x00MMmm00: major in the third byte, minor in
	// the second, the outer bytes reserved as zero.
	if v := words[1]; v&0xFF0000FF != 0 || (v>>16)&0xFF == 0 {
		return nil, errors.Wrapf(core.ErrInvalidBytecode, "bad version word 0x%08x", v)
	}

	reflection := &ShaderReflection{}

	types := map[uint32]spirvType{}
	constants := map[uint32]uint32{}
	decorations := map[uint32]map[uint32]uint32{}
	type variable struct {
		typeID       uint32
		storageClass uint32
	}
	variables := map[uint32]variable{}

	stageSeen := false
	for i := 5; i < len(words); {
		word := words[i]
		wordCount := int(word >> 16)
		opcode := word & 0xFFFF
		if wordCount == 0 || i+wordCount > len(words) {
			return nil, errors.Wrapf(core.ErrInvalidBytecode, "truncated instruction at word %d", i)
		}
		operands := words[i+1 : i+wordCount]

		switch opcode {
		case opEntryPoint:
			if len(operands) < 2 {
				return nil, errors.Wrapf(core.ErrInvalidBytecode, "malformed OpEntryPoint")
			}
			switch operands[0] {
			case executionModelVertex:
				reflection.Stage = vk.ShaderStageVertexBit
			case executionModelFragment:
				reflection.Stage = vk.ShaderStageFragmentBit
			default:
				return nil, errors.Wrapf(core.ErrUnsupportedReflection, "execution model %d", operands[0])
			}
			stageSeen = true

		case opDecorate:
			if len(operands) >= 3 {
				target, decoration := operands[0], operands[1]
				if decoration == decorationBinding || decoration == decorationDescriptorSet {
					if decorations[target] == nil {
						decorations[target] = map[uint32]uint32{}
					}
					decorations[target][decoration] = operands[2]
				}
			}

		case opTypeImage:
			// result, sampled type, dim, depth, arrayed, ms, sampled, format
			if len(operands) >= 7 {
				types[operands[0]] = spirvType{opcode: opcode, imageSampled: operands[6]}
			}

		case opTypeSampler:
			if len(operands) >= 1 {
				types[operands[0]] = spirvType{opcode: opcode}
			}

		case opTypeSampledImage:
			if len(operands) >= 2 {
				types[operands[0]] = spirvType{opcode: opcode, target: operands[1]}
			}

		case opTypeArray:
			if len(operands) >= 3 {
				types[operands[0]] = spirvType{opcode: opcode, target: operands[1], lengthID: operands[2]}
			}

		case opTypeStruct:
			if len(operands) >= 1 {
				types[operands[0]] = spirvType{opcode: opcode}
			}

		case opTypePointer:
			if len(operands) >= 3 {
				types[operands[0]] = spirvType{opcode: opcode, storageClass: operands[1], target: operands[2]}
			}

		case opConstant:
			// result type, result id, value
			if len(operands) >= 3 {
				constants[operands[1]] = operands[2]
			}

		case opVariable:
			if len(operands) >= 3 {
				variables[operands[1]] = variable{typeID: operands[0], storageClass: operands[2]}
			}
		}

		i += wordCount
	}

	if !stageSeen {
		return nil, errors.Wrapf(core.ErrInvalidBytecode, "no entry point")
	}

	for id, v := range variables {
		switch v.storageClass {
		case storageClassPushConstant:
			reflection.HasPushConstant = true
			continue
		case storageClassUniform, storageClassUniformConstant:
			// Descriptor-backed, classified below.
		case storageClassStorageBuffer:
			return nil, errors.Wrapf(core.ErrUnsupportedReflection, "storage buffer binding")
		default:
			// Inputs, outputs, function locals.
			continue
		}

		deco := decorations[id]
		if deco == nil {
			continue
		}
		binding, hasBinding := deco[decorationBinding]
		set := deco[decorationDescriptorSet]
		if !hasBinding {
			continue
		}

		bindingType, count, err := classifyVariable(types, constants, v.typeID, v.storageClass)
		if err != nil {
			return nil, err
		}

		reflection.Bindings = append(reflection.Bindings, ReflectedBinding{
			Set:     set,
			Binding: binding,
			Type:    bindingType,
			Count:   count,
		})
	}

	sort.Slice(reflection.Bindings, func(a, b int) bool {
		if reflection.Bindings[a].Set != reflection.Bindings[b].Set {
			return reflection.Bindings[a].Set < reflection.Bindings[b].Set
		}
		return reflection.Bindings[a].Binding < reflection.Bindings[b].Binding
	})

	return reflection, nil
}

func classifyVariable(types map[uint32]spirvType, constants map[uint32]uint32, pointerID, storageClass uint32) (BindingType, uint32, error) {
	ptr, ok := types[pointerID]
	if !ok || ptr.opcode != opTypePointer {
		return 0, 0, errors.Wrapf(core.ErrInvalidBytecode, "variable without pointer type")
	}

	count := uint32(1)
	pointeeID := ptr.target
	pointee, ok := types[pointeeID]
	if !ok {
		return 0, 0, errors.Wrapf(core.ErrInvalidBytecode, "unknown pointee type %d", pointeeID)
	}

	if pointee.opcode == opTypeArray {
		if c, ok := constants[pointee.lengthID]; ok {
			count = c
		}
		pointee, ok = types[pointee.target]
		if !ok {
			return 0, 0, errors.Wrapf(core.ErrInvalidBytecode, "unknown array element type")
		}
	}

	switch pointee.opcode {
	case opTypeStruct:
		if storageClass == storageClassUniform || storageClass == storageClassUniformConstant {
			return BindingUniformBuffer, count, nil
		}
	case opTypeSampledImage:
		return BindingCombinedImageSampler, count, nil
	case opTypeSampler:
		return BindingSampler, count, nil
	case opTypeImage:
		switch pointee.imageSampled {
		case 2:
			return BindingStorageImage, count, nil
		default:
			return 0, 0, errors.Wrapf(core.ErrUnsupportedReflection, "standalone sampled image binding")
		}
	}
	return 0, 0, errors.Wrapf(core.ErrUnsupportedReflection, "opcode %d in storage class %d", pointee.opcode, storageClass)
}
