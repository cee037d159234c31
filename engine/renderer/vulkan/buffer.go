package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
)

// VulkanBuffer owns a buffer and its backing memory. Host visible
// buffers stay persistently mapped.
type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
	mapped unsafe.Pointer
}

func BufferCreate(context *VulkanContext, size vk.DeviceSize, usage vk.BufferUsageFlagBits, memoryFlags vk.MemoryPropertyFlagBits) (*VulkanBuffer, error) {
	buffer := &VulkanBuffer{Size: size}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	var handle vk.Buffer
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferInfo, context.Allocator, &handle); res != vk.Success {
		return nil, ResultToError(res, "create buffer")
	}
	buffer.Handle = handle

	var memReq vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer.Handle, &memReq)
	memReq.Deref()

	memoryIndex := context.FindMemoryIndex(memReq.MemoryTypeBits, uint32(memoryFlags))
	if memoryIndex < 0 {
		buffer.Destroy(context)
		return nil, errors.New("no suitable memory type for buffer")
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReq.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocInfo, context.Allocator, &memory); res != vk.Success {
		buffer.Destroy(context)
		return nil, ResultToError(res, "allocate buffer memory")
	}
	buffer.Memory = memory

	if res := vk.BindBufferMemory(context.Device.LogicalDevice, buffer.Handle, buffer.Memory, 0); res != vk.Success {
		buffer.Destroy(context)
		return nil, ResultToError(res, "bind buffer memory")
	}

	if memoryFlags&vk.MemoryPropertyHostVisibleBit != 0 {
		var data unsafe.Pointer
		if res := vk.MapMemory(context.Device.LogicalDevice, buffer.Memory, 0, size, 0, &data); res != vk.Success {
			buffer.Destroy(context)
			return nil, ResultToError(res, "map buffer memory")
		}
		buffer.mapped = data
	}

	return buffer, nil
}

func (vb *VulkanBuffer) Destroy(context *VulkanContext) {
	if vb.mapped != nil {
		vk.UnmapMemory(context.Device.LogicalDevice, vb.Memory)
		vb.mapped = nil
	}
	if vb.Memory != nil {
		vk.FreeMemory(context.Device.LogicalDevice, vb.Memory, context.Allocator)
		vb.Memory = nil
	}
	if vb.Handle != nil {
		vk.DestroyBuffer(context.Device.LogicalDevice, vb.Handle, context.Allocator)
		vb.Handle = nil
	}
}

// LoadData copies bytes into the mapped region at the given offset.
func (vb *VulkanBuffer) LoadData(offset vk.DeviceSize, data []byte) error {
	if vb.mapped == nil {
		return errors.New("buffer is not host visible")
	}
	if vk.DeviceSize(len(data))+offset > vb.Size {
		return errors.Newf("write of %d bytes at offset %d exceeds buffer size %d", len(data), offset, vb.Size)
	}
	dst := unsafe.Pointer(uintptr(vb.mapped) + uintptr(offset))
	vk.Memcopy(dst, data)
	return nil
}

// CopyTo records a buffer-to-buffer copy, used to move staging data
// into device local vertex and index buffers.
func (vb *VulkanBuffer) CopyTo(commandBuffer *VulkanCommandBuffer, dst *VulkanBuffer, size vk.DeviceSize) {
	region := vk.BufferCopy{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      size,
	}
	vk.CmdCopyBuffer(commandBuffer.Handle, vb.Handle, dst.Handle, 1, []vk.BufferCopy{region})
}

// UniformRing is one uniform buffer per frame slot so the CPU can
// write slot N while the GPU still reads slot N-1.
type UniformRing struct {
	Buffers []*VulkanBuffer
	Stride  vk.DeviceSize
}

func UniformRingCreate(context *VulkanContext, slotCount uint32, size vk.DeviceSize) (*UniformRing, error) {
	ring := &UniformRing{
		Buffers: make([]*VulkanBuffer, slotCount),
		Stride:  size,
	}
	for i := range ring.Buffers {
		buf, err := BufferCreate(context, size,
			vk.BufferUsageUniformBufferBit,
			vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
		if err != nil {
			ring.Destroy(context)
			return nil, errors.Wrapf(err, "uniform ring slot %d", i)
		}
		ring.Buffers[i] = buf
	}
	return ring, nil
}

func (ur *UniformRing) Destroy(context *VulkanContext) {
	for _, b := range ur.Buffers {
		if b != nil {
			b.Destroy(context)
		}
	}
	ur.Buffers = nil
}

// Write updates the uniform buffer belonging to the given frame slot.
func (ur *UniformRing) Write(slot uint32, data []byte) error {
	if int(slot) >= len(ur.Buffers) {
		return errors.Newf("uniform ring slot %d out of range", slot)
	}
	return ur.Buffers[slot].LoadData(0, data)
}
