package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
)

// Vertex is the interleaved layout shared by every mesh pipeline:
// position, normal, uv.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32
}

// VertexStride is the byte size of one Vertex.
const VertexStride = uint32(unsafe.Sizeof(Vertex{}))

// VertexAttributes describes the Vertex layout for pipeline creation.
func VertexAttributes() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 12},
		{Location: 2, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 24},
	}
}

// GeometryBuffers is a mesh uploaded to device local memory.
type GeometryBuffers struct {
	VertexBuffer *VulkanBuffer
	IndexBuffer  *VulkanBuffer
	IndexCount   uint32
}

func floatBytes(data []float32) []byte {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*4)
}

func uint32Bytes(data []uint32) []byte {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*4)
}

// GeometryUpload stages vertex and index data into device local
// buffers through a one-shot transfer submission.
func GeometryUpload(context *VulkanContext, vertices []float32, indices []uint32) (*GeometryBuffers, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return nil, errors.New("empty geometry")
	}

	geo := &GeometryBuffers{IndexCount: uint32(len(indices))}

	vertexSize := vk.DeviceSize(len(vertices) * 4)
	indexSize := vk.DeviceSize(len(indices) * 4)

	vertexStaging, err := BufferCreate(context, vertexSize,
		vk.BufferUsageTransferSrcBit,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		return nil, err
	}
	defer vertexStaging.Destroy(context)
	if err := vertexStaging.LoadData(0, floatBytes(vertices)); err != nil {
		return nil, err
	}

	indexStaging, err := BufferCreate(context, indexSize,
		vk.BufferUsageTransferSrcBit,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		return nil, err
	}
	defer indexStaging.Destroy(context)
	if err := indexStaging.LoadData(0, uint32Bytes(indices)); err != nil {
		return nil, err
	}

	geo.VertexBuffer, err = BufferCreate(context, vertexSize,
		vk.BufferUsageTransferDstBit|vk.BufferUsageVertexBufferBit,
		vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		return nil, err
	}
	geo.IndexBuffer, err = BufferCreate(context, indexSize,
		vk.BufferUsageTransferDstBit|vk.BufferUsageIndexBufferBit,
		vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		geo.Destroy(context)
		return nil, err
	}

	cb, err := AllocateAndBeginSingleUse(context, context.Device.GraphicsCommandPool)
	if err != nil {
		geo.Destroy(context)
		return nil, err
	}
	vertexStaging.CopyTo(cb, geo.VertexBuffer, vertexSize)
	indexStaging.CopyTo(cb, geo.IndexBuffer, indexSize)
	if err := cb.EndSingleUse(context, context.Device.GraphicsCommandPool, context.Device.GraphicsQueue); err != nil {
		geo.Destroy(context)
		return nil, err
	}

	return geo, nil
}

func (gb *GeometryBuffers) Destroy(context *VulkanContext) {
	if gb.VertexBuffer != nil {
		gb.VertexBuffer.Destroy(context)
		gb.VertexBuffer = nil
	}
	if gb.IndexBuffer != nil {
		gb.IndexBuffer.Destroy(context)
		gb.IndexBuffer = nil
	}
}

// Draw binds the mesh and issues the indexed draw.
func (gb *GeometryBuffers) Draw(commandBuffer *VulkanCommandBuffer) {
	offsets := []vk.DeviceSize{0}
	vk.CmdBindVertexBuffers(commandBuffer.Handle, 0, 1, []vk.Buffer{gb.VertexBuffer.Handle}, offsets)
	vk.CmdBindIndexBuffer(commandBuffer.Handle, gb.IndexBuffer.Handle, 0, vk.IndexTypeUint32)
	vk.CmdDrawIndexed(commandBuffer.Handle, gb.IndexCount, 1, 0, 0, 0)
}

// TextureUpload creates a sampled RGBA image from decoded pixels.
func TextureUpload(context *VulkanContext, width, height uint32, pixels []byte) (*VulkanImage, error) {
	img, err := ImageCreate(context, &ImageCreateInfo{
		Width:      width,
		Height:     height,
		Format:     vk.FormatR8g8b8a8Unorm,
		Usage:      vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit,
		Aspect:     vk.ImageAspectColorBit,
		CreateView: true,
	})
	if err != nil {
		return nil, err
	}

	staging, err := BufferCreate(context, vk.DeviceSize(len(pixels)),
		vk.BufferUsageTransferSrcBit,
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		img.Destroy(context)
		return nil, err
	}
	defer staging.Destroy(context)
	if err := staging.LoadData(0, pixels); err != nil {
		img.Destroy(context)
		return nil, err
	}

	cb, err := AllocateAndBeginSingleUse(context, context.Device.GraphicsCommandPool)
	if err != nil {
		img.Destroy(context)
		return nil, err
	}
	if err := img.TransitionLayout(cb, vk.ImageAspectColorBit, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
		img.Destroy(context)
		return nil, err
	}
	img.CopyFromBuffer(cb, staging.Handle)
	if err := img.TransitionLayout(cb, vk.ImageAspectColorBit, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
		img.Destroy(context)
		return nil, err
	}
	if err := cb.EndSingleUse(context, context.Device.GraphicsCommandPool, context.Device.GraphicsQueue); err != nil {
		img.Destroy(context)
		return nil, err
	}

	return img, nil
}
