package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

// OverlayVertexFloats is the float count of one overlay vertex:
// position (2), uv (2), color (4).
const OverlayVertexFloats = 8

// OverlayVertexStride is the byte size of one overlay vertex.
const OverlayVertexStride = uint32(OverlayVertexFloats * 4)

// OverlayAttributes describes the overlay vertex layout.
func OverlayAttributes() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 8},
		{Location: 2, Binding: 0, Format: vk.FormatR32g32b32a32Sfloat, Offset: 16},
	}
}

// OverlayBudgetGlyphs caps the per-frame overlay vertex buffer. Text
// beyond the budget is dropped rather than grown mid-frame.
const OverlayBudgetGlyphs = 1024

func findGlyph(font *metadata.FontData, codepoint rune) *metadata.FontGlyph {
	for _, g := range font.Glyphs {
		if g.Codepoint == codepoint {
			return g
		}
	}
	return nil
}

func kerningAmount(font *metadata.FontData, prev, next rune) float32 {
	for _, k := range font.Kernings {
		if k.Codepoint0 == prev && k.Codepoint1 == next {
			return float32(k.Amount)
		}
	}
	return 0
}

// BuildTextMesh lays out every overlay string into one vertex/index
// pair. Positions are screen pixels with the origin at the top left;
// the overlay shader divides by the framebuffer size. Unknown
// codepoints fall back to '?', or are skipped when the font lacks that
// glyph too. Newlines advance by the font line height.
func BuildTextMesh(font *metadata.FontData, texts []*metadata.UIText) ([]float32, []uint32) {
	var vertices []float32
	var indices []uint32
	glyphCount := uint32(0)

	atlasW := float32(font.AtlasSizeX)
	atlasH := float32(font.AtlasSizeY)

	for _, text := range texts {
		if text == nil || text.Text == "" {
			continue
		}
		penX := text.X
		penY := text.Y
		var prev rune

		for _, codepoint := range text.Text {
			if codepoint == '\n' {
				penX = text.X
				penY += float32(font.LineHeight)
				prev = 0
				continue
			}

			glyph := findGlyph(font, codepoint)
			if glyph == nil {
				glyph = findGlyph(font, '?')
			}
			if glyph == nil {
				prev = codepoint
				continue
			}
			if glyphCount >= OverlayBudgetGlyphs {
				return vertices, indices
			}

			if prev != 0 {
				penX += kerningAmount(font, prev, codepoint)
			}

			x0 := penX + float32(glyph.XOffset)
			y0 := penY + float32(glyph.YOffset)
			x1 := x0 + float32(glyph.Width)
			y1 := y0 + float32(glyph.Height)

			u0 := float32(glyph.X) / atlasW
			v0 := float32(glyph.Y) / atlasH
			u1 := (float32(glyph.X) + float32(glyph.Width)) / atlasW
			v1 := (float32(glyph.Y) + float32(glyph.Height)) / atlasH

			r, g, b, a := text.RGBA.X(), text.RGBA.Y(), text.RGBA.Z(), text.RGBA.W()
			vertices = append(vertices,
				x0, y0, u0, v0, r, g, b, a,
				x1, y0, u1, v0, r, g, b, a,
				x1, y1, u1, v1, r, g, b, a,
				x0, y1, u0, v1, r, g, b, a,
			)

			base := glyphCount * 4
			indices = append(indices,
				base, base+1, base+2,
				base+2, base+3, base,
			)

			glyphCount++
			penX += float32(glyph.XAdvance)
			prev = codepoint
		}
	}

	return vertices, indices
}

// OverlayMesh is the per-frame-slot host visible geometry the overlay
// pass draws from. One buffer pair per frame slot keeps CPU writes off
// buffers the GPU may still read.
type OverlayMesh struct {
	VertexBuffers []*VulkanBuffer
	IndexBuffers  []*VulkanBuffer
	IndexCounts   []uint32
}

func OverlayMeshCreate(context *VulkanContext, slotCount uint32) (*OverlayMesh, error) {
	mesh := &OverlayMesh{
		VertexBuffers: make([]*VulkanBuffer, slotCount),
		IndexBuffers:  make([]*VulkanBuffer, slotCount),
		IndexCounts:   make([]uint32, slotCount),
	}
	vertexSize := vk.DeviceSize(OverlayBudgetGlyphs * 4 * OverlayVertexFloats * 4)
	indexSize := vk.DeviceSize(OverlayBudgetGlyphs * 6 * 4)
	for i := range mesh.VertexBuffers {
		vb, err := BufferCreate(context, vertexSize,
			vk.BufferUsageVertexBufferBit,
			vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
		if err != nil {
			mesh.Destroy(context)
			return nil, err
		}
		mesh.VertexBuffers[i] = vb

		ib, err := BufferCreate(context, indexSize,
			vk.BufferUsageIndexBufferBit,
			vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
		if err != nil {
			mesh.Destroy(context)
			return nil, err
		}
		mesh.IndexBuffers[i] = ib
	}
	return mesh, nil
}

func (om *OverlayMesh) Destroy(context *VulkanContext) {
	for _, b := range om.VertexBuffers {
		if b != nil {
			b.Destroy(context)
		}
	}
	for _, b := range om.IndexBuffers {
		if b != nil {
			b.Destroy(context)
		}
	}
	om.VertexBuffers, om.IndexBuffers, om.IndexCounts = nil, nil, nil
}

// Update rebuilds the slot's geometry from this frame's text.
func (om *OverlayMesh) Update(slot uint32, font *metadata.FontData, texts []*metadata.UIText) error {
	vertices, indices := BuildTextMesh(font, texts)
	om.IndexCounts[slot] = uint32(len(indices))
	if len(indices) == 0 {
		return nil
	}
	if err := om.VertexBuffers[slot].LoadData(0, floatBytes(vertices)); err != nil {
		return err
	}
	return om.IndexBuffers[slot].LoadData(0, uint32Bytes(indices))
}

// Draw issues the slot's text draw, a no-op for empty frames.
func (om *OverlayMesh) Draw(commandBuffer *VulkanCommandBuffer, slot uint32) {
	if om.IndexCounts[slot] == 0 {
		return
	}
	offsets := []vk.DeviceSize{0}
	vk.CmdBindVertexBuffers(commandBuffer.Handle, 0, 1, []vk.Buffer{om.VertexBuffers[slot].Handle}, offsets)
	vk.CmdBindIndexBuffer(commandBuffer.Handle, om.IndexBuffers[slot].Handle, 0, vk.IndexTypeUint32)
	vk.CmdDrawIndexed(commandBuffer.Handle, om.IndexCounts[slot], 1, 0, 0, 0)
}
