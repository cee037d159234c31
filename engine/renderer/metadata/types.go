package metadata

import "github.com/go-gl/mathgl/mgl32"

// InvalidID marks an unassigned resource slot.
const InvalidID uint32 = 4294967295

type ResourceType int

const (
	ResourceTypeNone ResourceType = iota
	ResourceTypeShader
	ResourceTypeImage
	ResourceTypeHeightmap
	ResourceTypeBitmapFont
)

// Resource is the generic envelope every loader returns.
type Resource struct {
	LoaderID uint32
	Name     string
	FullPath string
	DataSize uint64
	Data     interface{}
}

// ShaderResourceData holds a compiled SPIR-V blob as 32-bit words, the
// unit the reflection parser and vk.CreateShaderModule both consume.
type ShaderResourceData struct {
	Words []uint32
}

type ImageResourceParams struct {
	FlipY bool
}

// ImageResourceData is decoded pixel data, always expanded to RGBA.
type ImageResourceData struct {
	ChannelCount uint8
	Width        uint32
	Height       uint32
	Pixels       []uint8
}

// HeightmapResourceData is a grid of normalized heights in [0, 1],
// row major, decoded from a grayscale image.
type HeightmapResourceData struct {
	Width   uint32
	Height  uint32
	Heights []float32
}

type FontGlyph struct {
	Codepoint rune
	X         uint16
	Y         uint16
	Width     uint16
	Height    uint16
	XOffset   int16
	YOffset   int16
	XAdvance  int16
	PageID    uint8
}

type FontKerning struct {
	Codepoint0 rune
	Codepoint1 rune
	Amount     int16
}

type FontData struct {
	Face       string
	Size       uint32
	LineHeight int32
	Baseline   int32
	AtlasSizeX int32
	AtlasSizeY int32
	Glyphs     []*FontGlyph
	Kernings   []*FontKerning
}

type BitmapFontPage struct {
	ID   int8
	File string
}

type BitmapFontResourceData struct {
	Data  *FontData
	Pages []*BitmapFontPage
}

// GeometryRenderData is one draw call's worth of scene geometry.
type GeometryRenderData struct {
	Model       mgl32.Mat4
	VertexCount uint32
	IndexCount  uint32
	GeometryID  uint32
	CastsShadow bool
}

// LightData describes the single directional light driving the shadow
// cascades and the compose lighting term.
type LightData struct {
	Direction mgl32.Vec3
	Color     mgl32.Vec3
	Ambient   float32
}

// UIText is a string drawn by the overlay pass in screen space.
type UIText struct {
	Text string
	X    float32
	Y    float32
	RGBA mgl32.Vec4
}

// RenderPacket is everything the renderer needs for one frame.
type RenderPacket struct {
	DeltaTime  float64
	Geometries []*GeometryRenderData
	Terrain    *GeometryRenderData
	Skybox     *GeometryRenderData
	Light      LightData
	Texts      []*UIText
}
