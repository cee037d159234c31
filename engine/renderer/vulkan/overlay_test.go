package vulkan

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

func testFont() *metadata.FontData {
	return &metadata.FontData{
		Face:       "test",
		Size:       16,
		LineHeight: 20,
		AtlasSizeX: 256,
		AtlasSizeY: 256,
		Glyphs: []*metadata.FontGlyph{
			{Codepoint: 'A', X: 0, Y: 0, Width: 10, Height: 14, XAdvance: 11},
			{Codepoint: 'B', X: 16, Y: 0, Width: 10, Height: 14, XAdvance: 11},
			{Codepoint: '?', X: 32, Y: 0, Width: 8, Height: 14, XAdvance: 9},
		},
		Kernings: []*metadata.FontKerning{
			{Codepoint0: 'A', Codepoint1: 'B', Amount: -2},
		},
	}
}

func TestBuildTextMeshQuadPerGlyph(t *testing.T) {
	font := testFont()
	texts := []*metadata.UIText{{Text: "AB", X: 5, Y: 5, RGBA: mgl32.Vec4{1, 1, 1, 1}}}

	vertices, indices := BuildTextMesh(font, texts)

	if got, want := len(vertices), 2*4*OverlayVertexFloats; got != want {
		t.Fatalf("vertex floats = %d, want %d", got, want)
	}
	if got, want := len(indices), 2*6; got != want {
		t.Fatalf("index count = %d, want %d", got, want)
	}
	// Second glyph indices must address the second quad.
	if indices[6] != 4 {
		t.Errorf("second quad base index = %d, want 4", indices[6])
	}
}

func TestBuildTextMeshAdvanceAndKerning(t *testing.T) {
	font := testFont()
	texts := []*metadata.UIText{{Text: "AB", X: 0, Y: 0}}

	vertices, _ := BuildTextMesh(font, texts)

	// First vertex of the second quad: pen advanced by A's xadvance
	// (11) plus the AB kerning (-2).
	secondQuadX := vertices[4*OverlayVertexFloats]
	if secondQuadX != 9 {
		t.Errorf("second glyph x = %v, want 9", secondQuadX)
	}
}

func TestBuildTextMeshNewlineResetsPen(t *testing.T) {
	font := testFont()
	texts := []*metadata.UIText{{Text: "A\nB", X: 3, Y: 0}}

	vertices, _ := BuildTextMesh(font, texts)

	secondQuadX := vertices[4*OverlayVertexFloats]
	secondQuadY := vertices[4*OverlayVertexFloats+1]
	if secondQuadX != 3 {
		t.Errorf("x after newline = %v, want 3", secondQuadX)
	}
	if secondQuadY != 20 {
		t.Errorf("y after newline = %v, want line height 20", secondQuadY)
	}
}

func TestBuildTextMeshUnknownGlyphFallsBack(t *testing.T) {
	font := testFont()
	texts := []*metadata.UIText{{Text: "Z"}}

	vertices, indices := BuildTextMesh(font, texts)
	if len(indices) != 6 {
		t.Fatalf("fallback glyph should produce one quad, got %d indices", len(indices))
	}
	// The quad must use '?' atlas coordinates (x=32 of 256).
	u0 := vertices[2]
	if u0 != 32.0/256.0 {
		t.Errorf("fallback u0 = %v, want %v", u0, 32.0/256.0)
	}
}

func TestBuildTextMeshEmptyInput(t *testing.T) {
	font := testFont()
	vertices, indices := BuildTextMesh(font, []*metadata.UIText{nil, {Text: ""}})
	if len(vertices) != 0 || len(indices) != 0 {
		t.Errorf("empty input produced %d vertices, %d indices", len(vertices), len(indices))
	}
}

func TestBuildTextMeshRespectsGlyphBudget(t *testing.T) {
	font := testFont()
	long := make([]byte, OverlayBudgetGlyphs+100)
	for i := range long {
		long[i] = 'A'
	}
	texts := []*metadata.UIText{{Text: string(long)}}

	_, indices := BuildTextMesh(font, texts)
	if got, want := len(indices), OverlayBudgetGlyphs*6; got != want {
		t.Errorf("budgeted index count = %d, want %d", got, want)
	}
}
