package vulkan

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

func TestFallbackFontAtlasConsistent(t *testing.T) {
	font, atlasW, atlasH, pixels := FallbackFont()

	if len(pixels) != int(atlasW)*int(atlasH)*4 {
		t.Fatalf("atlas pixel buffer %d bytes, want %d", len(pixels), atlasW*atlasH*4)
	}
	if font.AtlasSizeX != int32(atlasW) || font.AtlasSizeY != int32(atlasH) {
		t.Errorf("font metrics disagree with atlas size: %dx%d vs %dx%d",
			font.AtlasSizeX, font.AtlasSizeY, atlasW, atlasH)
	}

	for _, glyph := range font.Glyphs {
		if int(glyph.X)+int(glyph.Width) > int(atlasW) || int(glyph.Y)+int(glyph.Height) > int(atlasH) {
			t.Errorf("glyph %q cell exceeds the atlas: %+v", glyph.Codepoint, glyph)
		}
	}
}

func TestFallbackFontCoversHUDText(t *testing.T) {
	font, _, _, _ := FallbackFont()

	// Every character the frame stats line can emit must resolve,
	// including the '?' the overlay substitutes for unknown runes.
	for _, r := range "0123456789.:- fps ms FPS?" {
		if findGlyph(font, r) == nil {
			t.Errorf("no glyph for %q", r)
		}
	}

	texts := []*metadata.UIText{{Text: "62 fps  16.12 ms", X: 10, Y: 10, RGBA: mgl32.Vec4{1, 1, 1, 1}}}
	vertices, indices := BuildTextMesh(font, texts)
	if len(indices) == 0 || len(vertices) == 0 {
		t.Fatal("stats line produced no geometry")
	}
}

func TestFallbackFontLowercaseSharesUppercaseCells(t *testing.T) {
	font, _, _, _ := FallbackFont()

	upper := findGlyph(font, 'F')
	lower := findGlyph(font, 'f')
	if upper == nil || lower == nil {
		t.Fatal("letter glyphs missing")
	}
	if upper.X != lower.X || upper.Y != lower.Y {
		t.Errorf("'f' should reuse the 'F' cell: %+v vs %+v", lower, upper)
	}
}

func TestFallbackFontGlyphsCarryCoverage(t *testing.T) {
	font, atlasW, _, pixels := FallbackFont()

	glyph := findGlyph(font, '8')
	if glyph == nil {
		t.Fatal("digit glyph missing")
	}
	opaque := 0
	for y := int(glyph.Y); y < int(glyph.Y)+int(glyph.Height); y++ {
		for x := int(glyph.X); x < int(glyph.X)+int(glyph.Width); x++ {
			if pixels[(y*int(atlasW)+x)*4+3] == 0xFF {
				opaque++
			}
		}
	}
	if opaque == 0 {
		t.Error("glyph cell rasterized no coverage")
	}
	// A space must stay fully transparent.
	space := findGlyph(font, ' ')
	for y := int(space.Y); y < int(space.Y)+int(space.Height); y++ {
		for x := int(space.X); x < int(space.X)+int(space.Width); x++ {
			if pixels[(y*int(atlasW)+x)*4+3] != 0 {
				t.Fatal("space glyph must be empty")
			}
		}
	}
}
