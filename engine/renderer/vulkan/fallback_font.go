package vulkan

import (
	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

// Built-in pixel face used when the bundled overlay font is missing,
// so the engine still comes up with a readable HUD before anyone runs
// the asset fetch. Each glyph is 5x7 bits, one byte per row with bit 4
// as the leftmost column.
type fallbackGlyph struct {
	r    rune
	rows [7]byte
}

var fallbackGlyphs = []fallbackGlyph{
	{' ', [7]byte{}},
	{'!', [7]byte{0b00100, 0b00100, 0b00100, 0b00100, 0b00100, 0b00000, 0b00100}},
	{'%', [7]byte{0b11001, 0b11010, 0b00010, 0b00100, 0b01000, 0b01011, 0b10011}},
	{'(', [7]byte{0b00010, 0b00100, 0b01000, 0b01000, 0b01000, 0b00100, 0b00010}},
	{')', [7]byte{0b01000, 0b00100, 0b00010, 0b00010, 0b00010, 0b00100, 0b01000}},
	{'+', [7]byte{0b00000, 0b00100, 0b00100, 0b11111, 0b00100, 0b00100, 0b00000}},
	{',', [7]byte{0b00000, 0b00000, 0b00000, 0b00000, 0b00110, 0b00100, 0b01000}},
	{'-', [7]byte{0b00000, 0b00000, 0b00000, 0b11111, 0b00000, 0b00000, 0b00000}},
	{'.', [7]byte{0b00000, 0b00000, 0b00000, 0b00000, 0b00000, 0b01100, 0b01100}},
	{'/', [7]byte{0b00001, 0b00010, 0b00010, 0b00100, 0b01000, 0b01000, 0b10000}},
	{':', [7]byte{0b00000, 0b01100, 0b01100, 0b00000, 0b01100, 0b01100, 0b00000}},
	{'=', [7]byte{0b00000, 0b00000, 0b11111, 0b00000, 0b11111, 0b00000, 0b00000}},
	{'?', [7]byte{0b01110, 0b10001, 0b00001, 0b00010, 0b00100, 0b00000, 0b00100}},
	{'0', [7]byte{0b01110, 0b10001, 0b10011, 0b10101, 0b11001, 0b10001, 0b01110}},
	{'1', [7]byte{0b00100, 0b01100, 0b00100, 0b00100, 0b00100, 0b00100, 0b01110}},
	{'2', [7]byte{0b01110, 0b10001, 0b00001, 0b00010, 0b00100, 0b01000, 0b11111}},
	{'3', [7]byte{0b11111, 0b00010, 0b00100, 0b00010, 0b00001, 0b10001, 0b01110}},
	{'4', [7]byte{0b00010, 0b00110, 0b01010, 0b10010, 0b11111, 0b00010, 0b00010}},
	{'5', [7]byte{0b11111, 0b10000, 0b11110, 0b00001, 0b00001, 0b10001, 0b01110}},
	{'6', [7]byte{0b00110, 0b01000, 0b10000, 0b11110, 0b10001, 0b10001, 0b01110}},
	{'7', [7]byte{0b11111, 0b00001, 0b00010, 0b00100, 0b01000, 0b01000, 0b01000}},
	{'8', [7]byte{0b01110, 0b10001, 0b10001, 0b01110, 0b10001, 0b10001, 0b01110}},
	{'9', [7]byte{0b01110, 0b10001, 0b10001, 0b01111, 0b00001, 0b00010, 0b01100}},
	{'A', [7]byte{0b01110, 0b10001, 0b10001, 0b11111, 0b10001, 0b10001, 0b10001}},
	{'B', [7]byte{0b11110, 0b10001, 0b10001, 0b11110, 0b10001, 0b10001, 0b11110}},
	{'C', [7]byte{0b01110, 0b10001, 0b10000, 0b10000, 0b10000, 0b10001, 0b01110}},
	{'D', [7]byte{0b11100, 0b10010, 0b10001, 0b10001, 0b10001, 0b10010, 0b11100}},
	{'E', [7]byte{0b11111, 0b10000, 0b10000, 0b11110, 0b10000, 0b10000, 0b11111}},
	{'F', [7]byte{0b11111, 0b10000, 0b10000, 0b11110, 0b10000, 0b10000, 0b10000}},
	{'G', [7]byte{0b01110, 0b10001, 0b10000, 0b10111, 0b10001, 0b10001, 0b01111}},
	{'H', [7]byte{0b10001, 0b10001, 0b10001, 0b11111, 0b10001, 0b10001, 0b10001}},
	{'I', [7]byte{0b01110, 0b00100, 0b00100, 0b00100, 0b00100, 0b00100, 0b01110}},
	{'J', [7]byte{0b00111, 0b00010, 0b00010, 0b00010, 0b00010, 0b10010, 0b01100}},
	{'K', [7]byte{0b10001, 0b10010, 0b10100, 0b11000, 0b10100, 0b10010, 0b10001}},
	{'L', [7]byte{0b10000, 0b10000, 0b10000, 0b10000, 0b10000, 0b10000, 0b11111}},
	{'M', [7]byte{0b10001, 0b11011, 0b10101, 0b10101, 0b10001, 0b10001, 0b10001}},
	{'N', [7]byte{0b10001, 0b11001, 0b10101, 0b10011, 0b10001, 0b10001, 0b10001}},
	{'O', [7]byte{0b01110, 0b10001, 0b10001, 0b10001, 0b10001, 0b10001, 0b01110}},
	{'P', [7]byte{0b11110, 0b10001, 0b10001, 0b11110, 0b10000, 0b10000, 0b10000}},
	{'Q', [7]byte{0b01110, 0b10001, 0b10001, 0b10001, 0b10101, 0b10010, 0b01101}},
	{'R', [7]byte{0b11110, 0b10001, 0b10001, 0b11110, 0b10100, 0b10010, 0b10001}},
	{'S', [7]byte{0b01111, 0b10000, 0b10000, 0b01110, 0b00001, 0b00001, 0b11110}},
	{'T', [7]byte{0b11111, 0b00100, 0b00100, 0b00100, 0b00100, 0b00100, 0b00100}},
	{'U', [7]byte{0b10001, 0b10001, 0b10001, 0b10001, 0b10001, 0b10001, 0b01110}},
	{'V', [7]byte{0b10001, 0b10001, 0b10001, 0b10001, 0b10001, 0b01010, 0b00100}},
	{'W', [7]byte{0b10001, 0b10001, 0b10001, 0b10101, 0b10101, 0b10101, 0b01010}},
	{'X', [7]byte{0b10001, 0b10001, 0b01010, 0b00100, 0b01010, 0b10001, 0b10001}},
	{'Y', [7]byte{0b10001, 0b10001, 0b01010, 0b00100, 0b00100, 0b00100, 0b00100}},
	{'Z', [7]byte{0b11111, 0b00001, 0b00010, 0b00100, 0b01000, 0b10000, 0b11111}},
}

const (
	fallbackGlyphScale = 2
	fallbackGlyphW     = 5 * fallbackGlyphScale
	fallbackGlyphH     = 7 * fallbackGlyphScale
	fallbackCellW      = fallbackGlyphW + 2
	fallbackCellH      = fallbackGlyphH + 2
	fallbackAtlasCols  = 16
)

// FallbackFont rasterizes the built-in face into an RGBA atlas whose
// alpha channel carries coverage, and returns the matching font
// metrics. Lowercase letters reuse the uppercase cells.
func FallbackFont() (*metadata.FontData, uint32, uint32, []byte) {
	cellRows := (len(fallbackGlyphs) + fallbackAtlasCols - 1) / fallbackAtlasCols
	atlasW := uint32(fallbackAtlasCols * fallbackCellW)
	atlasH := uint32(cellRows * fallbackCellH)
	pixels := make([]byte, atlasW*atlasH*4)

	font := &metadata.FontData{
		Face:       "builtin-fallback",
		Size:       fallbackGlyphH,
		LineHeight: fallbackCellH + 2,
		Baseline:   fallbackGlyphH,
		AtlasSizeX: int32(atlasW),
		AtlasSizeY: int32(atlasH),
	}

	for i, g := range fallbackGlyphs {
		cellX := (i % fallbackAtlasCols) * fallbackCellW
		cellY := (i / fallbackAtlasCols) * fallbackCellH

		for row := 0; row < 7; row++ {
			for col := 0; col < 5; col++ {
				if g.rows[row]&(1<<(4-col)) == 0 {
					continue
				}
				for dy := 0; dy < fallbackGlyphScale; dy++ {
					for dx := 0; dx < fallbackGlyphScale; dx++ {
						x := cellX + col*fallbackGlyphScale + dx
						y := cellY + row*fallbackGlyphScale + dy
						offset := (y*int(atlasW) + x) * 4
						pixels[offset] = 0xFF
						pixels[offset+1] = 0xFF
						pixels[offset+2] = 0xFF
						pixels[offset+3] = 0xFF
					}
				}
			}
		}

		glyph := &metadata.FontGlyph{
			Codepoint: g.r,
			X:         uint16(cellX),
			Y:         uint16(cellY),
			Width:     fallbackGlyphW,
			Height:    fallbackGlyphH,
			XAdvance:  fallbackGlyphW + 2,
		}
		font.Glyphs = append(font.Glyphs, glyph)

		if g.r >= 'A' && g.r <= 'Z' {
			lower := *glyph
			lower.Codepoint = g.r + ('a' - 'A')
			font.Glyphs = append(font.Glyphs, &lower)
		}
	}

	return font, atlasW, atlasH, pixels
}
