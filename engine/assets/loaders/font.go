package loaders

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/fzipp/bmfont"

	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

// BitmapFontLoader imports AngelCode .fnt descriptors for the overlay
// text pass.
type BitmapFontLoader struct {
	ResourcePath string
}

func (fl *BitmapFontLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	data, err := fl.importFNTFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to import bitmap font '%s'", path)
	}

	return &metadata.Resource{
		FullPath: path,
		Data:     data,
		DataSize: uint64(unsafe.Sizeof(metadata.BitmapFontResourceData{})),
	}, nil
}

func (fl *BitmapFontLoader) Unload(resource *metadata.Resource) error {
	if resource.Data != nil {
		data := resource.Data.(*metadata.BitmapFontResourceData)
		data.Data.Glyphs = nil
		data.Data.Kernings = nil
		data.Pages = nil
		resource.Data = nil
		resource.DataSize = 0
		resource.LoaderID = metadata.InvalidID
		resource.FullPath = ""
	}
	return nil
}

func (fl *BitmapFontLoader) importFNTFile(fntFileName string) (*metadata.BitmapFontResourceData, error) {
	font, err := bmfont.Load(fntFileName)
	if err != nil {
		return nil, err
	}

	outData := &metadata.BitmapFontResourceData{
		Data: &metadata.FontData{
			Face:       font.Descriptor.Info.Face,
			Size:       uint32(font.Descriptor.Info.Size),
			LineHeight: int32(font.Descriptor.Common.LineHeight),
			Baseline:   int32(font.Descriptor.Common.Base),
			AtlasSizeX: int32(font.Descriptor.Common.ScaleW),
			AtlasSizeY: int32(font.Descriptor.Common.ScaleH),
		},
	}

	for _, p := range font.Descriptor.Pages {
		outData.Pages = append(outData.Pages, &metadata.BitmapFontPage{
			ID:   int8(p.ID),
			File: p.File,
		})
	}

	for _, g := range font.Descriptor.Chars {
		outData.Data.Glyphs = append(outData.Data.Glyphs, &metadata.FontGlyph{
			Codepoint: g.ID,
			X:         uint16(g.X),
			Y:         uint16(g.Y),
			Width:     uint16(g.Width),
			Height:    uint16(g.Height),
			XOffset:   int16(g.XOffset),
			YOffset:   int16(g.YOffset),
			XAdvance:  int16(g.XAdvance),
			PageID:    uint8(g.Page),
		})
	}

	for pair, k := range font.Descriptor.Kerning {
		outData.Data.Kernings = append(outData.Data.Kernings, &metadata.FontKerning{
			Codepoint0: pair.First,
			Codepoint1: pair.Second,
			Amount:     int16(k.Amount),
		})
	}

	return outData, nil
}
