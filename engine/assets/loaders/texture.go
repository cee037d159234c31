package loaders

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/cockroachdb/errors"
	"golang.org/x/image/draw"

	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

// TextureLoader decodes PNG or JPEG files and expands them to RGBA,
// the only layout the renderer uploads.
type TextureLoader struct{}

func (tl *TextureLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	flipY := false
	if p, ok := params.(*metadata.ImageResourceParams); ok {
		flipY = p.FlipY
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open texture '%s'", path)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode texture '%s'", path)
	}

	bounds := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)

	if flipY {
		flipVertical(rgba)
	}

	return &metadata.Resource{
		Name:     path,
		FullPath: path,
		DataSize: uint64(len(rgba.Pix)),
		Data: &metadata.ImageResourceData{
			ChannelCount: 4,
			Width:        uint32(bounds.Dx()),
			Height:       uint32(bounds.Dy()),
			Pixels:       rgba.Pix,
		},
	}, nil
}

func (tl *TextureLoader) Unload(resource *metadata.Resource) error {
	if resource.Data != nil {
		resource.Data = nil
		resource.DataSize = 0
	}
	return nil
}

func flipVertical(img *image.RGBA) {
	h := img.Bounds().Dy()
	row := make([]uint8, img.Stride)
	for y := 0; y < h/2; y++ {
		top := img.Pix[y*img.Stride : (y+1)*img.Stride]
		bottom := img.Pix[(h-1-y)*img.Stride : (h-y)*img.Stride]
		copy(row, top)
		copy(top, bottom)
		copy(bottom, row)
	}
}
