package loaders

import (
	"image"
	_ "image/png"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

// HeightmapLoader decodes a grayscale image into normalized heights,
// one float per texel, row major from the top-left corner.
type HeightmapLoader struct{}

func (hl *HeightmapLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open heightmap '%s'", path)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode heightmap '%s'", path)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	heights := make([]float32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Gray16 luminance, normalized to [0, 1].
			r, g, b, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			lum := (299*r + 587*g + 114*b) / 1000
			heights[y*w+x] = float32(lum) / 65535.0
		}
	}

	return &metadata.Resource{
		Name:     path,
		FullPath: path,
		DataSize: uint64(len(heights) * 4),
		Data: &metadata.HeightmapResourceData{
			Width:   uint32(w),
			Height:  uint32(h),
			Heights: heights,
		},
	}, nil
}

func (hl *HeightmapLoader) Unload(resource *metadata.Resource) error {
	if resource.Data != nil {
		resource.Data = nil
		resource.DataSize = 0
	}
	return nil
}
