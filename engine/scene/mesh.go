package scene

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

// Mesh builders emit the interleaved vertex layout the renderer
// expects: position (3), normal (3), uv (2).
const vertexFloats = 8

// CubeMesh builds an axis aligned cube centered at the origin with
// per-face normals.
func CubeMesh(size float32) ([]float32, []uint32) {
	h := size / 2

	type face struct {
		normal  mgl32.Vec3
		corners [4]mgl32.Vec3
	}
	faces := []face{
		{mgl32.Vec3{0, 0, 1}, [4]mgl32.Vec3{{-h, -h, h}, {h, -h, h}, {h, h, h}, {-h, h, h}}},
		{mgl32.Vec3{0, 0, -1}, [4]mgl32.Vec3{{h, -h, -h}, {-h, -h, -h}, {-h, h, -h}, {h, h, -h}}},
		{mgl32.Vec3{1, 0, 0}, [4]mgl32.Vec3{{h, -h, h}, {h, -h, -h}, {h, h, -h}, {h, h, h}}},
		{mgl32.Vec3{-1, 0, 0}, [4]mgl32.Vec3{{-h, -h, -h}, {-h, -h, h}, {-h, h, h}, {-h, h, -h}}},
		{mgl32.Vec3{0, 1, 0}, [4]mgl32.Vec3{{-h, h, h}, {h, h, h}, {h, h, -h}, {-h, h, -h}}},
		{mgl32.Vec3{0, -1, 0}, [4]mgl32.Vec3{{-h, -h, -h}, {h, -h, -h}, {h, -h, h}, {-h, -h, h}}},
	}
	uvs := [4]mgl32.Vec2{{0, 1}, {1, 1}, {1, 0}, {0, 0}}

	var vertices []float32
	var indices []uint32
	for fi, f := range faces {
		for ci, c := range f.corners {
			vertices = append(vertices,
				c.X(), c.Y(), c.Z(),
				f.normal.X(), f.normal.Y(), f.normal.Z(),
				uvs[ci].X(), uvs[ci].Y(),
			)
		}
		base := uint32(fi * 4)
		indices = append(indices, base, base+1, base+2, base+2, base+3, base)
	}
	return vertices, indices
}

// TerrainMesh turns a heightmap into a triangle grid. cellSize is the
// world distance between neighboring samples, heightScale maps the
// normalized heights into world units. Normals come from central
// differences over the height grid.
func TerrainMesh(hm *metadata.HeightmapResourceData, cellSize, heightScale float32) ([]float32, []uint32) {
	w := int(hm.Width)
	d := int(hm.Height)
	if w < 2 || d < 2 {
		return nil, nil
	}

	heightAt := func(x, z int) float32 {
		if x < 0 {
			x = 0
		}
		if x >= w {
			x = w - 1
		}
		if z < 0 {
			z = 0
		}
		if z >= d {
			z = d - 1
		}
		return hm.Heights[z*w+x] * heightScale
	}

	// Center the grid on the origin.
	offsetX := -float32(w-1) * cellSize / 2
	offsetZ := -float32(d-1) * cellSize / 2

	vertices := make([]float32, 0, w*d*vertexFloats)
	for z := 0; z < d; z++ {
		for x := 0; x < w; x++ {
			px := offsetX + float32(x)*cellSize
			pz := offsetZ + float32(z)*cellSize
			py := heightAt(x, z)

			dx := heightAt(x+1, z) - heightAt(x-1, z)
			dz := heightAt(x, z+1) - heightAt(x, z-1)
			normal := mgl32.Vec3{-dx, 2 * cellSize, -dz}.Normalize()

			vertices = append(vertices,
				px, py, pz,
				normal.X(), normal.Y(), normal.Z(),
				float32(x)/float32(w-1), float32(z)/float32(d-1),
			)
		}
	}

	indices := make([]uint32, 0, (w-1)*(d-1)*6)
	for z := 0; z < d-1; z++ {
		for x := 0; x < w-1; x++ {
			topLeft := uint32(z*w + x)
			topRight := topLeft + 1
			bottomLeft := uint32((z+1)*w + x)
			bottomRight := bottomLeft + 1
			indices = append(indices,
				topLeft, bottomLeft, topRight,
				topRight, bottomLeft, bottomRight,
			)
		}
	}
	return vertices, indices
}

// SkyboxMesh is a cube drawn from the inside. The renderer culls front
// faces for it, so the winding matches CubeMesh.
func SkyboxMesh(size float32) ([]float32, []uint32) {
	return CubeMesh(size)
}

// FallbackHeightmap generates rolling hills from layered sines, used
// when no terrain asset is available on disk.
func FallbackHeightmap(size uint32) *metadata.HeightmapResourceData {
	heights := make([]float32, size*size)
	for z := uint32(0); z < size; z++ {
		for x := uint32(0); x < size; x++ {
			fx := float64(x) / float64(size)
			fz := float64(z) / float64(size)
			h := 0.5 +
				0.25*gomath.Sin(fx*6.0)*gomath.Cos(fz*4.0) +
				0.15*gomath.Sin(fx*13.0+1.7)*gomath.Sin(fz*11.0)
			if h < 0 {
				h = 0
			}
			if h > 1 {
				h = 1
			}
			heights[z*size+x] = float32(h)
		}
	}
	return &metadata.HeightmapResourceData{
		Width:   size,
		Height:  size,
		Heights: heights,
	}
}
