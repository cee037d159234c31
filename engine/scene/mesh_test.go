package scene

import (
	gomath "math"
	"testing"

	"github.com/spaghettifunk/penumbra/engine/renderer/metadata"
)

func TestCubeMeshCounts(t *testing.T) {
	vertices, indices := CubeMesh(2.0)
	if got, want := len(vertices), 24*vertexFloats; got != want {
		t.Errorf("vertex floats = %d, want %d", got, want)
	}
	if got, want := len(indices), 36; got != want {
		t.Errorf("index count = %d, want %d", got, want)
	}
	// Every position component lies on the half-size boundary.
	for i := 0; i < len(vertices); i += vertexFloats {
		for c := 0; c < 3; c++ {
			v := vertices[i+c]
			if v != 1.0 && v != -1.0 {
				t.Fatalf("vertex %d component %d = %v, want +/-1", i/vertexFloats, c, v)
			}
		}
	}
}

func TestTerrainMeshGridTopology(t *testing.T) {
	hm := &metadata.HeightmapResourceData{
		Width:   4,
		Height:  3,
		Heights: make([]float32, 12),
	}
	vertices, indices := TerrainMesh(hm, 1.0, 1.0)

	if got, want := len(vertices), 4*3*vertexFloats; got != want {
		t.Errorf("vertex floats = %d, want %d", got, want)
	}
	// Two triangles per cell, (w-1)*(d-1) cells.
	if got, want := len(indices), 3*2*2*3; got != want {
		t.Errorf("index count = %d, want %d", got, want)
	}
	for _, idx := range indices {
		if idx >= 12 {
			t.Fatalf("index %d out of range", idx)
		}
	}
}

func TestTerrainMeshAppliesHeightScale(t *testing.T) {
	hm := &metadata.HeightmapResourceData{
		Width:  2,
		Height: 2,
		Heights: []float32{
			0.0, 0.5,
			1.0, 0.25,
		},
	}
	vertices, _ := TerrainMesh(hm, 1.0, 4.0)

	// y of the third vertex (x=0, z=1) is 1.0 * 4.0.
	y := vertices[2*vertexFloats+1]
	if y != 4.0 {
		t.Errorf("scaled height = %v, want 4", y)
	}
}

func TestTerrainMeshNormalsAreUnitLength(t *testing.T) {
	hm := FallbackHeightmap(16)
	vertices, _ := TerrainMesh(hm, 0.5, 3.0)

	for i := 0; i < len(vertices); i += vertexFloats {
		nx := float64(vertices[i+3])
		ny := float64(vertices[i+4])
		nz := float64(vertices[i+5])
		length := gomath.Sqrt(nx*nx + ny*ny + nz*nz)
		if gomath.Abs(length-1.0) > 1e-4 {
			t.Fatalf("vertex %d normal length = %v", i/vertexFloats, length)
		}
		if ny <= 0 {
			t.Fatalf("vertex %d normal points down", i/vertexFloats)
		}
	}
}

func TestTerrainMeshDegenerateGrid(t *testing.T) {
	hm := &metadata.HeightmapResourceData{Width: 1, Height: 5, Heights: make([]float32, 5)}
	vertices, indices := TerrainMesh(hm, 1.0, 1.0)
	if vertices != nil || indices != nil {
		t.Error("a one column heightmap cannot form triangles")
	}
}

func TestFallbackHeightmapRange(t *testing.T) {
	hm := FallbackHeightmap(32)
	if hm.Width != 32 || hm.Height != 32 || len(hm.Heights) != 32*32 {
		t.Fatalf("unexpected dimensions %dx%d (%d samples)", hm.Width, hm.Height, len(hm.Heights))
	}
	for i, h := range hm.Heights {
		if h < 0 || h > 1 {
			t.Fatalf("height %d = %v outside [0, 1]", i, h)
		}
	}
}
