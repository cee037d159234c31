package camera

import (
	gomath "math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestComputeSplitsMonotonic(t *testing.T) {
	splits := ComputeSplits(0.05, 48.0, CascadeCount, 0.95)
	if len(splits) != CascadeCount {
		t.Fatalf("got %d splits, want %d", len(splits), CascadeCount)
	}
	prev := float32(0.05)
	for i, s := range splits {
		if s <= prev {
			t.Errorf("split %d not increasing: %f <= %f", i, s, prev)
		}
		prev = s
	}
	last := splits[CascadeCount-1]
	if gomath.Abs(float64(last-48.0)) > 1e-3 {
		t.Errorf("last split should reach far plane: got %f, want 48", last)
	}
}

func TestComputeSplitsLambdaPullsSplitsIn(t *testing.T) {
	// With lambda 0.5, near 0.1 and far 100, the first split must sit
	// well inside the near quarter of the range; a uniform placement
	// would put it at 25.075.
	splits := ComputeSplits(0.1, 100.0, CascadeCount, 0.5)
	if splits[0] >= 25.0 {
		t.Errorf("first split %f not pulled toward the camera", splits[0])
	}

	uniform := ComputeSplits(0.1, 100.0, CascadeCount, 0.0)
	for i := 0; i < CascadeCount-1; i++ {
		if splits[i] >= uniform[i] {
			t.Errorf("split %d: log-linear %f should be closer than uniform %f", i, splits[i], uniform[i])
		}
	}
}

func TestCascadeIndexSelection(t *testing.T) {
	splits := []float32{2, 8, 20, 48}
	tests := []struct {
		dist float32
		want int
	}{
		{0.5, 0},
		{1.99, 0},
		{2.0, 1},
		{7.0, 1},
		{15.0, 2},
		{40.0, 3},
		// Beyond the last split the final cascade is the fallback.
		{100.0, 3},
	}
	for _, tt := range tests {
		if got := CascadeIndex(tt.dist, splits); got != tt.want {
			t.Errorf("CascadeIndex(%f) = %d, want %d", tt.dist, got, tt.want)
		}
	}
}

func TestComputeCascadesCoverFrustum(t *testing.T) {
	cam := New(mgl32.Vec3{0, 2, 5}, 45, 16.0/9.0, 0.05, 48.0)
	lightDir := mgl32.Vec3{-0.5, -1, -0.3}

	cascades := ComputeCascades(cam, lightDir, 0.95)
	if len(cascades) != CascadeCount {
		t.Fatalf("got %d cascades, want %d", len(cascades), CascadeCount)
	}

	prev := float32(0)
	for i, c := range cascades {
		if c.SplitDepth <= prev {
			t.Errorf("cascade %d split depth not increasing: %f", i, c.SplitDepth)
		}

		// A point in the middle of the slice must land inside the
		// cascade's clip volume.
		mid := (prev + c.SplitDepth) / 2
		prev = c.SplitDepth
		world := cam.Position.Add(cam.Front().Mul(mid))
		clip := c.ViewProj.Mul4x1(world.Vec4(1))
		ndc := clip.Vec3().Mul(1.0 / clip.W())
		if ndc.X() < -1 || ndc.X() > 1 || ndc.Y() < -1 || ndc.Y() > 1 {
			t.Errorf("cascade %d does not cover its slice midpoint: ndc=%v", i, ndc)
		}
		if ndc.Z() < 0 || ndc.Z() > 1 {
			t.Errorf("cascade %d depth outside [0,1]: %f", i, ndc.Z())
		}
	}
}

func TestViewDistancePositiveInFront(t *testing.T) {
	cam := New(mgl32.Vec3{0, 0, 0}, 45, 1.0, 0.05, 48.0)
	front := cam.Front()

	ahead := front.Mul(10)
	if d := cam.ViewDistance(ahead); gomath.Abs(float64(d-10)) > 1e-4 {
		t.Errorf("point 10 units ahead: view distance %f, want 10", d)
	}
	behind := front.Mul(-5)
	if d := cam.ViewDistance(behind); d >= 0 {
		t.Errorf("point behind the camera should have negative view distance, got %f", d)
	}
}

func TestBiasMatrixMapsClipToTexture(t *testing.T) {
	b := BiasMatrix()
	corners := []struct {
		clip mgl32.Vec4
		want mgl32.Vec2
	}{
		{mgl32.Vec4{-1, -1, 0.5, 1}, mgl32.Vec2{0, 0}},
		{mgl32.Vec4{1, 1, 0.5, 1}, mgl32.Vec2{1, 1}},
		{mgl32.Vec4{0, 0, 0.5, 1}, mgl32.Vec2{0.5, 0.5}},
	}
	for _, c := range corners {
		got := b.Mul4x1(c.clip)
		if gomath.Abs(float64(got.X()-c.want.X())) > 1e-6 || gomath.Abs(float64(got.Y()-c.want.Y())) > 1e-6 {
			t.Errorf("bias(%v) = (%f, %f), want %v", c.clip, got.X(), got.Y(), c.want)
		}
		if gomath.Abs(float64(got.Z()-0.5)) > 1e-6 {
			t.Errorf("bias must not touch depth: got %f", got.Z())
		}
	}
}
