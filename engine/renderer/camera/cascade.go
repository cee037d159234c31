package camera

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
)

// CascadeCount is the number of shadow map cascades. Shader constants
// and the shadow image layer count must agree with it.
const CascadeCount = 4

// Cascade is one shadow slice: the far split distance in positive view
// space units and the light-space matrix that renders into its layer.
type Cascade struct {
	SplitDepth float32
	ViewProj   mgl32.Mat4
}

// biasMatrix maps clip space XY from [-1, 1] to [0, 1] texture
// coordinates for shadow lookups. Depth is already in [0, 1].
var biasMatrix = mgl32.Mat4{
	0.5, 0, 0, 0,
	0, 0.5, 0, 0,
	0, 0, 1, 0,
	0.5, 0.5, 0, 1,
}

// BiasMatrix returns the clip-to-texture matrix applied on top of a
// cascade's ViewProj when sampling the shadow map.
func BiasMatrix() mgl32.Mat4 {
	return biasMatrix
}

// ComputeSplits places count split distances between near and far
// using the log-linear scheme: each split blends the logarithmic
// distribution (resolution near the camera) with the uniform one,
// weighted by lambda in [0, 1].
func ComputeSplits(near, far float32, count int, lambda float32) []float32 {
	splits := make([]float32, count)
	ratio := float64(far / near)
	for i := 0; i < count; i++ {
		p := float64(i+1) / float64(count)
		logSplit := float64(near) * gomath.Pow(ratio, p)
		linSplit := float64(near) + float64(far-near)*p
		splits[i] = float32(float64(lambda)*logSplit + (1.0-float64(lambda))*linSplit)
	}
	return splits
}

// ComputeCascades fits a light-space orthographic projection around
// each frustum slice of the camera. The returned matrices include the
// Vulkan clip correction so depth lands in [0, 1].
func ComputeCascades(cam *Camera, lightDir mgl32.Vec3, lambda float32) []Cascade {
	splits := ComputeSplits(cam.Near(), cam.Far(), CascadeCount, lambda)
	cascades := make([]Cascade, CascadeCount)

	invCam := cam.ProjectionMatrix().Mul4(cam.ViewMatrix()).Inv()
	clipRange := cam.Far() - cam.Near()
	lightDir = lightDir.Normalize()

	lastSplit := float32(0.0)
	for i := 0; i < CascadeCount; i++ {
		// Normalized split distances within the clip range.
		splitDist := (splits[i] - cam.Near()) / clipRange

		corners := frustumCornersWorld(invCam)
		// Shrink the full frustum to the slice between the previous
		// and current split.
		for j := 0; j < 4; j++ {
			dist := corners[j+4].Sub(corners[j])
			corners[j+4] = corners[j].Add(dist.Mul(splitDist))
			corners[j] = corners[j].Add(dist.Mul(lastSplit))
		}

		center := mgl32.Vec3{}
		for _, c := range corners {
			center = center.Add(c)
		}
		center = center.Mul(1.0 / float32(len(corners)))

		radius := float32(0.0)
		for _, c := range corners {
			d := c.Sub(center).Len()
			if d > radius {
				radius = d
			}
		}
		// Quantize the radius so the cascade extent is stable across
		// frames and texel snapping stays effective.
		radius = float32(gomath.Ceil(float64(radius)*16.0)) / 16.0

		maxExtents := mgl32.Vec3{radius, radius, radius}
		minExtents := maxExtents.Mul(-1)

		lightView := mgl32.LookAtV(
			center.Sub(lightDir.Mul(-minExtents.Z())),
			center,
			mgl32.Vec3{0, 1, 0},
		)
		lightOrtho := mgl32.Ortho(
			minExtents.X(), maxExtents.X(),
			minExtents.Y(), maxExtents.Y(),
			0, maxExtents.Z()-minExtents.Z(),
		)

		cascades[i] = Cascade{
			SplitDepth: splits[i],
			ViewProj:   vulkanClip.Mul4(lightOrtho).Mul4(lightView),
		}
		lastSplit = splitDist
	}
	return cascades
}

// frustumCornersWorld unprojects the 8 NDC cube corners, near plane
// first, into world space.
func frustumCornersWorld(invViewProj mgl32.Mat4) [8]mgl32.Vec3 {
	ndc := [8]mgl32.Vec3{
		{-1, 1, 0}, {1, 1, 0}, {1, -1, 0}, {-1, -1, 0},
		{-1, 1, 1}, {1, 1, 1}, {1, -1, 1}, {-1, -1, 1},
	}
	var out [8]mgl32.Vec3
	for i, c := range ndc {
		inv := invViewProj.Mul4x1(c.Vec4(1))
		out[i] = inv.Vec3().Mul(1.0 / inv.W())
	}
	return out
}

// CascadeIndex selects the cascade for a fragment at the given
// positive view-space distance: the first cascade whose split depth
// exceeds the distance wins, with the last cascade as fallback for
// everything beyond the final split.
func CascadeIndex(viewDist float32, splits []float32) int {
	for i, s := range splits {
		if viewDist < s {
			return i
		}
	}
	return len(splits) - 1
}
