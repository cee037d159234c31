package camera

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/penumbra/engine/math"
)

// vulkanClip converts an OpenGL-convention projection to Vulkan clip
// space: Y flipped, depth remapped from [-1, 1] to [0, 1].
var vulkanClip = mgl32.Mat4{
	1, 0, 0, 0,
	0, -1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// Camera is a free-look perspective camera. All outputs use Vulkan
// clip conventions.
type Camera struct {
	Position mgl32.Vec3

	yaw   float32
	pitch float32

	fovY   float32
	aspect float32
	near   float32
	far    float32
}

func New(position mgl32.Vec3, fovDegrees, aspect, near, far float32) *Camera {
	return &Camera{
		Position: position,
		yaw:      -90.0,
		fovY:     mgl32.DegToRad(fovDegrees),
		aspect:   aspect,
		near:     near,
		far:      far,
	}
}

func (c *Camera) Near() float32 { return c.near }
func (c *Camera) Far() float32  { return c.far }

// SetAspect updates the aspect ratio after a window resize.
func (c *Camera) SetAspect(aspect float32) {
	c.aspect = aspect
}

// Rotate adds yaw and pitch deltas in degrees, pitch clamped short of
// the poles to keep the view basis well defined.
func (c *Camera) Rotate(deltaYaw, deltaPitch float32) {
	c.yaw += deltaYaw
	c.pitch = math.Clamp(c.pitch+deltaPitch, -89.0, 89.0)
}

// Move translates the camera along its view basis. forward and right
// are signed distances in world units.
func (c *Camera) Move(forward, right, up float32) {
	front := c.Front()
	rightDir := front.Cross(mgl32.Vec3{0, 1, 0}).Normalize()
	c.Position = c.Position.
		Add(front.Mul(forward)).
		Add(rightDir.Mul(right)).
		Add(mgl32.Vec3{0, up, 0})
}

// Front returns the normalized view direction.
func (c *Camera) Front() mgl32.Vec3 {
	yaw := float64(mgl32.DegToRad(c.yaw))
	pitch := float64(mgl32.DegToRad(c.pitch))
	return mgl32.Vec3{
		float32(gomath.Cos(yaw) * gomath.Cos(pitch)),
		float32(gomath.Sin(pitch)),
		float32(gomath.Sin(yaw) * gomath.Cos(pitch)),
	}.Normalize()
}

func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Front()), mgl32.Vec3{0, 1, 0})
}

func (c *Camera) ProjectionMatrix() mgl32.Mat4 {
	return vulkanClip.Mul4(mgl32.Perspective(c.fovY, c.aspect, c.near, c.far))
}

// ViewDistance returns the positive distance of a world point along
// the view direction, the quantity cascade selection compares against
// split depths.
func (c *Camera) ViewDistance(world mgl32.Vec3) float32 {
	viewPos := c.ViewMatrix().Mul4x1(world.Vec4(1))
	return -viewPos.Z()
}
