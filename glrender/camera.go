package glrender

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/math/ms1"
)

// PitchEpsilon keeps the vertical angle away from the poles where forward and up degenerate.
const PitchEpsilon = 1e-4

// MaxPitch is the largest magnitude the vertical angle of a [Camera] can take.
const MaxPitch = math32.Pi/2 - PitchEpsilon

// Camera is a first person camera described by a position and two angles.
// The horizontal angle h is unbounded and rotates about the world Y axis,
// h=0 looks down +X and h=π/2 looks down +Z. The vertical angle v pitches
// up for positive values. The orthonormal axes are derived from the angles
// and recomputed on every angle change.
type Camera struct {
	pos     ms3.Vec
	h, v    float32
	forward ms3.Vec
	right   ms3.Vec
	up      ms3.Vec
}

// NewCamera returns a camera at pos looking along the angles h, v.
func NewCamera(pos ms3.Vec, h, v float32) *Camera {
	c := &Camera{pos: pos}
	c.SetAngles(h, v)
	return c
}

// SetAngles sets the camera orientation. v is clamped to ±[MaxPitch].
func (c *Camera) SetAngles(h, v float32) {
	v = ms1.Clamp(v, -MaxPitch, MaxPitch)
	c.h, c.v = h, v
	sv, cv := math32.Sincos(v)
	sh, ch := math32.Sincos(h)
	c.forward = ms3.Vec{X: cv * ch, Y: sv, Z: cv * sh}
	c.right = ms3.Vec{X: -sh, Y: 0, Z: ch}
	c.up = ms3.Vec{X: -sv * ch, Y: cv, Z: -sv * sh}
}

// SetPosition moves the camera to p.
func (c *Camera) SetPosition(p ms3.Vec) { c.pos = p }

// Position returns the camera position, the origin of all rays.
func (c *Camera) Position() ms3.Vec { return c.pos }

// Angles returns the horizontal and vertical angle of the camera.
func (c *Camera) Angles() (h, v float32) { return c.h, c.v }

// Axes returns the unit forward, right and up vectors of the camera.
func (c *Camera) Axes() (forward, right, up ms3.Vec) {
	return c.forward, c.right, c.up
}

// Heading returns the horizontal unit vector the camera faces, ignoring pitch.
func (c *Camera) Heading() ms3.Vec {
	return ms3.Vec{X: c.right.Z, Z: -c.right.X}
}

// RayBasis returns the basis that maps framebuffer pixel coordinates of vp to ray
// directions. The image plane lies one unit along forward and spans ±Aspect
// horizontally and ±1 vertically, so the vertical field of view is fixed at 90°.
func (c *Camera) RayBasis(vp Viewport) RayBasis {
	a := vp.Aspect()
	return RayBasis{
		Base:     ms3.Sub(ms3.Sub(c.forward, c.up), ms3.Scale(a, c.right)),
		XContrib: ms3.Scale(2/float32(vp.Width)*a, c.right),
		YContrib: ms3.Scale(2/float32(vp.Height), c.up),
	}
}

// RayBasis linearly maps pixel coordinates to (unnormalized) ray directions.
type RayBasis struct {
	Base     ms3.Vec
	XContrib ms3.Vec
	YContrib ms3.Vec
}

// Ray returns the unit direction of the ray through framebuffer coordinate px, py.
// The origin is the bottom left corner of the framebuffer; pixel centers lie
// at integer coordinates plus 0.5.
func (rb RayBasis) Ray(px, py float32) ms3.Vec {
	d := ms3.Add(rb.Base, ms3.Add(ms3.Scale(px, rb.XContrib), ms3.Scale(py, rb.YContrib)))
	return ms3.Unit(d)
}
