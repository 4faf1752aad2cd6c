package scene

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Camera is a perspective camera. FOV is the vertical field of view in degrees.
type Camera struct {
	FOV    float64
	Aspect float64
	Near   float64
	Far    float64

	Position r3.Vec
	Target   r3.Vec
	Up       r3.Vec
}

// NewPerspectiveCamera returns a camera at the origin looking down -Z.
func NewPerspectiveCamera(fov, aspect, near, far float64) *Camera {
	return &Camera{
		FOV:    fov,
		Aspect: aspect,
		Near:   near,
		Far:    far,
		Target: r3.Vec{Z: -1},
		Up:     r3.Vec{Y: 1},
	}
}

// LookAt aims the camera at t.
func (c *Camera) LookAt(t r3.Vec) {
	c.Target = t
}

// basis returns the right, up and forward unit vectors of the view.
func (c *Camera) basis() (right, up, forward r3.Vec) {
	forward = r3.Unit(r3.Sub(c.Target, c.Position))
	right = r3.Cross(forward, c.Up)
	if r3.Norm(right) == 0 {
		// Looking straight along Up; pick any perpendicular.
		right = r3.Cross(forward, r3.Vec{Z: 1})
	}
	right = r3.Unit(right)
	up = r3.Cross(right, forward)
	return right, up, forward
}

// Project maps a world position to normalised device coordinates in [-1, 1]
// and returns the view depth. ok is false for points outside the near/far range.
func (c *Camera) Project(p r3.Vec) (x, y, depth float64, ok bool) {
	right, up, forward := c.basis()
	d := r3.Sub(p, c.Position)
	depth = r3.Dot(d, forward)
	if depth < c.Near || depth > c.Far {
		return 0, 0, depth, false
	}
	f := 1 / math.Tan(c.FOV*math.Pi/360)
	aspect := c.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	x = f * r3.Dot(d, right) / (aspect * depth)
	y = f * r3.Dot(d, up) / depth
	return x, y, depth, true
}

// ViewDirection returns the unit vector from the camera towards its target.
func (c *Camera) ViewDirection() r3.Vec {
	_, _, forward := c.basis()
	return forward
}
