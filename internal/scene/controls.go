package scene

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	minPolar = 1e-6
	epsilon  = 1e-9
)

// OrbitControls orbits a camera around a target point. Inputs accumulate as
// pending deltas; Update applies them, easing out over several frames when
// damping is enabled. The camera's current position is re-read on every
// Update so external moves are respected.
type OrbitControls struct {
	Target        r3.Vec
	EnableDamping bool
	DampingFactor float64
	MinDistance   float64
	MaxDistance   float64

	camera     *Camera
	deltaTheta float64
	deltaPhi   float64
	scale      float64
}

// NewOrbitControls attaches controls to cam, orbiting the origin.
func NewOrbitControls(cam *Camera) *OrbitControls {
	return &OrbitControls{
		camera:        cam,
		DampingFactor: 0.05,
		MaxDistance:   math.Inf(1),
		scale:         1,
	}
}

// Rotate queues an azimuthal (theta) and polar (phi) rotation in radians.
func (c *OrbitControls) Rotate(dTheta, dPhi float64) {
	c.deltaTheta += dTheta
	c.deltaPhi += dPhi
}

// Zoom queues a distance multiplier; values above 1 move the camera away.
func (c *OrbitControls) Zoom(factor float64) {
	if factor > 0 {
		c.scale *= factor
	}
}

// Update applies pending input to the camera and reports whether it moved.
func (c *OrbitControls) Update() bool {
	if c == nil || c.camera == nil {
		return false
	}
	offset := r3.Sub(c.camera.Position, c.Target)
	radius := r3.Norm(offset)
	if radius == 0 {
		return false
	}
	theta := math.Atan2(offset.X, offset.Z)
	phi := math.Acos(math.Max(-1, math.Min(1, offset.Y/radius)))

	f := 1.0
	if c.EnableDamping {
		f = c.DampingFactor
	}
	dTheta, dPhi := c.deltaTheta*f, c.deltaPhi*f
	theta += dTheta
	phi = math.Max(minPolar, math.Min(math.Pi-minPolar, phi+dPhi))

	newRadius := math.Max(c.MinDistance, math.Min(c.MaxDistance, radius*c.scale))
	c.scale = 1

	if c.EnableDamping {
		c.deltaTheta *= 1 - c.DampingFactor
		c.deltaPhi *= 1 - c.DampingFactor
	} else {
		c.deltaTheta, c.deltaPhi = 0, 0
	}

	moved := math.Abs(dTheta) > epsilon || math.Abs(dPhi) > epsilon || math.Abs(newRadius-radius) > epsilon
	if !moved {
		return false
	}
	sinPhi := math.Sin(phi)
	c.camera.Position = r3.Add(c.Target, r3.Vec{
		X: newRadius * sinPhi * math.Sin(theta),
		Y: newRadius * math.Cos(phi),
		Z: newRadius * sinPhi * math.Cos(theta),
	})
	c.camera.LookAt(c.Target)
	return true
}
