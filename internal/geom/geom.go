// Package geom defines the point data exchanged with the computation backend
// and the fixed mapping from its axis convention into render space.
package geom

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrGridSize reports a point grid whose length does not match its resolution.
var ErrGridSize = errors.New("grid length does not match resolution")

// Point3D is a coordinate in the backend's native axis convention, where Z is
// the height of the sampled function.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// PointGrid is a row-major flattened (resolution+1)×(resolution+1) sample of a surface.
type PointGrid []Point3D

// PathSequence is an ordered list of iterate positions. Order is iteration order.
type PathSequence []Point3D

// Remap converts a native point (x, y, z) into render space (x, z, y), where
// the render Y axis points up.
func Remap(p Point3D) r3.Vec {
	return r3.Vec{X: p.X, Y: p.Z, Z: p.Y}
}

// RemapAll applies Remap to every point, preserving order.
func RemapAll(points []Point3D) []r3.Vec {
	out := make([]r3.Vec, len(points))
	for i, p := range points {
		out[i] = Remap(p)
	}
	return out
}

// GridWidth returns the number of samples along one grid edge.
func GridWidth(resolution int) int {
	return resolution + 1
}

// GridSize returns the number of samples in a full grid of the given resolution.
func GridSize(resolution int) int {
	w := GridWidth(resolution)
	return w * w
}

// CheckGrid verifies that points holds exactly GridSize(resolution) samples.
// A mismatch is not fatal: surface building skips unresolvable indices.
func CheckGrid(points []Point3D, resolution int) error {
	if resolution < 1 {
		return fmt.Errorf("%w: resolution %d < 1", ErrGridSize, resolution)
	}
	if want := GridSize(resolution); len(points) != want {
		return fmt.Errorf("%w: got %d points, want %d for resolution %d", ErrGridSize, len(points), want, resolution)
	}
	return nil
}

// Extent returns the largest absolute coordinate across all points, or 0 for
// an empty slice. Pages use it to size the camera distance and axes.
func Extent(points []Point3D) float64 {
	var m float64
	for _, p := range points {
		m = math.Max(m, math.Abs(p.X))
		m = math.Max(m, math.Abs(p.Y))
		m = math.Max(m, math.Abs(p.Z))
	}
	return m
}

// SurfaceData is a sampled surface plus an optional distinguished point
// (minimum or saddle point).
type SurfaceData struct {
	Points     PointGrid
	Resolution int
	Special    *Point3D
}

// DescentData is a gradient descent run: the surface it ran on and the path.
type DescentData struct {
	Surface    PointGrid
	Resolution int
	Path       PathSequence
}
