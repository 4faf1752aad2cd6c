// Package surface turns a sampled point grid into a triangulated, height
// coloured surface mesh with an optional wireframe overlay and a marker for a
// distinguished point such as a minimum or saddle point.
package surface

import (
	"github.com/banshee-data/mathviz/internal/geom"
	"github.com/banshee-data/mathviz/internal/scene"
)

// BuildGeometry converts a row-major grid of (resolution+1)² points into
// indexed triangle buffers. Axes are remapped into render space, every vertex
// is coloured with PointColor, and each grid cell (i, j) yields the triangles
// (a, c, b) and (b, c, d) with a = i·W + j, b = a+1, c = (i+1)·W + j, d = c+1.
//
// A short grid yields a partial surface: triangles that reference a missing
// vertex are skipped. Extra points beyond the grid are ignored.
func BuildGeometry(points []geom.Point3D, resolution int, mode ColorMode) *scene.Geometry {
	g := &scene.Geometry{}
	if resolution < 1 {
		return g
	}
	// Work is bounded by the points that exist, never by resolution alone.
	n := len(points)
	w := n + 1
	if resolution < n {
		w = geom.GridWidth(resolution)
		if full := w * w; full < n {
			n = full
		}
	}

	g.Positions = make([]float32, 0, 3*n)
	g.Colors = make([]float32, 0, 3*n)
	for _, p := range points[:n] {
		v := geom.Remap(p)
		g.Positions = append(g.Positions, float32(v.X), float32(v.Y), float32(v.Z))
		c := PointColor(p, mode)
		g.Colors = append(g.Colors, c.R, c.G, c.B)
	}

	// A row of cells needs the row of vertices below it.
	rows := 0
	if w <= n {
		rows = min(resolution, (n-1)/w)
	}
	g.Indices = make([]uint32, 0, 6*n)
	for i := 0; i < rows; i++ {
		for j := 0; j < w-1; j++ {
			a := i*w + j
			b := a + 1
			c := (i+1)*w + j
			d := c + 1
			if d >= n {
				// c is the largest corner of (a, c, b), d of (b, c, d).
				if c < n {
					g.Indices = append(g.Indices, uint32(a), uint32(c), uint32(b))
				}
				continue
			}
			g.Indices = append(g.Indices,
				uint32(a), uint32(c), uint32(b),
				uint32(b), uint32(c), uint32(d),
			)
		}
	}

	g.ComputeVertexNormals()
	return g
}
