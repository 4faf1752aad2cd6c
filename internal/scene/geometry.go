package scene

import (
	"math"

	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/spatial/r3"
)

// Geometry holds flat vertex buffers. Positions, Colors and Normals carry
// three floats per vertex; Indices carries three vertex indices per triangle
// for meshes, or two per segment for line segments. A nil Indices slice means
// the vertices are drawn in order.
type Geometry struct {
	Positions []float32
	Colors    []float32
	Normals   []float32
	Indices   []uint32

	disposed bool
}

// VertexCount returns the number of vertices.
func (g *Geometry) VertexCount() int {
	if g == nil {
		return 0
	}
	return len(g.Positions) / 3
}

// TriangleCount returns the number of indexed triangles.
func (g *Geometry) TriangleCount() int {
	if g == nil {
		return 0
	}
	return len(g.Indices) / 3
}

// Vertex returns the position of vertex i.
func (g *Geometry) Vertex(i int) r3.Vec {
	return r3.Vec{
		X: float64(g.Positions[3*i]),
		Y: float64(g.Positions[3*i+1]),
		Z: float64(g.Positions[3*i+2]),
	}
}

// VertexColor returns the colour of vertex i, or white without a colour buffer.
func (g *Geometry) VertexColor(i int) Color {
	if 3*i+2 >= len(g.Colors) {
		return Color{R: 1, G: 1, B: 1}
	}
	return Color{R: g.Colors[3*i], G: g.Colors[3*i+1], B: g.Colors[3*i+2]}
}

// ComputeVertexNormals recomputes smooth per-vertex normals by accumulating
// the (area weighted) face normal of every indexed triangle into its corners
// and normalising the sums.
func (g *Geometry) ComputeVertexNormals() {
	n := g.VertexCount()
	normals := make([]float32, 3*n)
	for t := 0; t+2 < len(g.Indices); t += 3 {
		a, b, c := int(g.Indices[t]), int(g.Indices[t+1]), int(g.Indices[t+2])
		if a >= n || b >= n || c >= n {
			continue
		}
		pa, pb, pc := g.Vertex(a), g.Vertex(b), g.Vertex(c)
		face := r3.Cross(r3.Sub(pc, pb), r3.Sub(pa, pb))
		for _, v := range [3]int{a, b, c} {
			normals[3*v] += float32(face.X)
			normals[3*v+1] += float32(face.Y)
			normals[3*v+2] += float32(face.Z)
		}
	}
	for v := 0; v < n; v++ {
		x, y, z := normals[3*v], normals[3*v+1], normals[3*v+2]
		l := math32.Sqrt(x*x + y*y + z*z)
		if l == 0 {
			continue
		}
		normals[3*v], normals[3*v+1], normals[3*v+2] = x/l, y/l, z/l
	}
	g.Normals = normals
}

// Dispose releases the buffers. It is safe to call more than once.
func (g *Geometry) Dispose() {
	if g == nil {
		return
	}
	g.Positions, g.Colors, g.Normals, g.Indices = nil, nil, nil, nil
	g.disposed = true
}

// Disposed reports whether Dispose has been called.
func (g *Geometry) Disposed() bool {
	return g != nil && g.disposed
}

// LineGeometry builds an unindexed polyline through points in order.
func LineGeometry(points []r3.Vec) *Geometry {
	g := &Geometry{Positions: make([]float32, 0, 3*len(points))}
	for _, p := range points {
		g.Positions = append(g.Positions, float32(p.X), float32(p.Y), float32(p.Z))
	}
	return g
}

// SphereGeometry builds a UV sphere centred on the origin.
func SphereGeometry(radius float64, widthSegments, heightSegments int) *Geometry {
	if widthSegments < 3 {
		widthSegments = 3
	}
	if heightSegments < 2 {
		heightSegments = 2
	}

	g := &Geometry{}
	grid := make([][]uint32, heightSegments+1)
	var idx uint32
	for iy := 0; iy <= heightSegments; iy++ {
		v := float64(iy) / float64(heightSegments)
		row := make([]uint32, widthSegments+1)
		for ix := 0; ix <= widthSegments; ix++ {
			u := float64(ix) / float64(widthSegments)
			x := -radius * math.Cos(u*2*math.Pi) * math.Sin(v*math.Pi)
			y := radius * math.Cos(v*math.Pi)
			z := radius * math.Sin(u*2*math.Pi) * math.Sin(v*math.Pi)
			g.Positions = append(g.Positions, float32(x), float32(y), float32(z))

			nrm := r3.Unit(r3.Vec{X: x, Y: y, Z: z})
			g.Normals = append(g.Normals, float32(nrm.X), float32(nrm.Y), float32(nrm.Z))

			row[ix] = idx
			idx++
		}
		grid[iy] = row
	}

	for iy := 0; iy < heightSegments; iy++ {
		for ix := 0; ix < widthSegments; ix++ {
			a := grid[iy][ix+1]
			b := grid[iy][ix]
			c := grid[iy+1][ix]
			d := grid[iy+1][ix+1]
			if iy != 0 {
				g.Indices = append(g.Indices, a, b, d)
			}
			if iy != heightSegments-1 {
				g.Indices = append(g.Indices, b, c, d)
			}
		}
	}
	return g
}

// WireframeGeometry returns one line segment per unique triangle edge of g.
func WireframeGeometry(g *Geometry) *Geometry {
	out := &Geometry{}
	if g == nil {
		return out
	}
	n := uint32(g.VertexCount())
	seen := make(map[[2]uint32]struct{}, len(g.Indices))
	var idx uint32
	for t := 0; t+2 < len(g.Indices); t += 3 {
		tri := [3]uint32{g.Indices[t], g.Indices[t+1], g.Indices[t+2]}
		for e := 0; e < 3; e++ {
			a, b := tri[e], tri[(e+1)%3]
			if a >= n || b >= n {
				continue
			}
			if a > b {
				a, b = b, a
			}
			key := [2]uint32{a, b}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out.Positions = append(out.Positions, g.Positions[3*a:3*a+3]...)
			out.Positions = append(out.Positions, g.Positions[3*b:3*b+3]...)
			out.Indices = append(out.Indices, idx, idx+1)
			idx += 2
		}
	}
	return out
}

// AxesGeometry builds the three axis segments of length size starting at the
// origin, coloured red (X), green (Y) and blue (Z).
func AxesGeometry(size float64) *Geometry {
	s := float32(size)
	return &Geometry{
		Positions: []float32{
			0, 0, 0, s, 0, 0,
			0, 0, 0, 0, s, 0,
			0, 0, 0, 0, 0, s,
		},
		Colors: []float32{
			1, 0, 0, 1, 0.6, 0,
			0, 1, 0, 0.6, 1, 0,
			0, 0, 1, 0, 0.6, 1,
		},
		Indices: []uint32{0, 1, 2, 3, 4, 5},
	}
}
