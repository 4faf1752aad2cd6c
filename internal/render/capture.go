// Package render draws a scene.Scene to concrete outputs: an interactive
// echarts-gl HTML page, a projected PNG still, or several at once.
package render

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/mathviz/internal/label"
	"github.com/banshee-data/mathviz/internal/scene"
)

// Mesh is a triangle mesh in world coordinates.
type Mesh struct {
	ID        string
	Name      string
	Positions []r3.Vec
	// Colors is set for vertex-coloured meshes such as surfaces.
	Colors  []scene.Color
	Indices []uint32
	Color   scene.Color
	Opacity float64
}

// VertexColored reports whether the mesh carries per-vertex colours.
func (m Mesh) VertexColored() bool { return len(m.Colors) > 0 }

// Polyline is a line strip, or independent segments when Segments is set.
type Polyline struct {
	ID        string
	Name      string
	Kind      scene.NodeKind
	Positions []r3.Vec
	Colors    []scene.Color
	Indices   []uint32
	Color     scene.Color
	Width     float64
	Opacity   float64
	Segments  bool
}

// Label is a text sprite.
type Label struct {
	ID       string
	Text     string
	Position r3.Vec
	Color    scene.Color
	Height   float64
}

// Light is an ambient or directional light.
type Light struct {
	Kind      scene.NodeKind
	Color     scene.Color
	Intensity float64
	Position  r3.Vec
}

// Frame is a renderer-neutral copy of a scene's drawable state.
type Frame struct {
	Background scene.Color
	Meshes     []Mesh
	Lines      []Polyline
	Labels     []Label
	Lights     []Light
}

// NodeCount returns the number of drawable items in the frame.
func (f Frame) NodeCount() int {
	return len(f.Meshes) + len(f.Lines) + len(f.Labels) + len(f.Lights)
}

// Capture copies the drawable state of s under its read lock. Disposed
// geometry captures as empty.
func Capture(s *scene.Scene) Frame {
	f := Frame{Background: s.Background}
	s.Read(func(nodes []*scene.Node) {
		for _, n := range nodes {
			switch n.Kind {
			case scene.MeshNode:
				f.Meshes = append(f.Meshes, captureMesh(n))
			case scene.LineNode, scene.LineSegmentsNode, scene.AxesHelperNode:
				f.Lines = append(f.Lines, captureLine(n))
			case scene.SpriteNode:
				f.Labels = append(f.Labels, captureLabel(n))
			case scene.AmbientLightNode, scene.DirectionalLightNode:
				f.Lights = append(f.Lights, Light{Kind: n.Kind, Color: n.LightColor, Intensity: n.Intensity, Position: n.Position})
			}
		}
	})
	return f
}

func world(n *scene.Node, v r3.Vec) r3.Vec {
	return r3.Add(n.Position, r3.Vec{X: v.X * n.Scale.X, Y: v.Y * n.Scale.Y, Z: v.Z * n.Scale.Z})
}

func positions(n *scene.Node) []r3.Vec {
	g := n.Geometry
	out := make([]r3.Vec, g.VertexCount())
	for i := range out {
		out[i] = world(n, g.Vertex(i))
	}
	return out
}

func vertexColors(g *scene.Geometry) []scene.Color {
	if g == nil || len(g.Colors) == 0 {
		return nil
	}
	out := make([]scene.Color, g.VertexCount())
	for i := range out {
		out[i] = g.VertexColor(i)
	}
	return out
}

func materialOf(n *scene.Node) (scene.Color, float64, bool) {
	if n.Material == nil {
		return scene.Color{R: 1, G: 1, B: 1}, 1, false
	}
	return n.Material.Color, float64(n.Material.Opacity), n.Material.VertexColors
}

func captureMesh(n *scene.Node) Mesh {
	c, opacity, vc := materialOf(n)
	m := Mesh{ID: n.ID, Name: n.Name, Positions: positions(n), Color: c, Opacity: opacity}
	if n.Geometry != nil {
		m.Indices = append([]uint32(nil), n.Geometry.Indices...)
		if vc {
			m.Colors = vertexColors(n.Geometry)
		}
	}
	return m
}

func captureLine(n *scene.Node) Polyline {
	c, opacity, vc := materialOf(n)
	l := Polyline{
		ID:        n.ID,
		Name:      n.Name,
		Kind:      n.Kind,
		Positions: positions(n),
		Color:     c,
		Opacity:   opacity,
		Width:     1,
		Segments:  n.Kind != scene.LineNode,
	}
	if n.Material != nil && n.Material.LineWidth > 0 {
		l.Width = float64(n.Material.LineWidth)
	}
	if n.Geometry != nil {
		l.Indices = append([]uint32(nil), n.Geometry.Indices...)
		if vc {
			l.Colors = vertexColors(n.Geometry)
		}
	}
	return l
}

func captureLabel(n *scene.Node) Label {
	l := Label{ID: n.ID, Text: n.Text, Position: n.Position, Height: n.Scale.Y, Color: scene.Color{R: 1, G: 1, B: 1}}
	if n.Material != nil && n.Material.Texture != nil {
		ink := label.Ink(n.Material.Texture)
		l.Color = scene.RGB(float32(ink.R)/255, float32(ink.G)/255, float32(ink.B)/255)
	}
	return l
}

// Pairs returns the index pairs of a segment list. Without indices the
// vertices pair up in order.
func (l Polyline) Pairs() [][2]int {
	var out [][2]int
	if len(l.Indices) > 0 {
		for i := 0; i+1 < len(l.Indices); i += 2 {
			a, b := int(l.Indices[i]), int(l.Indices[i+1])
			if a < len(l.Positions) && b < len(l.Positions) {
				out = append(out, [2]int{a, b})
			}
		}
		return out
	}
	for i := 0; i+1 < len(l.Positions); i += 2 {
		out = append(out, [2]int{i, i + 1})
	}
	return out
}
