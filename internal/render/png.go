package render

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/mathviz/internal/scene"
)

const (
	defaultWidth  = 800
	defaultHeight = 600
	pixelsPerInch = 96
)

// PNGRenderer projects each frame through the camera and draws it with
// gonum/plot: triangles in painter's order with Lambert shading, then lines
// and label text on top.
type PNGRenderer struct {
	mu       sync.Mutex
	canvas   *scene.Canvas
	last     []byte
	renders  int
	disposed bool
}

// NewPNGRenderer returns an idle PNG renderer.
func NewPNGRenderer() *PNGRenderer {
	return &PNGRenderer{canvas: scene.NewCanvas(0, 0)}
}

// SetSize sets the image size in pixels.
func (r *PNGRenderer) SetSize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canvas.Width, r.canvas.Height = width, height
}

// Canvas returns the output element.
func (r *PNGRenderer) Canvas() *scene.Canvas { return r.canvas }

// Dispose drops the last image. Render fails afterwards.
func (r *PNGRenderer) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disposed = true
	r.last = nil
}

// Bytes returns the most recent PNG, or nil before the first render.
func (r *PNGRenderer) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Renders returns the number of images produced.
func (r *PNGRenderer) Renders() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renders
}

// Render captures s and draws it from cam.
func (r *PNGRenderer) Render(s *scene.Scene, cam *scene.Camera) error {
	if cam == nil {
		return errors.New("png render: no camera")
	}
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return ErrDisposed
	}
	w, h := r.canvas.Width, r.canvas.Height
	r.mu.Unlock()
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}

	p, err := BuildPlot(Capture(s), *cam)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(vg.Length(w)*vg.Inch/pixelsPerInch, vg.Length(h)*vg.Inch/pixelsPerInch, "png")
	if err != nil {
		return fmt.Errorf("failed to create png writer: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return ErrDisposed
	}
	r.last = buf.Bytes()
	r.renders++
	return nil
}

// Triangle is a projected, shaded triangle ready to draw.
type Triangle struct {
	XYs   plotter.XYs
	Depth float64
	Color scene.Color
}

// lighting sums the frame's lights into an ambient term and one directional
// term. Without lights the scene is drawn unshaded.
type lighting struct {
	ambient     float64
	directional float64
	dir         r3.Vec
}

func lightsOf(f Frame) lighting {
	var l lighting
	for _, lt := range f.Lights {
		switch lt.Kind {
		case scene.AmbientLightNode:
			l.ambient += lt.Intensity
		case scene.DirectionalLightNode:
			if l.directional == 0 && r3.Norm(lt.Position) > 0 {
				l.directional = lt.Intensity
				l.dir = r3.Unit(lt.Position)
			}
		}
	}
	if l.ambient == 0 && l.directional == 0 {
		l.ambient = 1
	}
	return l
}

// shade returns the light factor for a face with normal n. Faces are double
// sided, so the normal's sign is ignored.
func (l lighting) shade(n r3.Vec) float64 {
	if l.directional == 0 || r3.Norm(n) == 0 {
		return math.Min(l.ambient, 1)
	}
	lambert := math.Abs(r3.Dot(r3.Unit(n), l.dir))
	return math.Min(l.ambient+l.directional*lambert, 1)
}

// ProjectTriangles projects every mesh triangle through cam and returns them
// sorted far to near. Triangles with a vertex outside the view range are dropped.
func ProjectTriangles(f Frame, cam scene.Camera) []Triangle {
	light := lightsOf(f)
	var out []Triangle
	for _, m := range f.Meshes {
		for i := 0; i+2 < len(m.Indices); i += 3 {
			idx := [3]int{int(m.Indices[i]), int(m.Indices[i+1]), int(m.Indices[i+2])}
			if idx[0] >= len(m.Positions) || idx[1] >= len(m.Positions) || idx[2] >= len(m.Positions) {
				continue
			}
			var t Triangle
			visible := true
			for _, k := range idx {
				x, y, d, ok := cam.Project(m.Positions[k])
				if !ok {
					visible = false
					break
				}
				t.XYs = append(t.XYs, plotter.XY{X: x, Y: y})
				t.Depth += d / 3
			}
			if !visible {
				continue
			}

			a, b, c := m.Positions[idx[0]], m.Positions[idx[1]], m.Positions[idx[2]]
			normal := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))

			base := m.Color
			if m.VertexColored() {
				base = averageColor(m.Colors[idx[0]], m.Colors[idx[1]], m.Colors[idx[2]])
			}
			t.Color = base.Scale(float32(light.shade(normal)))
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Depth > out[j].Depth })
	return out
}

func averageColor(cs ...scene.Color) scene.Color {
	var r, g, b float32
	for _, c := range cs {
		r += c.R
		g += c.G
		b += c.B
	}
	n := float32(len(cs))
	return scene.RGB(r/n, g/n, b/n)
}

// blend mixes c over bg with the given opacity.
func blend(c, bg scene.Color, opacity float64) scene.Color {
	if opacity >= 1 || opacity < 0 {
		return c
	}
	a := float32(opacity)
	return scene.RGB(c.R*a+bg.R*(1-a), c.G*a+bg.G*(1-a), c.B*a+bg.B*(1-a))
}

// BuildPlot draws f as seen from cam onto a plot spanning normalised device
// coordinates.
func BuildPlot(f Frame, cam scene.Camera) (*plot.Plot, error) {
	p := plot.New()
	p.HideAxes()
	p.BackgroundColor = f.Background

	for _, t := range ProjectTriangles(f, cam) {
		poly, err := plotter.NewPolygon(t.XYs)
		if err != nil {
			return nil, fmt.Errorf("failed to create polygon: %w", err)
		}
		poly.Color = t.Color
		poly.LineStyle.Width = 0
		p.Add(poly)
	}

	for _, l := range f.Lines {
		if err := addLine(p, l, f.Background, cam); err != nil {
			return nil, err
		}
	}

	if err := addLabels(p, f.Labels, cam); err != nil {
		return nil, err
	}

	p.X.Min, p.X.Max = -1, 1
	p.Y.Min, p.Y.Max = -1, 1
	return p, nil
}

func addLine(p *plot.Plot, l Polyline, bg scene.Color, cam scene.Camera) error {
	width := vg.Points(l.Width)
	if !l.Segments {
		// A strip is cut wherever a vertex leaves the view range.
		var run plotter.XYs
		flush := func() error {
			if len(run) >= 2 {
				line, err := plotter.NewLine(run)
				if err != nil {
					return fmt.Errorf("failed to create line: %w", err)
				}
				line.Color = blend(l.Color, bg, l.Opacity)
				line.Width = width
				p.Add(line)
			}
			run = nil
			return nil
		}
		for _, v := range l.Positions {
			x, y, _, ok := cam.Project(v)
			if !ok {
				if err := flush(); err != nil {
					return err
				}
				continue
			}
			run = append(run, plotter.XY{X: x, Y: y})
		}
		return flush()
	}

	for _, pair := range l.Pairs() {
		x0, y0, _, ok0 := cam.Project(l.Positions[pair[0]])
		x1, y1, _, ok1 := cam.Project(l.Positions[pair[1]])
		if !ok0 || !ok1 {
			continue
		}
		line, err := plotter.NewLine(plotter.XYs{{X: x0, Y: y0}, {X: x1, Y: y1}})
		if err != nil {
			return fmt.Errorf("failed to create segment: %w", err)
		}
		c := l.Color
		if len(l.Colors) > pair[1] {
			c = averageColor(l.Colors[pair[0]], l.Colors[pair[1]])
		}
		line.Color = blend(c, bg, l.Opacity)
		line.Width = width
		p.Add(line)
	}
	return nil
}

func addLabels(p *plot.Plot, labels []Label, cam scene.Camera) error {
	var xys plotter.XYs
	var texts []string
	var colors []color.Color
	for _, l := range labels {
		if l.Text == "" {
			continue
		}
		x, y, _, ok := cam.Project(l.Position)
		if !ok {
			continue
		}
		xys = append(xys, plotter.XY{X: x, Y: y})
		texts = append(texts, l.Text)
		colors = append(colors, l.Color)
	}
	if len(xys) == 0 {
		return nil
	}
	lbl, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
	if err != nil {
		return fmt.Errorf("failed to create labels: %w", err)
	}
	for i := range lbl.TextStyle {
		lbl.TextStyle[i].Color = colors[i]
	}
	p.Add(lbl)
	return nil
}
