package render

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/mathviz/internal/scene"
)

// ErrDisposed is returned by Render after Dispose.
var ErrDisposed = errors.New("renderer disposed")

// rampStops is the number of colours sampled from a surface for its visual map.
const rampStops = 10

// HTMLRenderer renders each frame to a self-contained echarts-gl page.
// Surfaces become Surface3D charts, polylines Line3D, and markers and labels
// Scatter3D. Line segment overlays (wireframe, axes helper) are left to the
// chart's own grid.
type HTMLRenderer struct {
	mu       sync.Mutex
	title    string
	canvas   *scene.Canvas
	last     []byte
	renders  int
	disposed bool
}

// NewHTMLRenderer returns a renderer whose pages carry title.
func NewHTMLRenderer(title string) *HTMLRenderer {
	return &HTMLRenderer{title: title, canvas: scene.NewCanvas(0, 0)}
}

// SetSize sets the chart size in pixels.
func (r *HTMLRenderer) SetSize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canvas.Width, r.canvas.Height = width, height
}

// Canvas returns the output element.
func (r *HTMLRenderer) Canvas() *scene.Canvas { return r.canvas }

// Dispose drops the last page. Render fails afterwards.
func (r *HTMLRenderer) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disposed = true
	r.last = nil
}

// Bytes returns the most recent page, or nil before the first render.
func (r *HTMLRenderer) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Renders returns the number of pages produced.
func (r *HTMLRenderer) Renders() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renders
}

// Render captures s and rebuilds the page. The camera is not used: the page
// carries its own interactive view.
func (r *HTMLRenderer) Render(s *scene.Scene, _ *scene.Camera) error {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return ErrDisposed
	}
	w, h, title := r.canvas.Width, r.canvas.Height, r.title
	r.mu.Unlock()

	page := BuildPage(Capture(s), title, w, h)
	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
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

// chartValue maps render space (Y up) onto the chart's axes (Z up).
func chartValue(v r3.Vec) []interface{} {
	return []interface{}{v.X, v.Z, v.Y}
}

func px(n, fallback int) string {
	if n <= 0 {
		n = fallback
	}
	return fmt.Sprintf("%dpx", n)
}

func globalOpts(title, subtitle string, width, height int) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: px(width, 900), Height: px(height, 700)}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxis3DOpts(opts.XAxis3D{Name: "x"}),
		charts.WithYAxis3DOpts(opts.YAxis3D{Name: "y"}),
		charts.WithZAxis3DOpts(opts.ZAxis3D{Name: "z"}),
	}
}

// BuildPage lays out one chart per drawable kind present in f.
func BuildPage(f Frame, title string, width, height int) *components.Page {
	page := components.NewPage()
	page.PageTitle = title

	for _, m := range f.Meshes {
		if !m.VertexColored() || len(m.Positions) == 0 {
			continue
		}
		page.AddCharts(surfaceChart(m, title, width, height))
	}

	if len(f.Lines) > 0 {
		line := charts.NewLine3D()
		line.SetGlobalOptions(globalOpts(title, "paths", width, height)...)
		n := 0
		for _, l := range f.Lines {
			if l.Segments || len(l.Positions) == 0 {
				continue
			}
			data := make([]opts.Chart3DData, len(l.Positions))
			for i, p := range l.Positions {
				data[i] = opts.Chart3DData{Value: chartValue(p)}
			}
			line.AddSeries(seriesName(l.Name, l.ID), data, charts.WithItemStyleOpts(opts.ItemStyle{Color: l.Color.Hex()}))
			n++
		}
		if n > 0 {
			page.AddCharts(line)
		}
	}

	points := make([]opts.Chart3DData, 0)
	for _, m := range f.Meshes {
		if m.VertexColored() {
			continue
		}
		points = append(points, opts.Chart3DData{
			Name:      seriesName(m.Name, m.ID),
			Value:     chartValue(centroid(m.Positions)),
			ItemStyle: &opts.ItemStyle{Color: m.Color.Hex()},
		})
	}
	for _, l := range f.Labels {
		points = append(points, opts.Chart3DData{
			Name:      l.Text,
			Value:     chartValue(l.Position),
			ItemStyle: &opts.ItemStyle{Color: l.Color.Hex()},
		})
	}
	scatter := charts.NewScatter3D()
	scatter.SetGlobalOptions(globalOpts(title, fmt.Sprintf("markers=%d", len(points)), width, height)...)
	scatter.AddSeries("markers", points)
	page.AddCharts(scatter)

	return page
}

func surfaceChart(m Mesh, title string, width, height int) *charts.Surface3D {
	minH, maxH := m.Positions[0].Y, m.Positions[0].Y
	data := make([]opts.Chart3DData, len(m.Positions))
	for i, p := range m.Positions {
		data[i] = opts.Chart3DData{Value: chartValue(p)}
		if p.Y < minH {
			minH = p.Y
		}
		if p.Y > maxH {
			maxH = p.Y
		}
	}

	surf := charts.NewSurface3D()
	surf.SetGlobalOptions(append(globalOpts(title, fmt.Sprintf("vertices=%d triangles=%d", len(m.Positions), len(m.Indices)/3), width, height),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(minH),
			Max:        float32(maxH),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: HeightRamp(m, rampStops)},
		}),
	)...)
	surf.AddSeries(seriesName(m.Name, m.ID), data)
	return surf
}

// HeightRamp samples n vertex colours of m ordered by height, lowest first,
// so the chart's visual map reproduces the mesh's colour mode.
func HeightRamp(m Mesh, n int) []string {
	if len(m.Colors) == 0 || n <= 0 {
		return nil
	}
	order := make([]int, len(m.Colors))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return m.Positions[order[a]].Y < m.Positions[order[b]].Y
	})
	if n > len(order) {
		n = len(order)
	}
	out := make([]string, n)
	for i := range out {
		idx := 0
		if n > 1 {
			idx = i * (len(order) - 1) / (n - 1)
		}
		out[i] = m.Colors[order[idx]].Hex()
	}
	return out
}

func centroid(ps []r3.Vec) r3.Vec {
	if len(ps) == 0 {
		return r3.Vec{}
	}
	var sum r3.Vec
	for _, p := range ps {
		sum = r3.Add(sum, p)
	}
	return r3.Scale(1/float64(len(ps)), sum)
}

func seriesName(name, id string) string {
	if name != "" {
		return name
	}
	return id
}
