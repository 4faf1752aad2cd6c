// Package descent renders an ordered sequence of iterates, such as the steps
// of a gradient descent run, as a polyline with per-step markers and labels.
package descent

import (
	"strconv"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/mathviz/internal/geom"
	"github.com/banshee-data/mathviz/internal/label"
	"github.com/banshee-data/mathviz/internal/monitoring"
	"github.com/banshee-data/mathviz/internal/scene"
)

const (
	markerSegments = 12
	labelOffset    = 0.1
	labelScale     = 4
)

// PathOptions controls how a path is drawn.
type PathOptions struct {
	LineColor  scene.Color
	LineWidth  float32
	PointColor scene.Color
	PointSize  float64
	ShowPoints bool
	// HideLine draws markers only, for unordered samples.
	HideLine bool
}

// DefaultPathOptions returns orange line and markers with markers shown.
func DefaultPathOptions() PathOptions {
	return PathOptions{
		LineColor:  scene.Hex(0xff8800),
		LineWidth:  3,
		PointColor: scene.Hex(0xff8800),
		PointSize:  0.1,
		ShowPoints: true,
	}
}

// PathResult describes what VisualizePath added.
type PathResult struct {
	Points  []r3.Vec
	Line    *scene.Node
	Markers []*scene.Node
}

// Path holds at most one visualised path and its step labels.
type Path struct {
	mgr   *scene.Manager
	owner *scene.Owner

	line    *scene.Node
	markers []*scene.Node
	labels  []*scene.Node
}

// New returns a Path drawing into mgr's scene.
func New(mgr *scene.Manager) *Path {
	p := &Path{mgr: mgr}
	if mgr != nil {
		p.owner = mgr.NewOwner("descent")
	}
	return p
}

func (p *Path) ready() bool {
	return p.mgr != nil && p.mgr.Ready() && p.owner != nil
}

// VisualizePath replaces the current path with one through data, in order.
// It returns nil, leaving the scene untouched, when the scene is not ready or
// data is empty.
func (p *Path) VisualizePath(data []geom.Point3D, opts PathOptions) *PathResult {
	if !p.ready() || len(data) == 0 {
		monitoring.Warnf("Descent", "scene not ready or no path data to visualize")
		return nil
	}

	p.ClearPath()

	points := geom.RemapAll(data)
	res := &PathResult{Points: points}

	if !opts.HideLine {
		p.line = scene.NewLine(scene.LineGeometry(points), scene.NewLineMaterial(opts.LineColor, opts.LineWidth))
		p.line.Name = "descent-path"
		p.owner.Add(p.line)
		res.Line = p.line
	}

	if opts.ShowPoints {
		size := opts.PointSize
		if size <= 0 {
			size = DefaultPathOptions().PointSize
		}
		mat := scene.NewBasicMaterial(opts.PointColor)
		for _, pt := range points {
			sphere := scene.NewMesh(scene.SphereGeometry(size, markerSegments, markerSegments), mat)
			sphere.Name = "descent-step"
			sphere.Position = pt
			p.owner.Add(sphere)
			p.markers = append(p.markers, sphere)
		}
		res.Markers = append([]*scene.Node(nil), p.markers...)
	}
	return res
}

// AddStepLabel adds a sprite showing the 0-based step index slightly above
// position (render space).
func (p *Path) AddStepLabel(position r3.Vec, index int, size float64, color scene.Color) *scene.Node {
	if !p.ready() {
		return nil
	}
	if size <= 0 {
		size = 0.1
	}
	text := strconv.Itoa(index)
	tex := label.Rasterize(text, color, labelScale)
	sprite := scene.NewSprite(scene.NewSpriteMaterial(tex))
	sprite.Name = "step-label"
	sprite.Text = text
	sprite.Position = r3.Add(position, r3.Vec{Y: labelOffset})
	sprite.Scale = r3.Vec{X: size, Y: size, Z: 1}
	p.owner.Add(sprite)
	p.labels = append(p.labels, sprite)
	return sprite
}

// LabelSteps adds a step label for every point of res.
func (p *Path) LabelSteps(res *PathResult, size float64, color scene.Color) {
	if res == nil {
		return
	}
	for i, pt := range res.Points {
		p.AddStepLabel(pt, i, size, color)
	}
}

// ClearPath releases the line, markers and step labels. Safe to repeat.
func (p *Path) ClearPath() {
	if p.line != nil {
		p.owner.Release(p.line)
		p.line = nil
	}
	for _, n := range p.markers {
		p.owner.Release(n)
	}
	p.markers = nil
	for _, n := range p.labels {
		p.owner.Release(n)
	}
	p.labels = nil
}

// Dispose releases everything the Path owns.
func (p *Path) Dispose() {
	p.ClearPath()
}

// Line returns the current polyline, or nil.
func (p *Path) Line() *scene.Node { return p.line }

// Markers returns the current step markers.
func (p *Path) Markers() []*scene.Node { return append([]*scene.Node(nil), p.markers...) }

// Labels returns the current step labels.
func (p *Path) Labels() []*scene.Node { return append([]*scene.Node(nil), p.labels...) }
