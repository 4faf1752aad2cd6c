package surface

import (
	"github.com/banshee-data/mathviz/internal/geom"
	"github.com/banshee-data/mathviz/internal/monitoring"
	"github.com/banshee-data/mathviz/internal/scene"
)

const (
	// DefaultMarkerSize is the radius of the special point marker.
	DefaultMarkerSize = 0.15
	surfaceShininess  = 30
	wireframeOpacity  = 0.25
)

// DefaultMarkerColor is the special point marker colour.
var DefaultMarkerColor = scene.Hex(0xff0000)

// Visualization holds at most one surface, wireframe and marker in a scene.
// Calls must not overlap: each build runs to completion before the next.
type Visualization struct {
	mgr   *scene.Manager
	owner *scene.Owner

	surface   *scene.Node
	wireframe *scene.Node
	marker    *scene.Node
}

// New returns a Visualization drawing into mgr's scene.
func New(mgr *scene.Manager) *Visualization {
	v := &Visualization{mgr: mgr}
	if mgr != nil {
		v.owner = mgr.NewOwner("surface")
	}
	return v
}

func (v *Visualization) ready() bool {
	return v.mgr != nil && v.mgr.Ready() && v.owner != nil
}

// CreateSurface replaces the current surface with one built from points.
// Missing scene or data is logged and ignored.
func (v *Visualization) CreateSurface(points []geom.Point3D, resolution int, showWireframe bool, mode ColorMode) {
	if !v.ready() || len(points) == 0 {
		monitoring.Warnf("Surface", "scene or points data not available for surface creation")
		return
	}
	if err := geom.CheckGrid(points, resolution); err != nil {
		monitoring.Warnf("Surface", "building partial surface: %v", err)
	}

	v.ClearSurface()

	g := BuildGeometry(points, resolution, mode)
	v.surface = scene.NewMesh(g, scene.NewPhongMaterial(surfaceShininess))
	v.surface.Name = "surface"
	v.owner.Add(v.surface)

	if showWireframe {
		mat := scene.NewLineMaterial(scene.Hex(0x000000), 1)
		mat.Opacity = wireframeOpacity
		mat.Transparent = true
		v.wireframe = scene.NewLineSegments(scene.WireframeGeometry(g), mat)
		v.wireframe.Name = "wireframe"
		v.owner.Add(v.wireframe)
	}
}

// AddSpecialPointMarker replaces the marker with a sphere of radius size at
// the remapped position.
func (v *Visualization) AddSpecialPointMarker(position geom.Point3D, size float64, color scene.Color) {
	if !v.ready() {
		return
	}
	if v.marker != nil {
		v.owner.Release(v.marker)
		v.marker = nil
	}
	if size <= 0 {
		size = DefaultMarkerSize
	}
	v.marker = scene.NewMesh(scene.SphereGeometry(size, 16, 16), scene.NewBasicMaterial(color))
	v.marker.Name = "special-point"
	v.marker.Position = geom.Remap(position)
	v.owner.Add(v.marker)
}

// ClearSurface releases the surface, wireframe and marker. Safe to repeat.
func (v *Visualization) ClearSurface() {
	for _, n := range []*scene.Node{v.surface, v.wireframe, v.marker} {
		if n != nil {
			v.owner.Release(n)
		}
	}
	v.surface, v.wireframe, v.marker = nil, nil, nil
}

// Dispose releases everything the Visualization owns.
func (v *Visualization) Dispose() {
	v.ClearSurface()
}

// Surface returns the current surface mesh, or nil.
func (v *Visualization) Surface() *scene.Node { return v.surface }

// Wireframe returns the current wireframe overlay, or nil.
func (v *Visualization) Wireframe() *scene.Node { return v.wireframe }

// Marker returns the current special point marker, or nil.
func (v *Visualization) Marker() *scene.Node { return v.marker }
