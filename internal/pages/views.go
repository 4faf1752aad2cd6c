package pages

import (
	"context"
	"fmt"

	"github.com/banshee-data/mathviz/internal/descent"
	"github.com/banshee-data/mathviz/internal/geom"
	"github.com/banshee-data/mathviz/internal/mathapi"
	"github.com/banshee-data/mathviz/internal/router"
	"github.com/banshee-data/mathviz/internal/scene"
	"github.com/banshee-data/mathviz/internal/surface"
)

// New returns the page registered under a router name.
func New(name string, env Env) (Page, error) {
	switch name {
	case router.Home:
		return NewHome(), nil
	case router.GradientDescent:
		return NewGradientDescent(env), nil
	case router.ConvexFunction:
		return NewSurfacePage(router.ConvexFunction, mathapi.EndpointConvex, surface.ColorConvex, true, env), nil
	case router.SaddleFunction:
		return NewSurfacePage(router.SaddleFunction, mathapi.EndpointSaddle, surface.ColorSaddle, true, env), nil
	case router.Fractal:
		return NewSurfacePage(router.Fractal, mathapi.EndpointFractal, surface.ColorDefault, false, env), nil
	case router.FFT:
		return NewPointsPage(router.FFT, mathapi.EndpointFFT, fftOptions(), env), nil
	case router.MonteCarlo:
		return NewPointsPage(router.MonteCarlo, mathapi.EndpointMonteCarlo, monteCarloOptions(), env), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPage, name)
}

// Home is the landing page. It has no scene.
type Home struct{}

// NewHome returns the landing page.
func NewHome() *Home { return &Home{} }

func (*Home) Name() string { return router.Home }
func (*Home) Mount(scene.Container) error { return nil }
func (*Home) Load(context.Context, Params) error { return nil }
func (*Home) Render() error { return nil }
func (*Home) Unmount() {}

// Links lists every visualization route the landing page points to.
func (*Home) Links() []router.Route {
	var out []router.Route
	for _, r := range router.Routes() {
		if r.Name != router.Home {
			out = append(out, r)
		}
	}
	return out
}

// SurfacePage draws a sampled surface and, when the backend sends one, a
// marker on its distinguished point.
type SurfacePage struct {
	*base
	endpoint string
	mode     surface.ColorMode
	marker   bool

	viz *surface.Visualization
}

// NewSurfacePage returns a surface page fetching from endpoint.
func NewSurfacePage(name, endpoint string, mode surface.ColorMode, marker bool, env Env) *SurfacePage {
	p := &SurfacePage{
		base:     &base{name: name, env: env},
		endpoint: endpoint,
		mode:     mode,
		marker:   marker,
	}
	p.onMount = func(mgr *scene.Manager) { p.viz = surface.New(mgr) }
	p.onUnmount = func() {
		p.viz.Dispose()
		p.viz = nil
	}
	return p
}

// Load fetches the surface at params.Resolution and rebuilds it.
func (p *SurfacePage) Load(ctx context.Context, params Params) error {
	tok, lctx, err := p.begin(ctx)
	if err != nil {
		return err
	}
	data, err := p.env.API.FetchSurface(lctx, p.endpoint, params.Resolution, params.Extra)
	if err != nil {
		return p.fail(tok, err)
	}
	return p.commit(tok, func(mgr *scene.Manager) {
		p.viz.CreateSurface(data.Points, data.Resolution, params.Wireframe, p.mode)
		if p.marker && data.Special != nil {
			p.viz.AddSpecialPointMarker(*data.Special, surface.DefaultMarkerSize, surface.DefaultMarkerColor)
		}
		fit(mgr, geom.Extent(data.Points))
	})
}

// Visualization returns the mounted surface builder, or nil.
func (p *SurfacePage) Visualization() *surface.Visualization {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viz
}

// GradientDescentPage draws the convex surface a descent ran on, the path
// of iterates and a label on every step.
type GradientDescentPage struct {
	*base
	viz  *surface.Visualization
	path *descent.Path
}

// NewGradientDescent returns the gradient descent page.
func NewGradientDescent(env Env) *GradientDescentPage {
	p := &GradientDescentPage{base: &base{name: router.GradientDescent, env: env}}
	p.onMount = func(mgr *scene.Manager) {
		p.viz = surface.New(mgr)
		p.path = descent.New(mgr)
	}
	p.onUnmount = func() {
		p.path.Dispose()
		p.viz.Dispose()
		p.path, p.viz = nil, nil
	}
	return p
}

// Load fetches one descent run and rebuilds surface, path and labels.
func (p *GradientDescentPage) Load(ctx context.Context, params Params) error {
	tok, lctx, err := p.begin(ctx)
	if err != nil {
		return err
	}
	data, err := p.env.API.FetchDescent(lctx, mathapi.EndpointGradientDescent, params.Resolution, params.Extra)
	if err != nil {
		return p.fail(tok, err)
	}
	return p.commit(tok, func(mgr *scene.Manager) {
		if len(data.Surface) > 0 {
			p.viz.CreateSurface(data.Surface, data.Resolution, params.Wireframe, surface.ColorConvex)
		} else {
			p.viz.ClearSurface()
		}
		opts := descent.DefaultPathOptions()
		if res := p.path.VisualizePath(data.Path, opts); res != nil {
			p.path.LabelSteps(res, opts.PointSize, opts.PointColor)
		} else {
			p.path.ClearPath()
		}
		fit(mgr, geom.Extent(append(append([]geom.Point3D(nil), data.Surface...), data.Path...)))
	})
}

// Path returns the mounted path builder, or nil.
func (p *GradientDescentPage) Path() *descent.Path {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.path
}

// Visualization returns the mounted surface builder, or nil.
func (p *GradientDescentPage) Visualization() *surface.Visualization {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viz
}

// PointsPage draws a bare point sequence, as a polyline or as scattered markers.
type PointsPage struct {
	*base
	endpoint string
	opts     descent.PathOptions

	path *descent.Path
}

func fftOptions() descent.PathOptions {
	o := descent.DefaultPathOptions()
	o.LineColor = scene.Hex(0x1e88e5)
	o.ShowPoints = false
	return o
}

func monteCarloOptions() descent.PathOptions {
	o := descent.DefaultPathOptions()
	o.PointColor = scene.Hex(0x43a047)
	o.PointSize = 0.05
	o.HideLine = true
	return o
}

// NewPointsPage returns a page drawing the points from endpoint with opts.
func NewPointsPage(name, endpoint string, opts descent.PathOptions, env Env) *PointsPage {
	p := &PointsPage{
		base:     &base{name: name, env: env},
		endpoint: endpoint,
		opts:     opts,
	}
	p.onMount = func(mgr *scene.Manager) { p.path = descent.New(mgr) }
	p.onUnmount = func() {
		p.path.Dispose()
		p.path = nil
	}
	return p
}

// Load fetches the points and redraws them. The resolution is forwarded as
// the sample count.
func (p *PointsPage) Load(ctx context.Context, params Params) error {
	tok, lctx, err := p.begin(ctx)
	if err != nil {
		return err
	}
	q := cloneQuery(params.Extra)
	if q.Get("samples") == "" {
		q.Set("samples", fmt.Sprint(params.Resolution))
	}
	pts, err := p.env.API.FetchPoints(lctx, p.endpoint, q)
	if err != nil {
		return p.fail(tok, err)
	}
	return p.commit(tok, func(mgr *scene.Manager) {
		if p.path.VisualizePath(pts, p.opts) == nil {
			p.path.ClearPath()
		}
		fit(mgr, geom.Extent(pts))
	})
}

// Path returns the mounted path builder, or nil.
func (p *PointsPage) Path() *descent.Path {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.path
}
