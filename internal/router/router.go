// Package router holds the static table mapping URL paths to visualization pages.
package router

// Route names, used by pages and the HTTP server.
const (
	Home            = "Home"
	GradientDescent = "GradientDescent"
	ConvexFunction  = "ConvexFunction"
	SaddleFunction  = "SaddleFunction"
	FFT             = "FFT"
	Fractal         = "Fractal"
	MonteCarlo      = "MonteCarlo"
)

// Route pairs a path with the page name it selects.
type Route struct {
	Path  string
	Name  string
	Title string
}

var routes = []Route{
	{Path: "/", Name: Home, Title: "Home"},
	{Path: "/gradient-descent", Name: GradientDescent, Title: "Gradient Descent"},
	{Path: "/convex-function", Name: ConvexFunction, Title: "Convex Function"},
	{Path: "/saddle-function", Name: SaddleFunction, Title: "Saddle Function"},
	{Path: "/FFT", Name: FFT, Title: "Fast Fourier Transform"},
	{Path: "/fractal", Name: Fractal, Title: "Fractal"},
	{Path: "/monte-carlo", Name: MonteCarlo, Title: "Monte Carlo Sampling"},
}

// Routes returns a copy of the route table in declaration order.
func Routes() []Route {
	return append([]Route(nil), routes...)
}

// Lookup finds the route for an exact path. Paths are case sensitive and
// there is no catch-all.
func Lookup(path string) (Route, bool) {
	for _, r := range routes {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

// PathFor returns the path registered for a page name.
func PathFor(name string) (string, bool) {
	for _, r := range routes {
		if r.Name == name {
			return r.Path, true
		}
	}
	return "", false
}
