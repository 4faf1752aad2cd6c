package surface

import (
	"math"

	"github.com/banshee-data/mathviz/internal/geom"
	"github.com/banshee-data/mathviz/internal/scene"
)

// ColorMode selects the height-to-colour mapping.
type ColorMode string

const (
	ColorConvex  ColorMode = "convex"
	ColorSaddle  ColorMode = "saddle"
	ColorDefault ColorMode = ""
)

// ParseColorMode maps a name to a ColorMode. Unknown names give ColorDefault.
func ParseColorMode(s string) ColorMode {
	switch ColorMode(s) {
	case ColorConvex, ColorSaddle:
		return ColorMode(s)
	default:
		return ColorDefault
	}
}

// PointColor returns the vertex colour for p. It depends only on p.Z and mode.
//
// convex: height normalised to [0,1] over [-10, 10], ramping blue→green over
// the lower half and green→red over the upper half.
// saddle: negative heights go blue and positive heights go red, with the
// intensity saturating at |z| = 10.
// Anything else is flat gray.
func PointColor(p geom.Point3D, mode ColorMode) scene.Color {
	switch mode {
	case ColorConvex:
		n := math.Max(0, math.Min(1, (p.Z+10)/20))
		if n < 0.5 {
			return scene.RGB(0, float32(n*2), float32(1-n*2))
		}
		return scene.RGB(float32((n-0.5)*2), float32(1-(n-0.5)*2), 0)
	case ColorSaddle:
		if p.Z < 0 {
			i := math.Min(1, math.Abs(p.Z)/10)
			return scene.RGB(float32(0.2*(1-i)), float32(0.5*(1-i)), float32(i))
		}
		i := math.Min(1, p.Z/10)
		return scene.RGB(float32(i), float32(0.2*(1-i)), float32(0.2*(1-i)))
	default:
		return scene.RGB(0.5, 0.5, 0.5)
	}
}

// Ramp returns n colour stops sampled across the height range [-10, 10] for
// mode, lowest first. Renderers that colour by height use it for legends and
// visual maps.
func Ramp(mode ColorMode, n int) []scene.Color {
	if n < 2 {
		n = 2
	}
	out := make([]scene.Color, n)
	for i := range out {
		z := -10 + 20*float64(i)/float64(n-1)
		out[i] = PointColor(geom.Point3D{Z: z}, mode)
	}
	return out
}
