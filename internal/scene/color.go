package scene

import "fmt"

// Color is a linear RGB triple with components in [0, 1].
type Color struct {
	R, G, B float32
}

// Hex builds a Color from a 0xRRGGBB literal.
func Hex(v uint32) Color {
	return Color{
		R: float32((v>>16)&0xff) / 255,
		G: float32((v>>8)&0xff) / 255,
		B: float32(v&0xff) / 255,
	}
}

// RGB builds a Color from float components.
func RGB(r, g, b float32) Color {
	return Color{R: r, G: g, B: b}
}

// Hex returns the colour as a CSS "#rrggbb" string.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", to8(c.R), to8(c.G), to8(c.B))
}

// RGBA implements color.Color so a Color can be used as an image source.
func (c Color) RGBA() (r, g, b, a uint32) {
	r = uint32(to8(c.R)) * 0x101
	g = uint32(to8(c.G)) * 0x101
	b = uint32(to8(c.B)) * 0x101
	return r, g, b, 0xffff
}

// Scale multiplies every component by f, clamping to [0, 1].
func (c Color) Scale(f float32) Color {
	return Color{R: clamp01(c.R * f), G: clamp01(c.G * f), B: clamp01(c.B * f)}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func to8(v float32) uint8 {
	return uint8(clamp01(v)*255 + 0.5)
}
