// Package label rasterises short text strings into RGBA textures for
// camera-facing sprites (axis names, step indices).
package label

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Padding is the transparent border, in unscaled pixels, around the glyphs.
const Padding = 2

// Rasterize draws text in colour c on a transparent background. The glyphs
// come from the fixed 7x13 bitmap face and are enlarged by scale (at least 1)
// with nearest-neighbour sampling so edges stay crisp.
func Rasterize(text string, c color.Color, scale int) *image.RGBA {
	if scale < 1 {
		scale = 1
	}
	face := basicfont.Face7x13

	w := font.MeasureString(face, text).Ceil() + 2*Padding
	h := face.Height + 2*Padding
	if w <= 2*Padding {
		w = 2*Padding + 1
	}

	small := image.NewRGBA(image.Rect(0, 0, w, h))
	d := &font.Drawer{
		Dst:  small,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(Padding, Padding+face.Ascent),
	}
	d.DrawString(text)

	if scale == 1 {
		return small
	}
	big := image.NewRGBA(image.Rect(0, 0, w*scale, h*scale))
	draw.NearestNeighbor.Scale(big, big.Bounds(), small, small.Bounds(), draw.Over, nil)
	return big
}

// Aspect returns width/height of a rasterised label.
func Aspect(img *image.RGBA) float64 {
	if img == nil {
		return 1
	}
	b := img.Bounds()
	if b.Dy() == 0 {
		return 1
	}
	return float64(b.Dx()) / float64(b.Dy())
}

// Coverage returns the number of pixels with non-zero alpha.
func Coverage(img *image.RGBA) int {
	if img == nil {
		return 0
	}
	n := 0
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			n++
		}
	}
	return n
}

// Ink returns the colour of the most opaque pixel, which for a rasterised
// label is the text colour. A blank image yields opaque black.
func Ink(img *image.RGBA) color.RGBA {
	best := -1
	var alpha uint8
	if img != nil {
		for i := 3; i < len(img.Pix); i += 4 {
			if img.Pix[i] > alpha {
				alpha, best = img.Pix[i], i-3
			}
		}
	}
	if best < 0 {
		return color.RGBA{A: 0xff}
	}
	px := img.Pix[best : best+4]
	unmul := func(v uint8) uint8 { return uint8(uint16(v) * 0xff / uint16(alpha)) }
	return color.RGBA{R: unmul(px[0]), G: unmul(px[1]), B: unmul(px[2]), A: 0xff}
}
