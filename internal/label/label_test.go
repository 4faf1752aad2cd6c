package label

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRasterize_Size(t *testing.T) {
	img := Rasterize("X", color.White, 1)
	require.NotNil(t, img)
	// 7px advance per glyph, 13px line height, plus padding on both sides
	assert.Equal(t, 7+2*Padding, img.Bounds().Dx())
	assert.Equal(t, 13+2*Padding, img.Bounds().Dy())
}

func TestRasterize_Scale(t *testing.T) {
	small := Rasterize("12", color.White, 1)
	big := Rasterize("12", color.White, 4)
	assert.Equal(t, small.Bounds().Dx()*4, big.Bounds().Dx())
	assert.Equal(t, small.Bounds().Dy()*4, big.Bounds().Dy())
	assert.InDelta(t, Aspect(small), Aspect(big), 1e-9)
}

func TestRasterize_DrawsGlyphs(t *testing.T) {
	img := Rasterize("7", color.RGBA{R: 255, A: 255}, 1)
	assert.Greater(t, Coverage(img), 0, "expected some opaque pixels")

	blank := Rasterize("", color.White, 1)
	assert.Equal(t, 0, Coverage(blank))
}

func TestAspect_Nil(t *testing.T) {
	assert.Equal(t, 1.0, Aspect(nil))
}

func TestInk(t *testing.T) {
	img := Rasterize("7", color.RGBA{R: 0xff, G: 0x88, A: 0xff}, 1)
	assert.Equal(t, color.RGBA{R: 0xff, G: 0x88, A: 0xff}, Ink(img))
	assert.Equal(t, color.RGBA{A: 0xff}, Ink(nil))
	assert.Equal(t, color.RGBA{A: 0xff}, Ink(image.NewRGBA(image.Rect(0, 0, 2, 2))))
}
