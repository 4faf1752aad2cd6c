package scene

import "image"

// MaterialKind selects how a renderer shades a node.
type MaterialKind int

const (
	PhongMaterial     MaterialKind = 0 // lit, specular
	BasicMaterial     MaterialKind = 1 // unlit flat colour
	LineBasicMaterial MaterialKind = 2
	SpriteMaterial    MaterialKind = 3 // textured, camera facing
)

// Material describes surface appearance. A material may be shared between
// nodes; disposing it more than once is safe.
type Material struct {
	Kind         MaterialKind
	Color        Color
	VertexColors bool
	Opacity      float32
	Transparent  bool
	Shininess    float32
	DoubleSide   bool
	DepthTest    bool
	LineWidth    float32
	Texture      *image.RGBA

	disposed bool
}

// NewPhongMaterial returns a lit material using per-vertex colours.
func NewPhongMaterial(shininess float32) *Material {
	return &Material{Kind: PhongMaterial, Color: Color{R: 1, G: 1, B: 1}, VertexColors: true, Opacity: 1, Shininess: shininess, DoubleSide: true, DepthTest: true}
}

// NewBasicMaterial returns an unlit single colour material.
func NewBasicMaterial(c Color) *Material {
	return &Material{Kind: BasicMaterial, Color: c, Opacity: 1, DepthTest: true}
}

// NewLineMaterial returns a line material.
func NewLineMaterial(c Color, width float32) *Material {
	return &Material{Kind: LineBasicMaterial, Color: c, Opacity: 1, LineWidth: width, DepthTest: true}
}

// NewSpriteMaterial returns a sprite material drawn over everything else.
func NewSpriteMaterial(tex *image.RGBA) *Material {
	return &Material{Kind: SpriteMaterial, Color: Color{R: 1, G: 1, B: 1}, Opacity: 1, Texture: tex}
}

// Dispose releases the texture.
func (m *Material) Dispose() {
	if m == nil {
		return
	}
	m.Texture = nil
	m.disposed = true
}

// Disposed reports whether Dispose has been called.
func (m *Material) Disposed() bool {
	return m != nil && m.disposed
}
