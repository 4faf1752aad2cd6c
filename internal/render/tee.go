package render

import (
	"errors"

	"github.com/banshee-data/mathviz/internal/scene"
)

// Tee fans every call out to a primary renderer and any number of
// secondaries. The primary's canvas is the one attached to the container.
type Tee struct {
	primary scene.Renderer
	others  []scene.Renderer
}

// NewTee returns a renderer driving primary and others together.
func NewTee(primary scene.Renderer, others ...scene.Renderer) *Tee {
	return &Tee{primary: primary, others: others}
}

func (t *Tee) all() []scene.Renderer {
	return append([]scene.Renderer{t.primary}, t.others...)
}

// SetSize resizes every renderer.
func (t *Tee) SetSize(width, height int) {
	for _, r := range t.all() {
		r.SetSize(width, height)
	}
}

// Render renders with every renderer, even after one fails, and joins the errors.
func (t *Tee) Render(s *scene.Scene, cam *scene.Camera) error {
	var errs []error
	for _, r := range t.all() {
		if err := r.Render(s, cam); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Canvas returns the primary renderer's canvas.
func (t *Tee) Canvas() *scene.Canvas { return t.primary.Canvas() }

// Dispose disposes every renderer.
func (t *Tee) Dispose() {
	for _, r := range t.all() {
		r.Dispose()
	}
}
