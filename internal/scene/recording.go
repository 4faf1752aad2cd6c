package scene

import (
	"errors"
	"sync"
)

// RecordingRenderer is a Renderer that draws nothing and records each call.
// Tests and dry runs use it in place of a real output.
type RecordingRenderer struct {
	mu       sync.Mutex
	canvas   *Canvas
	renders  int
	lastSize [2]int
	lastNode int
	disposed bool

	// Err, when set, is returned from every Render.
	Err error
}

// NewRecordingRenderer returns an idle recorder.
func NewRecordingRenderer() *RecordingRenderer {
	return &RecordingRenderer{canvas: NewCanvas(0, 0)}
}

// SetSize records the requested size.
func (r *RecordingRenderer) SetSize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSize = [2]int{width, height}
	r.canvas.Width, r.canvas.Height = width, height
}

// Render counts the call and the number of nodes drawn.
func (r *RecordingRenderer) Render(s *Scene, _ *Camera) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return errors.New("render after dispose")
	}
	if r.Err != nil {
		return r.Err
	}
	r.renders++
	s.Read(func(nodes []*Node) { r.lastNode = len(nodes) })
	return nil
}

// Canvas returns the output element.
func (r *RecordingRenderer) Canvas() *Canvas { return r.canvas }

// Dispose marks the renderer unusable.
func (r *RecordingRenderer) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disposed = true
}

// Renders returns the number of successful Render calls.
func (r *RecordingRenderer) Renders() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renders
}

// Size returns the last size passed to SetSize.
func (r *RecordingRenderer) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSize[0], r.lastSize[1]
}

// LastNodeCount returns how many nodes the last Render saw.
func (r *RecordingRenderer) LastNodeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastNode
}

// Disposed reports whether Dispose was called.
func (r *RecordingRenderer) Disposed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disposed
}
