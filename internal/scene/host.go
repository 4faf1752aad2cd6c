package scene

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Canvas is the output element a Renderer draws into.
type Canvas struct {
	ID     string
	Width  int
	Height int
}

// NewCanvas returns a canvas with a fresh ID.
func NewCanvas(width, height int) *Canvas {
	return &Canvas{ID: uuid.NewString(), Width: width, Height: height}
}

// Container is the element a Manager mounts its canvas into.
type Container interface {
	ClientSize() (width, height int)
	AppendChild(c *Canvas)
	RemoveChild(c *Canvas)
	Contains(c *Canvas) bool
}

// ListenerID identifies a registered resize listener.
type ListenerID uint64

// Window delivers resize notifications.
type Window interface {
	AddResizeListener(fn func()) ListenerID
	RemoveResizeListener(id ListenerID)
}

// Renderer draws a scene as seen by a camera.
type Renderer interface {
	SetSize(width, height int)
	Render(s *Scene, cam *Camera) error
	Canvas() *Canvas
	Dispose()
}

// Viewport is a headless Container and Window with a settable size.
type Viewport struct {
	mu        sync.Mutex
	width     int
	height    int
	children  []*Canvas
	listeners map[ListenerID]func()
	nextID    ListenerID
}

// NewViewport returns a viewport of the given client size.
func NewViewport(width, height int) *Viewport {
	return &Viewport{width: width, height: height, listeners: make(map[ListenerID]func())}
}

// ClientSize returns the current size.
func (v *Viewport) ClientSize() (int, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.width, v.height
}

// AppendChild mounts c.
func (v *Viewport) AppendChild(c *Canvas) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.children = append(v.children, c)
}

// RemoveChild unmounts c if present.
func (v *Viewport) RemoveChild(c *Canvas) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, child := range v.children {
		if child == c {
			v.children = append(v.children[:i], v.children[i+1:]...)
			return
		}
	}
}

// Contains reports whether c is mounted.
func (v *Viewport) Contains(c *Canvas) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, child := range v.children {
		if child == c {
			return true
		}
	}
	return false
}

// ChildCount returns the number of mounted canvases.
func (v *Viewport) ChildCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.children)
}

// AddResizeListener registers fn to run after every Resize.
func (v *Viewport) AddResizeListener(fn func()) ListenerID {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nextID++
	v.listeners[v.nextID] = fn
	return v.nextID
}

// RemoveResizeListener unregisters a listener.
func (v *Viewport) RemoveResizeListener(id ListenerID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.listeners, id)
}

// ListenerCount returns the number of registered resize listeners.
func (v *Viewport) ListenerCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.listeners)
}

// Resize changes the client size and notifies listeners.
func (v *Viewport) Resize(width, height int) {
	v.mu.Lock()
	v.width, v.height = width, height
	fns := make([]func(), 0, len(v.listeners))
	for _, fn := range v.listeners {
		fns = append(fns, fn)
	}
	v.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// FrameID identifies a pending frame request.
type FrameID uint64

// FrameScheduler runs callbacks once on the next display frame.
type FrameScheduler interface {
	RequestFrame(fn func(now time.Time)) FrameID
	CancelFrame(id FrameID)
}

// ManualFrames is a FrameScheduler advanced explicitly with Step. Headless
// snapshots and tests use it to run an exact number of frames.
type ManualFrames struct {
	mu      sync.Mutex
	nextID  FrameID
	pending map[FrameID]func(time.Time)
	order   []FrameID
}

// NewManualFrames returns an idle scheduler.
func NewManualFrames() *ManualFrames {
	return &ManualFrames{pending: make(map[FrameID]func(time.Time))}
}

// RequestFrame queues fn for the next Step.
func (f *ManualFrames) RequestFrame(fn func(now time.Time)) FrameID {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.pending[f.nextID] = fn
	f.order = append(f.order, f.nextID)
	return f.nextID
}

// CancelFrame drops a queued callback.
func (f *ManualFrames) CancelFrame(id FrameID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, id)
}

// Pending returns the number of queued callbacks.
func (f *ManualFrames) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// Step runs every callback queued before the call and returns how many ran.
// Callbacks queued while stepping run on the next Step.
func (f *ManualFrames) Step(now time.Time) int {
	f.mu.Lock()
	order := f.order
	f.order = nil
	fns := make([]func(time.Time), 0, len(order))
	for _, id := range order {
		if fn, ok := f.pending[id]; ok {
			fns = append(fns, fn)
			delete(f.pending, id)
		}
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(now)
	}
	return len(fns)
}

// TickerFrames steps a ManualFrames from a background ticker at a fixed rate.
type TickerFrames struct {
	*ManualFrames

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewTickerFrames starts a scheduler firing fps times per second.
func NewTickerFrames(fps float64) *TickerFrames {
	if fps <= 0 {
		fps = 60
	}
	t := &TickerFrames{ManualFrames: NewManualFrames(), stopCh: make(chan struct{})}
	interval := time.Duration(float64(time.Second) / fps)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-t.stopCh:
				return
			case now := <-ticker.C:
				t.Step(now)
			}
		}
	}()
	return t
}

// Close stops the ticker and waits for the running frame to finish.
func (t *TickerFrames) Close() {
	t.once.Do(func() { close(t.stopCh) })
	t.wg.Wait()
}
