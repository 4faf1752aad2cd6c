// Package scene owns the retained-mode scene graph and the lifecycle of the
// rendering context bound to one container: camera, controls, lights, axes,
// the per-frame loop, resize handling and teardown.
//
// Every node enters the scene through an Owner. The Manager keeps the list of
// owners it handed out, and Clear releases each of them, so teardown never
// depends on walking the graph or on tags stored on nodes.
package scene

import (
	"fmt"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/mathviz/internal/label"
	"github.com/banshee-data/mathviz/internal/monitoring"
)

// Config holds the camera, light and control parameters of a Manager.
type Config struct {
	FOV  float64 // vertical field of view, degrees
	Near float64
	Far  float64

	Background     Color
	CameraPosition r3.Vec

	EnableDamping bool
	DampingFactor float64

	AmbientIntensity     float64
	DirectionalIntensity float64
	DirectionalPosition  r3.Vec

	// LabelScale enlarges the bitmap font used for axis labels.
	LabelScale int
}

// DefaultConfig returns the standard view setup.
func DefaultConfig() Config {
	return Config{
		FOV:                  75,
		Near:                 0.1,
		Far:                  1000,
		Background:           Hex(0xf0f0f0),
		CameraPosition:       r3.Vec{X: 10, Y: 10, Z: 10},
		EnableDamping:        true,
		DampingFactor:        0.05,
		AmbientIntensity:     0.6,
		DirectionalIntensity: 1.0,
		DirectionalPosition:  r3.Vec{X: 5, Y: 10, Z: 7.5},
		LabelScale:           4,
	}
}

// Host supplies the frame and resize primitives of the environment.
// A nil Window falls back to the container when it implements Window.
type Host struct {
	Frames FrameScheduler
	Window Window
}

// Manager owns exactly one live rendering context bound to one container.
type Manager struct {
	cfg       Config
	host      Host
	container Container

	mu       sync.Mutex
	scene    *Scene
	camera   *Camera
	renderer Renderer
	controls *OrbitControls

	lights *Owner
	axes   *Owner
	owners []*Owner

	axesHelper *Node
	axisLabels []*Node

	running  bool
	frameID  FrameID
	resizeID ListenerID
	resizeOn bool
	update   func()
	frames   uint64
}

// NewManager creates a Manager and initialises it against container.
func NewManager(cfg Config, host Host, container Container, renderer Renderer) *Manager {
	m := &Manager{cfg: cfg, host: host, container: container}
	m.Initialize(renderer)
	return m
}

// Initialize builds the scene, camera, renderer binding, controls and lights,
// registers the resize handler and starts the frame loop. A missing container
// or renderer is logged and leaves the Manager inert.
func (m *Manager) Initialize(renderer Renderer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.scene != nil {
		monitoring.Warnf("Scene", "manager already initialised")
		return
	}
	if m.container == nil {
		monitoring.Errorf("Scene", "container is not defined")
		return
	}
	if renderer == nil {
		monitoring.Errorf("Scene", "renderer is not defined")
		return
	}
	if m.host.Frames == nil {
		m.host.Frames = NewManualFrames()
	}
	if m.host.Window == nil {
		if w, ok := m.container.(Window); ok {
			m.host.Window = w
		}
	}

	width, height := m.container.ClientSize()
	if width <= 0 || height <= 0 {
		monitoring.Warnf("Scene", "container has zero size (%dx%d)", width, height)
	}

	m.scene = NewScene(m.cfg.Background)

	m.camera = NewPerspectiveCamera(m.cfg.FOV, aspect(width, height), m.cfg.Near, m.cfg.Far)
	m.camera.Position = m.cfg.CameraPosition
	m.camera.LookAt(r3.Vec{})

	m.renderer = renderer
	m.renderer.SetSize(width, height)
	m.container.AppendChild(m.renderer.Canvas())

	m.controls = NewOrbitControls(m.camera)
	m.controls.EnableDamping = m.cfg.EnableDamping
	m.controls.DampingFactor = m.cfg.DampingFactor

	m.lights = NewOwner("lights", m.scene)
	m.axes = NewOwner("axes", m.scene)
	m.addLights()

	if m.host.Window != nil {
		m.resizeID = m.host.Window.AddResizeListener(m.handleResize)
		m.resizeOn = true
	}

	m.running = true
	m.frameID = m.host.Frames.RequestFrame(m.animate)
}

func aspect(width, height int) float64 {
	if height <= 0 {
		return 1
	}
	return float64(width) / float64(height)
}

func (m *Manager) addLights() {
	white := Color{R: 1, G: 1, B: 1}
	m.lights.Add(NewAmbientLight(white, m.cfg.AmbientIntensity))
	m.lights.Add(NewDirectionalLight(white, m.cfg.DirectionalIntensity, m.cfg.DirectionalPosition))
}

func (m *Manager) handleResize() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.container == nil || m.camera == nil || m.renderer == nil {
		return
	}
	width, height := m.container.ClientSize()
	m.camera.Aspect = aspect(width, height)
	m.renderer.SetSize(width, height)
}

// animate runs once per display frame while the loop is running.
func (m *Manager) animate(time.Time) {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.controls.Update()
	fn := m.update
	m.mu.Unlock()

	// The user callback runs unlocked so it may call back into the Manager.
	if fn != nil {
		fn()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	if err := m.renderLocked(); err != nil {
		monitoring.Errorf("Scene", "render failed: %v", err)
	}
	m.frameID = m.host.Frames.RequestFrame(m.animate)
}

func (m *Manager) renderLocked() error {
	if m.renderer == nil || m.scene == nil || m.camera == nil {
		return nil
	}
	cam := *m.camera
	if err := m.renderer.Render(m.scene, &cam); err != nil {
		return err
	}
	m.frames++
	return nil
}

// RenderNow renders one frame immediately, outside the frame loop.
func (m *Manager) RenderNow() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scene == nil {
		return fmt.Errorf("render: %w", ErrNotInitialized)
	}
	return m.renderLocked()
}

// SetCustomUpdateFunction registers fn to run every frame before rendering,
// replacing any previous callback. nil removes it.
func (m *Manager) SetCustomUpdateFunction(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.update = fn
}

// AdjustCameraPosition moves the camera onto the (1,1,1) diagonal at
// range/2 on each axis and re-aims it at the origin.
func (m *Manager) AdjustCameraPosition(rng float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.camera == nil {
		return
	}
	f := rng * 0.5
	m.camera.Position = r3.Vec{X: f, Y: f, Z: f}
	m.camera.LookAt(r3.Vec{})
}

// AddAxes replaces the axes helper and the X/Y/Z label sprites with ones
// sized to rng.
func (m *Manager) AddAxes(rng float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scene == nil {
		return
	}

	m.axes.ReleaseAll()
	m.axesHelper = nil
	m.axisLabels = nil

	m.axesHelper = NewAxesHelper(rng + 2)
	m.axes.Add(m.axesHelper)

	d := rng + 1
	size := rng * 0.1
	m.axisLabels = []*Node{
		m.textLabel("X", r3.Vec{X: d}, Hex(0xff0000), size),
		m.textLabel("Y", r3.Vec{Y: d}, Hex(0x00ff00), size),
		m.textLabel("Z", r3.Vec{Z: d}, Hex(0x0000ff), size),
	}
}

func (m *Manager) textLabel(text string, pos r3.Vec, c Color, size float64) *Node {
	tex := label.Rasterize(text, c, m.cfg.LabelScale)
	sprite := NewSprite(NewSpriteMaterial(tex))
	sprite.Name = "axis-label-" + text
	sprite.Text = text
	sprite.Position = pos
	sprite.Scale = r3.Vec{X: size * label.Aspect(tex), Y: size, Z: 1}
	m.axes.Add(sprite)
	return sprite
}

// NewOwner hands out a registry for a collaborator's nodes. Clear releases it.
// On an uninitialised Manager the owner has no scene and drops every Add.
func (m *Manager) NewOwner(name string) *Owner {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := NewOwner(name, m.scene)
	if m.scene != nil {
		m.owners = append(m.owners, o)
	}
	return o
}

// Ready reports whether the Manager holds a live scene.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scene != nil
}

// Scene returns the live scene, or nil before initialisation and after Clear.
func (m *Manager) Scene() *Scene {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scene
}

// Camera returns a copy of the camera state.
func (m *Manager) Camera() (Camera, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.camera == nil {
		return Camera{}, false
	}
	return *m.camera, true
}

// Controls returns the orbit controls for input wiring.
func (m *Manager) Controls() *OrbitControls {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.controls
}

// Running reports whether the frame loop is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// FrameCount returns the number of frames rendered successfully.
func (m *Manager) FrameCount() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}

// AxisLabels returns the current axis label sprites.
func (m *Manager) AxisLabels() []*Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Node, len(m.axisLabels))
	copy(out, m.axisLabels)
	return out
}

// Clear stops the frame loop, removes the resize listener, releases every
// owned node, disposes the renderer and detaches its canvas. Later calls,
// and every other method afterwards, are no-ops.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scene == nil {
		return
	}

	m.running = false
	m.host.Frames.CancelFrame(m.frameID)
	m.frameID = 0

	if m.resizeOn && m.host.Window != nil {
		m.host.Window.RemoveResizeListener(m.resizeID)
		m.resizeOn = false
	}

	released := m.lights.ReleaseAll() + m.axes.ReleaseAll()
	for _, o := range m.owners {
		released += o.ReleaseAll()
	}
	m.scene.close()

	if m.renderer != nil {
		canvas := m.renderer.Canvas()
		m.renderer.Dispose()
		if m.container != nil && m.container.Contains(canvas) {
			m.container.RemoveChild(canvas)
		}
	}
	monitoring.Logf("[Scene] cleared: released %d nodes from %d owners", released, len(m.owners)+2)

	m.scene = nil
	m.camera = nil
	m.renderer = nil
	m.controls = nil
	m.lights = nil
	m.axes = nil
	m.owners = nil
	m.axesHelper = nil
	m.axisLabels = nil
	m.update = nil
}
