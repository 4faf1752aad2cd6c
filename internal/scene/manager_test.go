package scene

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/mathviz/internal/monitoring"
)

type fixture struct {
	vp       *Viewport
	frames   *ManualFrames
	renderer *RecordingRenderer
	mgr      *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	orig := monitoring.Logf
	monitoring.SetLogger(t.Logf)
	t.Cleanup(func() { monitoring.Logf = orig })

	f := &fixture{
		vp:       NewViewport(800, 600),
		frames:   NewManualFrames(),
		renderer: NewRecordingRenderer(),
	}
	f.mgr = NewManager(DefaultConfig(), Host{Frames: f.frames}, f.vp, f.renderer)
	return f
}

func (f *fixture) step() { f.frames.Step(time.Now()) }

func TestNewManager_Initialises(t *testing.T) {
	f := newFixture(t)

	require.True(t, f.mgr.Ready())
	assert.True(t, f.mgr.Running())
	assert.Equal(t, 1, f.vp.ChildCount(), "canvas must be mounted")
	assert.Equal(t, 1, f.vp.ListenerCount(), "resize listener must be registered")
	assert.Equal(t, 1, f.frames.Pending())

	s := f.mgr.Scene()
	assert.Equal(t, 1, s.CountKind(AmbientLightNode))
	assert.Equal(t, 1, s.CountKind(DirectionalLightNode))

	cam, ok := f.mgr.Camera()
	require.True(t, ok)
	assert.Equal(t, 75.0, cam.FOV)
	assert.Equal(t, 0.1, cam.Near)
	assert.Equal(t, 1000.0, cam.Far)
	assert.InDelta(t, 800.0/600.0, cam.Aspect, 1e-9)
	assert.Equal(t, r3.Vec{X: 10, Y: 10, Z: 10}, cam.Position)

	w, h := f.renderer.Size()
	assert.Equal(t, [2]int{800, 600}, [2]int{w, h})

	ctl := f.mgr.Controls()
	assert.True(t, ctl.EnableDamping)
	assert.Equal(t, 0.05, ctl.DampingFactor)
}

func TestManager_NilContainer(t *testing.T) {
	orig := monitoring.Logf
	monitoring.SetLogger(t.Logf)
	defer func() { monitoring.Logf = orig }()

	m := NewManager(DefaultConfig(), Host{}, nil, NewRecordingRenderer())
	assert.False(t, m.Ready())
	assert.Nil(t, m.Scene())

	m.AddAxes(5)
	m.AdjustCameraPosition(5)
	assert.ErrorIs(t, m.RenderNow(), ErrNotInitialized)
	m.Clear()

	o := m.NewOwner("orphan")
	assert.False(t, o.Add(NewSprite(nil)))
}

func TestManager_AnimateRendersEachFrame(t *testing.T) {
	f := newFixture(t)
	f.step()
	f.step()
	f.step()
	assert.Equal(t, 3, f.renderer.Renders())
	assert.Equal(t, uint64(3), f.mgr.FrameCount())
}

func TestManager_RenderErrorKeepsLoop(t *testing.T) {
	f := newFixture(t)
	f.renderer.Err = errors.New("gpu lost")
	f.step()
	assert.Equal(t, 1, f.frames.Pending(), "loop must continue after a render error")
	assert.Equal(t, uint64(0), f.mgr.FrameCount())
}

func TestManager_CustomUpdateReplaced(t *testing.T) {
	f := newFixture(t)
	var first, second int
	f.mgr.SetCustomUpdateFunction(func() { first++ })
	f.mgr.SetCustomUpdateFunction(func() { second++ })
	f.step()
	f.step()
	assert.Equal(t, 0, first)
	assert.Equal(t, 2, second)

	f.mgr.SetCustomUpdateFunction(nil)
	f.step()
	assert.Equal(t, 2, second)
}

func TestManager_CustomUpdateMayCallManager(t *testing.T) {
	f := newFixture(t)
	f.mgr.SetCustomUpdateFunction(func() { f.mgr.AdjustCameraPosition(4) })
	f.step()
	cam, _ := f.mgr.Camera()
	assert.Equal(t, r3.Vec{X: 2, Y: 2, Z: 2}, cam.Position)
}

func TestManager_Resize(t *testing.T) {
	f := newFixture(t)
	f.vp.Resize(1000, 500)

	cam, _ := f.mgr.Camera()
	assert.InDelta(t, 2.0, cam.Aspect, 1e-9)
	w, h := f.renderer.Size()
	assert.Equal(t, [2]int{1000, 500}, [2]int{w, h})
}

func TestManager_AdjustCameraPosition(t *testing.T) {
	f := newFixture(t)
	f.mgr.AdjustCameraPosition(10)
	cam, _ := f.mgr.Camera()
	assert.Equal(t, r3.Vec{X: 5, Y: 5, Z: 5}, cam.Position)
	assert.Equal(t, r3.Vec{}, cam.Target)
}

func TestManager_AddAxesReplaces(t *testing.T) {
	f := newFixture(t)
	f.mgr.AddAxes(5)
	firstLabels := f.mgr.AxisLabels()
	require.Len(t, firstLabels, 3)

	f.mgr.AddAxes(8)
	s := f.mgr.Scene()
	assert.Equal(t, 1, s.CountKind(AxesHelperNode))
	assert.Equal(t, 3, s.CountKind(SpriteNode))
	for _, l := range firstLabels {
		assert.False(t, s.Contains(l), "stale label %s left in scene", l.Name)
		assert.True(t, l.Material.Disposed())
	}

	labels := f.mgr.AxisLabels()
	assert.Equal(t, r3.Vec{X: 9}, labels[0].Position)
	assert.Equal(t, r3.Vec{Y: 9}, labels[1].Position)
	assert.Equal(t, r3.Vec{Z: 9}, labels[2].Position)
	assert.InDelta(t, 0.8, labels[0].Scale.Y, 1e-9)
	assert.Greater(t, labels[0].Scale.X, 0.0)
}

func TestManager_ClearStopsLoop(t *testing.T) {
	f := newFixture(t)
	f.mgr.AddAxes(5)
	owner := f.mgr.NewOwner("surface")
	mesh := NewMesh(SphereGeometry(1, 8, 8), NewPhongMaterial(30))
	require.True(t, owner.Add(mesh))
	scene := f.mgr.Scene()

	f.step()
	require.Equal(t, 1, f.renderer.Renders())

	f.mgr.Clear()

	f.step()
	f.step()
	assert.Equal(t, 1, f.renderer.Renders(), "no frame may render after Clear")
	assert.Equal(t, 0, f.frames.Pending())
	assert.Equal(t, 0, f.vp.ChildCount(), "canvas must be detached")
	assert.Equal(t, 0, f.vp.ListenerCount())
	assert.True(t, f.renderer.Disposed())
	assert.True(t, mesh.Geometry.Disposed())
	assert.Equal(t, 0, scene.Len())
	assert.True(t, scene.Closed())
	assert.False(t, f.mgr.Ready())

	assert.NotPanics(t, f.mgr.Clear)
	assert.False(t, owner.Add(NewMesh(SphereGeometry(1, 4, 4), NewBasicMaterial(Hex(0)))))
}

func TestManager_InitializeTwice(t *testing.T) {
	f := newFixture(t)
	f.mgr.Initialize(NewRecordingRenderer())
	assert.Equal(t, 1, f.vp.ChildCount())
	assert.Equal(t, 1, f.frames.Pending())
}

func TestManager_RenderNow(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.mgr.RenderNow())
	assert.Equal(t, 1, f.renderer.Renders())
	assert.Equal(t, 2, f.renderer.LastNodeCount())
}
