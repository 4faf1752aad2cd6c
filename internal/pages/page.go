// Package pages implements one controller per visualization route. A page
// owns a scene.Manager while mounted, fetches its data from the computation
// service and fills the scene through the surface and descent builders.
package pages

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/mathviz/internal/geom"
	"github.com/banshee-data/mathviz/internal/mathapi"
	"github.com/banshee-data/mathviz/internal/monitoring"
	"github.com/banshee-data/mathviz/internal/scene"
)

const (
	MinResolution = 1
	MaxResolution = mathapi.MaxResolution
)

var (
	// ErrNotMounted is returned by Load and Render on a page without a scene.
	ErrNotMounted = errors.New("page is not mounted")
	// ErrAlreadyMounted is returned by a second Mount before Unmount.
	ErrAlreadyMounted = errors.New("page is already mounted")
	// ErrStaleLoad reports a load superseded by a newer Load or by Unmount.
	// Its response was discarded without touching the scene.
	ErrStaleLoad = errors.New("load superseded")
	// ErrUnknownPage is returned by New for a name with no page.
	ErrUnknownPage = errors.New("unknown page")
)

// Page is the lifecycle of one visualization view.
type Page interface {
	Name() string
	// Mount binds a fresh scene to container.
	Mount(container scene.Container) error
	// Load fetches data for params and rebuilds the scene contents.
	Load(ctx context.Context, params Params) error
	// Render draws one frame on demand.
	Render() error
	// Unmount tears the scene down and invalidates in-flight loads.
	Unmount()
}

// Fetcher is the subset of the computation client the pages use.
type Fetcher interface {
	FetchSurface(ctx context.Context, endpoint string, resolution int, params url.Values) (*geom.SurfaceData, error)
	FetchDescent(ctx context.Context, endpoint string, resolution int, params url.Values) (*geom.DescentData, error)
	FetchPoints(ctx context.Context, endpoint string, params url.Values) ([]geom.Point3D, error)
}

// Env carries the dependencies shared by every page.
type Env struct {
	API   Fetcher
	Scene scene.Config
	// Host is copied per mount. A nil Frames gives each mount its own
	// manual scheduler.
	Host scene.Host
	// NewRenderer returns the renderer bound to one mount.
	NewRenderer func() scene.Renderer
}

// Params are the user controls of a page.
type Params struct {
	Resolution int
	Wireframe  bool
	// Extra is forwarded to the backend as query parameters.
	Extra url.Values
}

// Defaults seeds ParseParams.
type Defaults struct {
	Resolution int
	Wireframe  bool
}

// ClampResolution limits r to [MinResolution, MaxResolution].
func ClampResolution(r int) int {
	if r < MinResolution {
		return MinResolution
	}
	if r > MaxResolution {
		return MaxResolution
	}
	return r
}

// ParseParams reads resolution and wireframe from q. Every other key except
// format is forwarded to the backend unchanged.
func ParseParams(q url.Values, d Defaults) Params {
	p := Params{
		Resolution: ClampResolution(d.Resolution),
		Wireframe:  d.Wireframe,
		Extra:      url.Values{},
	}
	for k, vs := range q {
		switch k {
		case "resolution":
			if n, err := strconv.Atoi(q.Get(k)); err == nil {
				p.Resolution = ClampResolution(n)
			}
		case "wireframe":
			if b, err := strconv.ParseBool(q.Get(k)); err == nil {
				p.Wireframe = b
			}
		case "format":
		default:
			p.Extra[k] = append([]string(nil), vs...)
		}
	}
	return p
}

// base holds the mount state and load tokens shared by every scene page.
type base struct {
	name string
	env  Env

	mu         sync.Mutex
	mgr        *scene.Manager
	token      uuid.UUID
	loadCancel context.CancelFunc

	// onMount builds the page's collaborators against a fresh manager.
	onMount func(mgr *scene.Manager)
	// onUnmount drops them before the manager is cleared.
	onUnmount func()
}

func (b *base) Name() string { return b.name }

func (b *base) Mount(container scene.Container) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mgr != nil {
		return ErrAlreadyMounted
	}
	if b.env.NewRenderer == nil {
		return fmt.Errorf("%s: no renderer factory", b.name)
	}
	r := b.env.NewRenderer()
	mgr := scene.NewManager(b.env.Scene, b.env.Host, container, r)
	if !mgr.Ready() {
		if r != nil {
			r.Dispose()
		}
		return fmt.Errorf("%s: %w", b.name, scene.ErrNotInitialized)
	}
	b.mgr = mgr
	if b.onMount != nil {
		b.onMount(mgr)
	}
	return nil
}

// begin issues a new load token and cancels the previous load's context.
func (b *base) begin(ctx context.Context) (uuid.UUID, context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mgr == nil {
		return uuid.Nil, nil, ErrNotMounted
	}
	if b.loadCancel != nil {
		b.loadCancel()
	}
	lctx, cancel := context.WithCancel(ctx)
	b.token = uuid.New()
	b.loadCancel = cancel
	return b.token, lctx, nil
}

// current reports whether tok is still the latest load on a mounted page.
func (b *base) current(tok uuid.UUID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mgr != nil && b.token == tok
}

// commit runs apply against the live manager if tok is still current.
// The mount lock is held for the duration, so Unmount waits for it.
func (b *base) commit(tok uuid.UUID, apply func(mgr *scene.Manager)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mgr == nil || b.token != tok {
		monitoring.Logf("[Pages] %s: dropping stale load %s", b.name, tok)
		return ErrStaleLoad
	}
	apply(b.mgr)
	if b.loadCancel != nil {
		b.loadCancel()
		b.loadCancel = nil
	}
	return nil
}

// fail maps a fetch error onto ErrStaleLoad when tok was superseded while
// the request was in flight.
func (b *base) fail(tok uuid.UUID, err error) error {
	if !b.current(tok) {
		monitoring.Logf("[Pages] %s: dropping stale load %s: %v", b.name, tok, err)
		return ErrStaleLoad
	}
	return fmt.Errorf("%s: %w", b.name, err)
}

func (b *base) Render() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mgr == nil {
		return ErrNotMounted
	}
	return b.mgr.RenderNow()
}

func (b *base) Unmount() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loadCancel != nil {
		b.loadCancel()
		b.loadCancel = nil
	}
	b.token = uuid.Nil
	if b.mgr == nil {
		return
	}
	if b.onUnmount != nil {
		b.onUnmount()
	}
	b.mgr.Clear()
	b.mgr = nil
}

// Manager returns the mounted manager, or nil.
func (b *base) Manager() *scene.Manager {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mgr
}

// fit aims the camera and sizes the axes for data spanning rng. The camera
// range is rng·cameraDistance, so it sits at 1.5·rng on each axis; axes get
// size rng+2. A non-positive rng uses defaultRange.
func fit(mgr *scene.Manager, rng float64) {
	if rng <= 0 {
		rng = defaultRange
	}
	mgr.AdjustCameraPosition(rng * cameraDistance)
	mgr.AddAxes(rng)
}

const (
	defaultRange   = 5
	cameraDistance = 3
)
