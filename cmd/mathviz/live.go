package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/banshee-data/mathviz/internal/config"
	"github.com/banshee-data/mathviz/internal/pages"
	"github.com/banshee-data/mathviz/internal/router"
	"github.com/banshee-data/mathviz/internal/scene"
	"github.com/banshee-data/mathviz/internal/stream"
)

// spinRate is the live camera's azimuthal speed in radians per frame.
const spinRate = 0.002

// live keeps one page mounted on a ticking scheduler and feeds every frame
// to the stream publisher.
type live struct {
	page     pages.Page
	frames   *scene.TickerFrames
	viewport *scene.Viewport
	params   pages.Params
}

func newLive(cfg *config.Config, api pages.Fetcher, pub *stream.Publisher) (*live, error) {
	route, ok := router.Lookup(cfg.GetLiveRoute())
	if !ok || route.Name == router.Home {
		return nil, fmt.Errorf("live route %q is not a visualization", cfg.GetLiveRoute())
	}
	frames := scene.NewTickerFrames(cfg.GetFrameRate())
	page, err := pages.New(route.Name, pages.Env{
		API:         api,
		Scene:       sceneConfig(cfg),
		Host:        scene.Host{Frames: frames},
		NewRenderer: func() scene.Renderer { return pub },
	})
	if err != nil {
		frames.Close()
		return nil, err
	}
	return &live{
		page:     page,
		frames:   frames,
		viewport: scene.NewViewport(cfg.GetViewWidth(), cfg.GetViewHeight()),
		params:   pages.ParseParams(nil, defaults(cfg)),
	}, nil
}

// managed is implemented by pages that expose their scene manager.
type managed interface {
	Manager() *scene.Manager
}

// Run mounts the page and reloads it every refresh until ctx ends. A zero
// refresh loads once.
func (l *live) Run(ctx context.Context, refresh time.Duration) {
	defer l.frames.Close()
	if err := l.page.Mount(l.viewport); err != nil {
		log.Printf("[Live] mount %s: %v", l.page.Name(), err)
		return
	}
	defer l.page.Unmount()

	if m, ok := l.page.(managed); ok {
		if mgr := m.Manager(); mgr != nil {
			controls := mgr.Controls()
			mgr.SetCustomUpdateFunction(func() { controls.Rotate(spinRate, 0) })
		}
	}

	l.load(ctx)
	if refresh <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.load(ctx)
		}
	}
}

func (l *live) load(ctx context.Context) {
	err := l.page.Load(ctx, l.params)
	switch {
	case err == nil:
		log.Printf("[Live] %s loaded", l.page.Name())
	case errors.Is(err, context.Canceled), errors.Is(err, pages.ErrStaleLoad):
	default:
		log.Printf("[Live] %s load failed: %v", l.page.Name(), err)
	}
}
