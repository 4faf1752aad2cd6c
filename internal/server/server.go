// Package server exposes every visualization route over HTTP. Each request
// mounts the route's page on a headless viewport, loads it with the query
// parameters, renders one frame and writes the result.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net"
	"net/http"
	nethttputil "net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/banshee-data/mathviz/internal/httputil"
	"github.com/banshee-data/mathviz/internal/pages"
	"github.com/banshee-data/mathviz/internal/render"
	"github.com/banshee-data/mathviz/internal/router"
	"github.com/banshee-data/mathviz/internal/scene"
	"github.com/banshee-data/mathviz/internal/stream"
	"github.com/banshee-data/mathviz/internal/version"
)

//go:embed home.html
var homeHTML embed.FS

const (
	FormatHTML = "html"
	FormatPNG  = "png"
)

// errInternal marks failures that are not the backend's fault.
var errInternal = errors.New("internal error")

// Config contains configuration options for the web server.
type Config struct {
	Address string
	// BackendURL is the computation service the /api/ prefix is proxied to.
	BackendURL string
	API        pages.Fetcher
	Scene      scene.Config
	Defaults   pages.Defaults
	ViewWidth  int
	ViewHeight int
	// Stream, when set, exposes its counters on /stream/stats.
	Stream *stream.Publisher
}

// Server handles the HTTP interface.
type Server struct {
	cfg    Config
	server *http.Server
	proxy  *nethttputil.ReverseProxy
	home   *template.Template
}

// New creates a server with the provided configuration.
func New(cfg Config) (*Server, error) {
	if cfg.API == nil {
		return nil, errors.New("server: no computation client")
	}
	if cfg.ViewWidth <= 0 {
		cfg.ViewWidth = 800
	}
	if cfg.ViewHeight <= 0 {
		cfg.ViewHeight = 600
	}
	target, err := url.Parse(cfg.BackendURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", cfg.BackendURL, err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q: scheme and host required", cfg.BackendURL)
	}
	home, err := template.ParseFS(homeHTML, "home.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse home template: %w", err)
	}

	s := &Server{cfg: cfg, home: home, proxy: newProxy(target)}
	s.server = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// newProxy forwards requests to target with the path kept and the Host
// header rewritten to the target's.
func newProxy(target *url.URL) *nethttputil.ReverseProxy {
	return &nethttputil.ReverseProxy{
		Rewrite: func(pr *nethttputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.Host = target.Host
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Printf("[Server] proxy %s: %v", r.URL.Path, err)
			httputil.BadGateway(w, "computation service unavailable")
		},
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", s.proxy)
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.cfg.Stream != nil {
		mux.HandleFunc("/stream/stats", s.handleStreamStats)
	}
	mux.HandleFunc("/", s.handlePage)
	return mux
}

// Start begins the HTTP server in a goroutine and blocks until ctx is
// cancelled, then shuts the server down.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Server] listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Println("[Server] shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Server] shutdown error: %v", err)
		if err := s.server.Close(); err != nil {
			log.Printf("[Server] force close error: %v", err)
		}
	}

	log.Printf("[Server] HTTP server routine stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"service":   "mathviz",
		"version":   version.Version,
		"git_sha":   version.GitSHA,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStreamStats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.cfg.Stream.Stats())
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		httputil.MethodNotAllowed(w)
		return
	}
	route, ok := router.Lookup(r.URL.Path)
	if !ok {
		httputil.NotFound(w, fmt.Sprintf("no page at %s", r.URL.Path))
		return
	}
	if route.Name == router.Home {
		s.writeHome(w)
		return
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = FormatHTML
	}
	if format != FormatHTML && format != FormatPNG {
		httputil.BadRequest(w, fmt.Sprintf("unsupported format %q", format))
		return
	}

	body, err := s.RenderPage(r.Context(), route, format, r.URL.Query())
	if err != nil {
		s.writeError(w, route, err)
		return
	}
	contentType := "text/html; charset=utf-8"
	if format == FormatPNG {
		contentType = "image/png"
	}
	httputil.WriteBody(w, contentType, body)
}

// output is the part of a renderer the server reads the frame back from.
type output interface {
	scene.Renderer
	Bytes() []byte
}

// RenderPage mounts route's page, loads it with q and returns one frame in
// format. The page is unmounted before returning.
func (s *Server) RenderPage(ctx context.Context, route router.Route, format string, q url.Values) ([]byte, error) {
	var out output
	switch format {
	case FormatPNG:
		out = render.NewPNGRenderer()
	default:
		out = render.NewHTMLRenderer(route.Title)
	}

	env := pages.Env{
		API:         s.cfg.API,
		Scene:       s.cfg.Scene,
		NewRenderer: func() scene.Renderer { return out },
	}
	page, err := pages.New(route.Name, env)
	if err != nil {
		return nil, err
	}
	if err := page.Mount(scene.NewViewport(s.cfg.ViewWidth, s.cfg.ViewHeight)); err != nil {
		return nil, fmt.Errorf("%w: %w", errInternal, err)
	}
	defer page.Unmount()

	if err := page.Load(ctx, pages.ParseParams(q, s.cfg.Defaults)); err != nil {
		return nil, err
	}
	if err := page.Render(); err != nil {
		return nil, fmt.Errorf("%w: %s: render: %w", errInternal, route.Name, err)
	}
	body := out.Bytes()
	if body == nil {
		return nil, fmt.Errorf("%w: %s: renderer produced no output", errInternal, route.Name)
	}
	return body, nil
}

func (s *Server) writeError(w http.ResponseWriter, route router.Route, err error) {
	var statusErr *httputil.StatusError
	switch {
	case errors.Is(err, errInternal):
		log.Printf("[Server] %s: %v", route.Path, err)
		httputil.InternalServerError(w, "failed to render page")
	case errors.Is(err, context.Canceled):
		log.Printf("[Server] %s: client went away", route.Path)
	case errors.As(err, &statusErr):
		log.Printf("[Server] %s: backend returned %d", route.Path, statusErr.StatusCode)
		httputil.BadGateway(w, fmt.Sprintf("computation service returned %d", statusErr.StatusCode))
	case errors.Is(err, context.DeadlineExceeded):
		log.Printf("[Server] %s: backend timed out", route.Path)
		httputil.WriteJSONError(w, http.StatusGatewayTimeout, "computation service timed out")
	default:
		log.Printf("[Server] %s: %v", route.Path, err)
		httputil.BadGateway(w, err.Error())
	}
}

func (s *Server) writeHome(w http.ResponseWriter) {
	data := struct {
		Title   string
		Links   []router.Route
		Version string
	}{
		Title:   "Math Visualizations",
		Links:   pages.NewHome().Links(),
		Version: version.String(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.home.Execute(w, data); err != nil {
		log.Printf("[Server] home template: %v", err)
	}
}
