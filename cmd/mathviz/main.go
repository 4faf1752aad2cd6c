package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/banshee-data/mathviz/internal/config"
	"github.com/banshee-data/mathviz/internal/httputil"
	"github.com/banshee-data/mathviz/internal/mathapi"
	"github.com/banshee-data/mathviz/internal/pages"
	"github.com/banshee-data/mathviz/internal/scene"
	"github.com/banshee-data/mathviz/internal/server"
	"github.com/banshee-data/mathviz/internal/stream"
	"github.com/banshee-data/mathviz/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to JSON config (defaults built in when empty)")
	listen      = flag.String("listen", "", "HTTP listen address (overrides config)")
	backend     = flag.String("backend", "", "Computation service base URL (overrides config)")
	grpcListen  = flag.String("grpc-listen", "", "gRPC listen address for live frames; empty disables streaming")
	liveRoute   = flag.String("live-route", "", "Route streamed over gRPC (overrides config)")
	liveRefresh = flag.Duration("live-refresh", 0, "Reload interval for the live page; 0 loads once")
	checkAPI    = flag.Bool("check-api", false, "Call the computation service test endpoint and exit")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// Main
func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	applyFlags(cfg)

	api := mathapi.NewClient(cfg.GetBackendURL(), httputil.NewTimeoutClient(cfg.GetRequestTimeout()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *checkAPI {
		body, err := api.TestConnection(ctx)
		if err != nil {
			log.Fatalf("computation service check failed: %v", err)
		}
		fmt.Println(string(body))
		return
	}

	log.Printf("%s starting, backend %s", version.String(), api.BaseURL())
	if err := run(ctx, cfg, api); err != nil {
		log.Fatalf("mathviz: %v", err)
	}
	log.Printf("Graceful shutdown complete")
}

// loadConfig reads path, or returns an empty config when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Empty(), nil
	}
	return config.Load(path)
}

// applyFlags overrides config values with any flags that were set.
func applyFlags(cfg *config.Config) {
	if *listen != "" {
		cfg.Listen = listen
	}
	if *backend != "" {
		cfg.BackendURL = backend
	}
	if *grpcListen != "" {
		cfg.GRPCListen = grpcListen
	}
	if *liveRoute != "" {
		cfg.LiveRoute = liveRoute
	}
}

// sceneConfig maps the file settings onto the view setup.
func sceneConfig(cfg *config.Config) scene.Config {
	sc := scene.DefaultConfig()
	sc.FOV = cfg.GetCameraFOV()
	sc.Near = cfg.GetCameraNear()
	sc.Far = cfg.GetCameraFar()
	sc.DampingFactor = cfg.GetDampingFactor()
	return sc
}

func defaults(cfg *config.Config) pages.Defaults {
	return pages.Defaults{Resolution: cfg.GetDefaultResolution(), Wireframe: cfg.GetShowWireframe()}
}

// run serves HTTP, and gRPC live frames when configured, until ctx ends.
func run(ctx context.Context, cfg *config.Config, api pages.Fetcher) error {
	var pub *stream.Publisher
	if addr := cfg.GetGRPCListen(); addr != "" {
		pub = stream.NewPublisher(stream.Config{
			ListenAddr: addr,
			Source:     cfg.GetLiveRoute(),
			MaxClients: stream.DefaultConfig().MaxClients,
			QueueSize:  stream.DefaultConfig().QueueSize,
		})
		if err := pub.Start(); err != nil {
			return fmt.Errorf("failed to start stream publisher: %w", err)
		}
		defer pub.Stop()
	}

	srv, err := server.New(server.Config{
		Address:    cfg.GetListen(),
		BackendURL: cfg.GetBackendURL(),
		API:        api,
		Scene:      sceneConfig(cfg),
		Defaults:   defaults(cfg),
		ViewWidth:  cfg.GetViewWidth(),
		ViewHeight: cfg.GetViewHeight(),
		Stream:     pub,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if pub != nil {
		live, err := newLive(cfg, api, pub)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			live.Run(ctx, *liveRefresh)
			log.Print("[Live] routine terminated")
		}()
	}

	err = srv.Start(ctx)
	cancel()
	wg.Wait()
	return err
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags]\n\nServes the math visualizations over HTTP.\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
}
