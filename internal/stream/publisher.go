// Package stream provides gRPC streaming of rendered scene frames to live
// viewers. The Publisher is itself a scene.Renderer: attached to a Manager
// (directly or through render.Tee) it captures every frame the loop draws
// and broadcasts it to the connected clients.
package stream

import (
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/mathviz/internal/render"
	"github.com/banshee-data/mathviz/internal/scene"
)

// Config holds configuration for the stream gRPC server.
type Config struct {
	// ListenAddr is the address to listen on (e.g., "localhost:50051")
	ListenAddr string

	// Source names the page being streamed.
	Source string

	// MaxClients is the maximum number of concurrent streaming clients
	MaxClients int

	// QueueSize bounds the broadcast queue and each client's queue.
	QueueSize int
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		ListenAddr: "localhost:50051",
		MaxClients: 5,
		QueueSize:  10,
	}
}

// Publisher manages the gRPC server and frame broadcasting.
type Publisher struct {
	config   Config
	server   *grpc.Server
	listener net.Listener
	canvas   *scene.Canvas

	frameChan chan *structpb.Struct
	clients   map[string]*clientStream
	clientsMu sync.RWMutex

	// Stats
	frameCount    atomic.Uint64
	clientCount   atomic.Int32
	droppedFrames atomic.Uint64
	encodeErrors  atomic.Uint64

	// Lifecycle
	running  atomic.Bool
	disposed atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// clientStream represents a connected streaming client.
type clientStream struct {
	id      string
	request Request
	frameCh chan *structpb.Struct
	doneCh  chan struct{}
}

// NewPublisher creates a new Publisher with the given configuration.
func NewPublisher(cfg Config) *Publisher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	return &Publisher{
		config:    cfg,
		canvas:    scene.NewCanvas(0, 0),
		frameChan: make(chan *structpb.Struct, cfg.QueueSize),
		clients:   make(map[string]*clientStream),
		stopCh:    make(chan struct{}),
	}
}

// Start listens on the configured address and serves in the background.
func (p *Publisher) Start() error {
	if p.running.Load() {
		return fmt.Errorf("publisher already running")
	}
	log.Printf("[Stream] Attempting to bind to %s...", p.config.ListenAddr)
	lis, err := net.Listen("tcp", p.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return p.Serve(lis)
}

// Serve starts the broadcast loop and serves gRPC on lis in the background.
func (p *Publisher) Serve(lis net.Listener) error {
	if !p.running.CompareAndSwap(false, true) {
		return fmt.Errorf("publisher already running")
	}
	p.listener = lis

	// Surfaces at maximum resolution exceed the 4MB default.
	const maxMsgSize = 16 * 1024 * 1024
	p.server = grpc.NewServer(
		grpc.MaxRecvMsgSize(maxMsgSize),
		grpc.MaxSendMsgSize(maxMsgSize),
	)
	RegisterService(p.server, NewServer(p))

	p.wg.Add(1)
	go p.broadcastLoop()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Printf("[Stream] gRPC server listening on %s", lis.Addr())
		if err := p.server.Serve(lis); err != nil && p.running.Load() {
			log.Printf("[Stream] gRPC server error: %v", err)
		}
	}()
	return nil
}

// Stop gracefully stops the gRPC server. Open streams end when the stop
// signal reaches them.
func (p *Publisher) Stop() {
	if !p.running.Load() {
		return
	}
	p.running.Store(false)
	p.stopOnce.Do(func() { close(p.stopCh) })

	if p.server != nil {
		p.server.GracefulStop()
	}
	if p.listener != nil {
		p.listener.Close()
	}
	p.wg.Wait()
	log.Printf("[Stream] gRPC server stopped")
}

// SetSize records the viewport size.
func (p *Publisher) SetSize(width, height int) {
	p.clientsMu.Lock()
	defer p.clientsMu.Unlock()
	p.canvas.Width, p.canvas.Height = width, height
}

// Canvas returns the output element.
func (p *Publisher) Canvas() *scene.Canvas { return p.canvas }

// Dispose stops publishing frames. The gRPC server keeps running until Stop.
func (p *Publisher) Dispose() {
	p.disposed.Store(true)
}

// Render captures s and queues it for broadcast. Frames are dropped, not
// blocked on, when the queue is full or the publisher is not running.
func (p *Publisher) Render(s *scene.Scene, cam *scene.Camera) error {
	if !p.running.Load() || p.disposed.Load() {
		return nil
	}
	seq := p.frameCount.Add(1)
	msg, err := EncodeFrame(seq, time.Now(), p.config.Source, render.Capture(s), cam)
	if err != nil {
		p.encodeErrors.Add(1)
		return err
	}
	p.Publish(msg)
	return nil
}

// Publish queues an encoded frame for every connected client.
func (p *Publisher) Publish(msg *structpb.Struct) {
	if !p.running.Load() || msg == nil {
		return
	}
	select {
	case p.frameChan <- msg:
	default:
		dropped := p.droppedFrames.Add(1)
		log.Printf("[Stream] DROPPED frame %d (total dropped: %d), channel full", Sequence(msg), dropped)
	}
}

// broadcastLoop distributes frames to all connected clients.
func (p *Publisher) broadcastLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case frame := <-p.frameChan:
			p.clientsMu.RLock()
			for _, client := range p.clients {
				select {
				case client.frameCh <- frame:
				default:
					// Slow client: drop this frame for it only.
					p.droppedFrames.Add(1)
				}
			}
			p.clientsMu.RUnlock()
		}
	}
}

// addClient registers a new streaming client. It fails once MaxClients are connected.
func (p *Publisher) addClient(id string, req Request) (*clientStream, error) {
	client := &clientStream{
		id:      id,
		request: req,
		frameCh: make(chan *structpb.Struct, p.config.QueueSize),
		doneCh:  make(chan struct{}),
	}

	p.clientsMu.Lock()
	if p.config.MaxClients > 0 && len(p.clients) >= p.config.MaxClients {
		p.clientsMu.Unlock()
		return nil, fmt.Errorf("client limit %d reached", p.config.MaxClients)
	}
	p.clients[id] = client
	p.clientsMu.Unlock()

	p.clientCount.Add(1)
	log.Printf("[Stream] Client connected: %s (total: %d)", id, p.clientCount.Load())
	return client, nil
}

// removeClient unregisters a streaming client.
func (p *Publisher) removeClient(id string) {
	p.clientsMu.Lock()
	if client, ok := p.clients[id]; ok {
		close(client.doneCh)
		delete(p.clients, id)
		p.clientsMu.Unlock()
		p.clientCount.Add(-1)
		log.Printf("[Stream] Client disconnected: %s (remaining: %d)", id, p.clientCount.Load())
	} else {
		p.clientsMu.Unlock()
	}
}

// Stats returns current publisher statistics.
func (p *Publisher) Stats() PublisherStats {
	return PublisherStats{
		FrameCount:    p.frameCount.Load(),
		ClientCount:   p.clientCount.Load(),
		DroppedFrames: p.droppedFrames.Load(),
		EncodeErrors:  p.encodeErrors.Load(),
		Running:       p.running.Load(),
	}
}

// PublisherStats contains publisher statistics.
type PublisherStats struct {
	FrameCount    uint64 `json:"frame_count"`
	ClientCount   int32  `json:"client_count"`
	DroppedFrames uint64 `json:"dropped_frames"`
	EncodeErrors  uint64 `json:"encode_errors"`
	Running       bool   `json:"running"`
}

// Addr returns the bound listener address, or nil before Start.
func (p *Publisher) Addr() net.Addr {
	if p.listener == nil {
		return nil
	}
	return p.listener.Addr()
}
