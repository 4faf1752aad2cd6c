package stream

import (
	"context"
	"log"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "mathviz.SceneStream"
	// StreamFramesMethod is the full method path of the frame stream.
	StreamFramesMethod = "/" + ServiceName + "/StreamFrames"
)

// Request selects which sections of each frame a client receives. Sections
// default to included.
type Request struct {
	IncludeMeshes bool
	IncludeLines  bool
	IncludeLabels bool
}

// DefaultRequest includes every section.
func DefaultRequest() Request {
	return Request{IncludeMeshes: true, IncludeLines: true, IncludeLabels: true}
}

// ParseRequest reads include_meshes, include_lines and include_labels from
// msg. Missing or non-boolean fields keep their default.
func ParseRequest(msg *structpb.Struct) Request {
	req := DefaultRequest()
	flag := func(key string, dst *bool) {
		if v, ok := msg.GetFields()[key]; ok {
			if b, ok := v.GetKind().(*structpb.Value_BoolValue); ok {
				*dst = b.BoolValue
			}
		}
	}
	flag("include_meshes", &req.IncludeMeshes)
	flag("include_lines", &req.IncludeLines)
	flag("include_labels", &req.IncludeLabels)
	return req
}

// Encode returns req as a request message.
func (r Request) Encode() *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"include_meshes": structpb.NewBoolValue(r.IncludeMeshes),
		"include_lines":  structpb.NewBoolValue(r.IncludeLines),
		"include_labels": structpb.NewBoolValue(r.IncludeLabels),
	}}
}

// FrameStreamer is the server side of the SceneStream service.
type FrameStreamer interface {
	StreamFrames(req *structpb.Struct, stream grpc.ServerStream) error
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FrameStreamer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamFrames",
			Handler:       streamFramesHandler,
			ServerStreams: true,
		},
	},
	Metadata: "mathviz/scene_stream",
}

func streamFramesHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(structpb.Struct)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(FrameStreamer).StreamFrames(req, stream)
}

// RegisterService registers the SceneStream service with the server.
func RegisterService(grpcServer *grpc.Server, server FrameStreamer) {
	grpcServer.RegisterService(&serviceDesc, server)
}

// Ensure Server implements the service interface.
var _ FrameStreamer = (*Server)(nil)

// Server implements the SceneStream service on top of a Publisher.
type Server struct {
	publisher *Publisher
}

// NewServer creates a new gRPC service backed by publisher.
func NewServer(publisher *Publisher) *Server {
	return &Server{publisher: publisher}
}

// StreamFrames sends every published frame to the caller until it
// disconnects or the publisher stops.
func (s *Server) StreamFrames(reqMsg *structpb.Struct, stream grpc.ServerStream) error {
	req := ParseRequest(reqMsg)
	clientID := "grpc-" + uuid.NewString()
	log.Printf("[gRPC] StreamFrames started: client=%s meshes=%v lines=%v labels=%v",
		clientID, req.IncludeMeshes, req.IncludeLines, req.IncludeLabels)

	client, err := s.publisher.addClient(clientID, req)
	if err != nil {
		return status.Error(codes.ResourceExhausted, err.Error())
	}
	defer s.publisher.removeClient(clientID)

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[gRPC] StreamFrames cancelled: client=%s", clientID)
			return ctx.Err()
		case <-s.publisher.stopCh:
			return nil
		case frame := <-client.frameCh:
			if err := stream.SendMsg(filterFrame(frame, client.request)); err != nil {
				log.Printf("[gRPC] Send error: %v", err)
				return err
			}
		}
	}
}

// FrameClient receives frames from a SceneStream server.
type FrameClient struct {
	stream grpc.ClientStream
}

// Subscribe opens a frame stream on cc.
func Subscribe(ctx context.Context, cc grpc.ClientConnInterface, req Request) (*FrameClient, error) {
	desc := &serviceDesc.Streams[0]
	cs, err := cc.NewStream(ctx, desc, StreamFramesMethod)
	if err != nil {
		return nil, err
	}
	if err := cs.SendMsg(req.Encode()); err != nil {
		return nil, err
	}
	if err := cs.CloseSend(); err != nil {
		return nil, err
	}
	return &FrameClient{stream: cs}, nil
}

// Recv blocks for the next frame.
func (c *FrameClient) Recv() (*structpb.Struct, error) {
	msg := new(structpb.Struct)
	if err := c.stream.RecvMsg(msg); err != nil {
		return nil, err
	}
	return msg, nil
}
