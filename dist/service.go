package dist

import (
	"context"

	"google.golang.org/grpc"

	"github.com/zisk-core/provercore/dist/coordinator"
	"github.com/zisk-core/provercore/dist/wire"
	"github.com/zisk-core/provercore/dist/worker"
)

// ServiceName is the fully-qualified gRPC service name exposed by the
// coordinator, hand-authored in place of a .proto-generated one.
const ServiceName = "provercore.dist.Coordinator"

// CoordinatorServer is implemented by whatever drives the coordinator side of
// the bidirectional Session stream plus the unary LaunchProof call. coordinator.Manager
// together with coordinator.Registry satisfy everything a production
// implementation needs; it's kept as an interface so grpc.ServiceDesc can
// dispatch to it without referencing concrete types.
type CoordinatorServer interface {
	LaunchProof(ctx context.Context, req wire.LaunchProofRequest) (wire.LaunchProofResponse, error)
	Session(stream grpc.ServerStream) error
}

// serverStream adapts a grpc.ServerStream to the worker.Stream interface the
// coordinator-side session loop drives, so the same message-pumping code
// works whether the other end is a real grpc connection or (in tests) an
// in-memory fake.
type serverStream struct {
	grpc.ServerStream
}

func (s serverStream) Send(msg any) error {
	env, err := Wrap(msg)
	if err != nil {
		return err
	}
	return s.ServerStream.SendMsg(&env)
}

func (s serverStream) Recv() (any, error) {
	var env Envelope
	if err := s.ServerStream.RecvMsg(&env); err != nil {
		return nil, err
	}
	return env.Unwrap()
}

var _ worker.Stream = serverStream{}

func sessionHandler(srv any, stream grpc.ServerStream) error {
	return srv.(CoordinatorServer).Session(stream)
}

func launchProofHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	var req wire.LaunchProofRequest
	if err := dec(&req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CoordinatorServer).LaunchProof(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/LaunchProof"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CoordinatorServer).LaunchProof(ctx, req.(wire.LaunchProofRequest))
	}
	return interceptor(ctx, req, info, handler)
}

// ServiceDesc is the hand-authored equivalent of what protoc-gen-go-grpc
// would emit from a .proto file: one unary RPC (LaunchProof, the CLI-facing
// "start a distributed proof" call) and one bidirectional-streaming RPC
// (Session, the long-lived worker registration/heartbeat/dispatch channel
// that coordinator.Registry and coordinator.Manager drive underneath).
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CoordinatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "LaunchProof",
			Handler:    launchProofHandler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Session",
			Handler:       sessionHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "provercore/dist.proto",
}

// RegisterCoordinatorServer registers srv against s using the hand-authored
// ServiceDesc, mirroring the generated RegisterXxxServer helper protoc would
// produce.
func RegisterCoordinatorServer(s *grpc.Server, srv CoordinatorServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// coordinatorServer is the production CoordinatorServer, bridging grpc calls
// onto the pure-Go coordinator.Manager/Registry logic.
type coordinatorServer struct {
	registry *coordinator.Registry
	manager  *coordinator.Manager
}

// NewCoordinatorServer builds the production CoordinatorServer.
func NewCoordinatorServer(registry *coordinator.Registry, manager *coordinator.Manager) CoordinatorServer {
	return &coordinatorServer{registry: registry, manager: manager}
}

func (s *coordinatorServer) LaunchProof(ctx context.Context, req wire.LaunchProofRequest) (wire.LaunchProofResponse, error) {
	return s.manager.LaunchProof(req), nil
}

// Session pumps one worker's Register/Heartbeat/TaskResult messages into the
// registry and manager, blocking until the stream ends. Dispatch of
// ExecuteTask/Abort/Shutdown onto this same stream is driven by whatever
// owns job assignment (e.g. a per-job goroutine writing through stream.Send);
// Session itself only consumes the worker→coordinator half, sending nothing
// back except the RegisterAck that answers a Register.
func (s *coordinatorServer) Session(stream grpc.ServerStream) error {
	ss := serverStream{stream}
	var workerID string
	for {
		msg, err := ss.Recv()
		if err != nil {
			if workerID != "" {
				s.registry.Heartbeat(wire.Heartbeat{WorkerID: workerID, State: wire.WorkerDisconnected})
			}
			return err
		}
		switch m := msg.(type) {
		case wire.Register:
			ack := s.registry.Register(m)
			workerID = ack.WorkerID
			if err := ss.Send(ack); err != nil {
				return err
			}
		case wire.Heartbeat:
			s.registry.Heartbeat(m)
		case wire.TaskResult:
			s.manager.TaskResult(m, workerID)
		}
	}
}
