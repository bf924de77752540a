package dist

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/zisk-core/provercore/dist/worker"
)

// clientStream adapts a grpc.ClientStream to worker.Stream, the other half
// of the serverStream adapter in service.go.
type clientStream struct {
	grpc.ClientStream
}

func (c clientStream) Send(msg any) error {
	env, err := Wrap(msg)
	if err != nil {
		return err
	}
	return c.ClientStream.SendMsg(&env)
}

func (c clientStream) Recv() (any, error) {
	var env Envelope
	if err := c.ClientStream.RecvMsg(&env); err != nil {
		return nil, err
	}
	return env.Unwrap()
}

var _ worker.Stream = clientStream{}

// Dial opens a grpc connection to a coordinator at target using the json
// codec, insecure transport credentials (TLS termination is expected to be
// handled by the surrounding deployment, matching the teacher's plaintext
// inter-service links), and the keepalive/backoff defaults grpc-go ships
// with.
func Dial(ctx context.Context, target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	dialOpts := append([]grpc.DialOption{
		DialOption(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)
	return grpc.DialContext(ctx, target, dialOpts...)
}

// OpenSession opens the bidirectional Session stream to the coordinator at
// conn, returning a worker.Stream ready to be handed to worker.New.
func OpenSession(ctx context.Context, conn *grpc.ClientConn) (worker.Stream, error) {
	desc := &ServiceDesc.Streams[0]
	cs, err := conn.NewStream(ctx, desc, "/"+ServiceName+"/Session")
	if err != nil {
		return nil, err
	}
	return clientStream{cs}, nil
}
