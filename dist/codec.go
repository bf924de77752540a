// Package dist wires the coordinator/worker bidirectional stream onto real
// google.golang.org/grpc transport, using a custom "json" wire codec and a
// hand-authored grpc.ServiceDesc instead of protoc-generated bindings: this
// core treats gRPC purely as a transport/framing choice (HTTP/2 multiplexed
// streams, flow control, deadlines) and the wire messages in dist/wire are
// plain structs satisfying encoding/json, not proto.Message.
package dist

import (
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// CodecName is registered as the grpc content-subtype and selected per-call
// via grpc.CallContentSubtype/grpc.ForceServerCodec on both coordinator and
// worker.
const CodecName = "json"

// jsonCodec implements encoding.Codec (Marshal/Unmarshal/Name) over
// encoding/json. Unlike grpc's built-in protobuf codec it places no
// constraint on the Go type being (de)serialized beyond what encoding/json
// itself requires.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// ServerOption returns the grpc.ServerOption a coordinator listener needs to
// force the json codec for every call, regardless of what content-subtype a
// client negotiates.
func ServerOption() grpc.ServerOption {
	return grpc.ForceServerCodec(jsonCodec{})
}

// DialOption returns the grpc.DialOption a worker uses to call the
// coordinator with the json codec selected by content-subtype on every call,
// without each call site having to pass grpc.CallContentSubtype itself.
func DialOption() grpc.DialOption {
	return grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName))
}
