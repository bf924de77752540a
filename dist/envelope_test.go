package dist

import (
	"reflect"
	"testing"

	"github.com/zisk-core/provercore/dist/wire"
)

func TestEnvelope_RoundTripsEveryMessageKind(t *testing.T) {
	cases := []any{
		wire.Register{WorkerID: "w1", Capacity: wire.ComputeCapacity{ComputeUnits: 4}},
		wire.RegisterAck{WorkerID: "w1"},
		wire.Heartbeat{WorkerID: "w1", State: wire.WorkerWorking},
		wire.ExecuteTask{JobID: "job-1", BlockID: "block-1"},
		wire.Abort{JobID: "job-1"},
		wire.Shutdown{},
		wire.TaskResult{JobID: "job-1", PartialProof: []byte("proof")},
	}

	for _, msg := range cases {
		env, err := Wrap(msg)
		if err != nil {
			t.Fatalf("Wrap(%#v) failed: %v", msg, err)
		}
		got, err := env.Unwrap()
		if err != nil {
			t.Fatalf("Unwrap failed for %#v: %v", msg, err)
		}
		if !reflect.DeepEqual(got, msg) {
			t.Fatalf("round trip mismatch: got %#v, want %#v", got, msg)
		}
	}
}

func TestEnvelope_UnknownKindErrors(t *testing.T) {
	if _, err := (Envelope{Kind: "bogus"}).Unwrap(); err == nil {
		t.Fatalf("expected an error for an unrecognized kind")
	}
}

func TestServiceDesc_DeclaresSessionAndLaunchProof(t *testing.T) {
	if len(ServiceDesc.Streams) != 1 || ServiceDesc.Streams[0].StreamName != "Session" {
		t.Fatalf("expected exactly one Session stream, got %+v", ServiceDesc.Streams)
	}
	if len(ServiceDesc.Methods) != 1 || ServiceDesc.Methods[0].MethodName != "LaunchProof" {
		t.Fatalf("expected exactly one LaunchProof method, got %+v", ServiceDesc.Methods)
	}
}
