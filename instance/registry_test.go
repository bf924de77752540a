package instance

import (
	"testing"

	"github.com/zisk-core/provercore/bus"
	"github.com/zisk-core/provercore/plan"
)

type fakeBuilder struct {
	BaseBuilder
	name string
}

func (f *fakeBuilder) Name() string           { return f.name }
func (f *fakeBuilder) BuildCounter() plan.Metric { return nil }
func (f *fakeBuilder) BuildPlanner() plan.Planner { return nil }
func (f *fakeBuilder) BuildInstance(ictx InstanceCtx) Instance { return nil }
func (f *fakeBuilder) BusID() bus.ID                           { return bus.OperationBusID }

var _ ComponentBuilder = (*fakeBuilder)(nil)
var _ bus.Device = (*fakeNoopDevice)(nil)

type fakeNoopDevice struct{}

func (fakeNoopDevice) BusIDs() []bus.ID { return nil }
func (fakeNoopDevice) Process(bus.ID, bus.Payload, *bus.Pending) bool { return true }
func (fakeNoopDevice) Close() {}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	// GIVEN an empty registry
	r := NewRegistry()

	// WHEN a builder is registered for (1, 10)
	err := r.Register(1, 10, &fakeBuilder{name: "arith"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	// THEN it can be looked up by the same key
	b, ok := r.Lookup(1, 10)
	if !ok {
		t.Fatalf("expected builder to be found")
	}
	if b.Name() != "arith" {
		t.Fatalf("got builder %q, want %q", b.Name(), "arith")
	}
}

func TestRegistry_LookupMiss(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup(99, 99)
	if ok {
		t.Fatalf("expected no builder registered for (99, 99)")
	}
}

func TestRegistry_DuplicateRegistrationFails(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(1, 10, &fakeBuilder{name: "arith"}); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	err := r.Register(1, 10, &fakeBuilder{name: "arith-dup"})
	if err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestRegistry_KeysAreSortedDeterministically(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(2, 5, &fakeBuilder{name: "b"})
	_ = r.Register(1, 10, &fakeBuilder{name: "a"})
	_ = r.Register(1, 2, &fakeBuilder{name: "c"})

	keys := r.Keys()
	want := []Key{{AirgroupID: 1, AirID: 2}, {AirgroupID: 1, AirID: 10}, {AirgroupID: 2, AirID: 5}}
	if len(keys) != len(want) {
		t.Fatalf("got %d keys, want %d", len(keys), len(want))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("key %d = %+v, want %+v", i, keys[i], want[i])
		}
	}
}
