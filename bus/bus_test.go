package bus

import (
	"testing"
)

// recordingDevice records every payload it is handed, and optionally cascades
// one derived payload to a target bus the first time it sees a given source
// bus, to exercise breadth-first draining.
type recordingDevice struct {
	ids       []ID
	seen      []Payload
	cascadeTo ID
	cascaded  bool
	stopAfter int // 0 = never stop
}

func (d *recordingDevice) BusIDs() []ID { return d.ids }

func (d *recordingDevice) Process(busID ID, payload Payload, pending *Pending) bool {
	d.seen = append(d.seen, payload)
	if d.cascadeTo != 0 && !d.cascaded {
		d.cascaded = true
		pending.Push(d.cascadeTo, Payload{999})
	}
	if d.stopAfter != 0 && len(d.seen) >= d.stopAfter {
		return false
	}
	return true
}

func (d *recordingDevice) Close() {}

func TestBus_DeliversInRegistrationOrder(t *testing.T) {
	b := New(0)
	var order []int
	mk := func(tag int) deviceFunc {
		return deviceFunc{ids: []ID{MemoryBusID}, fn: func(ID, Payload, *Pending) bool {
			order = append(order, tag)
			return true
		}}
	}
	d1 := mk(1)
	d2 := mk(2)
	if err := b.Subscribe(d1); err != nil {
		t.Fatal(err)
	}
	if err := b.Subscribe(d2); err != nil {
		t.Fatal(err)
	}

	if err := b.Publish(MemoryBusID, Payload{1, 2, 3}); err != nil {
		t.Fatal(err)
	}

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("expected one delivery each, in registration order [1 2], got %v", order)
	}
}

func TestBus_SubscribeAfterPublish_Fails(t *testing.T) {
	b := New(0)
	d := &recordingDevice{ids: []ID{MemoryBusID}}
	if err := b.Subscribe(d); err != nil {
		t.Fatal(err)
	}
	if err := b.Publish(MemoryBusID, Payload{1}); err != nil {
		t.Fatal(err)
	}

	late := &recordingDevice{ids: []ID{MemoryBusID}}
	if err := b.Subscribe(late); err == nil {
		t.Fatalf("expected SubscribeAfterStart error")
	}
}

func TestBus_StopSignalHaltsRemainingSubscribersThisFrame(t *testing.T) {
	b := New(0)
	stopper := &recordingDevice{ids: []ID{MemoryBusID}, stopAfter: 1}
	after := &recordingDevice{ids: []ID{MemoryBusID}}
	if err := b.Subscribe(stopper); err != nil {
		t.Fatal(err)
	}
	if err := b.Subscribe(after); err != nil {
		t.Fatal(err)
	}

	if err := b.Publish(MemoryBusID, Payload{1}); err != nil {
		t.Fatal(err)
	}

	if len(after.seen) != 0 {
		t.Fatalf("expected subscriber after a stop signal to not be notified this frame, got %d deliveries", len(after.seen))
	}
}

func TestBus_CascadedPayloadsDeliveredBreadthFirst(t *testing.T) {
	b := New(0)
	cascader := &recordingDevice{ids: []ID{MemoryBusID}, cascadeTo: OperationBusID}
	derived := &recordingDevice{ids: []ID{OperationBusID}}
	if err := b.Subscribe(cascader); err != nil {
		t.Fatal(err)
	}
	if err := b.Subscribe(derived); err != nil {
		t.Fatal(err)
	}

	if err := b.Publish(MemoryBusID, Payload{1, 2}); err != nil {
		t.Fatal(err)
	}

	if len(derived.seen) != 1 || derived.seen[0][0] != 999 {
		t.Fatalf("expected derived device to receive the cascaded payload, got %v", derived.seen)
	}
}

func TestBus_DeterministicAcrossRuns(t *testing.T) {
	run := func() []Payload {
		b := New(0)
		d := &recordingDevice{ids: []ID{MemoryBusID}}
		_ = b.Subscribe(d)
		_ = b.Publish(MemoryBusID, Payload{1, 2, 3})
		_ = b.Publish(MemoryBusID, Payload{4, 5, 6})
		return d.seen
	}

	a, c := run(), run()
	if len(a) != len(c) {
		t.Fatalf("different delivery counts across runs: %d vs %d", len(a), len(c))
	}
	for i := range a {
		if len(a[i]) != len(c[i]) {
			t.Fatalf("payload %d differs in length across runs", i)
		}
		for j := range a[i] {
			if a[i][j] != c[i][j] {
				t.Fatalf("payload %d word %d differs across runs: %d vs %d", i, j, a[i][j], c[i][j])
			}
		}
	}
}

func TestPending_OverflowCausesBusDesync(t *testing.T) {
	b := New(1)
	overflow := &recordingDevice{ids: []ID{MemoryBusID}}
	// push two derived payloads in one Process call to exceed cap=1
	overflowDevice := deviceFunc{
		ids: []ID{MemoryBusID},
		fn: func(busID ID, payload Payload, pending *Pending) bool {
			pending.Push(OperationBusID, Payload{1})
			pending.Push(OperationBusID, Payload{2})
			return true
		},
	}
	_ = b.Subscribe(overflowDevice)
	_ = overflow

	err := b.Publish(MemoryBusID, Payload{0})
	if err == nil {
		t.Fatalf("expected overflow error")
	}
}

type deviceFunc struct {
	ids []ID
	fn  func(ID, Payload, *Pending) bool
}

func (d deviceFunc) BusIDs() []ID { return d.ids }
func (d deviceFunc) Process(busID ID, payload Payload, pending *Pending) bool {
	return d.fn(busID, payload, pending)
}
func (d deviceFunc) Close() {}
