// Package bus implements the typed, point-to-point/fan-out event bus that
// drives the counting and collection passes: a synchronous publish to every
// subscribed Device, in registration order, with FIFO breadth-first draining
// of derived payloads devices enqueue during processing.
package bus

import (
	"fmt"

	"github.com/zisk-core/provercore/zkerr"
)

// ID namespaces a bus. Reserved ids match the data model: memory, operation
// and ROM buses, plus one id per precompile bus a component registers.
type ID uint32

const (
	MemoryBusID    ID = 2
	OperationBusID ID = 5000
	RomBusID       ID = 7890
)

// Mandatory payload widths (64-bit words) for the reserved buses.
const (
	MemoryPayloadWidth    = 7
	OperationPayloadWidth = 8
	RomPayloadWidth       = 3
)

// Payload is a fixed-width, immutable-once-published vector of 64-bit words.
// Devices must not mutate or retain slices into a Payload beyond the call to
// Process that delivered it.
type Payload []uint64

// pending is one derived (bus, payload) tuple a Device enqueued while
// processing a frame, to be drained FIFO after the current frame's
// subscribers have all been notified.
type pending struct {
	busID   ID
	payload Payload
}

// Pending is the FIFO queue a Device uses to enqueue derived payloads instead
// of re-entering Publish. The bus owns draining it; devices only ever Push.
type Pending struct {
	items    []pending
	cap      int
	overflow bool
}

// Push enqueues a derived payload for bus busID. Returns false if the queue is
// already at capacity — per the backpressure design, an overflow here is a
// buggy device and the bus will fail the whole frame.
func (p *Pending) Push(busID ID, payload Payload) bool {
	if p.cap > 0 && len(p.items) >= p.cap {
		p.overflow = true
		return false
	}
	p.items = append(p.items, pending{busID: busID, payload: payload})
	return true
}

// Device is a polymorphic bus subscriber. Implementations must be safe to
// call synchronously and must never call Bus.Publish from within Process —
// derived events are enqueued via the Pending queue instead.
type Device interface {
	// BusIDs declares which buses this device subscribes to.
	BusIDs() []ID

	// Process handles one payload published to one of BusIDs(). Returning
	// false terminates delivery to the remaining subscribers of this frame
	// (the bus still drains already-enqueued derived payloads).
	Process(busID ID, payload Payload, pending *Pending) bool

	// Close performs any cleanup when the device is detached from the bus.
	Close()
}

// subscription pairs a Device with its registration index, so delivery order
// within a bus id is deterministic (registration order).
type subscription struct {
	device Device
	order  int
}

// Bus delivers payloads published on a bus ID to every Device subscribed to
// that ID, in registration order, then drains devices' derived payloads
// breadth-first. A Bus is single-use per replay frame set: once the first
// Publish happens, Subscribe fails with zkerr.ConfigInvalid wrapping
// ErrSubscribeAfterStart.
type Bus struct {
	subscribers map[ID][]subscription
	nextOrder   int
	started     bool
	pendingCap  int
}

// ErrSubscribeAfterStart is the sentinel cause for late subscription.
var ErrSubscribeAfterStart = fmt.Errorf("bus: device subscribed after first publish")

// New constructs an empty Bus. pendingCap bounds how many derived payloads the
// subscribers of one frame may enqueue while that frame is delivered (the
// count restarts for each cascaded frame); 0 means unbounded.
func New(pendingCap int) *Bus {
	return &Bus{subscribers: make(map[ID][]subscription), pendingCap: pendingCap}
}

// Subscribe registers device for every bus id it declares via BusIDs. Fails
// if any Publish has already happened on this Bus.
func (b *Bus) Subscribe(device Device) error {
	if b.started {
		return zkerr.New(zkerr.ConfigInvalid, "subscribe after first publish", ErrSubscribeAfterStart)
	}
	for _, id := range device.BusIDs() {
		b.subscribers[id] = append(b.subscribers[id], subscription{device: device, order: b.nextOrder})
		b.nextOrder++
	}
	return nil
}

// Publish synchronously notifies every subscriber of busID with payload, in
// registration order. If a subscriber returns false, delivery to the
// remaining subscribers of this frame stops, but already-enqueued derived
// payloads are still drained. Returns an error if a device overflows the
// pending queue (backpressure design: this is treated as a bug, not a
// recoverable condition).
func (b *Bus) Publish(busID ID, payload Payload) error {
	b.started = true
	return b.dispatch(busID, payload)
}

// dispatch notifies the subscribers of one (busID, payload) frame, then
// drains the single shared Pending FIFO queue breadth-first: every payload a
// device enqueues while the current frame's subscribers are being notified is
// appended to the back of the same queue, so draining it in order processes
// generation 1 before any payload generation 1 produced, reproducing the
// cascading order described in the data bus contract.
func (b *Bus) dispatch(busID ID, payload Payload) error {
	pend := &Pending{cap: b.pendingCap}
	queue := []pending{{busID: busID, payload: payload}}

	for len(queue) > 0 {
		frame := queue[0]
		queue = queue[1:]

		for _, sub := range b.subscribers[frame.busID] {
			cont := sub.device.Process(frame.busID, frame.payload, pend)
			if pend.overflow {
				return zkerr.New(zkerr.BusDesync, "pending payload queue overflow", nil)
			}
			if !cont {
				break
			}
		}

		queue = append(queue, pend.items...)
		pend.items = nil
	}
	return nil
}

// Close closes every registered device exactly once, in registration order.
func (b *Bus) Close() {
	seen := make(map[Device]bool)
	// Iterate in a stable order by flattening and sorting on registration
	// index, since map iteration over bus ids is unordered.
	type entry struct {
		order  int
		device Device
	}
	var all []entry
	for _, subs := range b.subscribers {
		for _, s := range subs {
			if !seen[s.device] {
				seen[s.device] = true
				all = append(all, entry{order: s.order, device: s.device})
			}
		}
	}
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if all[j].order < all[i].order {
				all[i], all[j] = all[j], all[i]
			}
		}
	}
	for _, e := range all {
		e.device.Close()
	}
}
