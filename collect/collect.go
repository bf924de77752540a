// Package collect implements Collectors (C5): bus devices specialized to one
// instance's plan, applying the plan's skip/target bookkeeping while a
// Driver replays the plan's checkpoint chunks.
package collect

import (
	"sort"

	"github.com/zisk-core/provercore/bus"
	"github.com/zisk-core/provercore/plan"
	"github.com/zisk-core/provercore/replay"
	"github.com/zisk-core/provercore/rom"
)

// Sink receives each input a Collector accepts, in collection order.
type Sink interface {
	Accept(payload bus.Payload)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(payload bus.Payload)

func (f SinkFunc) Accept(payload bus.Payload) { f(payload) }

// Collector is a bus.Device specialized to one plan's checkpoint: it ignores
// the first Skip matching payloads, then forwards up to Rows payloads to its
// Sink before reporting itself done. Its BusID is fixed at construction (the
// op-type bus its instance consumes — memory, operation, etc.).
type Collector struct {
	busID     bus.ID
	skip      int
	target    int
	seen      int
	collected int
	sink      Sink
}

// NewCollector builds a Collector for plan checkpoint cp on busID, forwarding
// up to rows matching payloads to sink after skipping cp.Skip of them.
func NewCollector(busID bus.ID, cp plan.Checkpoint, rows int, sink Sink) *Collector {
	return &Collector{
		busID:  busID,
		skip:   cp.Skip,
		target: rows,
		sink:   sink,
	}
}

func (c *Collector) BusIDs() []bus.ID { return []bus.ID{c.busID} }

// Process implements bus.Device. It never enqueues derived payloads — a
// Collector's only role is accumulation.
func (c *Collector) Process(busID bus.ID, payload bus.Payload, pending *bus.Pending) bool {
	if c.collected >= c.target {
		return false
	}
	if c.seen < c.skip {
		c.seen++
		return true
	}
	c.sink.Accept(payload)
	c.collected++
	return c.collected < c.target
}

func (c *Collector) Close() {}

// Done reports whether this collector has reached its target row count.
func (c *Collector) Done() bool { return c.collected >= c.target }

// Collected reports how many inputs have been accepted so far.
func (c *Collector) Collected() int { return c.collected }

// Driver walks the chunks named by a plan's checkpoint, in ascending order,
// installing the plan's Collector as the sole subscriber of a fresh bus for
// each chunk replay.
// It stops as soon as the collector reports Done, even if further chunks
// remain listed (a planner that over-lists chunks is tolerated, not an
// error).
type Driver struct {
	replayer *replay.Replayer
}

// NewDriver builds a Driver over replayer.
func NewDriver(replayer *replay.Replayer) *Driver {
	return &Driver{replayer: replayer}
}

// Run replays cp's chunks in ascending order against collector, stopping once
// collector is Done. For each chunk it installs collector as the sole
// subscriber of a fresh bus.Bus and publishes that chunk's events onto it —
// the same Device contract the counting pass (plan package) uses — so a
// Collector's Process method never needs to know it is being driven outside
// a live counting bus. It returns the number of chunks actually replayed.
func (d *Driver) Run(cp plan.Checkpoint, collector *Collector) (chunksReplayed int, err error) {
	ids := make([]rom.ChunkID, len(cp.Chunks))
	copy(ids, cp.Chunks)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if collector.Done() {
			break
		}

		b := bus.New(64)
		if subErr := b.Subscribe(collector); subErr != nil {
			return chunksReplayed, subErr
		}

		var publishErr error
		observer := replay.ObserverFunc(func(inst rom.Instruction, events []rom.ChunkEvent) bool {
			for _, ev := range events {
				if collector.Done() {
					return true
				}
				busID := eventBusID(ev.Kind)
				if busID != collector.busID {
					continue
				}
				if pubErr := b.Publish(busID, bus.Payload(ev.Payload)); pubErr != nil {
					publishErr = pubErr
					return true
				}
			}
			return collector.Done()
		})

		_, found := d.replayer.Chunk(id, observer)
		if !found {
			return chunksReplayed, &replay.ChunkNotFoundError{ChunkID: id}
		}
		if publishErr != nil {
			return chunksReplayed, publishErr
		}
		chunksReplayed++
	}
	return chunksReplayed, nil
}

// eventBusID maps a chunk event's kind to the reserved bus id it was
// originally published on.
func eventBusID(kind rom.EventKind) bus.ID {
	switch kind {
	case rom.EventMemory:
		return bus.MemoryBusID
	case rom.EventOperation:
		return bus.OperationBusID
	case rom.EventROM:
		return bus.RomBusID
	default:
		return 0
	}
}
