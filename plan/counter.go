// Package plan implements the first-pass counting devices and the planners
// that turn their per-chunk counts into the vector of instance Plans that
// must be produced for an execution trace.
package plan

import (
	"github.com/zisk-core/provercore/bus"
	"github.com/zisk-core/provercore/rom"
)

// Metric is a bus.Device whose Process implementation only counts: it never
// enqueues derived payloads and its only externally visible effect is the
// aggregate(s) it exposes once the counting pass finishes.
type Metric interface {
	bus.Device
	// Reset clears accumulated counts, so a Metric can be reused across
	// chunks within a single counting pass if the caller wants per-chunk
	// snapshots rather than a running total.
	Reset()
}

// RegularCounter counts instructions whose op-type matches a single target,
// read off the operation bus payload (word 0 is taken as the op-type tag).
type RegularCounter struct {
	opType rom.OpType
	count  uint64
}

// NewRegularCounter builds a counter for a single op-type.
func NewRegularCounter(opType rom.OpType) *RegularCounter {
	return &RegularCounter{opType: opType}
}

func (c *RegularCounter) BusIDs() []bus.ID { return []bus.ID{bus.OperationBusID} }

func (c *RegularCounter) Process(busID bus.ID, payload bus.Payload, pending *bus.Pending) bool {
	if len(payload) > 0 && rom.OpType(payload[0]) == c.opType {
		c.count++
	}
	return true
}

func (c *RegularCounter) Close() {}
func (c *RegularCounter) Reset() { c.count = 0 }

// InstCount returns the number of matching instructions counted so far.
func (c *RegularCounter) InstCount() uint64 { return c.count }

// CompositeCounter tracks several op-types with a single device and exposes a
// per-op-type histogram, iterated in canonical declaration order (the order
// op-types were passed to NewCompositeCounter) to make planner tie-breaks
// deterministic.
type CompositeCounter struct {
	order  []rom.OpType
	counts map[rom.OpType]uint64
}

// NewCompositeCounter builds a composite counter tracking the given op-types,
// in the order given (this order is the canonical declaration order used for
// planner tie-breaks).
func NewCompositeCounter(opTypes ...rom.OpType) *CompositeCounter {
	counts := make(map[rom.OpType]uint64, len(opTypes))
	for _, t := range opTypes {
		counts[t] = 0
	}
	return &CompositeCounter{order: opTypes, counts: counts}
}

func (c *CompositeCounter) BusIDs() []bus.ID { return []bus.ID{bus.OperationBusID} }

func (c *CompositeCounter) Process(busID bus.ID, payload bus.Payload, pending *bus.Pending) bool {
	if len(payload) == 0 {
		return true
	}
	op := rom.OpType(payload[0])
	if _, ok := c.counts[op]; ok {
		c.counts[op]++
	}
	return true
}

func (c *CompositeCounter) Close() {}

func (c *CompositeCounter) Reset() {
	for _, t := range c.order {
		c.counts[t] = 0
	}
}

// Histogram returns (opType, count) pairs in canonical declaration order.
func (c *CompositeCounter) Histogram() []OpCount {
	out := make([]OpCount, len(c.order))
	for i, t := range c.order {
		out[i] = OpCount{OpType: t, Count: c.counts[t]}
	}
	return out
}

// Total sums every tracked op-type's count.
func (c *CompositeCounter) Total() uint64 {
	var total uint64
	for _, t := range c.order {
		total += c.counts[t]
	}
	return total
}

// OpCount pairs an op-type with its observed count.
type OpCount struct {
	OpType rom.OpType
	Count  uint64
}

// AddrRange is an inclusive [From, To] address range, the unit MemCounter
// records per-range information in for later memory-aligned instance
// planning.
type AddrRange struct {
	From, To uint32
}

// MemCounter records per-address (bucketed into ranges) memory-op traffic,
// the specialized counting a memory-aligned instance planner needs beyond a
// simple op-type tally.
type MemCounter struct {
	rangeSize uint32
	perRange  map[uint32]uint64 // keyed by range-start (addr - addr%rangeSize)
}

// NewMemCounter builds a MemCounter that buckets addresses into ranges of
// rangeSize bytes.
func NewMemCounter(rangeSize uint32) *MemCounter {
	if rangeSize == 0 {
		rangeSize = 1
	}
	return &MemCounter{rangeSize: rangeSize, perRange: make(map[uint32]uint64)}
}

func (c *MemCounter) BusIDs() []bus.ID { return []bus.ID{bus.MemoryBusID} }

func (c *MemCounter) Process(busID bus.ID, payload bus.Payload, pending *bus.Pending) bool {
	if len(payload) < 2 {
		return true
	}
	addr := uint32(payload[1])
	start := addr - addr%c.rangeSize
	c.perRange[start]++
	return true
}

func (c *MemCounter) Close() {}

func (c *MemCounter) Reset() {
	c.perRange = make(map[uint32]uint64)
}

// Ranges returns every observed range and its count, as [from, from+rangeSize)
// address ranges, sorted by range start for deterministic iteration.
func (c *MemCounter) Ranges() []RangeCount {
	out := make([]RangeCount, 0, len(c.perRange))
	for start, count := range c.perRange {
		out = append(out, RangeCount{
			Range: AddrRange{From: start, To: start + c.rangeSize - 1},
			Count: count,
		})
	}
	// insertion sort: counting passes have at most a few thousand distinct
	// ranges in practice, and determinism matters more than asymptotics here.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Range.From < out[j-1].Range.From; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// RangeCount pairs an address range with its observed access count.
type RangeCount struct {
	Range AddrRange
	Count uint64
}
