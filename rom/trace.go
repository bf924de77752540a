package rom

// ChunkID indexes a contiguous slice of one emulated execution, the unit the
// emulator partitions a run into so that chunks can be replayed independently
// and in parallel.
type ChunkID uint64

// RegisterState is the starting register file for a chunk. It is opaque to
// this core beyond being copyable; the emulator defines the register layout.
type RegisterState struct {
	PC       uint64
	Registers [32]uint64
	Step     uint64
}

// EventKind tags what kind of observable event a chunk recorded, so the
// replayer can classify events without depending on bus payload layout.
type EventKind uint8

const (
	EventMemory EventKind = iota
	EventOperation
	EventROM
)

// ChunkEvent is one observable event recorded in a chunk's minimal trace: the
// instruction index (position in the Rom) that produced it, its kind, and the
// bus payload words the full emulator would have published for it.
type ChunkEvent struct {
	InstIndex int
	Kind      EventKind
	Payload   []uint64
}

// Chunk is the compact per-chunk record from which the full instruction
// stream of that chunk can be deterministically replayed: the starting
// register state plus the events observed while executing it. The emulator
// that produces Chunks lives outside this core; the core only needs to be
// able to walk a Chunk's InstIndex sequence against a Rom.
type Chunk struct {
	ID         ChunkID
	Start      RegisterState
	StartIndex int // first Rom instruction index this chunk executes
	EndIndex   int // one past the last Rom instruction index this chunk executes
	Events     []ChunkEvent
}

// Instructions returns the Rom instruction indices this chunk walks, in
// program order, for replay.
func (c *Chunk) Instructions() []int {
	n := c.EndIndex - c.StartIndex
	if n <= 0 {
		return nil
	}
	out := make([]int, n)
	for i := range out {
		out[i] = c.StartIndex + i
	}
	return out
}

// EventsAt returns the events recorded at the given Rom instruction index, in
// the order they were observed.
func (c *Chunk) EventsAt(instIndex int) []ChunkEvent {
	var out []ChunkEvent
	for _, e := range c.Events {
		if e.InstIndex == instIndex {
			out = append(out, e)
		}
	}
	return out
}
