// Package replay implements the deterministic second (and later) pass over
// an execution trace: given a Rom and one chunk of its minimal trace, walk
// exactly that chunk's instructions in order, handing each to an Observer.
package replay

import (
	"github.com/zisk-core/provercore/rom"
)

// Observer is notified of each instruction replayed from a chunk, alongside
// the events (if any) that instruction produced when it first ran. Returning
// true stops the replay early (mirrors a Collector hitting its target row
// count before the chunk is exhausted).
type Observer interface {
	OnInstruction(inst rom.Instruction, events []rom.ChunkEvent) (stop bool)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(inst rom.Instruction, events []rom.ChunkEvent) bool

func (f ObserverFunc) OnInstruction(inst rom.Instruction, events []rom.ChunkEvent) bool {
	return f(inst, events)
}

// Source supplies chunks by id, standing in for the emulator's chunked
// minimal-trace output. A single Source must return the same Chunk value
// (same events, same instruction range) for a given id on every call —
// replay's idempotence guarantee depends on it.
type Source interface {
	Chunk(id rom.ChunkID) (*rom.Chunk, bool)
}

// MapSource is a Source backed by an in-memory map, used by tests and by the
// cargo-zisk CLI's empty pipeline. asm.Supervisor does not build one: it only
// reports a dead service, and the caller supplies any fallback Source.
type MapSource map[rom.ChunkID]*rom.Chunk

func (m MapSource) Chunk(id rom.ChunkID) (*rom.Chunk, bool) {
	c, ok := m[id]
	return c, ok
}

// Replayer re-executes chunks of a Rom deterministically against an Observer.
type Replayer struct {
	rom    *rom.Rom
	source Source
}

// New builds a Replayer over rom using source for chunk lookup.
func New(r *rom.Rom, source Source) *Replayer {
	return &Replayer{rom: r, source: source}
}

// Chunk replays exactly the instructions of chunk id in program order,
// invoking observer.OnInstruction for each. It returns the number of
// instructions actually replayed (which may be less than the chunk's full
// length if the observer stops early) and whether the chunk id was found.
//
// Chunk is idempotent: calling it twice with the same id and the same
// underlying Source produces the same sequence of OnInstruction calls, since
// it only reads immutable Rom/Chunk data and never mutates shared state.
func (r *Replayer) Chunk(id rom.ChunkID, observer Observer) (replayed int, found bool) {
	chunk, ok := r.source.Chunk(id)
	if !ok {
		return 0, false
	}
	for _, instIndex := range chunk.Instructions() {
		inst := r.rom.At(instIndex)
		events := chunk.EventsAt(instIndex)
		replayed++
		if observer.OnInstruction(inst, events) {
			break
		}
	}
	return replayed, true
}

// Chunks replays a sequence of chunk ids in the given order, installing
// observer fresh for the whole sequence (not per chunk) — this is the shape a
// Collector needs: the collector itself tracks how many inputs it has
// produced across the chunks named in its plan's checkpoint, and signals stop
// once its target is reached, regardless of which chunk it is currently on.
func (r *Replayer) Chunks(ids []rom.ChunkID, observer Observer) error {
	for _, id := range ids {
		_, found := r.Chunk(id, observer)
		if !found {
			return &ChunkNotFoundError{ChunkID: id}
		}
	}
	return nil
}

// ChunkNotFoundError reports that a plan's checkpoint named a chunk id the
// Source does not have — this is always a planner/collector bug (the
// checkpoint must list exactly the chunks a collector replays).
type ChunkNotFoundError struct {
	ChunkID rom.ChunkID
}

func (e *ChunkNotFoundError) Error() string {
	return "replay: chunk not found"
}
