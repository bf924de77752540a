package plan

import (
	"github.com/zisk-core/provercore/rom"
)

// InstanceType distinguishes the two Instance subtypes an AIR can produce.
type InstanceType uint8

const (
	// Instance is a regular instance: collects inputs from replayed chunks,
	// then deterministically computes a witness.
	Instance InstanceType = iota
	// Table is a table instance: accumulates a multiplicity vector from every
	// regular instance's reported side effects, and computes its witness
	// last, after every regular instance of the same job has finished.
	Table
)

func (t InstanceType) String() string {
	if t == Table {
		return "table"
	}
	return "instance"
}

// CheckpointKind distinguishes the four checkpoint shapes.
type CheckpointKind uint8

const (
	CheckpointNone CheckpointKind = iota
	CheckpointSingle
	CheckpointMultiple
	CheckpointCursor
)

// Checkpoint states exactly which chunks a collector must replay, and where
// in those chunks its collection window starts. A Plan's checkpoint is the
// one source of truth for "which chunks"; replaying any other chunk for that
// plan is a bug (see replay.ChunkNotFoundError and the collector contract).
type Checkpoint struct {
	Kind CheckpointKind

	// Single: Chunks[0] is the one chunk to replay.
	// Multiple: Chunks lists every chunk to replay, in ascending order.
	// Cursor: Chunks lists the chunk(s) to replay in ascending order (more
	// than one when a segment continues into the next chunk), and Skip says
	// how many leading matching events in the first of them to ignore before
	// collecting.
	Chunks []rom.ChunkID
	Skip   int
}

// NewCheckpointNone builds a Checkpoint naming no chunks (e.g. a plan that
// needs no collection pass at all).
func NewCheckpointNone() Checkpoint { return Checkpoint{Kind: CheckpointNone} }

// NewCheckpointSingle builds a Checkpoint naming exactly one chunk.
func NewCheckpointSingle(id rom.ChunkID) Checkpoint {
	return Checkpoint{Kind: CheckpointSingle, Chunks: []rom.ChunkID{id}}
}

// NewCheckpointMultiple builds a Checkpoint naming every chunk in ids, in
// ascending order — the shape every table Plan uses (all chunks).
func NewCheckpointMultiple(ids []rom.ChunkID) Checkpoint {
	cp := make([]rom.ChunkID, len(ids))
	copy(cp, ids)
	return Checkpoint{Kind: CheckpointMultiple, Chunks: cp}
}

// NewCheckpointCursor builds a Checkpoint naming one chunk with a skip count,
// the shape a segment that continues an unfinished remainder from a previous
// split uses to tell its collector "skip the first `skip` matching events,
// then collect".
func NewCheckpointCursor(id rom.ChunkID, skip int) Checkpoint {
	return Checkpoint{Kind: CheckpointCursor, Chunks: []rom.ChunkID{id}, Skip: skip}
}

// Plan is the atomic unit of "there must be an AIR-instance produced for
// this". AirgroupID/AirID select the constraint system; SegmentID
// distinguishes multiple regular-instance plans targeting the same air
// (nil for table plans, which are always singleton per air).
type Plan struct {
	AirgroupID   uint32
	AirID        uint32
	SegmentID    *uint32
	InstanceType InstanceType
	Checkpoint   Checkpoint

	// PreCalculate marks a plan whose witness can be computed ahead of the
	// general scheduling order (e.g. it needs no collection pass at all,
	// Checkpoint.Kind == CheckpointNone).
	PreCalculate bool

	// Meta carries planner-specific debug/replay metadata (e.g. a dump of the
	// per-chunk counts that produced this plan), opaque to the scheduler.
	Meta map[string]any
}

// Rows is how many input rows a Plan should collect at most, i.e. rows(air)
// for the air this plan targets. Planners pass this through from the
// registry's per-air row count so Checkpoint splitting can respect it.
type Rows uint32

// ChunkCount pairs a chunk id with the Metric that counted it, the unit a
// Planner's Plan method consumes.
type ChunkCount struct {
	ChunkID rom.ChunkID
	Metric  Metric
}

// Planner turns a first pass's per-chunk counts into the vector of Plans that
// must be produced. Implementations are one per state-machine/air.
type Planner interface {
	Plan(counts []ChunkCount) []Plan
}
