package collect

import (
	"testing"

	"github.com/zisk-core/provercore/bus"
	"github.com/zisk-core/provercore/plan"
	"github.com/zisk-core/provercore/replay"
	"github.com/zisk-core/provercore/rom"
)

func buildChunkedRom() (*rom.Rom, replay.MapSource) {
	r := rom.New([]rom.Instruction{
		{PC: 0, Opcode: rom.OpAnd},
		{PC: 4, Opcode: rom.OpAnd},
		{PC: 8, Opcode: rom.OpAnd},
		{PC: 12, Opcode: rom.OpAnd},
	})
	chunk0 := &rom.Chunk{
		ID: 0, StartIndex: 0, EndIndex: 2,
		Events: []rom.ChunkEvent{
			{InstIndex: 0, Kind: rom.EventOperation, Payload: []uint64{uint64(rom.OpAnd), 1}},
			{InstIndex: 1, Kind: rom.EventOperation, Payload: []uint64{uint64(rom.OpAnd), 2}},
		},
	}
	chunk1 := &rom.Chunk{
		ID: 1, StartIndex: 2, EndIndex: 4,
		Events: []rom.ChunkEvent{
			{InstIndex: 2, Kind: rom.EventOperation, Payload: []uint64{uint64(rom.OpAnd), 3}},
			{InstIndex: 3, Kind: rom.EventOperation, Payload: []uint64{uint64(rom.OpAnd), 4}},
		},
	}
	return r, replay.MapSource{0: chunk0, 1: chunk1}
}

func TestCollector_CollectsUpToTarget(t *testing.T) {
	r, src := buildChunkedRom()
	rep := replay.New(r, src)
	driver := NewDriver(rep)

	var got []bus.Payload
	sink := SinkFunc(func(p bus.Payload) { got = append(got, p) })
	cp := plan.NewCheckpointMultiple([]rom.ChunkID{0, 1})
	c := NewCollector(bus.OperationBusID, cp, 3, sink)

	chunksReplayed, err := driver.Run(cp, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d collected payloads, want 3", len(got))
	}
	if !c.Done() {
		t.Fatalf("expected collector to report done at target")
	}
	// stops mid-chunk-1, but the driver still counted chunk 1 as replayed
	// since it started replaying it.
	if chunksReplayed != 2 {
		t.Fatalf("got %d chunks replayed, want 2", chunksReplayed)
	}
}

func TestCollector_SkipIgnoresLeadingMatches(t *testing.T) {
	r, src := buildChunkedRom()
	rep := replay.New(r, src)
	driver := NewDriver(rep)

	var got []uint64
	sink := SinkFunc(func(p bus.Payload) { got = append(got, p[1]) })
	cp := plan.NewCheckpointCursor(0, 1)
	c := NewCollector(bus.OperationBusID, cp, 1, sink)

	if _, err := driver.Run(cp, c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("got %v, want [2] (skip first match, collect second)", got)
	}
}

func TestDriver_OverListedChunksAreNotReplayedOnceDone(t *testing.T) {
	r, src := buildChunkedRom()
	rep := replay.New(r, src)
	driver := NewDriver(rep)

	var got []bus.Payload
	sink := SinkFunc(func(p bus.Payload) { got = append(got, p) })
	// checkpoint over-lists chunk 1, but target is satisfied within chunk 0.
	cp := plan.NewCheckpointMultiple([]rom.ChunkID{0, 1})
	c := NewCollector(bus.OperationBusID, cp, 2, sink)

	chunksReplayed, err := driver.Run(cp, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunksReplayed != 1 {
		t.Fatalf("got %d chunks replayed, want 1 (chunk 1 skipped once done)", chunksReplayed)
	}
	if len(got) != 2 {
		t.Fatalf("got %d collected, want 2", len(got))
	}
}

func TestDriver_MissingChunkErrors(t *testing.T) {
	r, src := buildChunkedRom()
	rep := replay.New(r, src)
	driver := NewDriver(rep)

	sink := SinkFunc(func(bus.Payload) {})
	cp := plan.NewCheckpointMultiple([]rom.ChunkID{0, 99})
	c := NewCollector(bus.OperationBusID, cp, 100, sink)

	_, err := driver.Run(cp, c)
	if err == nil {
		t.Fatalf("expected error for missing chunk 99")
	}
}
