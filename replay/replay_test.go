package replay

import (
	"testing"

	"github.com/zisk-core/provercore/rom"
)

func buildRomAndChunk() (*rom.Rom, MapSource) {
	r := rom.New([]rom.Instruction{
		{PC: 0, Opcode: rom.OpAdd},
		{PC: 4, Opcode: rom.OpAnd},
		{PC: 8, Opcode: rom.OpEcall},
	})
	chunk := &rom.Chunk{
		ID:         0,
		StartIndex: 0,
		EndIndex:   3,
		Events: []rom.ChunkEvent{
			{InstIndex: 1, Kind: rom.EventOperation, Payload: []uint64{1}},
		},
	}
	return r, MapSource{0: chunk}
}

func TestReplayer_Chunk_VisitsInOrder(t *testing.T) {
	r, src := buildRomAndChunk()
	rep := New(r, src)

	var opcodes []rom.OpType
	_, found := rep.Chunk(0, ObserverFunc(func(inst rom.Instruction, events []rom.ChunkEvent) bool {
		opcodes = append(opcodes, inst.Opcode)
		return false
	}))

	if !found {
		t.Fatalf("expected chunk 0 to be found")
	}
	want := []rom.OpType{rom.OpAdd, rom.OpAnd, rom.OpEcall}
	if len(opcodes) != len(want) {
		t.Fatalf("got %v, want %v", opcodes, want)
	}
	for i := range want {
		if opcodes[i] != want[i] {
			t.Fatalf("index %d: got %v, want %v", i, opcodes[i], want[i])
		}
	}
}

func TestReplayer_Chunk_ObserverStopsEarly(t *testing.T) {
	r, src := buildRomAndChunk()
	rep := New(r, src)

	count := 0
	replayed, _ := rep.Chunk(0, ObserverFunc(func(inst rom.Instruction, events []rom.ChunkEvent) bool {
		count++
		return count == 1
	}))

	if replayed != 1 {
		t.Fatalf("expected replay to stop after 1 instruction, got %d", replayed)
	}
}

func TestReplayer_Chunk_IsIdempotent(t *testing.T) {
	r, src := buildRomAndChunk()
	rep := New(r, src)

	collect := func() []rom.OpType {
		var out []rom.OpType
		rep.Chunk(0, ObserverFunc(func(inst rom.Instruction, events []rom.ChunkEvent) bool {
			out = append(out, inst.Opcode)
			return false
		}))
		return out
	}

	first := collect()
	second := collect()
	if len(first) != len(second) {
		t.Fatalf("replay produced different lengths across invocations")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("replay diverged at index %d", i)
		}
	}
}

func TestReplayer_Chunks_MissingChunkErrors(t *testing.T) {
	r, src := buildRomAndChunk()
	rep := New(r, src)

	err := rep.Chunks([]rom.ChunkID{0, 99}, ObserverFunc(func(rom.Instruction, []rom.ChunkEvent) bool {
		return false
	}))
	if err == nil {
		t.Fatalf("expected ChunkNotFoundError for chunk 99")
	}
}
