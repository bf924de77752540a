// Package rom models the transpiled program image that every execution
// replays against. The ELF->zkVM transpiler that produces a Rom lives outside
// this core; this package only holds the immutable, addressable result.
package rom

// OpType classifies an instruction for counting/planning purposes. The exact
// set of values is owned by the (out-of-scope) transpiler; this core treats
// OpType as an opaque comparable tag.
type OpType uint16

// Reserved op-type tags used by the bundled planners and collectors. Real
// transpilers define many more; these are the ones the core's own
// state-machine builders key off of.
const (
	OpUnknown OpType = iota
	OpAnd
	OpOr
	OpXor
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpKeccakF
	OpSecp256k1Add
	OpArith256
	OpMemAlign
	OpEcall
)

// Instruction is one transpiled instruction in a Rom. Operand semantics
// belong to the transpiler; the core only reads PC and Opcode.
type Instruction struct {
	PC      uint64
	Opcode  OpType
	Operand [3]uint64
}

// Rom is an immutable, addressable instruction stream. A Rom is built once by
// the transpiler and shared (read-only) across every replay and every
// counting/collection pass.
type Rom struct {
	instructions []Instruction
	pcIndex      map[uint64]int
}

// New builds a Rom from a sequence of instructions, indexing them by PC for
// O(1) lookup during replay.
func New(instructions []Instruction) *Rom {
	idx := make(map[uint64]int, len(instructions))
	cp := make([]Instruction, len(instructions))
	copy(cp, instructions)
	for i, inst := range cp {
		idx[inst.PC] = i
	}
	return &Rom{instructions: cp, pcIndex: idx}
}

// Len returns the number of instructions in the Rom.
func (r *Rom) Len() int { return len(r.instructions) }

// At returns the instruction at position i in program order.
func (r *Rom) At(i int) Instruction { return r.instructions[i] }

// Lookup returns the instruction at a given PC, and whether it exists.
func (r *Rom) Lookup(pc uint64) (Instruction, bool) {
	i, ok := r.pcIndex[pc]
	if !ok {
		return Instruction{}, false
	}
	return r.instructions[i], true
}

// IndexOf returns the program-order position of the instruction at pc, or -1.
func (r *Rom) IndexOf(pc uint64) int {
	if i, ok := r.pcIndex[pc]; ok {
		return i
	}
	return -1
}
