// Package instance implements the Instance Registry (C4): per-state-machine
// ComponentBuilders keyed by (airgroup_id, air_id), and the Instance/AirInstance
// types a builder produces across the two scheduler phases (collection +
// witness computation).
package instance

// AirInstance is the finalized witness payload for one AIR: a row-major
// buffer plus computed/not-computed bitmaps for commits and sub-proof values.
// Once built it is immutable — a scheduler task detaches it into the proof
// context's repository and never touches it again.
type AirInstance struct {
	AirgroupID uint32
	AirID      uint32
	GlobalIdx  uint64

	// Buffer holds the witness columns in row-major order; Width is the
	// number of 64-bit words per row.
	Buffer []uint64
	Width  uint32
	Rows   uint32

	// Computed marks, per row, whether that row's commit has been computed.
	// SubproofValues marks, per declared sub-proof value, whether it has been
	// computed. Both default to all-false until a witness routine fills them.
	Computed       []bool
	SubproofValues []bool
}

// NewAirInstance allocates an AirInstance with its buffer and bitmaps sized
// for rows×width, all entries zero/false.
func NewAirInstance(airgroupID, airID uint32, globalIdx uint64, rows, width uint32, subproofValueCount int) *AirInstance {
	return &AirInstance{
		AirgroupID:     airgroupID,
		AirID:          airID,
		GlobalIdx:      globalIdx,
		Buffer:         make([]uint64, uint64(rows)*uint64(width)),
		Width:          width,
		Rows:           rows,
		Computed:       make([]bool, rows),
		SubproofValues: make([]bool, subproofValueCount),
	}
}

// Row returns the slice of Buffer backing row i. Callers must not retain the
// slice past the AirInstance's mutation phase if width is zero (empty row).
func (a *AirInstance) Row(i uint32) []uint64 {
	if a.Width == 0 {
		return nil
	}
	start := uint64(i) * uint64(a.Width)
	return a.Buffer[start : start+uint64(a.Width)]
}

// FullyComputed reports whether every row has been marked computed.
func (a *AirInstance) FullyComputed() bool {
	for _, c := range a.Computed {
		if !c {
			return false
		}
	}
	return true
}
