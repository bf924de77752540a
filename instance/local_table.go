package instance

// LocalTable is a per-task local multiplicity table, used by table-instance
// witness routines to accumulate row multiplicities without contending on
// the shared global counters every regular instance updates. Most keys are
// small (empirically well under size), so they live in a dense byte array;
// the rest overflow into a sparse slice of (row, value) pairs.
type LocalTable struct {
	size         int
	multiplicity []uint8
	overflow     []rowValue
}

type rowValue struct {
	row   uint64
	value uint64
}

// NewLocalTable builds a LocalTable whose dense array covers rows
// [0, size).
func NewLocalTable(size int) *LocalTable {
	return &LocalTable{
		size:         size,
		multiplicity: make([]uint8, size),
	}
}

// UpdateMultiplicity adds value to row's running multiplicity. Rows outside
// the dense array's range, or whose accumulated value would reach 255, are
// recorded in the sparse overflow slice instead.
func (t *LocalTable) UpdateMultiplicity(row, value uint64) {
	if row >= uint64(t.size) {
		t.overflow = append(t.overflow, rowValue{row: row, value: value})
		return
	}
	final := uint64(t.multiplicity[row]) + value
	if final >= 255 {
		t.overflow = append(t.overflow, rowValue{row: row, value: final})
		t.multiplicity[row] = 0
		return
	}
	t.multiplicity[row] = uint8(final)
}

// Merge folds t's accumulated multiplicities into a global dense vector
// (typically a table instance's witness buffer column, or pctx's shared
// table-multiplicity counters). dst must be at least t.size long; overflow
// entries with a row within dst's bounds are merged directly, others are
// returned so the caller can decide how to grow dst.
func (t *LocalTable) Merge(dst []uint64) (dropped []rowValueExport) {
	for row, v := range t.multiplicity {
		if v == 0 {
			continue
		}
		if row < len(dst) {
			dst[row] += uint64(v)
		}
	}
	for _, rv := range t.overflow {
		if rv.row < uint64(len(dst)) {
			dst[rv.row] += rv.value
		} else {
			dropped = append(dropped, rowValueExport{Row: rv.row, Value: rv.value})
		}
	}
	return dropped
}

// rowValueExport is the exported shape of an overflow entry that Merge could
// not place within dst's bounds.
type rowValueExport struct {
	Row   uint64
	Value uint64
}
