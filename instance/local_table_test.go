package instance

import "testing"

func TestLocalTable_DenseUpdatesAccumulate(t *testing.T) {
	lt := NewLocalTable(16)

	lt.UpdateMultiplicity(3, 5)
	lt.UpdateMultiplicity(3, 7)

	dst := make([]uint64, 16)
	lt.Merge(dst)

	if dst[3] != 12 {
		t.Fatalf("dst[3] = %d, want 12", dst[3])
	}
}

func TestLocalTable_OverflowsOnByteBoundary(t *testing.T) {
	lt := NewLocalTable(4)

	lt.UpdateMultiplicity(0, 200)
	lt.UpdateMultiplicity(0, 200) // 400 >= 255, spills to overflow

	dst := make([]uint64, 4)
	lt.Merge(dst)

	if dst[0] != 400 {
		t.Fatalf("dst[0] = %d, want 400", dst[0])
	}
}

func TestLocalTable_RowsAboveSizeGoToOverflowDirectly(t *testing.T) {
	lt := NewLocalTable(4)

	lt.UpdateMultiplicity(100, 9)

	dst := make([]uint64, 101)
	dropped := lt.Merge(dst)

	if len(dropped) != 0 {
		t.Fatalf("expected no dropped entries when dst covers row 100, got %v", dropped)
	}
	if dst[100] != 9 {
		t.Fatalf("dst[100] = %d, want 9", dst[100])
	}
}

func TestLocalTable_Merge_DropsOutOfBoundsOverflow(t *testing.T) {
	lt := NewLocalTable(4)
	lt.UpdateMultiplicity(100, 9)

	dst := make([]uint64, 4) // too small to hold row 100
	dropped := lt.Merge(dst)

	if len(dropped) != 1 || dropped[0].Row != 100 || dropped[0].Value != 9 {
		t.Fatalf("unexpected dropped entries: %+v", dropped)
	}
}
