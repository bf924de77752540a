package asm

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestHeader_EncodeDecodeRoundTrips(t *testing.T) {
	h := Header{Version: 3, ExitCode: -1, AllocatedSize: 4096, Steps: 123456}
	got := DecodeHeader(EncodeHeader(h))
	if got != h {
		t.Fatalf("got %+v, want %+v", got, h)
	}
}

func TestHeader_IsFourWords(t *testing.T) {
	if HeaderWords != 4 {
		t.Fatalf("got HeaderWords=%d, want 4 (version, exit_code, allocated_size, steps)", HeaderWords)
	}
}

func TestSegment_WriteHeaderThenReadHeaderRoundTrips(t *testing.T) {
	name := "zisk-asm-protocol-test"
	seg, err := CreateSegment(name, HeaderWords*8+16)
	if err != nil {
		t.Fatalf("CreateSegment: %v", err)
	}
	defer func() {
		seg.Close()
		unix.Unlink("/dev/shm/" + name)
	}()

	want := Header{Version: 1, ExitCode: 0, AllocatedSize: 64, Steps: 99}
	if err := seg.WriteHeader(want); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	got, err := seg.ReadHeader()
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	if len(seg.Body()) != 16 {
		t.Fatalf("got body length %d, want 16 (segment size minus 4-word header)", len(seg.Body()))
	}
}
