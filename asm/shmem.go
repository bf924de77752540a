package asm

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Segment is a POSIX shared-memory region backed by a file under /dev/shm,
// memory-mapped into this process's address space so both this core and an
// ASM service subprocess can read/write it without a syscall per access.
// Go's standard library has no shm_open/mmap wrapper, so this is built on
// golang.org/x/sys/unix directly over an os.File opened against /dev/shm —
// the same shared-memory pattern POSIX shm_open+mmap gives in C.
type Segment struct {
	Name string
	file *os.File
	data []byte
}

// CreateSegment creates (or truncates) a shared-memory segment of size bytes
// named name under /dev/shm, and maps it read-write.
func CreateSegment(name string, size int) (*Segment, error) {
	path := filepath.Join("/dev/shm", name)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("asm: create shm segment %q: %w", name, err)
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("asm: size shm segment %q: %w", name, err)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("asm: mmap shm segment %q: %w", name, err)
	}
	return &Segment{Name: name, file: f, data: data}, nil
}

// OpenSegment maps an existing shared-memory segment (created by a service
// subprocess, or by CreateSegment in this process) read-write.
func OpenSegment(name string, size int) (*Segment, error) {
	path := filepath.Join("/dev/shm", name)
	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("asm: open shm segment %q: %w", name, err)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("asm: mmap shm segment %q: %w", name, err)
	}
	return &Segment{Name: name, file: f, data: data}, nil
}

// Bytes exposes the mapped region directly. Callers must treat word-aligned
// regions (the header, then the body) per the protocol's layout.
func (s *Segment) Bytes() []byte { return s.data }

// WriteHeader writes h into the first HeaderWords*8 bytes of the segment.
func (s *Segment) WriteHeader(h Header) error {
	words := EncodeHeader(h)
	if len(s.data) < HeaderWords*8 {
		return fmt.Errorf("asm: segment %q too small for header", s.Name)
	}
	for i, w := range words {
		binary.LittleEndian.PutUint64(s.data[i*8:], w)
	}
	return nil
}

// ReadHeader reads the first HeaderWords*8 bytes of the segment as a Header.
func (s *Segment) ReadHeader() (Header, error) {
	if len(s.data) < HeaderWords*8 {
		return Header{}, fmt.Errorf("asm: segment %q too small for header", s.Name)
	}
	var words [HeaderWords]uint64
	for i := range words {
		words[i] = binary.LittleEndian.Uint64(s.data[i*8:])
	}
	return DecodeHeader(words), nil
}

// Body returns the bytes following the fixed header, the service-specific
// data region.
func (s *Segment) Body() []byte {
	if len(s.data) <= HeaderWords*8 {
		return nil
	}
	return s.data[HeaderWords*8:]
}

// Close unmaps and closes the segment's backing file. It does not remove the
// /dev/shm path — Remove does that.
func (s *Segment) Close() error {
	if s.data != nil {
		if err := unix.Munmap(s.data); err != nil {
			return err
		}
		s.data = nil
	}
	return s.file.Close()
}

// Remove unlinks the segment's /dev/shm path.
func (s *Segment) Remove() error {
	return os.Remove(filepath.Join("/dev/shm", s.Name))
}

