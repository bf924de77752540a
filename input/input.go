// Package input supplies the prover's input sources — file, in-memory, and
// stdin-backed — behind one Source interface. Grounded on
// original_source/common/src/io/{file,memory,standard}_stdin.rs: each Rust
// ZiskStdin impl becomes one Source implementation here, trading the
// original's Vec<u8>-cloning read() for an io.Reader-shaped ReadAll/ReadInto
// pair.
package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Source is the read-only contract every prover input implements. ReadAll
// returns the entire input; ReadInto fills buf exactly (io.ReadFull
// semantics), matching the original's read_slice/read_into split between
// "give me everything" and "give me exactly this many bytes next".
type Source interface {
	ReadAll() ([]byte, error)
	ReadInto(buf []byte) error
	Close() error
}

// FileSource reads from a file on disk, grounded on ZiskFileStdin.
type FileSource struct {
	path   string
	file   *os.File
	reader *bufio.Reader
}

// NewFileSource opens path for reading.
func NewFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("input: opening %s: %w", path, err)
	}
	return &FileSource{path: path, file: f, reader: bufio.NewReader(f)}, nil
}

// ReadAll reads the whole file fresh from disk, independent of any prior
// ReadInto cursor position — matching ZiskFileStdin::read's fs::read
// semantics rather than draining the buffered reader.
func (s *FileSource) ReadAll() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("input: reading %s: %w", s.path, err)
	}
	return data, nil
}

// ReadInto fills buf exactly from the sequential buffered cursor.
func (s *FileSource) ReadInto(buf []byte) error {
	if _, err := io.ReadFull(s.reader, buf); err != nil {
		return fmt.Errorf("input: reading slice from %s: %w", s.path, err)
	}
	return nil
}

func (s *FileSource) Close() error { return s.file.Close() }

// BytesSource reads from an in-memory buffer, grounded on ZiskMemoryStdin.
type BytesSource struct {
	data   []byte
	cursor int
}

// NewBytesSource wraps data. The slice is not copied; callers must not
// mutate it after handing it to a BytesSource.
func NewBytesSource(data []byte) *BytesSource {
	return &BytesSource{data: data}
}

// ReadAll returns the full buffer, regardless of the ReadInto cursor.
func (s *BytesSource) ReadAll() ([]byte, error) {
	return s.data, nil
}

// ReadInto fills buf from the sequential cursor, advancing it.
func (s *BytesSource) ReadInto(buf []byte) error {
	if s.cursor+len(buf) > len(s.data) {
		return fmt.Errorf("input: short read from memory source: want %d bytes at offset %d, have %d remaining", len(buf), s.cursor, len(s.data)-s.cursor)
	}
	copy(buf, s.data[s.cursor:s.cursor+len(buf)])
	s.cursor += len(buf)
	return nil
}

func (s *BytesSource) Close() error { return nil }

// StdinSource reads from process stdin (or any io.Reader standing in for
// it), grounded on ZiskStandardStdin. Unlike File/BytesSource, the
// underlying stream can only be drained once — stdin is a one-shot stream,
// not seekable storage — so ReadAll caches what it read.
type StdinSource struct {
	r      *bufio.Reader
	all    []byte
	cached bool
}

// NewStdinSource wraps r (os.Stdin in production, a bytes.Reader in tests).
func NewStdinSource(r io.Reader) *StdinSource {
	return &StdinSource{r: bufio.NewReader(r)}
}

// ReadAll drains r to EOF and caches the result, so a second call returns
// the cached bytes instead of reading an exhausted stream again. ReadInto
// does not use the cache: after ReadAll it reads the drained stream and
// fails with an EOF error.
func (s *StdinSource) ReadAll() ([]byte, error) {
	if s.cached {
		return s.all, nil
	}
	data, err := io.ReadAll(s.r)
	if err != nil {
		return nil, fmt.Errorf("input: reading stdin: %w", err)
	}
	s.all = data
	s.cached = true
	return data, nil
}

// ReadInto fills buf exactly from the sequential stream.
func (s *StdinSource) ReadInto(buf []byte) error {
	if _, err := io.ReadFull(s.r, buf); err != nil {
		return fmt.Errorf("input: reading slice from stdin: %w", err)
	}
	return nil
}

func (s *StdinSource) Close() error { return nil }

var (
	_ Source = (*FileSource)(nil)
	_ Source = (*BytesSource)(nil)
	_ Source = (*StdinSource)(nil)
)
