package eventlog

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/xtxerr/spark/internal/errors"
)

// SegmentReader reads events from one segment file.
type SegmentReader struct {
	path string
	file *os.File
	r    *bufio.Reader

	stats ReaderStats
}

// ReaderStats holds reader statistics.
type ReaderStats struct {
	EventsRead int64
	BytesRead  int64
}

// OpenSegment opens a segment file and verifies its header.
func OpenSegment(path string) (*SegmentReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open segment: %w", err)
	}

	var header [headerSize]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("read header: %w", err)
	}

	if magic := binary.LittleEndian.Uint64(header[0:8]); magic != logMagic {
		f.Close()
		return nil, fmt.Errorf("invalid magic: expected %x, got %x", uint64(logMagic), magic)
	}
	if version := binary.LittleEndian.Uint32(header[8:12]); version != logVersion {
		f.Close()
		return nil, fmt.Errorf("unsupported version: %d", version)
	}

	return &SegmentReader{path: path, file: f, r: bufio.NewReader(f)}, nil
}

// Next reads the next event. It returns io.EOF after the last record.
func (r *SegmentReader) Next() (Event, error) {
	var header [recordHeaderSize]byte
	if _, err := io.ReadFull(r.r, header[:]); err != nil {
		if err == io.EOF {
			return Event{}, io.EOF
		}
		return Event{}, fmt.Errorf("read record header: %w", errors.ErrCorruptRecord)
	}

	length := binary.LittleEndian.Uint32(header[0:4])
	expectedCRC := binary.LittleEndian.Uint32(header[4:8])
	if length > maxRecordSize {
		return Event{}, fmt.Errorf("record too large: %d bytes: %w", length, errors.ErrCorruptRecord)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		return Event{}, fmt.Errorf("read payload: %w", errors.ErrCorruptRecord)
	}
	if actual := crc32.ChecksumIEEE(payload); actual != expectedCRC {
		return Event{}, fmt.Errorf("CRC mismatch: expected %x, got %x: %w", expectedCRC, actual, errors.ErrCorruptRecord)
	}

	e, err := decodeEvent(payload)
	if err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}

	r.stats.EventsRead++
	r.stats.BytesRead += int64(recordHeaderSize + len(payload))
	return e, nil
}

// Close closes the segment file.
func (r *SegmentReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// Stats returns reader statistics.
func (r *SegmentReader) Stats() ReaderStats {
	return r.stats
}

// Path returns the segment path.
func (r *SegmentReader) Path() string {
	return r.path
}

// Reader reads the events of every segment in a directory in order.
type Reader struct {
	segments []Segment
	next     int
	current  *SegmentReader
}

// NewReader lists the segments of dir.
func NewReader(dir string) (*Reader, error) {
	segments, err := ListSegments(dir)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("no event log segments in %s: %w", dir, errors.ErrNotFound)
	}
	return &Reader{segments: segments}, nil
}

// Segments returns the segments the reader walks.
func (r *Reader) Segments() []Segment {
	return r.segments
}

// Next returns the next event across segments, or io.EOF.
func (r *Reader) Next() (Event, error) {
	for {
		if r.current == nil {
			if r.next >= len(r.segments) {
				return Event{}, io.EOF
			}
			seg, err := OpenSegment(r.segments[r.next].Path)
			if err != nil {
				return Event{}, err
			}
			r.current = seg
			r.next++
		}

		e, err := r.current.Next()
		if err == io.EOF {
			r.current.Close()
			r.current = nil
			continue
		}
		return e, err
	}
}

// Close closes the open segment.
func (r *Reader) Close() error {
	if r.current == nil {
		return nil
	}
	err := r.current.Close()
	r.current = nil
	return err
}

// Count reads every segment of dir and returns the number of events.
func Count(dir string) (uint64, error) {
	r, err := NewReader(dir)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	var n uint64
	for {
		if _, err := r.Next(); err != nil {
			if err == io.EOF {
				return n, nil
			}
			return n, err
		}
		n++
	}
}
