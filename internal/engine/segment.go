package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/epokhe/kvs/internal/wire"
)

const segmentSuffix = ".log"

// segment is one append-only file in the database directory, identified by
// a monotonically increasing id. The active segment (the one with the
// largest id) is the sole target of appends; every other live segment is
// read-only.
type segment struct {
	id   int
	file *os.File
	size int64 // current length in bytes; doubles as the next append offset
}

func segmentPath(dir string, id int) string {
	return filepath.Join(dir, strconv.Itoa(id)+segmentSuffix)
}

// discoverSegments enumerates "<id>.log" files in dir and returns their ids
// sorted ascending. Any other file in the directory is ignored: there is no
// side-car manifest to keep in sync.
func discoverSegments(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	var ids []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, segmentSuffix) {
			continue
		}
		idStr := strings.TrimSuffix(name, segmentSuffix)
		id, err := strconv.Atoi(idStr)
		if err != nil {
			continue // not one of ours
		}
		ids = append(ids, id)
	}

	sort.Ints(ids)
	return ids, nil
}

// createSegment creates a new, empty segment file. Used both for the very
// first segment in a fresh directory and for the pair of segments a
// compaction rolls over to.
func createSegment(dir string, id int) (*segment, error) {
	path := segmentPath(dir, id)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create segment %d: %w", id, err)
	}
	return &segment{id: id, file: f}, nil
}

// openForAppend opens an existing segment for both positioned reads and
// trailing appends; size is left at zero for the caller to fill in once it
// knows where the live tail of the file actually ends (discovered by replay
// or compaction, not implied by the file's raw length).
func openForAppend(dir string, id int) (*segment, error) {
	path := segmentPath(dir, id)
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open segment %d: %w", id, err)
	}
	return &segment{id: id, file: f}, nil
}

// removeSegment deletes a retired segment's file.
func removeSegment(dir string, id int) error {
	if err := os.Remove(segmentPath(dir, id)); err != nil {
		return fmt.Errorf("remove segment %d: %w", id, err)
	}
	return nil
}

// append writes cmd to the segment and returns the byte offset at which the
// record begins. The full record is built in memory and written in a single
// syscall, which both bounds the write to one flush to the kernel file
// descriptor (satisfying the "no fsync required, but must reach the OS"
// rule) and keeps concurrent positioned reads from ever observing a
// partially-written record.
func (s *segment) append(cmd wire.Command) (offset int64, length int64, err error) {
	buf, err := encodeRecord(cmd)
	if err != nil {
		return 0, 0, err
	}

	offset = s.size
	n, err := s.file.WriteAt(buf, offset)
	if err != nil {
		return 0, 0, fmt.Errorf("append to segment %d: %w", s.id, err)
	}
	s.size += int64(n)
	return offset, int64(n), nil
}

// readAt decodes the record of the given length starting at offset.
func (s *segment) readAt(offset, length int64) (wire.Command, error) {
	buf := make([]byte, length)
	if _, err := s.file.ReadAt(buf, offset); err != nil {
		return wire.Command{}, fmt.Errorf("read segment %d at %d: %w", s.id, offset, err)
	}

	var rec diskRecord
	if err := json.Unmarshal(buf, &rec); err != nil {
		return wire.Command{}, fmt.Errorf("%w: decode record at segment %d offset %d: %v", ErrCorruption, s.id, offset, err)
	}
	if err := rec.verify(); err != nil {
		return wire.Command{}, err
	}
	return rec.Cmd, nil
}

func (s *segment) close() error {
	return s.file.Close()
}

// scannedRecord is one record discovered while replaying a segment from the
// start.
type scannedRecord struct {
	cmd    wire.Command
	offset int64
	length int64
}

// replay decodes every record in the segment from the beginning, in order.
// Reaching end-of-file with zero bytes of a next record is a clean end;
// hitting end-of-file partway through a record (io.ErrUnexpectedEOF) is
// treated as a crash-torn tail: scanning stops there and the segment is
// truncated to the last good offset so future appends resume cleanly. Any
// other decode error, or a record whose checksum does not match, is real
// corruption and fails outright — see SPEC_FULL.md §4.D for the full
// policy statement.
func (s *segment) replay() ([]scannedRecord, error) {
	info, err := s.file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat segment %d: %w", s.id, err)
	}
	fileSize := info.Size()

	dec := json.NewDecoder(io.NewSectionReader(s.file, 0, fileSize))

	var records []scannedRecord
	var offset int64
	for {
		start := offset
		var rec diskRecord
		err := dec.Decode(&rec)
		offset = dec.InputOffset()

		if err != nil {
			if errors.Is(err, io.EOF) {
				break // clean end, nothing partially written
			}

			// A torn tail looks like valid JSON prefix followed by EOF,
			// which json.Decoder reports as io.ErrUnexpectedEOF: a torn
			// write from an unclean shutdown, not corruption of an
			// earlier, otherwise-intact record. A syntax error is not
			// treated this way; it is reported as corruption below.
			if start >= fileSize || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}

			return nil, fmt.Errorf("%w: decode segment %d at offset %d: %v", ErrCorruption, s.id, start, err)
		}

		if err := rec.verify(); err != nil {
			return nil, fmt.Errorf("segment %d at offset %d: %w", s.id, start, err)
		}

		records = append(records, scannedRecord{cmd: rec.Cmd, offset: start, length: offset - start})
	}

	s.size = offset
	if err := s.file.Truncate(s.size); err != nil {
		return nil, fmt.Errorf("truncate segment %d to %d: %w", s.id, s.size, err)
	}

	return records, nil
}
