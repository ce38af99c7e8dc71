// Package engine implements the log-structured storage engine: the
// append-only command log, the in-memory key index, and the set/get/remove
// contract that composes them, with compaction to bound disk usage.
package engine

import (
	"fmt"
	"os"
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"github.com/epokhe/kvs/internal/wire"
)

// Engine is a handle to a log-structured key-value store rooted at one
// directory. It is safe to share a single *Engine across goroutines: every
// public method takes the internal lock for its own duration, so cloning
// the source's cheaply-clonable handle is simply sharing the pointer.
type Engine struct {
	mu sync.RWMutex

	dir      string
	segments []*segment // ascending by id; segments[len-1] is always active
	idx      *index

	nextID int

	compactionThreshold int64
	fsync               bool
	log                 *zap.SugaredLogger
}

// Open opens (creating if necessary) the store rooted at path and replays
// its segments to rebuild the in-memory index.
func Open(path string, opts ...Option) (*Engine, error) {
	e := &Engine{
		dir:                 path,
		idx:                 newIndex(),
		compactionThreshold: DefaultCompactionThreshold,
		log:                 zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(e)
	}

	info, statErr := os.Stat(path)
	switch {
	case os.IsNotExist(statErr):
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %q: %w", path, err)
		}
	case statErr != nil:
		return nil, fmt.Errorf("stat %q: %w", path, statErr)
	case !info.IsDir():
		return nil, fmt.Errorf("%w: %q", ErrNotADirectory, path)
	}

	ids, err := discoverSegments(path)
	if err != nil {
		return nil, err
	}
	warnNonDenseIDs(e.log, ids)

	if len(ids) == 0 {
		seg, err := createSegment(path, 0)
		if err != nil {
			return nil, fmt.Errorf("create initial segment: %w", err)
		}
		e.segments = []*segment{seg}
		e.nextID = 1
		return e, nil
	}

	for _, id := range ids {
		seg, err := openForAppend(path, id)
		if err != nil {
			return nil, err
		}

		records, err := seg.replay()
		if err != nil {
			seg.close()
			return nil, err
		}
		e.segments = append(e.segments, seg)

		for _, rec := range records {
			e.applyReplayedRecord(seg.id, rec)
		}
	}

	e.nextID = ids[len(ids)-1] + 1
	return e, nil
}

// applyReplayedRecord feeds one decoded record from Open's replay into the
// index, exactly mirroring what set/remove do for a live write: the prior
// location (if any) becomes stale, and for a Remove the tombstone's own
// bytes are stale from the moment they're written.
func (e *Engine) applyReplayedRecord(segmentID int, rec scannedRecord) {
	switch {
	case rec.cmd.Set != nil:
		e.idx.set(rec.cmd.Set.Key, location{segmentID: segmentID, offset: rec.offset, length: rec.length})
	case rec.cmd.Remove != nil:
		e.idx.remove(rec.cmd.Remove.Key)
		e.idx.addStale(segmentID, rec.length)
	}
}

func warnNonDenseIDs(log *zap.SugaredLogger, ids []int) {
	if len(ids) == 0 {
		return
	}
	present := mapset.NewSet(ids...)
	expected := mapset.NewSet[int]()
	for id := ids[0]; id <= ids[len(ids)-1]; id++ {
		expected.Add(id)
	}
	if missing := expected.Difference(present); missing.Cardinality() != 0 {
		gaps := missing.ToSlice()
		sort.Ints(gaps)
		log.Warnw("segment id sequence has gaps", "missing_ids", gaps)
	}
}

func (e *Engine) activeSegment() *segment {
	return e.segments[len(e.segments)-1]
}

func (e *Engine) segmentByID(id int) *segment {
	for _, seg := range e.segments {
		if seg.id == id {
			return seg
		}
	}
	return nil
}

// Set asserts key maps to value. Succeeds unconditionally apart from I/O
// errors; a previous mapping for key (if any) is marked stale, not erased
// from disk.
func (e *Engine) Set(key, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.appendAndIndexSet(key, value); err != nil {
		return err
	}
	return e.maybeCompactLocked()
}

func (e *Engine) appendAndIndexSet(key, value string) error {
	active := e.activeSegment()
	offset, length, err := active.append(wire.NewSetCommand(key, value))
	if err != nil {
		return err
	}
	if e.fsync {
		if err := active.file.Sync(); err != nil {
			return fmt.Errorf("fsync segment %d: %w", active.id, err)
		}
	}
	e.idx.set(key, location{segmentID: active.id, offset: offset, length: length})
	return nil
}

// Get returns the current value of key, or (nil, nil) if key has no live
// mapping.
func (e *Engine) Get(key string) (*string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	loc, ok := e.idx.get(key)
	if !ok {
		return nil, nil
	}

	seg := e.segmentByID(loc.segmentID)
	if seg == nil {
		return nil, fmt.Errorf("%w: index points at unknown segment %d", ErrCorruption, loc.segmentID)
	}

	cmd, err := seg.readAt(loc.offset, loc.length)
	if err != nil {
		return nil, err
	}
	if cmd.Set == nil || cmd.Set.Key != key {
		return nil, fmt.Errorf("%w: index pointed at a non-matching record for key %q", ErrCorruption, key)
	}
	return &cmd.Set.Value, nil
}

// Remove erases key's mapping. Fails with ErrKeyNotFound if key has no live
// mapping.
func (e *Engine) Remove(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.idx.get(key); !ok {
		return fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}

	active := e.activeSegment()
	offset, length, err := active.append(wire.NewRemoveCommand(key))
	if err != nil {
		return err
	}
	if e.fsync {
		if err := active.file.Sync(); err != nil {
			return fmt.Errorf("fsync segment %d: %w", active.id, err)
		}
	}

	// The tombstone is stale the instant it's written; the location it
	// replaces is marked stale by idx.remove.
	e.idx.remove(key)
	e.idx.addStale(active.id, length)

	return e.maybeCompactLocked()
}

// Close closes every open segment file. The Engine must not be used
// afterward.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, seg := range e.segments {
		if err := seg.close(); err != nil {
			return fmt.Errorf("close segment %d: %w", seg.id, err)
		}
	}
	return nil
}

// DiskSize returns the sum of all live segment files' sizes, for tests and
// diagnostics that want to observe compaction actually bounding disk usage.
func (e *Engine) DiskSize() (int64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var total int64
	for _, seg := range e.segments {
		info, err := seg.file.Stat()
		if err != nil {
			return 0, fmt.Errorf("stat segment %d: %w", seg.id, err)
		}
		total += info.Size()
	}
	return total, nil
}
