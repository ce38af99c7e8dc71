package engine

// location pinpoints one persisted Set record: which segment it lives in,
// where it starts, and how long it is.
type location struct {
	segmentID int
	offset    int64
	length    int64
}

// index is the in-memory map from key to the location of its most recent
// Set record, plus a per-segment count of stale (superseded or tombstone)
// bytes. It carries no locking of its own — the engine's single RWMutex
// guards every access, so the index and the log it describes are never
// mutated independently of one another.
type index struct {
	locations map[string]location
	stale     map[int]int64
}

func newIndex() *index {
	return &index{
		locations: make(map[string]location),
		stale:     make(map[int]int64),
	}
}

func (ix *index) get(key string) (location, bool) {
	loc, ok := ix.locations[key]
	return loc, ok
}

// set records key's new location, marking the previous location (if any)
// stale. Returns the previous location and whether one existed.
func (ix *index) set(key string, loc location) (prev location, hadPrev bool) {
	prev, hadPrev = ix.locations[key]
	if hadPrev {
		ix.stale[prev.segmentID] += prev.length
	}
	ix.locations[key] = loc
	return prev, hadPrev
}

// remove erases key from the index, marking its prior location stale. The
// caller is responsible for also accounting for the tombstone record's own
// bytes, which belong to whatever segment the tombstone itself landed in.
func (ix *index) remove(key string) (prev location, hadPrev bool) {
	prev, hadPrev = ix.locations[key]
	if hadPrev {
		ix.stale[prev.segmentID] += prev.length
		delete(ix.locations, key)
	}
	return prev, hadPrev
}

func (ix *index) addStale(segmentID int, n int64) {
	ix.stale[segmentID] += n
}

func (ix *index) totalStale() int64 {
	var total int64
	for _, n := range ix.stale {
		total += n
	}
	return total
}

// clearStale drops the stale counters for segments that compaction just
// retired; their bytes no longer exist anywhere.
func (ix *index) clearStale(segmentIDs []int) {
	for _, id := range segmentIDs {
		delete(ix.stale, id)
	}
}
