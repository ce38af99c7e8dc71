package engine

import "errors"

var (
	// ErrKeyNotFound is returned by Remove when the key has no live entry
	// in the index. Get never returns this: a missing key is a successful
	// lookup that found nothing.
	ErrKeyNotFound = errors.New("key not found")

	// ErrCorruption is returned when a record read back from disk does not
	// decode, fails its checksum, or isn't the variant the caller expected
	// (Get always expects to find a Set).
	ErrCorruption = errors.New("corruption")

	// ErrNotADirectory is returned by Open when path exists but is a
	// regular file.
	ErrNotADirectory = errors.New("not a directory")
)
