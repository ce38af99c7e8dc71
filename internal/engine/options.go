package engine

import "go.uber.org/zap"

// DefaultCompactionThreshold is COMPACTION_THRESHOLD from the spec: once the
// sum of stale bytes across all segments exceeds this, a compaction runs
// before the triggering mutation returns.
const DefaultCompactionThreshold = 1 << 20 // 1 MiB

// Option configures an Engine at Open time, following the teacher engine's
// functional-options pattern (WithRolloverThreshold, WithFsync, ...).
type Option func(*Engine)

// WithCompactionThreshold overrides DefaultCompactionThreshold.
func WithCompactionThreshold(n int64) Option {
	return func(e *Engine) { e.compactionThreshold = n }
}

// WithFsync makes every Set and Remove additionally fsync the active
// segment's file descriptor before returning; the segments a compaction
// writes are not fsynced. The spec does not require this (OS page
// cache durability is enough), but it's offered for callers who want it,
// exactly as the teacher engine offers it.
func WithFsync(b bool) Option {
	return func(e *Engine) { e.fsync = b }
}

// WithLogger injects a structured logger. Open builds a no-op logger if
// none is supplied, so Engine is usable without a logging dependency in
// tests.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(e *Engine) { e.log = log }
}
