package engine

import (
	"os"
	"testing"
)

// setupTempEngine opens a fresh engine in a throwaway temp directory,
// mirroring the teacher engine's SetupTempDB test helper.
func setupTempEngine(t testing.TB, opts ...Option) (dir string, e *Engine) {
	t.Helper()

	dir, err := os.MkdirTemp("", "kvs_engine_test_*")
	if err != nil {
		t.Fatalf("MkdirTemp failed: %v", err)
	}

	e, err = Open(dir, opts...)
	if err != nil {
		os.RemoveAll(dir)
		t.Fatalf("Open(%q) failed: %v", dir, err)
	}

	t.Cleanup(func() {
		e.Close()
		os.RemoveAll(dir)
	})

	return dir, e
}
