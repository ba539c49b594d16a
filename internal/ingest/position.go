package ingest

import "sync"

// PositionTracker records, per file path, how many bytes have been consumed.
type PositionTracker struct {
	mu      sync.Mutex
	offsets map[string]int64
}

// NewPositionTracker creates an empty tracker.
func NewPositionTracker() *PositionTracker {
	return &PositionTracker{offsets: make(map[string]int64)}
}

// Get returns the consumed offset for path and whether it is tracked.
func (t *PositionTracker) Get(path string) (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	off, ok := t.offsets[path]
	return off, ok
}

// Set records offset for path.
func (t *PositionTracker) Set(path string, offset int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.offsets[path] = offset
}

// Paths returns the number of tracked paths.
func (t *PositionTracker) Paths() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.offsets)
}
