package ingest_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gosuda/hookstream/internal/domain"
)

// ---------------------------------------------------------------------------
// File helpers
// ---------------------------------------------------------------------------

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	return info.Size()
}

// ---------------------------------------------------------------------------
// Mock sink / publisher / notifier
// ---------------------------------------------------------------------------

type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *recordingSink) Append(events ...domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
}

func (s *recordingSink) all() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Event(nil), s.events...)
}

type recordingPublisher struct {
	mu      sync.Mutex
	batches [][]domain.Event
}

func (p *recordingPublisher) Publish(batch []domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, batch)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.batches)
}

// chanNotifier is a synthetic Notifier: tests push paths onto changes.
type chanNotifier struct {
	mu      sync.Mutex
	added   []string
	failFor map[string]error
	changes chan string
}

func newChanNotifier() *chanNotifier {
	return &chanNotifier{changes: make(chan string, 16), failFor: make(map[string]error)}
}

func (n *chanNotifier) Add(path string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err, ok := n.failFor[path]; ok {
		return err
	}
	n.added = append(n.added, path)
	return nil
}

func (n *chanNotifier) Changes() <-chan string { return n.changes }

func (n *chanNotifier) Close() error {
	close(n.changes)
	return nil
}

func (n *chanNotifier) addedPaths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.added...)
}
