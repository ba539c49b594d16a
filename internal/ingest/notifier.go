package ingest

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Notifier reports that a registered file may have changed. Receiving from
// Changes blocks until the next change; the channel is closed by Close.
type Notifier interface {
	Add(path string) error
	Changes() <-chan string
	Close() error
}

// FSNotifier implements Notifier with fsnotify. It watches the parent
// directory of every registered file so that files created after
// registration, or replaced by rename, are still reported.
type FSNotifier struct {
	watcher *fsnotify.Watcher
	changes chan string
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup

	mu    sync.Mutex
	files map[string]struct{}
	dirs  map[string]struct{}
}

// NewFSNotifier starts an fsnotify-backed Notifier.
func NewFSNotifier() (*FSNotifier, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("ingest.NewFSNotifier: %w", err)
	}

	n := &FSNotifier{
		watcher: w,
		changes: make(chan string, 64),
		done:    make(chan struct{}),
		files:   make(map[string]struct{}),
		dirs:    make(map[string]struct{}),
	}

	n.wg.Add(1)
	go n.run()
	return n, nil
}

// Add registers path. Its directory must exist.
func (n *FSNotifier) Add(path string) error {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.dirs[dir]; !ok {
		if err := n.watcher.Add(dir); err != nil {
			return fmt.Errorf("ingest.FSNotifier.Add: %s: %w", dir, err)
		}
		n.dirs[dir] = struct{}{}
	}
	n.files[path] = struct{}{}
	return nil
}

// Changes delivers the path of each changed registered file.
func (n *FSNotifier) Changes() <-chan string {
	return n.changes
}

// Close stops watching and closes Changes.
func (n *FSNotifier) Close() error {
	var err error
	n.once.Do(func() {
		close(n.done)
		err = n.watcher.Close()
		n.wg.Wait()
		close(n.changes)
	})
	if err != nil {
		return fmt.Errorf("ingest.FSNotifier.Close: %w", err)
	}
	return nil
}

func (n *FSNotifier) run() {
	defer n.wg.Done()

	for {
		select {
		case <-n.done:
			return
		case event, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			name := filepath.Clean(event.Name)
			if !n.registered(name) {
				continue
			}
			select {
			case n.changes <- name:
			case <-n.done:
				return
			}
		case err, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("file watcher error")
		}
	}
}

func (n *FSNotifier) registered(path string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.files[path]
	return ok
}
