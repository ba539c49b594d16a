package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultRolloverInterval is how often the Scheduler looks for a new day's file.
const DefaultRolloverInterval = time.Hour

// Scheduler drives the Pipeline from change notifications and moves on to
// each new day's log file. All ingestion happens on the goroutine running Run.
type Scheduler struct {
	pipeline *Pipeline
	resolver *PathResolver
	notifier Notifier
	interval time.Duration

	// sessionsPath is the cleaned mapping file path, "" when there is none.
	sessionsPath string

	mu              sync.Mutex
	watched         map[string]struct{}
	sessionsWatched bool
	sessionsRetry   bool
}

// NewScheduler creates a Scheduler. A non-positive interval falls back to
// DefaultRolloverInterval.
func NewScheduler(pipeline *Pipeline, resolver *PathResolver, notifier Notifier, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultRolloverInterval
	}
	sessionsPath := ""
	if p := pipeline.Sessions.Path(); p != "" {
		sessionsPath = filepath.Clean(p)
	}
	return &Scheduler{
		pipeline:     pipeline,
		resolver:     resolver,
		notifier:     notifier,
		interval:     interval,
		sessionsPath: sessionsPath,
		watched:      make(map[string]struct{}),
	}
}

// Watch starts following path from its current end. Watching a path twice
// is a no-op. When registration fails the path stays unwatched and a later
// call may retry.
func (s *Scheduler) Watch(path string) error {
	path = filepath.Clean(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.watched[path]; ok {
		return nil
	}
	if err := s.notifier.Add(path); err != nil {
		return fmt.Errorf("ingest.Scheduler.Watch: %w", err)
	}
	if err := s.pipeline.SeekEnd(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("could not position at end of file, reading from start")
	}
	s.watched[path] = struct{}{}

	log.Info().Str("path", path).Msg("watching event log")
	return nil
}

// Watching reports whether path is being followed.
func (s *Scheduler) Watching(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.watched[filepath.Clean(path)]
	return ok
}

// CheckRollover starts watching today's file if it is not watched yet and
// retries a mapping file registration that failed earlier. Previously
// watched files are left alone. It reports whether today's file was added
// after another day's file was already being followed.
func (s *Scheduler) CheckRollover() bool {
	s.watchSessions()

	path := s.resolver.Current()
	if s.Watching(path) {
		return false
	}

	s.mu.Lock()
	rolled := len(s.watched) > 0
	s.mu.Unlock()
	if rolled {
		log.Info().Str("path", path).Msg("new day detected")
	}

	if err := s.Watch(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("watch failed, will retry")
		return false
	}
	return rolled
}

// watchSessions registers the mapping file with the notifier once. After a
// failed attempt succeeds the mapping is reloaded, since the file may have
// appeared while it was unwatched.
func (s *Scheduler) watchSessions() {
	if s.sessionsPath == "" {
		return
	}

	s.mu.Lock()
	if s.sessionsWatched {
		s.mu.Unlock()
		return
	}
	err := s.notifier.Add(s.sessionsPath)
	retried := s.sessionsRetry
	if err != nil {
		s.sessionsRetry = true
	} else {
		s.sessionsWatched = true
	}
	s.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Str("path", s.sessionsPath).Msg("not watching session mapping, will retry")
		return
	}
	log.Info().Str("path", s.sessionsPath).Msg("watching session mapping")
	if retried {
		s.ReloadSessions()
	}
}

// ReloadSessions rebuilds the session directory from its mapping file,
// keeping the previous mapping on failure.
func (s *Scheduler) ReloadSessions() {
	sessions := s.pipeline.Sessions
	if sessions.Path() == "" {
		return
	}
	n, err := sessions.Reload()
	if err != nil {
		log.Warn().Err(err).Str("path", sessions.Path()).Int("kept", sessions.Len()).Msg("session mapping not loaded")
		return
	}
	log.Info().Str("path", sessions.Path()).Int("sessions", n).Msg("loaded agent sessions")
}

// Run loads the session mapping, watches today's log and then processes
// notifications until ctx is cancelled or the notifier closes.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ReloadSessions()
	s.CheckRollover()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	changes := s.notifier.Changes()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.CheckRollover()
		case path, ok := <-changes:
			if !ok {
				return nil
			}
			s.handleChange(path)
		}
	}
}

func (s *Scheduler) handleChange(path string) {
	path = filepath.Clean(path)
	if s.sessionsPath != "" && path == s.sessionsPath {
		log.Info().Str("path", path).Msg("session mapping changed, reloading")
		s.ReloadSessions()
		return
	}
	if !s.Watching(path) {
		return
	}
	s.pipeline.Ingest(path)
}
