// Package buffer holds the bounded in-memory window of recent events.
package buffer

import (
	"sort"
	"sync"

	"github.com/gosuda/hookstream/internal/domain"
)

// DefaultCapacity is the number of events retained when no capacity is configured.
const DefaultCapacity = 1000

// Ring is a fixed-capacity, append-only event store. Once full, each append
// evicts the oldest entries. Safe for concurrent use.
type Ring struct {
	mu    sync.RWMutex
	items []domain.Event
	start int // index of the oldest event
	size  int
}

// NewRing creates an empty Ring. A non-positive capacity falls back to DefaultCapacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{items: make([]domain.Event, capacity)}
}

// Capacity returns the maximum number of retained events.
func (r *Ring) Capacity() int {
	return len(r.items)
}

// Len returns the number of retained events.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Append adds events in order, dropping the oldest entries on overflow.
func (r *Ring) Append(events ...domain.Event) {
	if len(events) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	capacity := len(r.items)
	// Only the trailing window can survive a batch larger than the ring.
	if len(events) > capacity {
		events = events[len(events)-capacity:]
	}

	for _, ev := range events {
		if r.size < capacity {
			r.items[(r.start+r.size)%capacity] = ev
			r.size++
			continue
		}
		r.items[r.start] = ev
		r.start = (r.start + 1) % capacity
	}
}

// Snapshot copies up to limit of the most recent events, newest first.
func (r *Ring) Snapshot(limit int) []domain.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit > r.size {
		limit = r.size
	}
	if limit <= 0 {
		return []domain.Event{}
	}

	capacity := len(r.items)
	out := make([]domain.Event, limit)
	for i := range limit {
		out[i] = r.items[(r.start+r.size-1-i)%capacity]
	}
	return out
}

// All copies every retained event, oldest first.
func (r *Ring) All() []domain.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	capacity := len(r.items)
	out := make([]domain.Event, r.size)
	for i := range r.size {
		out[i] = r.items[(r.start+i)%capacity]
	}
	return out
}

// FilterOptions derives the distinct source apps, session ids and event types
// currently held. Session ids keep first-seen order and are capped at
// domain.MaxFilterSessionIDs; the other lists are sorted.
func (r *Ring) FilterOptions() domain.FilterOptions {
	events := r.All()

	sourceApps := make(map[string]struct{})
	eventTypes := make(map[string]struct{})
	seenSessions := make(map[string]struct{})
	sessionIDs := make([]string, 0)

	for _, ev := range events {
		if ev.SourceApp != "" {
			sourceApps[ev.SourceApp] = struct{}{}
		}
		if ev.HookEventType != "" {
			eventTypes[ev.HookEventType] = struct{}{}
		}
		if ev.SessionID == "" {
			continue
		}
		if _, ok := seenSessions[ev.SessionID]; ok {
			continue
		}
		seenSessions[ev.SessionID] = struct{}{}
		if len(sessionIDs) < domain.MaxFilterSessionIDs {
			sessionIDs = append(sessionIDs, ev.SessionID)
		}
	}

	return domain.FilterOptions{
		SourceApps:     sortedKeys(sourceApps),
		SessionIDs:     sessionIDs,
		HookEventTypes: sortedKeys(eventTypes),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
