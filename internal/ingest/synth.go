package ingest

import (
	"sync"

	"github.com/gosuda/hookstream/internal/domain"
)

// TodoCache keeps the latest task-list snapshot per session.
type TodoCache struct {
	mu        sync.Mutex
	snapshots map[string][]domain.TodoItem
}

// NewTodoCache creates an empty cache.
func NewTodoCache() *TodoCache {
	return &TodoCache{snapshots: make(map[string][]domain.TodoItem)}
}

// Get returns the cached snapshot for sessionID, or nil.
func (c *TodoCache) Get(sessionID string) []domain.TodoItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshots[sessionID]
}

// Swap stores todos as the session's snapshot and returns the previous one.
func (c *TodoCache) Swap(sessionID string, todos []domain.TodoItem) []domain.TodoItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.snapshots[sessionID]
	c.snapshots[sessionID] = todos
	return prev
}

// Synthesizer derives Completed events from consecutive TodoWrite snapshots
// of the same session.
//
// Items are matched by content text. Two items with identical text, or an
// item whose text changes, can produce a missed or spurious completion.
type Synthesizer struct {
	cache *TodoCache
}

// NewSynthesizer creates a Synthesizer backed by cache.
func NewSynthesizer(cache *TodoCache) *Synthesizer {
	return &Synthesizer{cache: cache}
}

// Process returns ev followed by one Completed event per item that became
// completed since the session's previous snapshot, in list order. Events
// other than TodoWrite are returned alone.
func (s *Synthesizer) Process(ev domain.Event) []domain.Event {
	if ev.ToolName() != domain.TodoToolName {
		return []domain.Event{ev}
	}

	current := domain.TodosFromPayload(ev.Payload)
	previous := s.cache.Swap(ev.SessionID, current)

	prevStatus := make(map[string]domain.TodoStatus, len(previous))
	for _, item := range previous {
		if _, seen := prevStatus[item.Content]; !seen {
			prevStatus[item.Content] = item.Status
		}
	}

	out := []domain.Event{ev}
	for _, item := range current {
		if item.Status != domain.TodoStatusCompleted {
			continue
		}
		if status, ok := prevStatus[item.Content]; ok && status == domain.TodoStatusCompleted {
			continue
		}
		out = append(out, completedEvent(ev, item))
	}
	return out
}

func completedEvent(src domain.Event, item domain.TodoItem) domain.Event {
	ev := src
	ev.HookEventType = domain.EventTypeCompleted
	ev.Payload = map[string]any{"task": item.Content}
	ev.Summary = ""
	return ev
}

