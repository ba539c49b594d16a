package v1

import "github.com/gosuda/hookstream/internal/domain"

// EventStore abstracts the in-memory event window for handler testing.
// *buffer.Ring satisfies this interface.
type EventStore interface {
	Snapshot(limit int) []domain.Event
	FilterOptions() domain.FilterOptions
	Capacity() int
}
