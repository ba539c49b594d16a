package v1_test

import "github.com/gosuda/hookstream/internal/domain"

// ---------------------------------------------------------------------------
// Mock EventStore
// ---------------------------------------------------------------------------

type mockEventStore struct {
	capacity          int
	snapshotFunc      func(limit int) []domain.Event
	filterOptionsFunc func() domain.FilterOptions
}

func (m *mockEventStore) Snapshot(limit int) []domain.Event {
	if m.snapshotFunc == nil {
		return []domain.Event{}
	}
	return m.snapshotFunc(limit)
}

func (m *mockEventStore) FilterOptions() domain.FilterOptions {
	if m.filterOptionsFunc == nil {
		return domain.FilterOptions{}
	}
	return m.filterOptionsFunc()
}

func (m *mockEventStore) Capacity() int { return m.capacity }
