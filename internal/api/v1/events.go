package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/hookstream/internal/domain"
)

// DefaultRecentLimit is used when no limit is requested.
const DefaultRecentLimit = 100

type ListRecentEventsInput struct {
	Limit int `query:"limit" doc:"Maximum number of events, clamped to the buffer capacity (default 100)"`
}

type ListRecentEventsOutput struct {
	Body []domain.Event
}

type GetFilterOptionsOutput struct {
	Body domain.FilterOptions
}

func RegisterEventRoutes(api huma.API, store EventStore) {
	huma.Register(api, huma.Operation{
		OperationID: "list-recent-events",
		Method:      http.MethodGet,
		Path:        "/events/recent",
		Summary:     "List the most recent events, newest first",
		Tags:        []string{"Events"},
	}, func(_ context.Context, input *ListRecentEventsInput) (*ListRecentEventsOutput, error) {
		return &ListRecentEventsOutput{Body: store.Snapshot(clampLimit(input.Limit, store.Capacity()))}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-filter-options",
		Method:      http.MethodGet,
		Path:        "/events/filter-options",
		Summary:     "List distinct source apps, session ids and event types in the buffer",
		Tags:        []string{"Events"},
	}, func(_ context.Context, _ *struct{}) (*GetFilterOptionsOutput, error) {
		return &GetFilterOptionsOutput{Body: store.FilterOptions()}, nil
	})
}

// clampLimit maps a requested limit into [1, capacity]; zero means the default.
func clampLimit(limit, capacity int) int {
	if limit == 0 {
		limit = DefaultRecentLimit
	}
	if limit > capacity {
		limit = capacity
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}
