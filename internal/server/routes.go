package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/hookstream/internal/api/v1"
	"github.com/gosuda/hookstream/internal/api/ws"
)

func registerAPIRoutes(api huma.API, events v1.EventStore) {
	v1.RegisterEventRoutes(api, events)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/stream", hub.ServeStream)
}
