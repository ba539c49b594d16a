package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/hookstream/internal/broadcast"
	"github.com/gosuda/hookstream/internal/domain"
)

// InitialLimit is the number of buffered events sent when a client connects.
const InitialLimit = 50

// Snapshotter returns recent events newest first. *buffer.Ring satisfies this interface.
type Snapshotter interface {
	Snapshot(limit int) []domain.Event
}

// Subscriber hands out live subscriptions. *broadcast.Broadcaster satisfies this interface.
type Subscriber interface {
	Subscribe() (*broadcast.Subscription, error)
}

// Hub streams produced events to WebSocket clients.
type Hub struct {
	events      Snapshotter
	subscriber  Subscriber
	origins     []string
	initialSize int
}

// NewHub creates a new WebSocket hub. origins are host patterns accepted in
// addition to same-origin requests.
func NewHub(events Snapshotter, subscriber Subscriber, origins []string) *Hub {
	return &Hub{
		events:      events,
		subscriber:  subscriber,
		origins:     origins,
		initialSize: InitialLimit,
	}
}

// ServeStream sends the recent snapshot as one "initial" message, then one
// "event" message per produced event. A client that cannot keep up is
// disconnected by the broadcaster.
func (h *Hub) ServeStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	// Clients never send; CloseRead cancels ctx once they go away.
	ctx := conn.CloseRead(r.Context())

	sub, err := h.subscriber.Subscribe()
	if err != nil {
		log.Error().Err(err).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer sub.Cancel()

	if writeErr := writeMessage(ctx, conn, MessageTypeInitial, h.events.Snapshot(h.initialSize)); writeErr != nil {
		log.Debug().Err(writeErr).Msg("websocket write")
		return
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case batch, ok := <-sub.C:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "stream closed")
				return
			}
			for _, ev := range batch {
				if writeErr := writeMessage(ctx, conn, MessageTypeEvent, ev); writeErr != nil {
					log.Debug().Err(writeErr).Msg("websocket write")
					return
				}
			}
		}
	}
}

func writeMessage(ctx context.Context, conn *websocket.Conn, msgType string, data any) error {
	payload, err := json.Marshal(StreamMessage{Type: msgType, Data: data})
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, payload)
}
