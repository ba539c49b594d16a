package ws

// Stream message types.
const (
	MessageTypeInitial = "initial"
	MessageTypeEvent   = "event"
)

// StreamMessage is the envelope for every frame sent to clients.
type StreamMessage struct {
	Type string `json:"type"` // "initial" carries []domain.Event, "event" a single domain.Event
	Data any    `json:"data"`
}
