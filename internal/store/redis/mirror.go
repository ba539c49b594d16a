package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/hookstream/internal/domain"
)

// publishTimeout bounds a single mirror publish.
const publishTimeout = 5 * time.Second

// Publisher sends a payload to a pub/sub channel. *PubSub satisfies this interface.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Mirror republishes produced event batches as JSON arrays.
type Mirror struct {
	publisher Publisher
	channel   string
}

// NewMirror creates a Mirror publishing to channel.
func NewMirror(publisher Publisher, channel string) *Mirror {
	return &Mirror{publisher: publisher, channel: Channel(channel)}
}

// Send publishes batch. Failures are returned, never retried.
func (m *Mirror) Send(ctx context.Context, batch []domain.Event) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("redis.Mirror.Send: marshal: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := m.publisher.Publish(ctx, m.channel, payload); err != nil {
		return fmt.Errorf("redis.Mirror.Send: %w", err)
	}
	return nil
}

// Handler adapts the mirror to a broadcast callback. Errors are logged.
func (m *Mirror) Handler(ctx context.Context) func([]domain.Event) {
	return func(batch []domain.Event) {
		if err := m.Send(ctx, batch); err != nil {
			log.Warn().Err(err).Str("channel", m.channel).Int("events", len(batch)).Msg("mirror publish failed")
		}
	}
}
