// Package broadcast fans produced event batches out to live subscribers
// without letting any subscriber slow down ingestion.
package broadcast

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/hookstream/internal/domain"
)

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("broadcast: closed") //nolint:gochecknoglobals // sentinel error

// DefaultQueueSize is the per-subscriber batch queue length.
const DefaultQueueSize = 64

// Subscription receives batches in production order on C. C is closed when
// the subscription is cancelled, when the broadcaster closes, or when the
// subscriber falls a full queue behind.
type Subscription struct {
	ID uuid.UUID
	C  <-chan []domain.Event

	ch     chan []domain.Event
	parent *Broadcaster
}

// Cancel detaches the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.parent.remove(s.ID)
}

// Broadcaster delivers each published batch to every current subscriber.
// No history is replayed on subscribe.
type Broadcaster struct {
	mu        sync.Mutex
	subs      map[uuid.UUID]*Subscription
	queueSize int
	closed    bool
}

// New creates a Broadcaster whose subscribers each buffer up to queueSize batches.
func New(queueSize int) *Broadcaster {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Broadcaster{
		subs:      make(map[uuid.UUID]*Subscription),
		queueSize: queueSize,
	}
}

// Subscribe registers a new subscriber.
func (b *Broadcaster) Subscribe() (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	ch := make(chan []domain.Event, b.queueSize)
	sub := &Subscription{
		ID:     uuid.New(),
		C:      ch,
		ch:     ch,
		parent: b,
	}
	b.subs[sub.ID] = sub
	return sub, nil
}

// SubscribeFunc runs fn for every batch on a dedicated goroutine until the
// returned cancel func is called or the subscription is dropped. Cancel
// returns once fn has handled every batch already queued.
func (b *Broadcaster) SubscribeFunc(fn func([]domain.Event)) (func(), error) {
	sub, err := b.Subscribe()
	if err != nil {
		return nil, err
	}

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for batch := range sub.C {
			fn(batch)
		}
	}()

	return func() {
		sub.Cancel()
		<-drained
	}, nil
}

// Publish hands batch to every subscriber without blocking. A subscriber
// whose queue is full is disconnected.
func (b *Broadcaster) Publish(batch []domain.Event) {
	if len(batch) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subs {
		select {
		case sub.ch <- batch:
		default:
			log.Warn().Str("subscriber", id.String()).Int("queue", b.queueSize).Msg("subscriber queue full, disconnecting")
			delete(b.subs, id)
			close(sub.ch)
		}
	}
}

// Len returns the number of connected subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close disconnects every subscriber and rejects new ones.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}

func (b *Broadcaster) remove(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(sub.ch)
}
