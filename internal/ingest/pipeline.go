// Package ingest tails the daily hook event log and turns appended lines
// into enriched events: offset tracking, agent name resolution, synthetic
// task-completion events and day rollover.
package ingest

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/hookstream/internal/domain"
)

// EventSink stores produced events. *buffer.Ring satisfies this interface.
type EventSink interface {
	Append(events ...domain.Event)
}

// Publisher notifies live subscribers. *broadcast.Broadcaster satisfies this interface.
type Publisher interface {
	Publish(batch []domain.Event)
}

// Pipeline owns all mutable ingestion state. Independent instances share nothing.
type Pipeline struct {
	Positions *PositionTracker
	Sessions  *SessionDirectory
	Todos     *TodoCache

	reader      *Reader
	enricher    *Enricher
	synthesizer *Synthesizer
	sink        EventSink
	publisher   Publisher

	mu  sync.Mutex // serializes Ingest
	seq int64
}

// PipelineConfig holds Pipeline collaborators.
type PipelineConfig struct {
	Sessions         *SessionDirectory
	DefaultAgentName string
	Sink             EventSink
	Publisher        Publisher // optional
}

// NewPipeline creates a Pipeline with fresh position and todo state.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	positions := NewPositionTracker()
	todos := NewTodoCache()
	sessions := cfg.Sessions
	if sessions == nil {
		sessions = NewSessionDirectory("")
	}

	return &Pipeline{
		Positions:   positions,
		Sessions:    sessions,
		Todos:       todos,
		reader:      NewReader(positions),
		enricher:    NewEnricher(sessions, cfg.DefaultAgentName),
		synthesizer: NewSynthesizer(todos),
		sink:        cfg.Sink,
		publisher:   cfg.Publisher,
	}
}

// SeekEnd skips everything already in path.
func (p *Pipeline) SeekEnd(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reader.SeekEnd(path)
}

// Ingest reads what was appended to path, enriches it, derives completion
// events, stores the result and publishes it as one batch. Read errors are
// logged; the next call retries.
func (p *Pipeline) Ingest(path string) []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	raw, err := p.reader.ReadNew(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("read failed")
		return nil
	}
	if len(raw) == 0 {
		return nil
	}

	out := make([]domain.Event, 0, len(raw))
	for _, ev := range raw {
		for _, produced := range p.synthesizer.Process(p.enricher.Enrich(ev)) {
			p.seq++
			produced.ID = p.seq
			out = append(out, produced)
		}
	}

	if p.sink != nil {
		p.sink.Append(out...)
	}
	if p.publisher != nil {
		p.publisher.Publish(out)
	}

	log.Debug().Str("path", path).Int("read", len(raw)).Int("produced", len(out)).Msg("ingested events")
	return out
}
