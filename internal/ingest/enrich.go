package ingest

import "github.com/gosuda/hookstream/internal/domain"

// AgentLookup resolves a session id to an agent name.
// *SessionDirectory satisfies this interface.
type AgentLookup interface {
	Lookup(sessionID string) (string, bool)
}

// Enricher stamps events with the agent that produced them.
type Enricher struct {
	agents      AgentLookup
	defaultName string
}

// NewEnricher creates an Enricher. Unknown sessions resolve to defaultName,
// or domain.AgentNameDefault when it is empty.
func NewEnricher(agents AgentLookup, defaultName string) *Enricher {
	if defaultName == "" {
		defaultName = domain.AgentNameDefault
	}
	return &Enricher{agents: agents, defaultName: defaultName}
}

// Enrich returns ev with AgentName set. Prompt submissions always belong to
// the user regardless of the session mapping.
func (e *Enricher) Enrich(ev domain.Event) domain.Event {
	if ev.HookEventType == domain.EventTypeUserPromptSubmit {
		ev.AgentName = domain.AgentNameUser
		return ev
	}

	if name, ok := e.agents.Lookup(ev.SessionID); ok && name != "" {
		ev.AgentName = name
		return ev
	}
	ev.AgentName = e.defaultName
	return ev
}
