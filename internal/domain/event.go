package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Hook event types with special handling in the pipeline. The vocabulary is
// open; any other tag is passed through untouched.
const (
	EventTypeUserPromptSubmit = "UserPromptSubmit"
	EventTypePreToolUse       = "PreToolUse"
	EventTypePostToolUse      = "PostToolUse"
	EventTypeCompleted        = "Completed" // synthetic, never present in the source log
)

// Reserved agent names.
const (
	AgentNameUser    = "User"
	AgentNameDefault = "kai"
)

// Event is one hook record from the capture log after enrichment.
//
// Decoding is lenient: any JSON object is an event. String fields holding
// another JSON type are coerced to its literal text, Timestamp keeps the
// source value as decoded (json.Number or string), and a non-object payload
// is carried in Extra. Top-level fields not listed here are kept in Extra and
// written back out unchanged.
type Event struct {
	ID            int64                      `json:"id"`
	SourceApp     string                     `json:"source_app,omitempty"`
	SessionID     string                     `json:"session_id"`
	HookEventType string                     `json:"hook_event_type"`
	Payload       map[string]any             `json:"payload,omitempty"`
	Summary       string                     `json:"summary,omitempty"`
	Timestamp     any                        `json:"timestamp,omitempty"`
	AgentName     string                     `json:"agent_name"`
	Extra         map[string]json.RawMessage `json:"-"`
}

// ToolName returns payload.tool_name, or "" when absent.
func (e *Event) ToolName() string {
	name, _ := e.Payload["tool_name"].(string)
	return name
}

// ParseEvent decodes a single log line. The line must be a JSON object;
// id and agent_name present in the source are discarded since both are
// assigned by the pipeline.
func ParseEvent(line []byte) (Event, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Event{}, fmt.Errorf("domain.ParseEvent: not a JSON object: %w", ErrMalformedEvent)
	}

	var ev Event
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return Event{}, fmt.Errorf("domain.ParseEvent: %w: %w", ErrMalformedEvent, err)
	}
	ev.ID = 0
	ev.AgentName = ""
	return ev, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Event) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return nil
	}

	*e = Event{}
	for key, raw := range fields {
		switch key {
		case "id":
			// Only produced events carry an integer id; anything else reads as unset.
			_ = json.Unmarshal(raw, &e.ID)
		case "source_app":
			e.SourceApp = coerceString(raw)
		case "session_id":
			e.SessionID = coerceString(raw)
		case "hook_event_type":
			e.HookEventType = coerceString(raw)
		case "summary":
			e.Summary = coerceString(raw)
		case "agent_name":
			e.AgentName = coerceString(raw)
		case "timestamp":
			ts, err := decodeValue(raw)
			if err != nil {
				return fmt.Errorf("timestamp: %w", err)
			}
			e.Timestamp = ts
		case "payload":
			payload, err := decodeValue(raw)
			if err != nil {
				return fmt.Errorf("payload: %w", err)
			}
			if obj, ok := payload.(map[string]any); ok {
				e.Payload = obj
			} else {
				e.setExtra(key, raw)
			}
		default:
			e.setExtra(key, raw)
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler. Extra fields are written first so
// that typed fields win on a name clash.
func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Extra)+8)
	for k, v := range e.Extra {
		out[k] = v
	}

	out["id"] = e.ID
	out["session_id"] = e.SessionID
	out["hook_event_type"] = e.HookEventType
	out["agent_name"] = e.AgentName
	if e.SourceApp != "" {
		out["source_app"] = e.SourceApp
	}
	if e.Payload != nil {
		out["payload"] = e.Payload
	}
	if e.Summary != "" {
		out["summary"] = e.Summary
	}
	if e.Timestamp != nil {
		out["timestamp"] = e.Timestamp
	}
	return json.Marshal(out)
}

func (e *Event) setExtra(key string, raw json.RawMessage) {
	if e.Extra == nil {
		e.Extra = make(map[string]json.RawMessage)
	}
	e.Extra[key] = raw
}

// coerceString returns a JSON string's value, "" for null, and the literal
// text of any other JSON value.
func coerceString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	return string(trimmed)
}

// decodeValue decodes raw keeping numbers as json.Number so they are
// re-encoded exactly as written.
func decodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
