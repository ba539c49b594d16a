package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/gosuda/hookstream/internal/domain"
)

// SessionDirectory maps session ids to agent display names. Its contents
// come from a JSON object file and are replaced wholesale on every reload.
type SessionDirectory struct {
	path string

	mu    sync.RWMutex
	names map[string]string
}

// NewSessionDirectory creates an empty directory backed by the file at path.
func NewSessionDirectory(path string) *SessionDirectory {
	return &SessionDirectory{
		path:  path,
		names: make(map[string]string),
	}
}

// Path returns the backing mapping file.
func (d *SessionDirectory) Path() string {
	return d.path
}

// Reload replaces the in-memory mapping with the file's full contents. On
// any error the previous mapping is kept.
func (d *SessionDirectory) Reload() (int, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		return 0, fmt.Errorf("ingest.SessionDirectory.Reload: %w", err)
	}

	var names map[string]string
	if err := json.Unmarshal(data, &names); err != nil {
		return 0, fmt.Errorf("ingest.SessionDirectory.Reload: %w: %w", domain.ErrMalformedMapping, err)
	}
	if names == nil {
		// The literal `null` decodes without error.
		return 0, fmt.Errorf("ingest.SessionDirectory.Reload: %w: not an object", domain.ErrMalformedMapping)
	}

	d.Replace(names)
	return len(names), nil
}

// Replace swaps in a new mapping.
func (d *SessionDirectory) Replace(names map[string]string) {
	copied := make(map[string]string, len(names))
	for k, v := range names {
		copied[k] = v
	}

	d.mu.Lock()
	d.names = copied
	d.mu.Unlock()
}

// Lookup returns the agent name for sessionID.
func (d *SessionDirectory) Lookup(sessionID string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	name, ok := d.names[sessionID]
	return name, ok
}

// Len returns the number of mapped sessions.
func (d *SessionDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.names)
}
