package ingest

import (
	"fmt"
	"path/filepath"
	"time"
)

// DefaultTimezone fixes the day boundary for log rotation independent of the host.
const DefaultTimezone = "America/Los_Angeles"

// PathResolver computes the path of the capture log for the current day.
// The capture hook writes one file per calendar day:
//
//	<dir>/<YYYY>-<MM>/<YYYY>-<MM>-<DD>_all-events.jsonl
type PathResolver struct {
	dir string
	loc *time.Location
	now func() time.Time
}

// NewPathResolver returns a resolver rooted at dir evaluating dates in loc.
func NewPathResolver(dir string, loc *time.Location) *PathResolver {
	if loc == nil {
		loc = time.UTC
	}
	return &PathResolver{dir: dir, loc: loc, now: time.Now}
}

// SetNow replaces the time source. Used in tests only.
func (p *PathResolver) SetNow(fn func() time.Time) {
	p.now = fn
}

// Current returns today's log path. It reads the clock on every call.
func (p *PathResolver) Current() string {
	return p.PathFor(p.now())
}

// PathFor returns the log path for the day containing t.
func (p *PathResolver) PathFor(t time.Time) string {
	local := t.In(p.loc)
	month := fmt.Sprintf("%04d-%02d", local.Year(), int(local.Month()))
	day := fmt.Sprintf("%s-%02d_all-events.jsonl", month, local.Day())
	return filepath.Join(p.dir, month, day)
}
