package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/hookstream/internal/domain"
)

// excerptLen bounds the log excerpt of a malformed line.
const excerptLen = 100

// Reader tails newline-delimited JSON files using a PositionTracker.
type Reader struct {
	positions *PositionTracker
}

// NewReader creates a Reader that advances offsets in positions.
func NewReader(positions *PositionTracker) *Reader {
	return &Reader{positions: positions}
}

// SeekEnd marks everything currently in path as consumed. A missing file is
// tracked at offset zero so that its first content is read once it appears.
func (r *Reader) SeekEnd(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		r.positions.Set(path, 0)
		return nil
	}
	if err != nil {
		return fmt.Errorf("ingest.Reader.SeekEnd: %w", err)
	}
	r.positions.Set(path, info.Size())
	return nil
}

// ReadNew parses the lines appended to path since the last call. A missing
// file yields no events and no error. Once the new bytes are read the
// offset moves to the file length even when individual lines are
// malformed; those are logged and skipped.
func (r *Reader) ReadNew(path string) ([]domain.Event, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ingest.Reader.ReadNew: open: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("ingest.Reader.ReadNew: stat: %w", err)
	}

	last, _ := r.positions.Get(path)
	length := info.Size()
	if length-last <= 0 {
		return nil, nil
	}

	// Read only up to the observed length; bytes appended meanwhile belong
	// to the next notification.
	chunk := make([]byte, length-last)
	n, err := f.ReadAt(chunk, last)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("ingest.Reader.ReadNew: read: %w", err)
	}
	r.positions.Set(path, length)

	return parseLines(path, chunk[:n]), nil
}

func parseLines(path string, chunk []byte) []domain.Event {
	var events []domain.Event
	for line := range bytes.SplitSeq(chunk, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		ev, err := domain.ParseEvent(line)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Str("line", excerpt(line)).Msg("skipping malformed line")
			continue
		}
		events = append(events, ev)
	}
	return events
}

// excerpt truncates line to at most excerptLen bytes without splitting a rune.
func excerpt(line []byte) string {
	if len(line) <= excerptLen {
		return string(line)
	}
	cut := excerptLen
	for cut > 0 && !utf8.RuneStart(line[cut]) {
		cut--
	}
	return string(line[:cut]) + "..."
}
