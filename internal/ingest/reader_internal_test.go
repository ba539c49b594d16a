package ingest

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestExcerpt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want string
	}{
		{name: "short line unchanged", line: "NOT_JSON", want: "NOT_JSON"},
		{name: "exact length unchanged", line: strings.Repeat("a", excerptLen), want: strings.Repeat("a", excerptLen)},
		{name: "ascii cut at limit", line: strings.Repeat("a", excerptLen+5), want: strings.Repeat("a", excerptLen) + "..."},
		// 99 ASCII bytes then a 3-byte rune straddling the limit.
		{name: "multibyte rune not split", line: strings.Repeat("a", excerptLen-1) + "한글", want: strings.Repeat("a", excerptLen-1) + "..."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := excerpt([]byte(tc.line))
			assert.Equal(t, tc.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
