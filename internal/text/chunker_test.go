package text

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses whitespace", "a  b\n\tc\r\nd", "a b c d"},
		{"strips disallowed characters", "price $5 @home #tag", "price 5 home tag"},
		{"keeps allowed punctuation", "Hello, world! (ok) - yes; no: maybe?", "Hello, world! (ok) - yes; no: maybe?"},
		{"trims", "   padded   ", "padded"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

func TestSplit_EmptyText(t *testing.T) {
	assert.Nil(t, Split("", 1000, 200))
}

func TestSplit_FitsInOneChunk(t *testing.T) {
	got := Split("short text", 1000, 200)
	assert.Equal(t, []string{"short text"}, got)
}

func TestSplit_RespectsChunkSize(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 100)

	chunks := Split(text, 200, 50)
	assert.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 200)
		assert.NotEmpty(t, c)
	}
}

func TestSplit_PrefersSentenceBoundary(t *testing.T) {
	// The period sits past the window midpoint, so the first chunk should end
	// on it instead of running to the full window.
	text := strings.Repeat("a", 600) + "." + strings.Repeat("b", 600)

	chunks := Split(text, 1000, 0)
	assert.Len(t, chunks, 2)
	assert.True(t, strings.HasSuffix(chunks[0], "."))
	assert.Equal(t, strings.Repeat("b", 600), chunks[1])
}

func TestSplit_IgnoresEarlyBoundary(t *testing.T) {
	// A terminator before the midpoint should not shrink the window.
	text := strings.Repeat("a", 100) + "." + strings.Repeat("b", 2000)

	chunks := Split(text, 1000, 0)
	assert.Equal(t, 1000, len(chunks[0]))
}

func TestSplit_OverlapCarriesTailForward(t *testing.T) {
	// No sentence terminators, so every window is exactly chunkSize and the
	// next one starts overlap characters earlier.
	text := strings.Repeat("x", 2500)

	chunks := Split(text, 1000, 200)
	assert.Len(t, chunks, 3)
	assert.Equal(t, 1000, len(chunks[0]))
	assert.Equal(t, 1000, len(chunks[1]))
	assert.Equal(t, 900, len(chunks[2]))
}

func TestSplit_CoversAllText(t *testing.T) {
	text := strings.Repeat("y", 2500)

	chunks := Split(text, 1000, 0)
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestSplit_TerminatesWithExcessiveOverlap(t *testing.T) {
	// overlap >= chunkSize is clamped; the walk must still reach the end.
	text := strings.Repeat("z", 50)

	chunks := Split(text, 10, 10)
	assert.NotEmpty(t, chunks)
	last := chunks[len(chunks)-1]
	assert.True(t, strings.HasSuffix(text, last))
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 10)
	}
}
