package together

import "strings"

// lineBuffer re-segments an incremental token stream into whole lines.
// Fragments arrive with arbitrary boundaries; everything up to the last
// newline is flushable, the remainder stays buffered because it may be an
// incomplete line.
type lineBuffer struct {
	pending string
}

// Push appends a fragment and returns the complete lines it unlocked, in
// order. Lines are trimmed; lines that are empty after trimming are dropped.
func (b *lineBuffer) Push(fragment string) []string {
	b.pending += fragment

	last := strings.LastIndexByte(b.pending, '\n')
	if last < 0 {
		return nil
	}

	head := b.pending[:last]
	b.pending = b.pending[last+1:]

	var lines []string
	for _, l := range strings.Split(head, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// Flush drains whatever is still buffered as one final line, or "" if the
// remainder is blank.
func (b *lineBuffer) Flush() string {
	out := strings.TrimSpace(b.pending)
	b.pending = ""
	return out
}
