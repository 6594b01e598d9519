package text

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	disallowedRe = regexp.MustCompile(`[^\w\s.,!?;:\-()]`)
)

// CleanText normalizes raw document text before chunking: runs of whitespace
// collapse to a single space, characters outside the word/punctuation
// allow-list are stripped, and the result is trimmed.
func CleanText(text string) string {
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = disallowedRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Split breaks text into overlapping, size-bounded segments. Windows that do
// not reach the end of the text are trimmed back to the last sentence
// terminator (., ! or ?) when one occurs past the window midpoint, so chunks
// prefer to end on sentence boundaries without giving up forward progress.
//
// Empty text yields nil. An overlap >= chunkSize is a configuration error and
// is clamped to chunkSize-1 so the walk always terminates.
func Split(text string, chunkSize, overlap int) []string {
	if text == "" || chunkSize <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}
	if len(text) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + chunkSize
		if end >= len(text) {
			end = len(text)
		} else if cut := strings.LastIndexAny(text[start:end], ".!?"); cut > chunkSize/2 {
			end = start + cut + 1
		}

		if chunk := strings.TrimSpace(text[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(text) {
			break
		}

		next := end - overlap
		if next <= start {
			// Overlap swallowed the whole window; force progress.
			next = end
		}
		start = next
	}

	return chunks
}
