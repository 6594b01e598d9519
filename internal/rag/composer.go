package rag

import (
	"fmt"
	"strings"

	"docchat/internal/retrieval"
)

const promptHeader = `You are an AI assistant that answers questions based on the provided context. Use the following context to answer the user's question. If the context doesn't contain enough information to answer the question, say so clearly.`

const promptFooter = `Please provide a comprehensive answer based on the context above. If you reference specific information, mention which document it came from.`

// Compose assembles the final model prompt from the query and its retrieved
// context. With no matches it returns the query verbatim: the documented
// no-context fallback, not an error.
func Compose(query string, matches []retrieval.Match) string {
	if len(matches) == 0 {
		return query
	}

	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n\nCONTEXT:\n")
	for i, m := range matches {
		title := m.Metadata.Title
		if title == "" {
			title = "Unknown Document"
		}
		if i > 0 {
			b.WriteString("\n")
		}
		// Titles are inserted raw; %q would escape quotes inside them.
		fmt.Fprintf(&b, "\nContext %d (from \"%s\"):\n%s\n", i+1, title, m.Content)
	}
	fmt.Fprintf(&b, "\nQUESTION: %s\n\n", query)
	b.WriteString(promptFooter)
	b.WriteString("\n\nANSWER:")

	return b.String()
}

// SourceRef identifies one document that contributed context, for
// client-facing attribution.
type SourceRef struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// Sources derives the deduplicated attribution list from the matches, in
// first-seen order. It is a by-product of composition and never mutates the
// match records.
func Sources(matches []retrieval.Match) []SourceRef {
	seen := make(map[string]bool, len(matches))
	var refs []SourceRef
	for _, m := range matches {
		key := m.Metadata.DocumentID
		if key == "" {
			key = m.Metadata.Title
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		refs = append(refs, SourceRef{Title: m.Metadata.Title, URL: m.Metadata.SourceURL})
	}
	return refs
}
