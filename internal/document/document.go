// Package document defines the typed records that flow through ingestion and
// retrieval, replacing the loose maps upstream APIs hand us so that malformed
// payloads fail at the boundary.
package document

import (
	"fmt"
	"time"
)

// Document is a normalized source document. It is immutable once chunked; a
// re-sync supersedes it by deleting the old chunks and inserting new ones
// under the same ID.
type Document struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	SourceURL    string     `json:"source_url"`
	ModifiedTime *time.Time `json:"modified_time,omitempty"`
}

// ChunkMetadata carries the positional identity of a chunk within its parent
// document. ChunkIndex is contiguous from 0 to TotalChunks-1.
type ChunkMetadata struct {
	DocumentID  string `json:"document_id"`
	Title       string `json:"title"`
	SourceURL   string `json:"source_url"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
}

// Chunk is a bounded contiguous segment of a document's cleaned text. Its
// lifecycle is bound to the parent document: deleted en masse on document
// delete or re-sync.
type Chunk struct {
	ID       string        `json:"id"`
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// RemoteFile is a listing entry from the document source, enough to decide
// whether a fetch is needed.
type RemoteFile struct {
	ID           string
	Title        string
	MimeType     string
	Size         int64
	URL          string
	ModifiedTime *time.Time
}

// ChunkID derives the stable chunk identifier for a document and index.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, index)
}
