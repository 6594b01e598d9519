package retrieval

import (
	"context"
	"log/slog"
	"time"

	"docchat/internal/document"
)

// Hit is one nearest-neighbor result as returned by the vector index, before
// relevance filtering. Distance is the index's raw metric.
type Hit struct {
	Content  string
	Metadata document.ChunkMetadata
	Distance float32
}

// Match is a retrieval result that passed the relevance threshold.
// SimilarityScore is 1-distance and is only meaningful for a cosine-distance
// index; the Weaviate adapter pins the class to cosine for this reason.
type Match struct {
	Content         string                 `json:"content"`
	Metadata        document.ChunkMetadata `json:"metadata"`
	SimilarityScore float32                `json:"similarity_score"`
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Index interface {
	Query(ctx context.Context, vector []float32, k int) ([]Hit, error)
}

// Service ranks index hits for a query: it embeds the query, fetches the top-k
// neighbors, converts cosine distance to similarity and drops everything at or
// below the threshold.
type Service struct {
	embedder  Embedder
	index     Index
	threshold float32
	topK      int
	logger    *QueryLogger
}

func NewService(e Embedder, idx Index, threshold float32, topK int, l *QueryLogger) *Service {
	return &Service{embedder: e, index: idx, threshold: threshold, topK: topK, logger: l}
}

// Retrieve returns matches best-first in the index's native order; no re-sort
// is applied, and ties are broken however the index broke them. An empty
// result means "no sufficiently relevant context", not an error.
func (s *Service) Retrieve(ctx context.Context, query string) ([]Match, error) {
	start := time.Now()

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := s.index.Query(ctx, vec, s.topK)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(hits))
	for _, h := range hits {
		similarity := 1 - h.Distance
		if similarity > s.threshold {
			matches = append(matches, Match{
				Content:         h.Content,
				Metadata:        h.Metadata,
				SimilarityScore: similarity,
			})
		}
	}

	slog.InfoContext(ctx, "retrieved context", "hits", len(hits), "matches", len(matches))

	if s.logger != nil {
		entry := QueryLogEntry{
			Query:      query,
			NumResults: len(matches),
			Duration:   time.Since(start),
		}
		if len(matches) > 0 {
			entry.TopScore = matches[0].SimilarityScore
		}
		s.logger.Log(entry)
	}

	return matches, nil
}
