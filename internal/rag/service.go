// Package rag ties document processing, embedding and the vector index into
// the ingestion and retrieval operations the HTTP features are built on.
package rag

import (
	"context"
	"fmt"
	"log/slog"

	"docchat/internal/document"
	"docchat/internal/retrieval"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type VectorIndex interface {
	AddChunks(ctx context.Context, chunks []document.Chunk, vectors [][]float32) error
	DeleteByDocumentID(ctx context.Context, documentID string) error
	CountChunks(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]retrieval.Match, error)
}

type Service struct {
	processor      *document.Processor
	embedder       Embedder
	index          VectorIndex
	retriever      Retriever
	embeddingModel string
}

func NewService(p *document.Processor, e Embedder, idx VectorIndex, r Retriever, embeddingModel string) *Service {
	return &Service{processor: p, embedder: e, index: idx, retriever: r, embeddingModel: embeddingModel}
}

// AddDocument chunks, embeds and indexes a document, returning the number of
// chunks stored. Documents whose cleaned content is empty are rejected.
func (s *Service) AddDocument(ctx context.Context, doc *document.Document) (int, error) {
	if s.embedder == nil {
		return 0, fmt.Errorf("embedding is not configured")
	}

	chunks := s.processor.Process(doc)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("document %s has no indexable content", doc.ID)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed document %s: %w", doc.ID, err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embed document %s: got %d vectors for %d chunks", doc.ID, len(vectors), len(chunks))
	}

	if err := s.index.AddChunks(ctx, chunks, vectors); err != nil {
		return 0, fmt.Errorf("index document %s: %w", doc.ID, err)
	}

	slog.InfoContext(ctx, "document added", "document_id", doc.ID, "title", doc.Title, "chunks", len(chunks))
	return len(chunks), nil
}

// DeleteDocument removes every chunk whose metadata documentId matches.
func (s *Service) DeleteDocument(ctx context.Context, documentID string) error {
	if err := s.index.DeleteByDocumentID(ctx, documentID); err != nil {
		return fmt.Errorf("delete document %s: %w", documentID, err)
	}
	slog.InfoContext(ctx, "document removed", "document_id", documentID)
	return nil
}

// ClearAll drops every chunk in the index.
func (s *Service) ClearAll(ctx context.Context) error {
	if err := s.index.Clear(ctx); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	slog.InfoContext(ctx, "all documents cleared")
	return nil
}

func (s *Service) Retrieve(ctx context.Context, query string) ([]retrieval.Match, error) {
	if s.retriever == nil {
		return nil, fmt.Errorf("retrieval is not configured")
	}
	return s.retriever.Retrieve(ctx, query)
}

type Stats struct {
	TotalChunks    int    `json:"total_chunks"`
	ChunkSize      int    `json:"chunk_size"`
	ChunkOverlap   int    `json:"chunk_overlap"`
	EmbeddingModel string `json:"embedding_model"`
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	count, err := s.index.CountChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	return &Stats{
		TotalChunks:    count,
		ChunkSize:      s.processor.ChunkSize(),
		ChunkOverlap:   s.processor.ChunkOverlap(),
		EmbeddingModel: s.embeddingModel,
	}, nil
}
