// Package weaviate adapts the Weaviate client to the vector index interfaces
// used by ingestion and retrieval.
//
// Query returns the raw cosine distance reported by Weaviate; the class is
// created with a cosine vector index (see internal/vector), so downstream
// similarity conversion as 1-distance is valid by construction.
package weaviate

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"docchat/internal/document"
	"docchat/internal/retrieval"
	"docchat/internal/vector"
)

type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// AddChunks batch-inserts chunks with their precomputed embeddings.
// vectors[i] belongs to chunks[i].
func (s *Store) AddChunks(ctx context.Context, chunks []document.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	objects := make([]*models.Object, 0, len(chunks))
	for i, c := range chunks {
		objects = append(objects, &models.Object{
			Class: vector.ClassName,
			Properties: map[string]interface{}{
				"chunkId":     c.ID,
				"content":     c.Content,
				"documentId":  c.Metadata.DocumentID,
				"title":       c.Metadata.Title,
				"url":         c.Metadata.SourceURL,
				"chunkIndex":  c.Metadata.ChunkIndex,
				"totalChunks": c.Metadata.TotalChunks,
			},
			Vector: vectors[i],
		})
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return err
	}
	for _, r := range resp {
		if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
			return fmt.Errorf("batch insert: %s", r.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// Query returns the k nearest chunks to the given embedding, best-first in
// Weaviate's native ranking order, with the raw cosine distance attached.
func (s *Store) Query(ctx context.Context, vec []float32, k int) ([]retrieval.Hit, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vec)

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "documentId"},
		{Name: "title"},
		{Name: "url"},
		{Name: "chunkIndex"},
		{Name: "totalChunks"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithNearVector(nearVector).
		WithLimit(k).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	var hits []retrieval.Hit
	data, ok := res.Data["Get"].(map[string]interface{})
	if !ok {
		return hits, nil
	}
	raw, ok := data[vector.ClassName].([]interface{})
	if !ok {
		return hits, nil
	}

	for _, c := range raw {
		props, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		hit := retrieval.Hit{}
		if content, ok := props["content"].(string); ok {
			hit.Content = content
		}
		if id, ok := props["documentId"].(string); ok {
			hit.Metadata.DocumentID = id
		}
		if title, ok := props["title"].(string); ok {
			hit.Metadata.Title = title
		}
		if url, ok := props["url"].(string); ok {
			hit.Metadata.SourceURL = url
		}
		if idx, ok := props["chunkIndex"].(float64); ok {
			hit.Metadata.ChunkIndex = int(idx)
		}
		if total, ok := props["totalChunks"].(float64); ok {
			hit.Metadata.TotalChunks = int(total)
		}
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			if d, ok := additional["distance"].(float64); ok {
				hit.Distance = float32(d)
			}
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

// DeleteByDocumentID removes every chunk whose documentId property matches.
func (s *Store) DeleteByDocumentID(ctx context.Context, documentID string) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(vector.ClassName).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{"documentId"}).
			WithOperator(filters.Equal).
			WithValueString(documentID)).
		Do(ctx)
	return err
}

// CountChunks returns the number of stored chunks.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	res, err := s.client.GraphQL().Aggregate().
		WithClassName(vector.ClassName).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors)
	}

	data, ok := res.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	entries, ok := data[vector.ClassName].([]interface{})
	if !ok || len(entries) == 0 {
		return 0, nil
	}
	entry, ok := entries[0].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	meta, ok := entry["meta"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	count, ok := meta["count"].(float64)
	if !ok {
		return 0, nil
	}
	return int(count), nil
}

// Clear drops and recreates the chunk class, removing every document.
func (s *Store) Clear(ctx context.Context) error {
	return vector.Reset(ctx, vector.NewWeaviateClientAdapter(s.client))
}

// EnsureSchema creates or patches the chunk class. Exposed so the bootstrap
// retry loop can drive it through the store.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return vector.EnsureSchema(ctx, vector.NewWeaviateClientAdapter(s.client))
}
