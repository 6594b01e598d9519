package rag_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docchat/internal/document"
	"docchat/internal/rag"
	"docchat/internal/retrieval"
)

type MockEmbedder struct{ mock.Mock }

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

type MockIndex struct{ mock.Mock }

func (m *MockIndex) AddChunks(ctx context.Context, chunks []document.Chunk, vectors [][]float32) error {
	args := m.Called(ctx, chunks, vectors)
	return args.Error(0)
}

func (m *MockIndex) DeleteByDocumentID(ctx context.Context, documentID string) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}

func (m *MockIndex) CountChunks(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockIndex) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func newService(e *MockEmbedder, idx *MockIndex) *rag.Service {
	p := document.NewProcessor(1000, 200)
	return rag.NewService(p, e, idx, nil, "gemini-embedding-001")
}

func TestService_AddDocument(t *testing.T) {
	e := new(MockEmbedder)
	idx := new(MockIndex)

	doc := &document.Document{ID: "d1", Title: "T", Content: "some indexable text"}

	e.On("EmbedBatch", mock.Anything, []string{"some indexable text"}).
		Return([][]float32{{0.1, 0.2}}, nil)
	idx.On("AddChunks", mock.Anything, mock.MatchedBy(func(chunks []document.Chunk) bool {
		return len(chunks) == 1 && chunks[0].Metadata.DocumentID == "d1"
	}), [][]float32{{0.1, 0.2}}).Return(nil)

	count, err := newService(e, idx).AddDocument(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	e.AssertExpectations(t)
	idx.AssertExpectations(t)
}

func TestService_AddDocument_EmptyContent(t *testing.T) {
	e := new(MockEmbedder)
	idx := new(MockIndex)

	_, err := newService(e, idx).AddDocument(context.Background(), &document.Document{ID: "d1", Content: "  "})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no indexable content")
	e.AssertNotCalled(t, "EmbedBatch")
}

func TestService_AddDocument_VectorCountMismatch(t *testing.T) {
	e := new(MockEmbedder)
	idx := new(MockIndex)

	e.On("EmbedBatch", mock.Anything, mock.Anything).Return([][]float32{{0.1}, {0.2}}, nil)

	_, err := newService(e, idx).AddDocument(context.Background(), &document.Document{ID: "d1", Content: "text"})
	assert.Error(t, err)
	idx.AssertNotCalled(t, "AddChunks")
}

func TestService_AddDocument_EmbedderNotConfigured(t *testing.T) {
	p := document.NewProcessor(1000, 200)
	svc := rag.NewService(p, nil, new(MockIndex), nil, "")

	_, err := svc.AddDocument(context.Background(), &document.Document{ID: "d1", Content: "text"})
	assert.Error(t, err)
}

func TestService_DeleteDocument(t *testing.T) {
	e := new(MockEmbedder)
	idx := new(MockIndex)

	idx.On("DeleteByDocumentID", mock.Anything, "d1").Return(nil)
	assert.NoError(t, newService(e, idx).DeleteDocument(context.Background(), "d1"))

	idx.On("DeleteByDocumentID", mock.Anything, "d2").Return(errors.New("boom"))
	err := newService(e, idx).DeleteDocument(context.Background(), "d2")
	assert.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "d2"))
}

func TestService_Stats(t *testing.T) {
	e := new(MockEmbedder)
	idx := new(MockIndex)

	idx.On("CountChunks", mock.Anything).Return(42, nil)

	stats, err := newService(e, idx).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, stats.TotalChunks)
	assert.Equal(t, 1000, stats.ChunkSize)
	assert.Equal(t, 200, stats.ChunkOverlap)
	assert.Equal(t, "gemini-embedding-001", stats.EmbeddingModel)
}

func TestService_Retrieve_NotConfigured(t *testing.T) {
	svc := rag.NewService(document.NewProcessor(1000, 200), new(MockEmbedder), new(MockIndex), nil, "")

	_, err := svc.Retrieve(context.Background(), "q")
	assert.Error(t, err)
}

var _ rag.Retriever = (*retrieverStub)(nil)

type retrieverStub struct{ matches []retrieval.Match }

func (r *retrieverStub) Retrieve(ctx context.Context, query string) ([]retrieval.Match, error) {
	return r.matches, nil
}

func TestService_Retrieve_Delegates(t *testing.T) {
	stub := &retrieverStub{matches: []retrieval.Match{{Content: "ctx"}}}
	svc := rag.NewService(document.NewProcessor(1000, 200), new(MockEmbedder), new(MockIndex), stub, "")

	matches, err := svc.Retrieve(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}
