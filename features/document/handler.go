// Package document exposes ingestion management over HTTP: add a document
// from the configured source, delete one, clear the index and report stats.
package document

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"docchat/internal/adapter/googledrive"
	"docchat/internal/document"
	"docchat/internal/middleware"
	"docchat/internal/rag"
)

type RAGService interface {
	AddDocument(ctx context.Context, doc *document.Document) (int, error)
	DeleteDocument(ctx context.Context, documentID string) error
	ClearAll(ctx context.Context) error
	Stats(ctx context.Context) (*rag.Stats, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, id string) (*document.Document, error)
}

type Handler struct {
	service RAGService
	fetcher Fetcher
}

func NewHandler(service RAGService, fetcher Fetcher) *Handler {
	return &Handler{service: service, fetcher: fetcher}
}

// Add handles POST /documents/add: fetch one document from the source and
// ingest it.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		DocumentID string `json:"document_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if req.DocumentID == "" {
		h.writeError(ctx, w, "VALIDATION_ERROR", "document_id is required", http.StatusBadRequest)
		return
	}
	if h.fetcher == nil {
		h.writeError(ctx, w, "CONFIG_ERROR", "document source is not configured", http.StatusServiceUnavailable)
		return
	}

	doc, err := h.fetcher.Fetch(ctx, req.DocumentID)
	if err != nil {
		if errors.Is(err, googledrive.ErrNotFound) {
			h.writeError(ctx, w, "NOT_FOUND", "document not found: "+req.DocumentID, http.StatusNotFound)
			return
		}
		slog.ErrorContext(ctx, "failed to fetch document", "document_id", req.DocumentID, "error", err)
		h.writeError(ctx, w, "SOURCE_ERROR", err.Error(), http.StatusBadGateway)
		return
	}

	chunks, err := h.service.AddDocument(ctx, doc)
	if err != nil {
		slog.ErrorContext(ctx, "failed to add document", "document_id", req.DocumentID, "error", err)
		h.writeError(ctx, w, "INGEST_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(ctx, w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "document added: " + doc.Title,
		"chunks":  chunks,
	})
}

// Delete handles DELETE /documents/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := r.PathValue("id")
	if id == "" {
		h.writeError(ctx, w, "VALIDATION_ERROR", "document id is required", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteDocument(ctx, id); err != nil {
		slog.ErrorContext(ctx, "failed to delete document", "document_id", id, "error", err)
		h.writeError(ctx, w, "INGEST_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(ctx, w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "document deleted: " + id,
	})
}

// Clear handles DELETE /documents/clear: drop every chunk in the index.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.ClearAll(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to clear index", "error", err)
		h.writeError(ctx, w, "INGEST_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(ctx, w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "all documents cleared",
	})
}

// Stats handles GET /documents/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.service.Stats(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to read index stats", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(ctx, w, http.StatusOK, map[string]interface{}{"data": stats})
}

func (h *Handler) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
