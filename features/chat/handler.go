// Package chat serves the streaming chat endpoint: optional retrieval
// augmentation, prompt composition and line-by-line relay of the completion
// stream as data: frames.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"docchat/internal/middleware"
	"docchat/internal/rag"
	"docchat/internal/retrieval"
)

type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]retrieval.Match, error)
}

type Completer interface {
	StreamLines(ctx context.Context, prompt string, emit func(line string) error) error
}

type Handler struct {
	retriever Retriever
	completer Completer
}

func NewHandler(r Retriever, c Completer) *Handler {
	return &Handler{retriever: r, completer: c}
}

// Stream handles POST /chat/stream. The response body is a sequence of
// "data: <json>\n\n" frames terminated by "data: [DONE]\n\n". With use_rag
// set, a sources attribution frame precedes the content frames whenever
// retrieval found relevant context. Upstream failures surface as an inline
// error frame instead of a dropped connection.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Message string `json:"message"`
		UseRAG  bool   `json:"use_rag"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(ctx, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		h.writeError(ctx, w, "VALIDATION_ERROR", "message is required", http.StatusBadRequest)
		return
	}
	if h.completer == nil {
		h.writeError(ctx, w, "CONFIG_ERROR", "chat is not configured: missing completion API key", http.StatusServiceUnavailable)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(ctx, w, "INTERNAL_ERROR", "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	writeFrame := func(payload interface{}) error {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	prompt := req.Message
	if req.UseRAG && h.retriever != nil {
		matches, err := h.retriever.Retrieve(ctx, req.Message)
		if err != nil {
			// Degrade to a plain chat prompt rather than failing the request.
			slog.WarnContext(ctx, "retrieval failed, answering without context", "error", err)
		} else if len(matches) > 0 {
			prompt = rag.Compose(req.Message, matches)
			if err := writeFrame(map[string]interface{}{"sources": rag.Sources(matches)}); err != nil {
				slog.WarnContext(ctx, "failed to write sources frame", "error", err)
				return
			}
		}
	}

	err := h.completer.StreamLines(ctx, prompt, func(line string) error {
		return writeFrame(map[string]string{"data": line})
	})
	if err != nil {
		if ctx.Err() != nil {
			// Client went away; nothing left to write.
			slog.InfoContext(ctx, "chat stream cancelled by client")
			return
		}
		slog.ErrorContext(ctx, "completion stream failed", "error", err)
		if frameErr := writeFrame(map[string]string{"error": err.Error()}); frameErr != nil {
			return
		}
	}

	if _, err := fmt.Fprint(w, "data: [DONE]\n\n"); err != nil {
		slog.WarnContext(ctx, "failed to write done sentinel", "error", err)
		return
	}
	flusher.Flush()
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
