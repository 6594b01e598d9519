// Package sync exposes the drive sync coordinator over HTTP: trigger a pass
// and report its status.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"docchat/internal/drivesync"
	"docchat/internal/middleware"
)

type Syncer interface {
	Sync(ctx context.Context, folderID string, forceFull bool) (*drivesync.Stats, error)
	Status() (*drivesync.Status, error)
}

type Handler struct {
	syncer        Syncer
	defaultFolder string
}

func NewHandler(syncer Syncer, defaultFolder string) *Handler {
	return &Handler{syncer: syncer, defaultFolder: defaultFolder}
}

// Trigger handles POST /sync. The body is optional; folder_id defaults to the
// configured folder and force_full to false.
func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.syncer == nil {
		h.writeError(ctx, w, "CONFIG_ERROR", "drive sync is not configured", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		FolderID  string `json:"folder_id"`
		ForceFull bool   `json:"force_full"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(ctx, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}

	folderID := req.FolderID
	if folderID == "" {
		folderID = h.defaultFolder
	}

	stats, err := h.syncer.Sync(ctx, folderID, req.ForceFull)
	if err != nil {
		slog.ErrorContext(ctx, "sync failed", "folder_id", folderID, "error", err)
		h.writeError(ctx, w, "SYNC_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(ctx, w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "sync completed",
		"stats":   stats,
	})
}

// Status handles GET /sync/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.syncer == nil {
		h.writeError(ctx, w, "CONFIG_ERROR", "drive sync is not configured", http.StatusServiceUnavailable)
		return
	}

	status, err := h.syncer.Status()
	if err != nil {
		slog.ErrorContext(ctx, "failed to read sync status", "error", err)
		h.writeError(ctx, w, "SYNC_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(ctx, w, http.StatusOK, map[string]interface{}{"data": status})
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
