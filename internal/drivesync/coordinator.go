// Package drivesync keeps the vector index in step with a remote document
// folder: incremental re-sync, replace-by-id updates and per-item error
// accounting.
package drivesync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"docchat/internal/document"
)

type DocumentSource interface {
	List(ctx context.Context, folderID string) ([]document.RemoteFile, error)
	Fetch(ctx context.Context, id string) (*document.Document, error)
}

type Ingestor interface {
	AddDocument(ctx context.Context, doc *document.Document) (int, error)
	DeleteDocument(ctx context.Context, documentID string) error
}

// Stats summarizes one sync pass. Added+Updated+Skipped+Errors equals
// TotalFound; per-item failures land in ErrorDetails without aborting the
// batch.
type Stats struct {
	TotalFound   int      `json:"total_found"`
	Added        int      `json:"added"`
	Updated      int      `json:"updated"`
	Skipped      int      `json:"skipped"`
	Errors       int      `json:"errors"`
	ErrorDetails []string `json:"error_details"`
}

type Status struct {
	LastSyncTime         *time.Time `json:"last_sync_time"`
	SyncedDocumentsCount int        `json:"synced_documents_count"`
	SyncIntervalHours    float64    `json:"sync_interval_hours"`
	ShouldSync           bool       `json:"should_sync"`
}

// Coordinator serializes sync passes with an internal mutex: only the
// coordinator mutates SyncState, and only one pass runs at a time.
type Coordinator struct {
	mu       sync.Mutex
	source   DocumentSource
	ingestor Ingestor
	store    StateStore
	interval time.Duration
	now      func() time.Time
}

func NewCoordinator(source DocumentSource, ingestor Ingestor, store StateStore, interval time.Duration) *Coordinator {
	return &Coordinator{
		source:   source,
		ingestor: ingestor,
		store:    store,
		interval: interval,
		now:      time.Now,
	}
}

// Sync lists the remote folder and ingests everything new or changed.
// Candidates already synced and not modified since the last pass are skipped
// unless forceFull is set. A fetch or ingest failure is tallied and the pass
// continues; state is persisted after the pass even on partial failure.
func (c *Coordinator) Sync(ctx context.Context, folderID string, forceFull bool) (*Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, err := c.store.Load()
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "starting drive sync", "folder_id", folderID, "force_full", forceFull)

	files, err := c.source.List(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("scan drive folder: %w", err)
	}

	stats := &Stats{TotalFound: len(files)}
	if len(files) == 0 {
		slog.WarnContext(ctx, "no documents found in folder", "folder_id", folderID)
		return stats, nil
	}

	for _, file := range files {
		if !forceFull && c.canSkip(state, file) {
			stats.Skipped++
			slog.InfoContext(ctx, "skipping unchanged document", "document_id", file.ID, "title", file.Title)
			continue
		}
		c.syncOne(ctx, state, file, stats)
	}

	now := c.now()
	state.LastSyncTime = &now
	if err := c.store.Save(state); err != nil {
		slog.ErrorContext(ctx, "failed to persist sync state", "error", err)
	}

	slog.InfoContext(ctx, "drive sync completed",
		"total_found", stats.TotalFound, "added", stats.Added, "updated", stats.Updated,
		"skipped", stats.Skipped, "errors", stats.Errors)
	return stats, nil
}

func (c *Coordinator) canSkip(state *State, file document.RemoteFile) bool {
	if !state.SyncedDocumentIDs[file.ID] {
		return false
	}
	if file.ModifiedTime == nil || state.LastSyncTime == nil {
		return false
	}
	return !file.ModifiedTime.After(*state.LastSyncTime)
}

// syncOne replaces a previously synced document by deleting its old chunks
// before inserting the new ones. The delete and insert are not atomic: a
// crash in between leaves the document transiently absent until the next
// forced sync re-fetches it.
func (c *Coordinator) syncOne(ctx context.Context, state *State, file document.RemoteFile, stats *Stats) {
	doc, err := c.source.Fetch(ctx, file.ID)
	if err != nil {
		stats.Errors++
		stats.ErrorDetails = append(stats.ErrorDetails, fmt.Sprintf("error retrieving document %s: %v", file.Title, err))
		slog.ErrorContext(ctx, "failed to fetch document", "document_id", file.ID, "title", file.Title, "error", err)
		return
	}

	isUpdate := state.SyncedDocumentIDs[file.ID]
	if isUpdate {
		if err := c.ingestor.DeleteDocument(ctx, file.ID); err != nil {
			slog.WarnContext(ctx, "could not remove old version", "document_id", file.ID, "error", err)
		}
	}

	if _, err := c.ingestor.AddDocument(ctx, doc); err != nil {
		stats.Errors++
		stats.ErrorDetails = append(stats.ErrorDetails, fmt.Sprintf("error adding document %s: %v", doc.Title, err))
		slog.ErrorContext(ctx, "failed to add document", "document_id", file.ID, "title", doc.Title, "error", err)
		return
	}

	state.SyncedDocumentIDs[file.ID] = true
	if isUpdate {
		stats.Updated++
	} else {
		stats.Added++
	}
}

// ShouldSync reports whether a pass is due: never synced, or the configured
// interval has elapsed.
func (c *Coordinator) ShouldSync() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, err := c.store.Load()
	if err != nil {
		return false, err
	}
	if state.LastSyncTime == nil {
		return true, nil
	}
	return c.now().Sub(*state.LastSyncTime) >= c.interval, nil
}

func (c *Coordinator) Status() (*Status, error) {
	c.mu.Lock()
	state, err := c.store.Load()
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	due := state.LastSyncTime == nil || c.now().Sub(*state.LastSyncTime) >= c.interval
	return &Status{
		LastSyncTime:         state.LastSyncTime,
		SyncedDocumentsCount: len(state.SyncedDocumentIDs),
		SyncIntervalHours:    c.interval.Hours(),
		ShouldSync:           due,
	}, nil
}

// SyncIfNeeded runs a pass only when one is due. Returns nil stats when no
// pass ran.
func (c *Coordinator) SyncIfNeeded(ctx context.Context, folderID string) (*Stats, error) {
	due, err := c.ShouldSync()
	if err != nil {
		return nil, err
	}
	if !due {
		return nil, nil
	}
	slog.InfoContext(ctx, "auto-sync triggered")
	return c.Sync(ctx, folderID, false)
}

// ClearState forgets everything synced so far. Useful for resets and tests.
func (c *Coordinator) ClearState() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Clear()
}
