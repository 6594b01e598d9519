package drivesync

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// State records which remote documents have been ingested and when the last
// sync pass finished. It is passed into and out of the coordinator explicitly
// so the coordinator stays testable without disk I/O.
type State struct {
	LastSyncTime      *time.Time
	SyncedDocumentIDs map[string]bool
}

func NewState() *State {
	return &State{SyncedDocumentIDs: make(map[string]bool)}
}

// StateStore persists sync state between process runs.
type StateStore interface {
	Load() (*State, error)
	Save(state *State) error
	Clear() error
}

// stateFile is the on-disk shape:
// {"last_sync_time": "<RFC3339>"|null, "synced_documents": [...]}.
type stateFile struct {
	LastSyncTime    *time.Time `json:"last_sync_time"`
	SyncedDocuments []string   `json:"synced_documents"`
}

// FileStore keeps the sync state in one JSON document on disk.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the state file, returning a fresh empty state when the file does
// not exist yet.
func (s *FileStore) Load() (*State, error) {
	data, err := os.ReadFile(filepath.Clean(s.path)) // #nosec G304 -- path is from application config, not user input
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, fmt.Errorf("read sync state: %w", err)
	}

	var f stateFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sync state: %w", err)
	}

	state := NewState()
	state.LastSyncTime = f.LastSyncTime
	for _, id := range f.SyncedDocuments {
		state.SyncedDocumentIDs[id] = true
	}
	return state, nil
}

func (s *FileStore) Save(state *State) error {
	ids := make([]string, 0, len(state.SyncedDocumentIDs))
	for id := range state.SyncedDocumentIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	data, err := json.MarshalIndent(stateFile{
		LastSyncTime:    state.LastSyncTime,
		SyncedDocuments: ids,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sync state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create sync state dir: %w", err)
	}
	if err := os.WriteFile(filepath.Clean(s.path), data, 0o600); err != nil {
		return fmt.Errorf("write sync state: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove sync state: %w", err)
	}
	return nil
}
