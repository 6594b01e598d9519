package sync_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	syncfeature "docchat/features/sync"
	"docchat/internal/drivesync"
)

type MockSyncer struct{ mock.Mock }

func (m *MockSyncer) Sync(ctx context.Context, folderID string, forceFull bool) (*drivesync.Stats, error) {
	args := m.Called(ctx, folderID, forceFull)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*drivesync.Stats), args.Error(1)
}

func (m *MockSyncer) Status() (*drivesync.Status, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*drivesync.Status), args.Error(1)
}

func TestTrigger(t *testing.T) {
	syncer := new(MockSyncer)
	syncer.On("Sync", mock.Anything, "default-folder", false).Return(&drivesync.Stats{
		TotalFound: 3, Added: 2, Skipped: 1,
	}, nil)

	h := syncfeature.NewHandler(syncer, "default-folder")

	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	h.Trigger(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool            `json:"success"`
		Stats   drivesync.Stats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 3, resp.Stats.TotalFound)
	syncer.AssertExpectations(t)
}

func TestTrigger_EmptyBodyUsesDefaults(t *testing.T) {
	syncer := new(MockSyncer)
	syncer.On("Sync", mock.Anything, "default-folder", false).Return(&drivesync.Stats{}, nil)

	h := syncfeature.NewHandler(syncer, "default-folder")

	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(""))
	w := httptest.NewRecorder()
	h.Trigger(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	syncer.AssertExpectations(t)
}

func TestTrigger_OverridesFolderAndForce(t *testing.T) {
	syncer := new(MockSyncer)
	syncer.On("Sync", mock.Anything, "other-folder", true).Return(&drivesync.Stats{}, nil)

	h := syncfeature.NewHandler(syncer, "default-folder")

	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(`{"folder_id":"other-folder","force_full":true}`))
	w := httptest.NewRecorder()
	h.Trigger(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	syncer.AssertExpectations(t)
}

func TestTrigger_SyncError(t *testing.T) {
	syncer := new(MockSyncer)
	syncer.On("Sync", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("drive unavailable"))

	h := syncfeature.NewHandler(syncer, "f")

	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	h.Trigger(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "SYNC_ERROR")
}

func TestTrigger_NotConfigured(t *testing.T) {
	h := syncfeature.NewHandler(nil, "")

	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	h.Trigger(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "CONFIG_ERROR")
}

func TestStatus(t *testing.T) {
	last := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	syncer := new(MockSyncer)
	syncer.On("Status").Return(&drivesync.Status{
		LastSyncTime:         &last,
		SyncedDocumentsCount: 5,
		SyncIntervalHours:    24,
		ShouldSync:           true,
	}, nil)

	h := syncfeature.NewHandler(syncer, "f")

	req := httptest.NewRequest(http.MethodGet, "/sync/status", nil)
	w := httptest.NewRecorder()
	h.Status(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data drivesync.Status `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Data.SyncedDocumentsCount)
	assert.True(t, resp.Data.ShouldSync)
}
