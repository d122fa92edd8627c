package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnelab/domain/event"
	"funnelab/internal"
)

// memoryStore is an in-memory EventStore with primary-key dedupe
// semantics matching the warehouse.
type memoryStore struct {
	events map[string]event.Event
	err    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{events: make(map[string]event.Event)}
}

func (m *memoryStore) InsertEvents(_ context.Context, events []event.Event) (int, int, error) {
	if m.err != nil {
		return 0, 0, m.err
	}
	inserted, duplicates := 0, 0
	for _, e := range events {
		if _, ok := m.events[e.EventID]; ok {
			duplicates++
			continue
		}
		m.events[e.EventID] = e
		inserted++
	}
	return inserted, duplicates, nil
}

func (m *memoryStore) CountEvents(context.Context) (int, error) {
	return len(m.events), nil
}

func newTestApp(store *memoryStore) *App {
	logger := internal.NewLogger(internal.LogLevelError)
	a := NewApp(Config{MaxBatchSize: 10}, store, nil, logger)
	a.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return a
}

func postJSON(t *testing.T, a *App, path string, payload string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	a := newTestApp(newMemoryStore())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestIngest_ValidBatch(t *testing.T) {
	store := newMemoryStore()
	a := newTestApp(store)

	rec := postJSON(t, a, "/ingest", `{"events": [
		{"event_id": "e1", "user_id": "u1", "event_type": "page_view", "timestamp": "2025-06-01T10:00:00Z"},
		{"event_id": "e2", "user_id": "u1", "event_type": "signup", "timestamp": "2025-06-01T10:05:00Z"}
	]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp IngestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Accepted)
	assert.Equal(t, 0, resp.DuplicateCount)
	assert.Empty(t, resp.Errors)
}

func TestIngest_DuplicatesCounted(t *testing.T) {
	store := newMemoryStore()
	a := newTestApp(store)

	body := `{"events": [{"event_id": "e1", "user_id": "u1", "event_type": "purchase", "timestamp": "2025-06-01T10:00:00Z"}]}`
	rec := postJSON(t, a, "/ingest", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, a, "/ingest", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp IngestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Accepted)
	assert.Equal(t, 1, resp.DuplicateCount)
}

func TestIngest_InvalidEventRejectsBatch(t *testing.T) {
	store := newMemoryStore()
	a := newTestApp(store)

	rec := postJSON(t, a, "/ingest", `{"events": [
		{"user_id": "u1", "event_type": "page_view", "timestamp": "2025-06-01T10:00:00Z"},
		{"user_id": "", "event_type": "page_view", "timestamp": "2025-06-01T10:00:00Z"}
	]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, len(store.events), "rejected batch must not be stored")
}

func TestIngest_FutureTimestampRejected(t *testing.T) {
	a := newTestApp(newMemoryStore())
	rec := postJSON(t, a, "/ingest", `{"events": [
		{"user_id": "u1", "event_type": "page_view", "timestamp": "2025-06-01T13:00:00Z"}
	]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngest_EmptyBatchRejected(t *testing.T) {
	a := newTestApp(newMemoryStore())
	rec := postJSON(t, a, "/ingest", `{"events": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngest_OversizedBatchRejected(t *testing.T) {
	a := newTestApp(newMemoryStore())

	events := ""
	for i := 0; i < 11; i++ {
		if i > 0 {
			events += ","
		}
		events += fmt.Sprintf(`{"user_id": "u%d", "event_type": "click", "timestamp": "2025-06-01T10:00:00Z"}`, i)
	}
	rec := postJSON(t, a, "/ingest", `{"events": [`+events+`]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngest_MalformedJSON(t *testing.T) {
	a := newTestApp(newMemoryStore())
	rec := postJSON(t, a, "/ingest", `{"events": [`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestSingle(t *testing.T) {
	store := newMemoryStore()
	a := newTestApp(store)

	rec := postJSON(t, a, "/ingest/single", `{"user_id": "u1", "event_type": "experiment_assignment",
		"timestamp": "2025-06-01T10:00:00Z",
		"properties": {"experiment_id": "checkout_redesign", "variant": "treatment"}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp IngestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Accepted)
	assert.Len(t, store.events, 1)
}

func TestIngestSingle_GeneratesEventID(t *testing.T) {
	store := newMemoryStore()
	a := newTestApp(store)

	rec := postJSON(t, a, "/ingest/single", `{"user_id": "u1", "event_type": "page_view", "timestamp": "2025-06-01T10:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	for id := range store.events {
		assert.NotEmpty(t, id)
	}
}

func TestExperiments_NotConfigured(t *testing.T) {
	a := newTestApp(newMemoryStore())
	req := httptest.NewRequest(http.MethodGet, "/experiments", nil)
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
