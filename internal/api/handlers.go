package api

import (
	"encoding/json"
	"net/http"

	"funnelab/domain/event"
	"funnelab/internal/errors"
)

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleIngest accepts a batch of events. Validation happens before the
// store is touched: a malformed batch is rejected whole with 400.
func (a *App) handleIngest(w http.ResponseWriter, r *http.Request) {
	var batch event.Batch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}
	a.ingest(w, r, &batch)
}

// handleIngestSingle is a convenience wrapper for one event.
func (a *App) handleIngestSingle(w http.ResponseWriter, r *http.Request) {
	var e event.Event
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}
	a.ingest(w, r, &event.Batch{Events: []event.Event{e}})
}

func (a *App) ingest(w http.ResponseWriter, r *http.Request, batch *event.Batch) {
	now := a.now()
	if err := batch.Validate(now, a.maxBatchSize); err != nil {
		a.logger.Debug("rejected batch: %v", err)
		writeJSON(w, http.StatusBadRequest, IngestResponse{
			Errors: []string{err.Error()},
		})
		return
	}

	inserted, duplicates, err := a.store.InsertEvents(r.Context(), batch.Events)
	if err != nil {
		a.logger.Error("insert failed: %v (code=%s)", err, errors.GetCode(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to store events"})
		return
	}

	writeJSON(w, http.StatusOK, IngestResponse{
		Accepted:       inserted,
		DuplicateCount: duplicates,
		Errors:         []string{},
	})
}

// handleExperiments returns the current experiment analyses.
func (a *App) handleExperiments(w http.ResponseWriter, r *http.Request) {
	if a.analyzer == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "analysis not configured"})
		return
	}
	results, err := a.analyzer.AnalyzeAll(r.Context())
	if err != nil {
		a.logger.Error("analysis failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "analysis failed"})
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
