package ui

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"mipool/app"
	"mipool/domain/core"
	"mipool/domain/pooling"
)

// poolRequest is the POST /api/pool payload. Records use the same field
// names as the file readers: imputation, coefficient, estimate, std_error,
// df.
type poolRequest struct {
	Source          string                     `json:"source"`
	ConfidenceLevel float64                    `json:"confidence_level"`
	NullValue       float64                    `json:"null_value"`
	Persist         bool                       `json:"persist"`
	Records         []pooling.ImputationRecord `json:"records"`
}

// handleHealth reports service liveness
func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePool pools the posted records and returns the result table
func (a *App) handlePool(w http.ResponseWriter, r *http.Request) {
	var req poolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Records) == 0 {
		a.respondError(w, http.StatusBadRequest, "records are required")
		return
	}

	source := req.Source
	if source == "" {
		source = "api"
	}

	result, err := a.service.RunPooling(r.Context(), app.PoolRequest{
		Records:         req.Records,
		Source:          source,
		ConfidenceLevel: req.ConfidenceLevel,
		NullValue:       req.NullValue,
		Persist:         req.Persist,
	})
	if err != nil {
		a.respondError(w, statusForError(err), err.Error())
		return
	}

	a.respondJSON(w, http.StatusOK, poolResponse{
		Run:         result.Run,
		Rows:        toRowResponses(result.Table),
		Fingerprint: result.Fingerprint.String(),
		RuntimeMs:   result.RuntimeMs,
		Persisted:   result.Persisted,
		Success:     result.Success,
	})
}

// handleListRuns returns recent stored runs
func (a *App) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			a.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	runs, err := a.service.ListRuns(r.Context(), limit)
	if err != nil {
		a.respondError(w, statusForError(err), err.Error())
		return
	}
	if runs == nil {
		runs = []pooling.PoolingRun{}
	}

	a.respondJSON(w, http.StatusOK, runListResponse{Runs: runs})
}

// handleGetRun returns one stored run with its table
func (a *App) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		a.respondError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	run, table, err := a.service.GetRun(r.Context(), runID)
	if err != nil {
		a.respondError(w, statusForError(err), err.Error())
		return
	}

	a.respondJSON(w, http.StatusOK, runResponse{Run: *run, Rows: toRowResponses(table)})
}

func (a *App) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func (a *App) respondError(w http.ResponseWriter, status int, message string) {
	a.respondJSON(w, status, errorResponse{Error: message})
}

// statusForError maps domain errors onto HTTP statuses. Pooling and
// inference contract violations are client errors; anything unrecognized
// is a 500.
func statusForError(err error) int {
	switch {
	case core.IsNotFoundError(err):
		return http.StatusNotFound
	case core.IsInferenceError(err), core.IsPoolingError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
