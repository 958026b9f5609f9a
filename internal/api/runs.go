package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/nerrad567/autofill-core/internal/replay"
	"github.com/nerrad567/autofill-core/internal/variables"
)

// Run history page sizes. The repository caps anything larger.
const (
	defaultRunLimit = 50
	maxRunLimit     = replay.MaxHistoryLimit
)

// StartRunRequest is the body of POST /websites/{id}/runs. Every field is
// optional.
type StartRunRequest struct {
	OwnerID    string            `json:"owner_id"`
	Variables  map[string]string `json:"variables"`
	StartIndex int               `json:"start_index"`
}

// handleStartRun replays a website's steps.
//
// By default the run continues in the background and the response is 202
// with the in-progress result; progress follows on the WebSocket "run.*"
// channels and MQTT. With ?wait=true the request blocks until the run
// ends and returns the final result.
func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	websiteID, ok := stepIDParam(w, r, "website")
	if !ok {
		return
	}

	var body StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	req := replay.RunRequest{
		WebsiteID:  websiteID,
		OwnerID:    body.OwnerID,
		Variables:  variables.Map(body.Variables),
		StartIndex: body.StartIndex,
	}

	if r.URL.Query().Get("wait") == "true" {
		result, err := s.engine.Run(r.Context(), req)
		if err != nil {
			writeRunError(w, err)
			return
		}
		s.recordRun(r, result)
		writeJSON(w, http.StatusOK, result)
		return
	}

	result, err := s.engine.Start(s.runCtx, req)
	if err != nil {
		writeRunError(w, err)
		return
	}
	s.recordRun(r, result)
	writeJSON(w, http.StatusAccepted, result)
}

func writeRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, replay.ErrInvalidRequest):
		writeValidationError(w, err.Error())
	case errors.Is(err, replay.ErrRunInProgress):
		writeConflict(w, "a run is already in progress for this website")
	case errors.Is(err, replay.ErrNoSteps):
		writeNotFound(w, "website has no steps")
	default:
		writeInternalError(w, "failed to start run")
	}
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, ok := stepIDParam(w, r, "run")
	if !ok {
		return
	}

	result, err := s.results.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, replay.ErrRunNotFound) {
			writeNotFound(w, "run not found")
			return
		}
		writeInternalError(w, "failed to get run")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListWebsiteRuns(w http.ResponseWriter, r *http.Request) {
	websiteID, ok := stepIDParam(w, r, "website")
	if !ok {
		return
	}
	limit, ok := runLimit(w, r)
	if !ok {
		return
	}

	runs, err := s.results.ListByWebsite(r.Context(), websiteID, limit)
	if err != nil {
		writeInternalError(w, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []replay.RunResult{}
	}
	resp := map[string]any{"runs": runs, "count": len(runs)}
	if runID, active := s.engine.ActiveRun(websiteID); active {
		resp["active_run_id"] = runID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOwnerHistory(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := stepIDParam(w, r, "owner")
	if !ok {
		return
	}
	limit, ok := runLimit(w, r)
	if !ok {
		return
	}

	runs, err := s.results.HistoryByOwner(r.Context(), ownerID, limit)
	if err != nil {
		writeInternalError(w, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []replay.RunResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

func (s *Server) handleOwnerLatest(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := stepIDParam(w, r, "owner")
	if !ok {
		return
	}

	result, err := s.results.LatestByOwner(r.Context(), ownerID)
	if err != nil {
		if errors.Is(err, replay.ErrRunNotFound) {
			writeNotFound(w, "owner has no runs")
			return
		}
		writeInternalError(w, "failed to get latest run")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// runLimit parses ?limit=, defaulting to 50 and capped at maxRunLimit.
func runLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultRunLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		writeBadRequest(w, "limit must be a positive integer")
		return 0, false
	}
	return min(n, maxRunLimit), true
}
