package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/autofill-core/internal/audit"
	"github.com/nerrad567/autofill-core/internal/step"
)

// maxQueryParamLen limits ID and query parameter length.
const maxQueryParamLen = 100

// Step listing orders.
const (
	orderReplay    = "replay"
	orderInsertion = "insertion"
)

// decodePatch reads a step patch and normalises its action kind, so
// "select-value" and "Select_Value" both store as select_value.
func decodePatch(w http.ResponseWriter, r *http.Request) (step.Patch, bool) {
	var patch step.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return step.Patch{}, false
	}
	if patch.Action != nil {
		kind, err := step.ParseActionKind(string(*patch.Action))
		if err != nil {
			writeValidationError(w, err.Error())
			return step.Patch{}, false
		}
		patch.Action = &kind
	}
	return patch, true
}

// stepIDParam returns the {id} URL parameter or writes a 400.
func stepIDParam(w http.ResponseWriter, r *http.Request, what string) (string, bool) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid "+what+" ID")
		return "", false
	}
	return id, true
}

// writeStepError maps step sentinels to HTTP responses.
func writeStepError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, step.ErrStepNotFound):
		writeNotFound(w, "step not found")
	case errors.Is(err, step.ErrStepExists):
		writeConflict(w, err.Error())
	case errors.Is(err, step.ErrInvalidStep),
		errors.Is(err, step.ErrUnknownActionKind),
		errors.Is(err, step.ErrMissingLocator):
		writeValidationError(w, err.Error())
	default:
		writeInternalError(w, fallback)
	}
}

// handleListSteps returns a website's steps, or every step when no
// website_id is given. A website's steps come in replay order (ascending
// execution_order); ?order=insertion returns them as they were added.
func (s *Server) handleListSteps(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		steps []step.Step
		err   error
	)
	switch websiteID := q.Get("website_id"); {
	case len(websiteID) > maxQueryParamLen:
		writeBadRequest(w, "website_id exceeds maximum length")
		return
	case websiteID == "":
		steps, err = s.steps.ListAll(ctx)
	default:
		switch q.Get("order") {
		case "", orderReplay:
			steps, err = s.steps.ReplaySteps(ctx, websiteID)
		case orderInsertion:
			steps, err = s.steps.ListByWebsite(ctx, websiteID)
		default:
			writeBadRequest(w, "order must be replay or insertion")
			return
		}
	}
	if err != nil {
		writeInternalError(w, "failed to list steps")
		return
	}
	if steps == nil {
		steps = []step.Step{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"steps": steps, "count": len(steps)})
}

func (s *Server) handleGetStep(w http.ResponseWriter, r *http.Request) {
	id, ok := stepIDParam(w, r, "step")
	if !ok {
		return
	}

	st, err := s.steps.GetStep(r.Context(), id)
	if err != nil {
		writeStepError(w, err, "failed to get step")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleCreateStep stores a new step. Fields left out of the body take
// the authoring defaults; a missing execution_order appends the step.
func (s *Server) handleCreateStep(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}
	if patch.WebsiteID == nil || *patch.WebsiteID == "" {
		writeValidationError(w, "website_id is required")
		return
	}

	candidate := patch.Apply(step.NewStep(*patch.WebsiteID))
	if patch.ExecutionTimeoutSeconds == nil && s.stepTimeout > 0 {
		candidate.ExecutionTimeoutSeconds = s.stepTimeout
	}

	create := s.steps.CreateStep
	if patch.ExecutionOrder == nil {
		create = s.steps.AppendStep
	}
	created, err := create(r.Context(), candidate)
	if err != nil {
		writeStepError(w, err, "failed to create step")
		return
	}
	s.record(r, audit.ActionCreate, audit.EntityStep, created.ID, created.WebsiteID,
		map[string]any{"action_kind": created.Action, "execution_order": created.ExecutionOrder})
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateStep(w http.ResponseWriter, r *http.Request) {
	id, ok := stepIDParam(w, r, "step")
	if !ok {
		return
	}

	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}

	updated, err := s.steps.UpdateStep(r.Context(), id, patch)
	if err != nil {
		writeStepError(w, err, "failed to update step")
		return
	}
	s.record(r, audit.ActionUpdate, audit.EntityStep, updated.ID, updated.WebsiteID, nil)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteStep(w http.ResponseWriter, r *http.Request) {
	id, ok := stepIDParam(w, r, "step")
	if !ok {
		return
	}

	if err := s.steps.DeleteStep(r.Context(), id); err != nil {
		writeStepError(w, err, "failed to delete step")
		return
	}
	s.record(r, audit.ActionDelete, audit.EntityStep, id, "", nil)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDuplicateStep(w http.ResponseWriter, r *http.Request) {
	id, ok := stepIDParam(w, r, "step")
	if !ok {
		return
	}

	dup, err := s.steps.DuplicateStep(r.Context(), id)
	if err != nil {
		writeStepError(w, err, "failed to duplicate step")
		return
	}
	s.record(r, audit.ActionDuplicate, audit.EntityStep, dup.ID, dup.WebsiteID, map[string]any{"source_id": id})
	writeJSON(w, http.StatusCreated, dup)
}

// handleNextOrder returns the execution order a new step of the website
// would receive.
func (s *Server) handleNextOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := stepIDParam(w, r, "website")
	if !ok {
		return
	}

	next, err := s.steps.NextExecutionOrder(r.Context(), id)
	if err != nil {
		writeInternalError(w, "failed to compute next execution order")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"website_id": id, "next_execution_order": next})
}
