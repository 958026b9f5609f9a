package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/autofill-core/internal/audit"
	"github.com/nerrad567/autofill-core/internal/replay"
)

// auditTimeout bounds an audit write so it cannot stall a response.
const auditTimeout = 2 * time.Second

// record appends an API-sourced entry to the audit trail. Failures are
// logged and never fail the request.
func (s *Server) record(r *http.Request, action, entityType, entityID, websiteID string, details map[string]any) {
	if s.audit == nil {
		return
	}
	if reqID := requestIDFrom(r.Context()); reqID != "" {
		if details == nil {
			details = make(map[string]any, 1)
		}
		details["request_id"] = reqID
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), auditTimeout)
	defer cancel()

	err := s.audit.Record(ctx, &audit.Entry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		WebsiteID:  websiteID,
		Source:     audit.SourceAPI,
		Details:    details,
	})
	if err != nil {
		s.logger.Warn("audit write failed", "action", action, "entity_id", entityID, "error", err)
	}
}

func (s *Server) recordRun(r *http.Request, run *replay.RunResult) {
	details := map[string]any{
		"status":      string(run.Status),
		"total_steps": run.TotalSteps,
	}
	if run.OwnerID != "" {
		details["owner_id"] = run.OwnerID
	}
	s.record(r, audit.ActionRun, audit.EntityRun, run.ID, run.WebsiteID, details)
}

// handleListAudit returns audit entries, newest first.
//
// Query parameters: action, entity_type, website_id, limit (max 200), offset.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeNotFound(w, "audit trail not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		WebsiteID:  q.Get("website_id"),
	}
	for _, v := range []string{filter.Action, filter.EntityType, filter.WebsiteID} {
		if len(v) > maxQueryParamLen {
			writeBadRequest(w, "query parameter too long")
			return
		}
	}

	var ok bool
	if filter.Limit, ok = intParam(w, r, "limit"); !ok {
		return
	}
	if filter.Offset, ok = intParam(w, r, "offset"); !ok {
		return
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list audit entries", "error", err)
		writeInternalError(w, "failed to list audit entries")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// intParam parses an optional non-negative integer query parameter.
func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeBadRequest(w, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}
