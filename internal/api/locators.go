package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/nerrad567/autofill-core/internal/selector"
)

// LocatorRequest is the body of POST /locators.
type LocatorRequest struct {
	HTML string `json:"html"`
	CSS  string `json:"css"`
}

// handleGenerateLocators returns the absolute, short and smart XPath
// locators of the first element in html matching css. Used when
// authoring steps from a saved page.
func (s *Server) handleGenerateLocators(w http.ResponseWriter, r *http.Request) {
	var req LocatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.HTML) == "" || strings.TrimSpace(req.CSS) == "" {
		writeValidationError(w, "html and css are required")
		return
	}

	locators, err := selector.FromHTML(strings.NewReader(req.HTML), req.CSS)
	if err != nil {
		switch {
		case errors.Is(err, selector.ErrInvalidCSS):
			writeValidationError(w, err.Error())
		case errors.Is(err, selector.ErrNoMatch):
			writeNotFound(w, err.Error())
		default:
			writeBadRequest(w, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, locators)
}
