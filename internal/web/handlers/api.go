package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/blockedby/regstats/internal/dashboard"
	"github.com/blockedby/regstats/internal/web"
)

// APIHandler serves the JSON API.
type APIHandler struct {
	view   StatsView
	tester ConnectionTester
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(view StatsView, tester ConnectionTester) *APIHandler {
	return &APIHandler{view: view, tester: tester}
}

// GetState returns the current view state with computed percentages.
func (h *APIHandler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, web.NewStatePayload(h.view.State()))
}

// TestConnection probes the upstream. Refused while the gate is closed.
func (h *APIHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	if h.view.State().Phase == dashboard.PhaseLocked {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": dashboard.ErrLocked.Error()})
		return
	}
	writeJSON(w, http.StatusOK, h.tester.TestConnection(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		_ = err // Client disconnected
	}
}
