package handlers

import (
	"errors"
	"net/http"

	"github.com/blockedby/regstats/internal/dashboard"
	"github.com/blockedby/regstats/internal/logger"
	"github.com/blockedby/regstats/internal/web"
)

// DashboardHandler renders the statistics page and applies operator actions.
type DashboardHandler struct {
	templates *web.TemplateEngine
	view      StatsView
	adminURL  string
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(templates *web.TemplateEngine, view StatsView, adminURL string) *DashboardHandler {
	return &DashboardHandler{
		templates: templates,
		view:      view,
		adminURL:  adminURL,
	}
}

// Dashboard renders the current state.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, h.view.State(), "")
}

// Unlock checks the gate password.
func (h *DashboardHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	h.apply(w, r, func() (dashboard.State, error) {
		return h.view.Unlock(r.PostFormValue("password"))
	})
}

// Refresh refetches the statistics.
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.view.Refresh)
}

// Retry refetches after an error.
func (h *DashboardHandler) Retry(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.view.Retry)
}

// ClearCredential drops the cached token and refetches.
func (h *DashboardHandler) ClearCredential(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.view.ClearCredential)
}

// apply runs an action and redirects to the dashboard, or re-renders it with
// the rejection message.
func (h *DashboardHandler) apply(w http.ResponseWriter, r *http.Request, action func() (dashboard.State, error)) {
	st, err := action()
	if err == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	logger.Get().Debug().Err(err).Str("path", r.URL.Path).Msg("dashboard action rejected")
	h.render(w, r, statusFor(err), st, actionMessage(err))
}

func (h *DashboardHandler) render(w http.ResponseWriter, r *http.Request, status int, st dashboard.State, errMsg string) {
	data := map[string]interface{}{
		"Title":    "Statistics",
		"State":    st,
		"Stats":    dashboard.Present(st.Snapshot),
		"Error":    errMsg,
		"AdminURL": h.adminURL,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	var err error
	if r.Header.Get("HX-Request") == "true" {
		err = h.templates.RenderContent(w, "dashboard", data)
	} else {
		err = h.templates.Render(w, "dashboard", data)
	}
	if err != nil {
		logger.Get().Error().Err(err).Msg("template error")
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrWrongPassword), errors.Is(err, dashboard.ErrLocked):
		return http.StatusUnauthorized
	case errors.Is(err, dashboard.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func actionMessage(err error) string {
	switch {
	case errors.Is(err, dashboard.ErrWrongPassword):
		return "Wrong password"
	case errors.Is(err, dashboard.ErrLocked):
		return "Unlock the dashboard first"
	case errors.Is(err, dashboard.ErrInvalidTransition):
		return "That action is not available right now"
	default:
		return err.Error()
	}
}
