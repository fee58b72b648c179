package handler

import (
	"database/sql"
	"log/slog"
	"net/http"

	"creatordesk/internal/model"
	"creatordesk/internal/render"
	"creatordesk/internal/store"
)

// recentEventCount is how many audit log entries the home page shows.
const recentEventCount = 20

// DashboardHandler serves the admin dashboard home page with the
// recent entries from the event log.
type DashboardHandler struct {
	events   *store.Events
	renderer *render.Renderer
	logger   *slog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(db *sql.DB, renderer *render.Renderer, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		events:   store.NewEvents(db),
		renderer: renderer,
		logger:   logger,
	}
}

// Home renders the dashboard landing page.
func (h *DashboardHandler) Home(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListRecentEvents(r.Context(), recentEventCount)
	if err != nil {
		h.logger.Error("event log read failed", "error", err)
		// The page still renders, just without the log
		events = nil
	}

	data := render.TemplateData{
		Title: "Dashboard",
		Data:  struct{ Events []model.Event }{events},
	}
	if err := h.renderer.Render(w, r, "admin/home", data); err != nil {
		h.logger.Error("template render failed", "template", "admin/home", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
