package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"creatordesk/internal/model"
	"creatordesk/internal/panel"
	"creatordesk/internal/render"
	"creatordesk/internal/session"
)

// PanelHandler serves the three dashboard resource panels. All three
// render projections of the same remote user collection, loaded
// through the panel controller's cache.
type PanelHandler struct {
	panels   *panel.Controller
	renderer *render.Renderer
	sessions *session.Manager
	logger   *slog.Logger
}

// NewPanelHandler creates a new PanelHandler.
func NewPanelHandler(panels *panel.Controller, renderer *render.Renderer, sessions *session.Manager, logger *slog.Logger) *PanelHandler {
	return &PanelHandler{
		panels:   panels,
		renderer: renderer,
		sessions: sessions,
		logger:   logger,
	}
}

// handleRow is one line of the social handles panel.
type handleRow struct {
	UserID   string
	UserName string
	Platform string
	Handle   string
	AddedAt  time.Time
}

// imageRow is one tile of the image gallery panel.
type imageRow struct {
	UserID     string
	UserName   string
	URL        string
	UploadedAt time.Time
}

// Users renders the users panel.
func (h *PanelHandler) Users(w http.ResponseWriter, r *http.Request) {
	users := h.loadUsers(w, r, "users")
	h.renderPanel(w, r, "admin/users", "Users", struct{ Users []model.User }{users})
}

// SocialHandles renders the social handles panel, one row per
// (user, platform) pair.
func (h *PanelHandler) SocialHandles(w http.ResponseWriter, r *http.Request) {
	users := h.loadUsers(w, r, "social-handles")

	var rows []handleRow
	for _, u := range users {
		for _, sh := range u.SocialHandles {
			rows = append(rows, handleRow{
				UserID:   u.ID,
				UserName: u.Name,
				Platform: sh.Platform,
				Handle:   sh.Handle,
				AddedAt:  sh.AddedAt,
			})
		}
	}
	h.renderPanel(w, r, "admin/social_handles", "Social Handles", struct{ Rows []handleRow }{rows})
}

// Images renders the image gallery panel, one tile per uploaded image.
func (h *PanelHandler) Images(w http.ResponseWriter, r *http.Request) {
	users := h.loadUsers(w, r, "images")

	var rows []imageRow
	for _, u := range users {
		for _, img := range u.Images {
			rows = append(rows, imageRow{
				UserID:     u.ID,
				UserName:   u.Name,
				URL:        img.URL,
				UploadedAt: img.UploadedAt,
			})
		}
	}
	h.renderPanel(w, r, "admin/images", "Image Gallery", struct{ Rows []imageRow }{rows})
}

// DeleteUser removes a user and everything they submitted.
func (h *PanelHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if !h.confirmed(w, r, RouteAdminUsers) {
		return
	}

	userID := chi.URLParam(r, "id")
	token := h.sessions.Token(r.Context(), model.RoleAdmin)

	if err := h.panels.DeleteUser(r.Context(), token, userID); err != nil {
		h.logger.Warn("error deleting user", "category", model.EventCategoryPanel, "user_id", userID, "error", err)
		h.renderer.SetFlash(r, "Delete failed. The list is unchanged.", flashError)
	} else {
		h.renderer.SetFlash(r, "User deleted.", flashSuccess)
	}
	http.Redirect(w, r, RouteAdminUsers, http.StatusSeeOther)
}

// DeleteSocialHandle removes one platform's handle from a user.
func (h *PanelHandler) DeleteSocialHandle(w http.ResponseWriter, r *http.Request) {
	if !h.confirmed(w, r, RouteAdminSocialHandles) {
		return
	}

	userID := chi.URLParam(r, "id")
	platform := strings.TrimSpace(r.FormValue("platform"))
	if platform == "" {
		h.renderer.SetFlash(r, "Missing platform.", flashError)
		http.Redirect(w, r, RouteAdminSocialHandles, http.StatusSeeOther)
		return
	}

	token := h.sessions.Token(r.Context(), model.RoleAdmin)
	if err := h.panels.DeleteSocialHandle(r.Context(), token, userID, platform); err != nil {
		h.logger.Warn("error deleting social handle", "category", model.EventCategoryPanel, "user_id", userID, "platform", platform, "error", err)
		h.renderer.SetFlash(r, "Delete failed. The list is unchanged.", flashError)
	} else {
		h.renderer.SetFlash(r, "Social handle deleted.", flashSuccess)
	}
	http.Redirect(w, r, RouteAdminSocialHandles, http.StatusSeeOther)
}

// DeleteImage removes one uploaded image from a user by its path.
func (h *PanelHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	if !h.confirmed(w, r, RouteAdminImages) {
		return
	}

	userID := chi.URLParam(r, "id")
	imagePath := strings.TrimSpace(r.FormValue("image_path"))
	if imagePath == "" {
		h.renderer.SetFlash(r, "Missing image path.", flashError)
		http.Redirect(w, r, RouteAdminImages, http.StatusSeeOther)
		return
	}

	token := h.sessions.Token(r.Context(), model.RoleAdmin)
	if err := h.panels.DeleteImage(r.Context(), token, userID, imagePath); err != nil {
		h.logger.Warn("error deleting image", "category", model.EventCategoryPanel, "user_id", userID, "image", imagePath, "error", err)
		h.renderer.SetFlash(r, "Delete failed. The list is unchanged.", flashError)
	} else {
		h.renderer.SetFlash(r, "Image deleted.", flashSuccess)
	}
	http.Redirect(w, r, RouteAdminImages, http.StatusSeeOther)
}

// loadUsers fetches the collection for the current admin session. A
// fetch failure renders as an empty panel with a flash, never as a
// hard error page.
func (h *PanelHandler) loadUsers(w http.ResponseWriter, r *http.Request, panelName string) []model.User {
	token := h.sessions.Token(r.Context(), model.RoleAdmin)

	users, err := h.panels.Users(r.Context(), token)
	if err != nil {
		h.logger.Warn("panel fetch failed", "category", model.EventCategoryPanel, "panel", panelName, "error", err)
		h.renderer.SetFlash(r, "Could not load data from the server.", flashError)
		return nil
	}
	return users
}

// confirmed enforces the confirm field on delete forms. Returns false
// after redirecting when the request lacks it.
func (h *PanelHandler) confirmed(w http.ResponseWriter, r *http.Request, backURL string) bool {
	if r.FormValue("confirm") != confirmValue {
		h.renderer.SetFlash(r, "Tick the confirm box to delete.", flashInfo)
		http.Redirect(w, r, backURL, http.StatusSeeOther)
		return false
	}
	return true
}

func (h *PanelHandler) renderPanel(w http.ResponseWriter, r *http.Request, name, title string, data any) {
	if err := h.renderer.Render(w, r, name, render.TemplateData{Title: title, Data: data}); err != nil {
		h.logger.Error("template render failed", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
