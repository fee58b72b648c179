// Package handler contains the HTTP handlers for the console: the
// sign-in and sign-up flows, the upload form and the admin dashboard
// panels.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"creatordesk/internal/middleware"
	"creatordesk/internal/model"
	"creatordesk/internal/panel"
	"creatordesk/internal/render"
	"creatordesk/internal/session"
	"creatordesk/internal/upstream"
)

// AuthHandler handles the user and admin authentication routes. The
// console holds no credentials itself; it exchanges them with the API
// for a bearer token and keeps that token in the server-side session.
type AuthHandler struct {
	api             *upstream.Client
	renderer        *render.Renderer
	sessions        *session.Manager
	panels          *panel.Controller
	loginProtection *middleware.LoginProtection
	logger          *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(api *upstream.Client, renderer *render.Renderer, sessions *session.Manager, panels *panel.Controller, lp *middleware.LoginProtection, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		api:             api,
		renderer:        renderer,
		sessions:        sessions,
		panels:          panels,
		loginProtection: lp,
		logger:          logger,
	}
}

// Home routes the bare domain to wherever the visitor belongs.
func (h *AuthHandler) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch {
	case h.sessions.Token(ctx, model.RoleAdmin) != "":
		http.Redirect(w, r, RouteAdminHome, http.StatusSeeOther)
	case h.sessions.Token(ctx, model.RoleUser) != "":
		http.Redirect(w, r, RouteUserForm, http.StatusSeeOther)
	default:
		http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
	}
}

// LoginForm renders the user sign-in page.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "auth/login", "Sign In")
}

// Login signs a user in and stores their token in the session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, model.RoleUser, RouteLogin, RouteUserForm)
}

// RegisterForm renders the sign-up page.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "auth/register", "Sign Up")
}

// Register creates an account via the API. On success the visitor is
// sent back to the sign-in form rather than signed in directly.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	creds := upstream.Credentials{
		Name:     strings.TrimSpace(r.FormValue("name")),
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
	}
	if creds.Name == "" || creds.Email == "" || creds.Password == "" {
		h.renderer.SetFlash(r, "All fields are required.", flashError)
		http.Redirect(w, r, RouteRegister, http.StatusSeeOther)
		return
	}

	if err := h.api.Register(r.Context(), creds); err != nil {
		h.logger.Warn("registration failed", "category", model.EventCategoryAuth, "email", creds.Email, "error", err)
		h.renderer.SetFlash(r, registrationFailureMessage(err), flashError)
		http.Redirect(w, r, RouteRegister, http.StatusSeeOther)
		return
	}

	h.renderer.SetFlash(r, "Registration successful. Please sign in.", flashSuccess)
	http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
}

// Logout clears the user token. The admin token in the same browser
// session, if any, stays untouched.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearToken(r.Context(), model.RoleUser)
	h.renderer.SetFlash(r, "You have been signed out.", flashInfo)
	http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
}

// AdminLoginForm renders the admin sign-in page.
func (h *AuthHandler) AdminLoginForm(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "auth/admin_login", "Admin Sign In")
}

// AdminLogin signs an admin in and stores their token in the session.
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, model.RoleAdmin, RouteAdminLogin, RouteAdminHome)
}

// AdminLogout clears the admin token and drops the session's cached
// panel data so a later sign-in starts from a fresh fetch.
func (h *AuthHandler) AdminLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if token := h.sessions.Token(ctx, model.RoleAdmin); token != "" {
		h.panels.Invalidate(ctx, token)
	}
	h.sessions.ClearToken(ctx, model.RoleAdmin)
	h.renderer.SetFlash(r, "You have been signed out.", flashInfo)
	http.Redirect(w, r, RouteAdminLogin, http.StatusSeeOther)
}

// login is the shared sign-in flow for both roles.
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, role, formURL, successURL string) {
	creds := upstream.Credentials{
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
	}
	if creds.Email == "" || creds.Password == "" {
		h.renderer.SetFlash(r, "Email and password are required.", flashError)
		http.Redirect(w, r, formURL, http.StatusSeeOther)
		return
	}

	if locked, remaining := h.loginProtection.IsAccountLocked(creds.Email); locked {
		h.logger.Warn("login attempt on locked account", "category", model.EventCategoryAuth, "email", creds.Email)
		h.renderer.SetFlash(r, "Account temporarily locked. Try again in "+remaining.Round(time.Second).String()+".", flashError)
		http.Redirect(w, r, formURL, http.StatusSeeOther)
		return
	}

	token, err := h.api.Login(r.Context(), creds)
	if err != nil {
		if errors.Is(err, upstream.ErrUnauthorized) {
			h.loginProtection.RecordFailedAttempt(creds.Email)
			h.logger.Warn("login rejected", "category", model.EventCategoryAuth, "role", role, "email", creds.Email)
			h.renderer.SetFlash(r, "Invalid email or password.", flashError)
		} else {
			h.logger.Error("login request failed", "category", model.EventCategoryAuth, "role", role, "error", err)
			h.renderer.SetFlash(r, "Could not reach the server. Try again later.", flashError)
		}
		http.Redirect(w, r, formURL, http.StatusSeeOther)
		return
	}

	h.loginProtection.RecordSuccessfulLogin(creds.Email)

	// Rotate the session ID on privilege change
	if err := h.sessions.RenewToken(r.Context()); err != nil {
		h.logger.Error("session renewal failed", "category", model.EventCategoryAuth, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.sessions.SetToken(r.Context(), role, token)
	http.Redirect(w, r, successURL, http.StatusSeeOther)
}

func (h *AuthHandler) renderPage(w http.ResponseWriter, r *http.Request, name, title string) {
	if err := h.renderer.Render(w, r, name, render.TemplateData{Title: title}); err != nil {
		h.logger.Error("template render failed", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// registrationFailureMessage maps an API error to something a visitor
// can act on without leaking internals.
func registrationFailureMessage(err error) string {
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" && apiErr.StatusCode < 500 {
		return "Registration failed: " + apiErr.Message
	}
	return "Registration failed. Try again later."
}
