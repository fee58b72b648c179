package handler

import (
	"database/sql"
	"encoding/json"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"

	"creatordesk/internal/cache"
	"creatordesk/internal/middleware"
	"creatordesk/internal/model"
	"creatordesk/internal/panel"
	"creatordesk/internal/render"
	"creatordesk/internal/session"
	"creatordesk/internal/upstream"
	"creatordesk/web"
)

// fakeAPI is a scriptable stand-in for the submissions API.
type fakeAPI struct {
	mu sync.Mutex

	loginToken   string // Token returned on login; empty rejects the credentials
	registerFail bool
	failList     bool
	failUpload   bool
	failDelete   bool

	users []model.User

	listCalls   int
	uploadCalls int
	deleteCalls []string // Method-less request paths, in order
	lastUpload  struct {
		Platform string
		Handle   string
		Files    int
		Token    string
	}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/users/register":
		if f.registerFail {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "email already taken"})
			return
		}
		w.WriteHeader(http.StatusCreated)

	case r.Method == http.MethodPost && r.URL.Path == "/api/users/login":
		if f.loginToken == "" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid credentials"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": f.loginToken})

	case r.Method == http.MethodGet && r.URL.Path == "/api/users":
		f.listCalls++
		if f.failList {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(f.users)

	case r.Method == http.MethodPost && r.URL.Path == "/api/users/upload":
		f.uploadCalls++
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.lastUpload.Platform = r.FormValue("platform")
		f.lastUpload.Handle = r.FormValue("handle")
		f.lastUpload.Files = len(r.MultipartForm.File["images"])
		f.lastUpload.Token = r.Header.Get("Authorization")
		if f.failUpload {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)

	case r.Method == http.MethodDelete:
		_, _ = io.Copy(io.Discard, r.Body)
		f.deleteCalls = append(f.deleteCalls, r.URL.Path)
		if f.failDelete {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)

	default:
		http.NotFound(w, r)
	}
}

// testApp wires handlers, sessions and routes the way main does, over
// a fake API and an in-memory event database.
type testApp struct {
	router   http.Handler
	sessions *session.Manager
	api      *fakeAPI
	db       *sql.DB
}

func newTestApp(t *testing.T, api *fakeAPI) *testApp {
	t.Helper()

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	schema := `
		CREATE TABLE events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			level TEXT NOT NULL DEFAULT 'info',
			category TEXT NOT NULL DEFAULT 'system',
			message TEXT NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	sessions := session.NewMemory()

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		t.Fatalf("templates sub fs: %v", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessions.SessionManager,
		IsDev:          true,
	})
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	apiClient := upstream.New(srv.URL, 5*time.Second)

	mem := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = mem.Close() })
	panels := panel.New(apiClient, mem, time.Minute, logger)

	lp := middleware.NewLoginProtection(middleware.LoginProtectionConfig{
		IPRateLimit: 1000, // Not under test here
		IPBurst:     1000,
	})

	authHandler := NewAuthHandler(apiClient, renderer, sessions, panels, lp, logger)
	uploadHandler := NewUploadHandler(apiClient, renderer, sessions, logger, 32<<20)
	panelHandler := NewPanelHandler(panels, renderer, sessions, logger)
	dashboardHandler := NewDashboardHandler(db, renderer, logger)

	r := chi.NewRouter()
	r.Use(sessions.LoadAndSave)

	r.Get(RouteRoot, authHandler.Home)
	r.Get(RouteLogin, authHandler.LoginForm)
	r.Post(RouteLogin, authHandler.Login)
	r.Get(RouteRegister, authHandler.RegisterForm)
	r.Post(RouteRegister, authHandler.Register)
	r.Post(RouteLogout, authHandler.Logout)
	r.Get(RouteAdminLogin, authHandler.AdminLoginForm)
	r.Post(RouteAdminLogin, authHandler.AdminLogin)
	r.Post(RouteAdminLogout, authHandler.AdminLogout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireToken(sessions, model.RoleUser, RouteLogin))
		r.Get(RouteUserForm, uploadHandler.Form)
		r.Post(RouteUserForm, uploadHandler.Submit)
	})

	r.Route("/admin/dashboard", func(r chi.Router) {
		r.Use(middleware.RequireToken(sessions, model.RoleAdmin, RouteAdminLogin))
		r.Get("/home", dashboardHandler.Home)
		r.Get("/users", panelHandler.Users)
		r.Post("/users/{id}/delete", panelHandler.DeleteUser)
		r.Get("/social-handles", panelHandler.SocialHandles)
		r.Post("/social-handles/{id}/delete", panelHandler.DeleteSocialHandle)
		r.Get("/images", panelHandler.Images)
		r.Post("/images/{id}/delete", panelHandler.DeleteImage)
	})

	return &testApp{router: r, sessions: sessions, api: api, db: db}
}

// do runs a request through the app, carrying the given session cookie
// if present, and returns the response.
func (a *testApp) do(t *testing.T, method, target string, body io.Reader, cookie *http.Cookie, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

// form posts an urlencoded form.
func (a *testApp) form(t *testing.T, target string, values map[string]string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	data := url.Values{}
	for k, v := range values {
		data.Set(k, v)
	}
	return a.do(t, http.MethodPost, target, strings.NewReader(data.Encode()), cookie, "application/x-www-form-urlencoded")
}

// sessionCookie extracts the session cookie from a response, falling
// back to nil when none was set.
func sessionCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == "session" && c.Value != "" {
			return c
		}
	}
	return nil
}

// login signs in with the given form action and returns the session cookie.
func (a *testApp) login(t *testing.T, action string) *http.Cookie {
	t.Helper()

	rr := a.form(t, action, map[string]string{"email": "a@b.c", "password": "pw"}, nil)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("login status = %d; want 303", rr.Code)
	}
	cookie := sessionCookie(rr)
	if cookie == nil {
		t.Fatal("no session cookie after login")
	}
	return cookie
}
