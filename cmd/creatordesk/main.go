package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"creatordesk/internal/cache"
	"creatordesk/internal/config"
	"creatordesk/internal/handler"
	"creatordesk/internal/logging"
	"creatordesk/internal/middleware"
	"creatordesk/internal/model"
	"creatordesk/internal/panel"
	"creatordesk/internal/render"
	"creatordesk/internal/session"
	"creatordesk/internal/store"
	"creatordesk/internal/upstream"
	"creatordesk/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

// eventRetentionDays is how long audit events are kept before the
// daily prune job removes them.
const eventRetentionDays = 90

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "CreatorDesk - submission console\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CREATORDESK_SESSION_SECRET  Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CREATORDESK_DB_PATH         SQLite database path (default: ./data/creatordesk.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CREATORDESK_SERVER_PORT     Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CREATORDESK_ENV             Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CREATORDESK_API_BASE_URL    Submissions API base URL (default: http://localhost:5000)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  CREATORDESK_REDIS_URL       Redis URL for the panel cache (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Printf("creatordesk %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Ensure data directory exists
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	// Initialize database (sessions and event log)
	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the event log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	eventLogHandler := logging.NewEventLogHandler(textHandler, db)
	logger = slog.New(eventLogHandler)
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	// Prune old audit events daily so the events table stays bounded
	events := store.NewEvents(db)
	pruner := cron.New()
	if _, err := pruner.AddFunc("@daily", func() {
		cutoff := time.Now().AddDate(0, 0, -eventRetentionDays)
		removed, err := events.PruneEvents(context.Background(), cutoff)
		if err != nil {
			slog.Error("event log prune failed", "error", err)
			return
		}
		if removed > 0 {
			slog.Info("event log pruned", "removed", removed, "older_than_days", eventRetentionDays)
		}
	}); err != nil {
		return fmt.Errorf("scheduling event prune: %w", err)
	}
	pruner.Start()
	defer pruner.Stop()
	slog.Info("event prune scheduled", "schedule", "@daily", "retention_days", eventRetentionDays)

	ctx := context.Background()

	// Initialize session manager
	sessionManager := session.New(db, cfg.IsDevelopment())
	slog.Info("session manager initialized")

	// Initialize the panel cache backend
	cacheConfig := cache.Config{
		Type:            cache.TypeMemory,
		RedisURL:        cfg.RedisURL,
		Prefix:          cfg.CachePrefix,
		DefaultTTL:      time.Duration(cfg.CacheTTL) * time.Second,
		MaxSize:         cfg.CacheMaxSize,
		CleanupInterval: time.Minute,
	}
	if cfg.UseRedisCache() {
		cacheConfig.Type = cache.TypeRedis
	}
	panelCache, err := cache.New(ctx, cacheConfig, logger)
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer func() {
		if err := panelCache.Close(); err != nil {
			slog.Error("error closing cache", "error", err)
		}
	}()

	// Initialize the API client and panel controller
	apiClient := upstream.New(cfg.APIBaseURL, cfg.UpstreamTimeout())
	panels := panel.New(apiClient, panelCache, time.Duration(cfg.CacheTTL)*time.Second, logger)
	slog.Info("upstream client initialized", "base_url", cfg.APIBaseURL, "timeout", cfg.UpstreamTimeout())

	// Initialize template renderer
	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}

	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessionManager.SessionManager,
		IsDev:          cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}
	slog.Info("template renderer initialized")

	// Create router
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.StripTrailingSlash)

	securityConfig := middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())
	r.Use(middleware.SecurityHeaders(securityConfig))

	r.Use(sessionManager.LoadAndSave)

	csrfConfig := middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment())
	r.Use(middleware.CSRF(csrfConfig))
	slog.Info("CSRF protection initialized", "secure", !cfg.IsDevelopment())

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	slog.Info("login protection initialized",
		"ip_rate_limit", "0.5 req/s",
		"max_failed_attempts", 5,
		"lockout_duration", "15m",
	)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(apiClient, renderer, sessionManager, panels, loginProtection, logger)
	uploadHandler := handler.NewUploadHandler(apiClient, renderer, sessionManager, logger, cfg.MaxUploadBytes)
	panelHandler := handler.NewPanelHandler(panels, renderer, sessionManager, logger)
	dashboardHandler := handler.NewDashboardHandler(db, renderer, logger)

	// Static assets
	r.Handle("/static/*", http.FileServer(http.FS(web.Static)))

	// Public routes
	r.Get(handler.RouteRoot, authHandler.Home)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RedirectAuthenticated(sessionManager, model.RoleUser, handler.RouteUserForm))
		r.Get(handler.RouteLogin, authHandler.LoginForm)
		r.With(loginProtection.Middleware()).Post(handler.RouteLogin, authHandler.Login)
		r.Get(handler.RouteRegister, authHandler.RegisterForm)
		r.Post(handler.RouteRegister, authHandler.Register)
	})
	r.Post(handler.RouteLogout, authHandler.Logout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RedirectAuthenticated(sessionManager, model.RoleAdmin, handler.RouteAdminHome))
		r.Get(handler.RouteAdminLogin, authHandler.AdminLoginForm)
		r.With(loginProtection.Middleware()).Post(handler.RouteAdminLogin, authHandler.AdminLogin)
	})
	r.Post(handler.RouteAdminLogout, authHandler.AdminLogout)

	// User area: submission form
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireToken(sessionManager, model.RoleUser, handler.RouteLogin))
		r.Get(handler.RouteUserForm, uploadHandler.Form)
		r.Post(handler.RouteUserForm, uploadHandler.Submit)
	})

	// Admin area: dashboard panels
	r.Route("/admin/dashboard", func(r chi.Router) {
		r.Use(middleware.RequireToken(sessionManager, model.RoleAdmin, handler.RouteAdminLogin))
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, handler.RouteAdminHome, http.StatusSeeOther)
		})
		r.Get("/home", dashboardHandler.Home)
		r.Get("/users", panelHandler.Users)
		r.Post("/users/{id}/delete", panelHandler.DeleteUser)
		r.Get("/social-handles", panelHandler.SocialHandles)
		r.Post("/social-handles/{id}/delete", panelHandler.DeleteSocialHandle)
		r.Get("/images", panelHandler.Images)
		r.Post("/images/{id}/delete", panelHandler.DeleteImage)
	})

	// Create server with appropriate timeouts
	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second, // Longer to allow for large uploads
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
