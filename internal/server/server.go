// Package server wires configuration, storage, services and handlers into an
// HTTP server, and runs it until SIGINT or SIGTERM.
//
// DEPENDENCY FLOW:
//
//	config.Config → store (sqlite or postgres) + optional Redis cache
//	store → ProgressService, CatalogService, AuthService → handlers → routes
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/practice-tracker/internal/auth"
	"github.com/sakif/practice-tracker/internal/cache"
	"github.com/sakif/practice-tracker/internal/catalog"
	"github.com/sakif/practice-tracker/internal/config"
	"github.com/sakif/practice-tracker/internal/handler"
	"github.com/sakif/practice-tracker/internal/middleware"
	"github.com/sakif/practice-tracker/internal/model"
	"github.com/sakif/practice-tracker/internal/repository"
	pgRepo "github.com/sakif/practice-tracker/internal/repository/postgres"
	sqliteRepo "github.com/sakif/practice-tracker/internal/repository/sqlite"
	"github.com/sakif/practice-tracker/internal/service"
)

// Server represents the HTTP server and all its dependencies. It owns the
// store and cache connections and closes them on shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	store  repository.Store
	cache  *cache.Cache // nil when REDIS_URL is unset or unreachable
}

// New builds a Server from cfg. The configuration must already be validated.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	// === TOKENS ===
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	// === SEED CATALOG ===
	seed, err := catalog.Load(cfg.CatalogSeedPath)
	if err != nil {
		return nil, fmt.Errorf("loading seed catalog: %w", err)
	}

	// === STORE ===
	store, backend, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	logger.Info("database ready", slog.String("backend", backend))

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}

	// === CACHE (optional) ===
	// The catalog cache is a convenience; the server runs without it.
	if cfg.RedisURL != "" {
		c, err := cache.New(ctx, cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			logger.Warn("catalog cache unavailable, continuing without it",
				slog.String("error", err.Error()),
			)
		} else {
			s.cache = c
		}
	}

	s.setupRoutes(tokens, seed)
	return s, nil
}

// openStore picks PostgreSQL when DATABASE_URL is set, SQLite otherwise.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, string, error) {
	if cfg.DatabaseURL != "" {
		db, err := pgRepo.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return nil, "", err
		}
		return db, "postgres", nil
	}

	if cfg.DBPath != ":memory:" {
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, "", fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, "", err
	}
	return db, "sqlite", nil
}

// setupRoutes configures middleware and handlers.
//
// ROUTES (all JSON unless noted):
//
//	POST /api/auth/login             → {token}; unknown emails are registered
//	GET  /api/auth/me                → caller's account             [auth]
//	GET  /api/auth/github/login      → redirect to GitHub           [if configured]
//	GET  /api/auth/github/callback   → {token}                      [if configured]
//	GET  /api/topics                 → catalog, seeded on first call
//	GET  /api/progress               → enriched progress list       [auth]
//	POST /api/progress               → upserted record              [auth]
//	GET  /api/progress/summary       → {easy, medium, hard}         [auth]
//	GET  /api/                       → "Backend API is running" (text)
//	GET  /api/healthz                → dependency check
//	GET  /*                          → static frontend              [if STATIC_DIR]
func (s *Server) setupRoutes(tokens *auth.TokenService, seed []model.Topic) {
	// === Global Middleware ===
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", auth.HeaderAuthToken},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// === Services ===
	var topicCache service.TopicCache
	if s.cache != nil {
		topicCache = s.cache
	}
	catalogService := service.NewCatalogService(s.store, seed, topicCache, s.logger)
	progressService := service.NewProgressService(s.store, s.store, s.logger)
	authService := service.NewAuthService(s.store, tokens, auth.NewPasswordService(), s.logger)

	// === Handlers ===
	var github handler.GitHubExchanger
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	}
	authHandler := handler.NewAuthHandler(authService, github, s.logger)
	topicHandler := handler.NewTopicHandler(catalogService, s.logger)
	progressHandler := handler.NewProgressHandler(progressService, s.logger)

	checks := map[string]handler.CheckFunc{"store": s.store.Ping}
	if s.cache != nil {
		checks["cache"] = s.cache.HealthCheck
	}
	healthHandler := handler.NewHealthHandler(checks, s.logger)

	requireAuth := auth.RequireAuth(tokens)

	s.router.Route("/api", func(r chi.Router) {
		r.NotFound(handler.NotFound)

		r.Get("/", healthHandler.HandleRoot)
		r.Get("/healthz", healthHandler.HandleHealthz)
		r.Get("/topics", topicHandler.HandleList)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.HandleLogin)
			r.With(requireAuth).Get("/me", authHandler.HandleMe)
			if github != nil {
				r.Get("/github/login", authHandler.HandleGitHubLogin)
				r.Get("/github/callback", authHandler.HandleGitHubCallback)
			}
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/progress", progressHandler.HandleList)
			r.Post("/progress", progressHandler.HandleUpsert)
			r.Get("/progress/summary", progressHandler.HandleSummary)
		})
	})

	// === Static Frontend ===
	if s.config.StaticDir != "" {
		s.router.Handle("/*", handler.SPAHandler(s.config.StaticDir))
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store and cache connections.
func (s *Server) Close() error {
	var errs []error
	if s.cache != nil {
		errs = append(errs, s.cache.Close())
	}
	errs = append(errs, s.store.Close())
	return errors.Join(errs...)
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for up
// to 30 seconds and closes the store.
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing resources", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("env", s.config.Env),
			slog.String("url", fmt.Sprintf("http://localhost:%d/api", s.config.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
