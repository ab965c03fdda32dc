// Package main is the entry point for the practice tracker API server.
//
// The main package stays minimal. Its job is to:
// 1. Read configuration (env vars, .env, optional config/config.yaml)
// 2. Build the logger
// 3. Hand both to internal/server and block until shutdown
//
// All actual logic lives in imported packages (internal/server, internal/handler, etc.).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/sakif/practice-tracker/internal/config"
	"github.com/sakif/practice-tracker/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// config.Load merges defaults, config/config.yaml, .env and the process
	// environment (highest precedence). Nothing is logged yet because the
	// logger itself depends on LOG_LEVEL and LOG_FORMAT.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// Text in development, JSON in production (LOG_FORMAT=json).
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
		slog.Bool("postgres", cfg.DatabaseURL != ""),
		slog.Bool("redis", cfg.RedisURL != ""),
		slog.Bool("github", cfg.GitHubEnabled()),
	)
	if !cfg.GitHubEnabled() {
		logger.Info("GITHUB_CLIENT_ID not set, GitHub sign-in disabled")
	}

	// === 3. CREATE AND START THE SERVER ===
	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
