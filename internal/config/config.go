// Package config loads server settings from an optional .env file, an optional
// config/config.yaml and environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrInvalid = errors.New("invalid configuration")

// Config holds application configuration.
type Config struct {
	Port        int           `mapstructure:"port"`
	Env         string        `mapstructure:"app_env"`
	DBPath      string        `mapstructure:"db_path"`      // SQLite file, used when DatabaseURL is empty
	DatabaseURL string        `mapstructure:"database_url"` // PostgreSQL connection string
	DBMaxConns  int           `mapstructure:"db_max_conns"`
	JWTSecret   string        `mapstructure:"jwt_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
	CORSOrigins []string      `mapstructure:"cors_origins"`
	StaticDir   string        `mapstructure:"static_dir"` // built frontend; empty disables static serving

	RedisURL        string        `mapstructure:"redis_url"` // empty disables the catalog cache
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	CatalogSeedPath string        `mapstructure:"catalog_seed_path"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	GitHubClientID     string `mapstructure:"github_client_id"`
	GitHubClientSecret string `mapstructure:"github_client_secret"`
	GitHubCallbackURL  string `mapstructure:"github_callback_url"`
}

var keys = []string{
	"port", "app_env", "db_path", "database_url", "db_max_conns",
	"jwt_secret", "token_ttl", "cors_origins", "static_dir",
	"redis_url", "cache_ttl", "catalog_seed_path",
	"log_level", "log_format",
	"github_client_id", "github_client_secret", "github_callback_url",
}

// Load reads configuration. A missing .env or config file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")

	v.SetDefault("port", 5001)
	v.SetDefault("app_env", "development")
	v.SetDefault("db_path", "data/tracker.db")
	v.SetDefault("db_max_conns", 10)
	v.SetDefault("token_ttl", "168h")
	v.SetDefault("cors_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("cache_ttl", "10m")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	for _, key := range keys {
		_ = v.BindEnv(key, strings.ToUpper(key))
	}

	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	cfg.CORSOrigins = splitOrigins(cfg.CORSOrigins)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/api/auth/github/callback", cfg.Port)
	}

	return &cfg, nil
}

// splitOrigins flattens comma-separated entries and drops blanks.
func splitOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, entry := range in {
		for _, o := range strings.Split(entry, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("%w: PORT %d out of range", ErrInvalid, c.Port)
	case len(c.JWTSecret) < 16:
		return fmt.Errorf("%w: JWT_SECRET must be at least 16 characters", ErrInvalid)
	case c.TokenTTL <= 0:
		return fmt.Errorf("%w: TOKEN_TTL must be positive", ErrInvalid)
	case c.DatabaseURL == "" && c.DBPath == "":
		return fmt.Errorf("%w: one of DATABASE_URL or DB_PATH is required", ErrInvalid)
	case c.DBMaxConns <= 0:
		return fmt.Errorf("%w: DB_MAX_CONNS must be positive", ErrInvalid)
	case c.CacheTTL < 0:
		return fmt.Errorf("%w: CACHE_TTL must not be negative", ErrInvalid)
	}

	if _, err := c.slogLevel(); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("%w: LOG_FORMAT must be text or json, got %q", ErrInvalid, c.LogFormat)
	}
	if (c.GitHubClientID == "") != (c.GitHubClientSecret == "") {
		return fmt.Errorf("%w: GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET must be set together", ErrInvalid)
	}
	return nil
}

// GitHubEnabled reports whether GitHub sign-in is configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

func (c *Config) slogLevel() (slog.Level, error) {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%w: unknown LOG_LEVEL %q", ErrInvalid, c.LogLevel)
}

// NewLogger builds the application logger writing to w.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := c.slogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
