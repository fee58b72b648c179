// Package config loads the console configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"CREATORDESK_DB_PATH" envDefault:"./data/creatordesk.db"`
	SessionSecret string `env:"CREATORDESK_SESSION_SECRET,required"`
	ServerHost    string `env:"CREATORDESK_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"CREATORDESK_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"CREATORDESK_ENV" envDefault:"development"`
	LogLevel      string `env:"CREATORDESK_LOG_LEVEL" envDefault:"info"`

	// Upstream submissions API
	APIBaseURL string `env:"CREATORDESK_API_BASE_URL" envDefault:"http://localhost:5000"`
	APITimeout int    `env:"CREATORDESK_API_TIMEOUT" envDefault:"30"` // Seconds per upstream request

	// Panel cache configuration
	RedisURL     string `env:"CREATORDESK_REDIS_URL"`                          // Optional Redis URL for shared panel caches
	CachePrefix  string `env:"CREATORDESK_CACHE_PREFIX" envDefault:"cdesk:"`   // Redis key prefix
	CacheTTL     int    `env:"CREATORDESK_CACHE_TTL" envDefault:"300"`         // Panel cache TTL in seconds
	CacheMaxSize int    `env:"CREATORDESK_CACHE_MAX_SIZE" envDefault:"10000"`  // Max memory cache entries

	// Upload pass-through
	MaxUploadBytes int64 `env:"CREATORDESK_MAX_UPLOAD_BYTES" envDefault:"52428800"` // 50MB multipart limit
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// UpstreamTimeout returns the per-request upstream timeout as a duration.
func (c Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.APITimeout) * time.Second
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Validate session secret length
	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("CREATORDESK_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	// Reject known weak/default secrets
	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("CREATORDESK_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	// Warn about low-entropy secrets
	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("CREATORDESK_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	// The upstream base URL must parse and carry a scheme; everything the
	// console does goes through it.
	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("CREATORDESK_API_BASE_URL is not a valid absolute URL: %q", cfg.APIBaseURL)
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
