// Package config provides environment-driven configuration for the nexus server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Storage backends.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Embedding providers.
const (
	ProviderFallback = "fallback"
	ProviderOllama   = "ollama"
	ProviderGemini   = "gemini"
)

var defaultModels = map[string]string{
	ProviderOllama: "nomic-embed-text",
	ProviderGemini: "text-embedding-004",
}

// Output sizes of the default models; the fallback embedder is sized freely.
var defaultDimensions = map[string]int{
	ProviderFallback: 128,
	ProviderOllama:   768,
	ProviderGemini:   768,
}

// Config holds all application configuration values.
type Config struct {
	Port        string
	ListenHost  string
	CORSOrigins []string
	LogLevel    string

	Storage     string
	DatabaseURL Secret
	DBMaxConns  int
	SQLitePath  string

	EmbeddingProvider   string
	EmbeddingModel      string
	EmbeddingDimensions int
	OllamaURL           string
	OllamaAllowRemote   bool
	GeminiURL           string
	GeminiAPIKey        Secret
	EmbedTimeout        time.Duration
	EmbedCacheSize      int
	RedisAddr           string
	RedisTTL            time.Duration

	SnapshotDebounce time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              envOrDefault("PORT", "3030"),
		ListenHost:        envOrDefault("LISTEN_HOST", "127.0.0.1"),
		LogLevel:          envOrDefault("LOG_LEVEL", "info"),
		Storage:           strings.ToLower(envOrDefault("STORAGE", StorageSQLite)),
		DatabaseURL:       Secret(envOrDefault("DATABASE_URL", "")),
		SQLitePath:        envOrDefault("SQLITE_PATH", "nexus.db"),
		EmbeddingProvider: strings.ToLower(envOrDefault("EMBEDDING_PROVIDER", ProviderFallback)),
		OllamaURL:         envOrDefault("OLLAMA_URL", "http://localhost:11434"),
		OllamaAllowRemote: envOrDefault("OLLAMA_ALLOW_REMOTE", "false") == "true",
		GeminiURL:         envOrDefault("GEMINI_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiAPIKey:      Secret(envOrDefault("GEMINI_API_KEY", "")),
		RedisAddr:         envOrDefault("REDIS_ADDR", ""),
	}

	cfg.EmbeddingModel = envOrDefault("EMBEDDING_MODEL", defaultModels[cfg.EmbeddingProvider])

	var err error

	if cfg.DBMaxConns, err = envInt("DB_MAX_CONNS", 8); err != nil {
		return nil, err
	}

	dims, ok := defaultDimensions[cfg.EmbeddingProvider]
	if !ok {
		dims = defaultDimensions[ProviderFallback]
	}

	if cfg.EmbeddingDimensions, err = envInt("EMBEDDING_DIMENSIONS", dims); err != nil {
		return nil, err
	}

	if cfg.EmbedCacheSize, err = envInt("EMBED_CACHE_SIZE", 1024); err != nil {
		return nil, err
	}

	if cfg.EmbedTimeout, err = envDuration("EMBED_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	if cfg.RedisTTL, err = envDuration("REDIS_TTL", 24*time.Hour); err != nil {
		return nil, err
	}

	if cfg.SnapshotDebounce, err = envDuration("SNAPSHOT_DEBOUNCE", 2*time.Second); err != nil {
		return nil, err
	}

	origins := envOrDefault("CORS_ORIGINS", "http://localhost:3000")
	cfg.CORSOrigins = strings.Split(origins, ",")

	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

// RemoteEmbeddings reports whether a remote embedding provider is configured.
func (c *Config) RemoteEmbeddings() bool {
	return c.EmbeddingProvider != ProviderFallback
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}

	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 10s: %w", key, err)
	}

	return d, nil
}
