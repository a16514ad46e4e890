package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

func (c *Config) validate() error {
	validators := []func() error{
		c.validateStorage,
		c.validateNetwork,
		c.validateEmbedding,
		c.validateCORS,
		c.validateTimings,
	}

	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage {
	case StorageMemory:
		return nil
	case StorageSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORAGE is sqlite")
		}

		return nil
	case StoragePostgres:
		return c.validateDatabase()
	default:
		return fmt.Errorf("STORAGE must be memory, sqlite or postgres, got %q", c.Storage)
	}
}

func (c *Config) validateDatabase() error {
	if c.DatabaseURL.Value() == "" {
		return fmt.Errorf("DATABASE_URL is required when STORAGE is postgres")
	}

	dbURL, err := url.Parse(c.DatabaseURL.Value())
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}

	if dbURL.Scheme != "postgres" && dbURL.Scheme != "postgresql" {
		return fmt.Errorf("DATABASE_URL scheme must be postgres:// or postgresql://")
	}

	if dbURL.Hostname() == "" {
		return fmt.Errorf("DATABASE_URL must include a host")
	}

	if !isLoopback(dbURL.Hostname()) && dbURL.Query().Get("sslmode") == "disable" {
		return fmt.Errorf("DATABASE_URL sslmode=disable is not allowed for non-local host %q", dbURL.Hostname())
	}

	if c.DBMaxConns < 2 || c.DBMaxConns > 64 {
		return fmt.Errorf("DB_MAX_CONNS must be between 2 and 64")
	}

	return nil
}

func (c *Config) validateNetwork() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid integer: %w", err)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	// Loopback for local use; 0.0.0.0/:: for containers where the network
	// boundary is enforced outside the process.
	validHosts := map[string]bool{
		"127.0.0.1": true,
		"::1":       true,
		"localhost": true,
		"0.0.0.0":   true,
		"::":        true,
	}
	if !validHosts[c.ListenHost] {
		return fmt.Errorf("LISTEN_HOST must be a loopback address or 0.0.0.0/:: for containers (got %q)", c.ListenHost)
	}

	return nil
}

func (c *Config) validateEmbedding() error {
	if c.EmbeddingDimensions < 8 || c.EmbeddingDimensions > 4096 {
		return fmt.Errorf("EMBEDDING_DIMENSIONS must be between 8 and 4096, got %d", c.EmbeddingDimensions)
	}

	if c.EmbedCacheSize < 1 {
		return fmt.Errorf("EMBED_CACHE_SIZE must be positive")
	}

	switch c.EmbeddingProvider {
	case ProviderFallback:
		return nil
	case ProviderOllama:
		return c.validateOllama()
	case ProviderGemini:
		if c.GeminiAPIKey.Value() == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when EMBEDDING_PROVIDER is gemini")
		}

		u, err := url.ParseRequestURI(c.GeminiURL)
		if err != nil || u.Scheme != "https" && !isLoopback(u.Hostname()) {
			return fmt.Errorf("GEMINI_URL must be an https URL")
		}

		return nil
	default:
		return fmt.Errorf("EMBEDDING_PROVIDER must be fallback, ollama or gemini, got %q", c.EmbeddingProvider)
	}
}

func (c *Config) validateOllama() error {
	ollamaURL, err := url.ParseRequestURI(c.OllamaURL)
	if err != nil {
		return fmt.Errorf("OLLAMA_URL is not a valid URL: %w", err)
	}

	if !isLoopback(ollamaURL.Hostname()) && !c.OllamaAllowRemote {
		return fmt.Errorf("OLLAMA_URL must point to localhost (set OLLAMA_ALLOW_REMOTE=true for distributed deployments)")
	}

	return nil
}

func (c *Config) validateCORS() error {
	for _, origin := range c.CORSOrigins {
		if origin == "*" {
			return fmt.Errorf("CORS_ORIGINS must not contain wildcard '*'")
		}

		if strings.ContainsAny(origin, "*?[]") {
			return fmt.Errorf("CORS_ORIGINS must not contain glob characters (*?[]), got %q", origin)
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("CORS_ORIGINS contains invalid origin %q (must have scheme and host)", origin)
		}
	}

	return nil
}

func (c *Config) validateTimings() error {
	if c.EmbedTimeout <= 0 {
		return fmt.Errorf("EMBED_TIMEOUT must be positive")
	}

	if c.SnapshotDebounce <= 0 {
		return fmt.Errorf("SNAPSHOT_DEBOUNCE must be positive")
	}

	if c.RedisAddr != "" && c.RedisTTL <= 0 {
		return fmt.Errorf("REDIS_TTL must be positive when REDIS_ADDR is set")
	}

	return nil
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
