package config_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/studynexus/nexus/internal/config"
)

func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORAGE", "sqlite")
	t.Setenv("SQLITE_PATH", t.TempDir()+"/nexus.db")
	t.Setenv("EMBEDDING_PROVIDER", "fallback")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000")
}

func TestLoad_ValidConfig(t *testing.T) {
	setValidEnv(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Port != "3030" {
		t.Errorf("expected default port 3030, got %s", cfg.Port)
	}

	if cfg.Addr() != "127.0.0.1:3030" {
		t.Errorf("expected addr 127.0.0.1:3030, got %s", cfg.Addr())
	}

	if cfg.RemoteEmbeddings() {
		t.Error("fallback provider should not count as remote")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setValidEnv(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.EmbeddingDimensions != 128 {
		t.Errorf("unexpected EmbeddingDimensions default: %d", cfg.EmbeddingDimensions)
	}

	if cfg.EmbedTimeout != 10*time.Second {
		t.Errorf("unexpected EmbedTimeout default: %v", cfg.EmbedTimeout)
	}

	if cfg.EmbedCacheSize != 1024 {
		t.Errorf("unexpected EmbedCacheSize default: %d", cfg.EmbedCacheSize)
	}

	if cfg.SnapshotDebounce != 2*time.Second {
		t.Errorf("unexpected SnapshotDebounce default: %v", cfg.SnapshotDebounce)
	}

	if cfg.RedisAddr != "" {
		t.Errorf("redis cache should be off by default, got %q", cfg.RedisAddr)
	}

	if cfg.EmbeddingModel != "" {
		t.Errorf("fallback provider needs no model, got %q", cfg.EmbeddingModel)
	}
}

func TestLoad_ProviderModelDefaults(t *testing.T) {
	tests := []struct {
		provider string
		env      map[string]string
		want     string
	}{
		{"ollama", nil, "nomic-embed-text"},
		{"gemini", map[string]string{"GEMINI_API_KEY": "k"}, "text-embedding-004"},
		{"ollama", map[string]string{"EMBEDDING_MODEL": "mxbai-embed-large"}, "mxbai-embed-large"},
	}

	for _, tc := range tests {
		t.Run(tc.provider+"/"+tc.want, func(t *testing.T) {
			setValidEnv(t)
			t.Setenv("EMBEDDING_PROVIDER", tc.provider)

			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := config.Load()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if cfg.EmbeddingModel != tc.want {
				t.Errorf("EmbeddingModel = %q, want %q", cfg.EmbeddingModel, tc.want)
			}

			if !cfg.RemoteEmbeddings() {
				t.Error("expected remote embeddings")
			}
		})
	}
}

func TestLoad_ProviderDimensionDefaults(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want int
	}{
		{"fallback", map[string]string{"EMBEDDING_PROVIDER": "fallback"}, 128},
		{"ollama", map[string]string{"EMBEDDING_PROVIDER": "ollama"}, 768},
		{"gemini", map[string]string{"EMBEDDING_PROVIDER": "gemini", "GEMINI_API_KEY": "k"}, 768},
		{"explicit override", map[string]string{"EMBEDDING_PROVIDER": "ollama", "EMBEDDING_DIMENSIONS": "1024"}, 1024},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setValidEnv(t)
			t.Setenv("EMBEDDING_DIMENSIONS", "")

			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := config.Load()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if cfg.EmbeddingDimensions != tc.want {
				t.Errorf("EmbeddingDimensions = %d, want %d", cfg.EmbeddingDimensions, tc.want)
			}
		})
	}
}

func TestLoad_ErrorCases(t *testing.T) {
	tests := []struct {
		name         string
		envOverrides map[string]string
		wantErr      string
	}{
		{
			name:         "unknown storage",
			envOverrides: map[string]string{"STORAGE": "mongo"},
			wantErr:      "STORAGE must be memory, sqlite or postgres",
		},
		{
			name:         "postgres without DATABASE_URL",
			envOverrides: map[string]string{"STORAGE": "postgres", "DATABASE_URL": ""},
			wantErr:      "DATABASE_URL is required",
		},
		{
			name:         "postgres wrong scheme",
			envOverrides: map[string]string{"STORAGE": "postgres", "DATABASE_URL": "mysql://localhost/db"},
			wantErr:      "DATABASE_URL scheme must be postgres",
		},
		{
			name: "postgres remote without tls",
			envOverrides: map[string]string{
				"STORAGE":      "postgres",
				"DATABASE_URL": "postgres://u:p@db.example.com/nexus?sslmode=disable",
			},
			wantErr: "sslmode=disable is not allowed",
		},
		{
			name: "db max conns too low",
			envOverrides: map[string]string{
				"STORAGE":      "postgres",
				"DATABASE_URL": "postgres://u:p@localhost/nexus",
				"DB_MAX_CONNS": "1",
			},
			wantErr: "DB_MAX_CONNS must be between 2 and 64",
		},
		{
			name:         "db max conns non-numeric",
			envOverrides: map[string]string{"DB_MAX_CONNS": "abc"},
			wantErr:      "DB_MAX_CONNS must be an integer",
		},
		{
			name:         "invalid PORT zero",
			envOverrides: map[string]string{"PORT": "0"},
			wantErr:      "PORT must be between 1 and 65535",
		},
		{
			name:         "invalid PORT non-numeric",
			envOverrides: map[string]string{"PORT": "abc"},
			wantErr:      "PORT must be a valid integer",
		},
		{
			name:         "invalid LISTEN_HOST",
			envOverrides: map[string]string{"LISTEN_HOST": "192.168.1.1"},
			wantErr:      "LISTEN_HOST must be a loopback address or 0.0.0.0/:: for containers",
		},
		{
			name:         "CORS wildcard",
			envOverrides: map[string]string{"CORS_ORIGINS": "*"},
			wantErr:      "CORS_ORIGINS must not contain wildcard",
		},
		{
			name:         "CORS invalid origin",
			envOverrides: map[string]string{"CORS_ORIGINS": "not-a-url"},
			wantErr:      "CORS_ORIGINS contains invalid origin",
		},
		{
			name:         "unknown provider",
			envOverrides: map[string]string{"EMBEDDING_PROVIDER": "openai"},
			wantErr:      "EMBEDDING_PROVIDER must be fallback, ollama or gemini",
		},
		{
			name:         "gemini without key",
			envOverrides: map[string]string{"EMBEDDING_PROVIDER": "gemini"},
			wantErr:      "GEMINI_API_KEY is required",
		},
		{
			name: "gemini over plain http",
			envOverrides: map[string]string{
				"EMBEDDING_PROVIDER": "gemini",
				"GEMINI_API_KEY":     "k",
				"GEMINI_URL":         "http://example.com/v1beta",
			},
			wantErr: "GEMINI_URL must be an https URL",
		},
		{
			name:         "embedding dimensions too small",
			envOverrides: map[string]string{"EMBEDDING_DIMENSIONS": "4"},
			wantErr:      "EMBEDDING_DIMENSIONS must be between 8 and 4096",
		},
		{
			name:         "embedding dimensions non-numeric",
			envOverrides: map[string]string{"EMBEDDING_DIMENSIONS": "abc"},
			wantErr:      "EMBEDDING_DIMENSIONS must be an integer",
		},
		{
			name:         "cache size zero",
			envOverrides: map[string]string{"EMBED_CACHE_SIZE": "0"},
			wantErr:      "EMBED_CACHE_SIZE must be positive",
		},
		{
			name:         "bad embed timeout",
			envOverrides: map[string]string{"EMBED_TIMEOUT": "soon"},
			wantErr:      "EMBED_TIMEOUT must be a duration",
		},
		{
			name:         "negative debounce",
			envOverrides: map[string]string{"SNAPSHOT_DEBOUNCE": "-1s"},
			wantErr:      "SNAPSHOT_DEBOUNCE must be positive",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setValidEnv(t)

			for k, v := range tc.envOverrides {
				t.Setenv(k, v)
			}

			_, err := config.Load()
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %q", tc.wantErr, err.Error())
			}
		})
	}
}

func TestLoad_OllamaRemote(t *testing.T) {
	t.Run("remote URL rejected without flag", func(t *testing.T) {
		setValidEnv(t)
		t.Setenv("EMBEDDING_PROVIDER", "ollama")
		t.Setenv("OLLAMA_URL", "http://ollama.internal:11434")

		_, err := config.Load()
		if err == nil {
			t.Fatal("expected error, got nil")
		}

		if !strings.Contains(err.Error(), "OLLAMA_ALLOW_REMOTE") {
			t.Errorf("expected error to mention OLLAMA_ALLOW_REMOTE, got %q", err.Error())
		}
	})

	t.Run("remote URL allowed with flag", func(t *testing.T) {
		setValidEnv(t)
		t.Setenv("EMBEDDING_PROVIDER", "ollama")
		t.Setenv("OLLAMA_URL", "http://ollama.internal:11434")
		t.Setenv("OLLAMA_ALLOW_REMOTE", "true")

		cfg, err := config.Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if !cfg.OllamaAllowRemote {
			t.Error("expected OllamaAllowRemote=true")
		}
	})

	t.Run("remote URL ignored for fallback provider", func(t *testing.T) {
		setValidEnv(t)
		t.Setenv("OLLAMA_URL", "http://ollama.internal:11434")

		if _, err := config.Load(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

func TestSecret_Redacted(t *testing.T) {
	s := config.Secret("hunter2")

	for _, got := range []string{s.String(), fmt.Sprintf("%v", s), fmt.Sprintf("%#v", s)} {
		if strings.Contains(got, "hunter2") {
			t.Errorf("secret leaked: %q", got)
		}
	}

	if s.Value() != "hunter2" {
		t.Errorf("Value() = %q", s.Value())
	}
}
