// Package config provides environment-based configuration for Vectra.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/vectralabs/vectra/internal/encryption"
)

// Config holds all configuration for the Vectra service.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Embeddings
	Backend       string // "hash", "ollama", "openai" or "sidecar"
	Model         string
	ModelCacheDir string // exported to the model runner, logged at startup
	SidecarURL    string
	OpenAIAPIKey  string
	WarmupTimeout time.Duration

	// Sealed credentials
	SecretsKeyPath string
	SecretsKey     string // loaded from file or env
	OpenAIKeyFile  string // Fernet-sealed API key on disk

	// Storage (optional)
	DatabaseURL string

	// Embedding cache (optional)
	RedisURL string
	CacheTTL time.Duration

	// NATS (optional)
	NatsURL string

	// Request limits
	MaxBatchSize    int
	MaxTextBytes    int
	EmbedRateLimit  int // requests per minute
	SearchRateLimit int // requests per minute
	RateWindow      time.Duration
	APIKey          string

	// Reindex worker
	ReindexEnabled  bool
	ReindexInterval time.Duration
	ReindexBatch    int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	c := &Config{
		Port:            envInt("VECTRA_PORT", envInt("PORT", 10000)),
		LogLevel:        envStr("VECTRA_LOG_LEVEL", "info"),
		Backend:         envStr("VECTRA_BACKEND", "hash"),
		Model:           envStr("VECTRA_MODEL", ""),
		ModelCacheDir:   envStr("MODEL_CACHE_DIR", ""),
		SidecarURL:      envStr("VECTRA_SIDECAR_URL", "http://localhost:8501"),
		OpenAIAPIKey:    envStr("OPENAI_API_KEY", ""),
		WarmupTimeout:   envDuration("VECTRA_WARMUP_TIMEOUT", 60*time.Second),
		SecretsKeyPath:  envStr("VECTRA_SECRETS_KEY_PATH", "/run/secrets/vectra_secrets_key"),
		SecretsKey:      envStr("VECTRA_SECRETS_KEY", ""),
		OpenAIKeyFile:   envStr("VECTRA_OPENAI_KEY_FILE", ""),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		RedisURL:        envStr("VECTRA_REDIS_URL", ""),
		CacheTTL:        envDuration("VECTRA_CACHE_TTL", 24*time.Hour),
		NatsURL:         envStr("NATS_URL", ""),
		MaxBatchSize:    envInt("VECTRA_MAX_BATCH", 256),
		MaxTextBytes:    envInt("VECTRA_MAX_TEXT_BYTES", 32768),
		EmbedRateLimit:  envInt("VECTRA_EMBED_RATE_LIMIT", 300),
		SearchRateLimit: envInt("VECTRA_SEARCH_RATE_LIMIT", 100),
		RateWindow:      time.Minute,
		APIKey:          envStr("VECTRA_API_KEY", ""),
		ReindexEnabled:  envStr("VECTRA_REINDEX_ENABLED", "true") == "true",
		ReindexInterval: envDuration("VECTRA_REINDEX_INTERVAL", 30*time.Second),
		ReindexBatch:    envInt("VECTRA_REINDEX_BATCH", 50),
	}

	switch c.Backend {
	case "hash", "ollama", "openai", "sidecar":
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", c.Backend)
	}

	if c.Model == "" {
		if c.Backend == "openai" {
			c.Model = "text-embedding-3-small"
		} else {
			c.Model = "all-minilm"
		}
	}

	// Load secrets key from file if not set via env
	if c.SecretsKey == "" {
		data, err := os.ReadFile(c.SecretsKeyPath)
		if err == nil {
			c.SecretsKey = string(data)
		}
	}

	// Unseal the OpenAI key file when provided
	if c.OpenAIAPIKey == "" && c.OpenAIKeyFile != "" {
		if c.SecretsKey == "" {
			return nil, fmt.Errorf("VECTRA_OPENAI_KEY_FILE set but no secrets key available")
		}
		enc, err := encryption.NewEncryptor(c.SecretsKey)
		if err != nil {
			return nil, fmt.Errorf("initializing encryptor: %w", err)
		}
		key, err := enc.UnsealFile(c.OpenAIKeyFile)
		if err != nil {
			return nil, fmt.Errorf("unsealing OpenAI key: %w", err)
		}
		c.OpenAIAPIKey = key
	}

	if c.Backend == "openai" && c.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai backend")
	}

	return c, nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
