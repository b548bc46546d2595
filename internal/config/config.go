// Package config loads configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration values.
type Config struct {
	// OpenAI (embeddings, completions, transcription)
	OpenAIAPIKey   string `env:"OPENAI_API_KEY"`
	EmbedModel     string `env:"RECALL_EMBED_MODEL" envDefault:"text-embedding-3-small"`
	EmbedDimension int    `env:"RECALL_EMBED_DIMENSION" envDefault:"1536"`
	ChatModel      string `env:"RECALL_CHAT_MODEL" envDefault:"gpt-4o-mini"`
	WhisperModel   string `env:"RECALL_WHISPER_MODEL" envDefault:"whisper-1"`

	// Qdrant vector store
	QdrantHost   string `env:"QDRANT_HOST" envDefault:"localhost"`
	QdrantPort   int    `env:"QDRANT_PORT" envDefault:"6334"`
	QdrantAPIKey string `env:"QDRANT_API_KEY"`
	QdrantTLS    bool   `env:"QDRANT_TLS" envDefault:"false"`

	// SurrealDB job store
	SurrealDBURL       string `env:"SURREALDB_URL" envDefault:"ws://localhost:8000/rpc"`
	SurrealDBNamespace string `env:"SURREALDB_NAMESPACE" envDefault:"recall"`
	SurrealDBDatabase  string `env:"SURREALDB_DATABASE" envDefault:"jobs"`
	SurrealDBUser      string `env:"SURREALDB_USER" envDefault:"root"`
	SurrealDBPass      string `env:"SURREALDB_PASS" envDefault:"root"`
	SurrealDBAuthLevel string `env:"SURREALDB_AUTH_LEVEL" envDefault:"root"`

	// Pipeline tuning
	SearchTopK  int `env:"RECALL_SEARCH_TOP_K" envDefault:"10"`
	RerankTopN  int `env:"RECALL_RERANK_TOP_N" envDefault:"7"`
	WorkerCount int `env:"RECALL_WORKERS" envDefault:"2"`

	// Bound on any single external call (embedding, completion, store).
	CallTimeoutSeconds int `env:"RECALL_CALL_TIMEOUT_SECONDS" envDefault:"60"`

	// Logging
	LogFile     string `env:"RECALL_LOG_FILE" envDefault:"/tmp/recall.log"`
	LogLevelStr string `env:"RECALL_LOG_LEVEL" envDefault:"INFO"`
}

// Load reads configuration from a .env file (if present) and the
// environment. Environment variables win over the file.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// CallTimeout returns the per-external-call timeout as a duration.
func (c Config) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSeconds) * time.Second
}

// LogLevel returns the parsed slog level.
func (c Config) LogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevelStr) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
