// Package config loads process configuration from environment variables.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider names for model and embedding backends.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderBedrock   = "bedrock"
)

// Retrieval backends.
const (
	RAGBackendSurrealDB = "surrealdb"
	RAGBackendMemory    = "memory"
)

// Config holds all configuration values.
// The AI*/Jira* fields are environment defaults; the settings layer may override them.
type Config struct {
	// Model backend
	AIBaseURL   string
	AIAPIKey    string
	AIModelName string
	LLMProvider string

	// Ticket system
	JiraBaseURL    string
	JiraUserEmail  string
	JiraAPIToken   string
	JiraProjectKey string
	JiraTimeout    time.Duration

	// Sessions
	SessionTTL        time.Duration
	SessionSlidingTTL bool

	// Files
	TemplatesDir string
	SettingsFile string

	// Retrieval
	RAGBackend     string
	EmbedProvider  string
	EmbedModel     string
	EmbedDimension int
	OllamaHost     string

	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		AIBaseURL:   getEnv("AI_BASE_URL", "http://localhost:8000/v1"),
		AIAPIKey:    getEnv("AI_API_KEY", ""),
		AIModelName: getEnv("AI_MODEL_NAME", "default-model"),
		LLMProvider: getEnv("LLM_PROVIDER", ProviderOpenAI),

		JiraBaseURL:    getEnv("JIRA_BASE_URL", "https://yourorg.atlassian.net"),
		JiraUserEmail:  getEnv("JIRA_USER_EMAIL", ""),
		JiraAPIToken:   getEnv("JIRA_API_TOKEN", ""),
		JiraProjectKey: getEnv("JIRA_PROJECT_KEY", "VOC"),
		JiraTimeout:    time.Duration(getEnvInt("JIRA_TIMEOUT_SECONDS", 30)) * time.Second,

		SessionTTL:        time.Duration(getEnvInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		SessionSlidingTTL: getEnv("SESSION_SLIDING_TTL", "false") == "true",

		TemplatesDir: getEnv("TEMPLATES_DIR", "templates"),
		SettingsFile: getEnv("SETTINGS_FILE", "settings.json"),

		RAGBackend:     getEnv("RAG_BACKEND", RAGBackendSurrealDB),
		EmbedProvider:  getEnv("EMBED_PROVIDER", ProviderOllama),
		EmbedModel:     getEnv("EMBED_MODEL", "all-minilm:l6-v2"),
		EmbedDimension: getEnvInt("EMBED_DIMENSION", 384),
		OllamaHost:     getEnv("OLLAMA_HOST", "http://localhost:11434"),

		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "voc"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "rag"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		LogFile:  getEnv("VOC_LOG_FILE", "/tmp/voc2ticket.log"),
		LogLevel: parseLogLevel(getEnv("VOC_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
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
