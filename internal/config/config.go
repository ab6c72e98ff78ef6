package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Keys     APIKeys
	Ai       AIConfig
	Dialogue DialogueConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	GoogleGemini   string
	Groq           string
	EmbedDocsTopic string // Embedding pipeline topic
}

type AIConfig struct {
	EmbeddingProvider string // "gemini", "ollama", or "jina"
	JinaAPIKey        string
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "ollama" or "groq"
	LLMModel          string // e.g. "llama3", "llama-3.3-70b-versatile"
	GroqBaseURL       string
}

type DialogueConfig struct {
	SessionIdleTimeout time.Duration
	ClassifyTimeout    time.Duration
	ExtractTimeout     time.Duration
	RetrieveTimeout    time.Duration
	GenerateTimeout    time.Duration
	StreamChunkDelay   time.Duration
	AllowedTopics      []string // empty means built-in defaults
	DeniedTopics       []string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			GoogleGemini:   getEnv("GOOGLE_GEMINI_API_KEY", ""),
			Groq:           getEnv("GROQ_API_KEY", ""),
			EmbedDocsTopic: getEnv("EMBED_KNOWLEDGE_TOPIC_NAME", "EMBED_KNOWLEDGE_DOCUMENT"),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			JinaAPIKey:        getEnv("JINA_API_KEY", ""),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "groq"),
			LLMModel:          getEnv("LLM_MODEL", "llama-3.3-70b-versatile"),
			GroqBaseURL:       getEnv("GROQ_BASE_URL", ""),
		},
		Dialogue: DialogueConfig{
			SessionIdleTimeout: getEnvAsDuration("SESSION_IDLE_TIMEOUT", time.Hour),
			ClassifyTimeout:    getEnvAsDuration("CLASSIFY_TIMEOUT", 20*time.Second),
			ExtractTimeout:     getEnvAsDuration("EXTRACT_TIMEOUT", 30*time.Second),
			RetrieveTimeout:    getEnvAsDuration("RETRIEVE_TIMEOUT", 10*time.Second),
			GenerateTimeout:    getEnvAsDuration("GENERATE_TIMEOUT", 60*time.Second),
			StreamChunkDelay:   getEnvAsDuration("STREAM_CHUNK_DELAY", 50*time.Millisecond),
			AllowedTopics:      getEnvAsList("DIALOGUE_ALLOWED_TOPICS"),
			DeniedTopics:       getEnvAsList("DIALOGUE_DENIED_TOPICS"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsList parses a comma-separated env var, dropping empty items.
func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
