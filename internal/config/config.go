package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Ai         AIConfig
	Retrieval  RetrievalConfig
	Tools      ToolsConfig
	Resilience ResilienceConfig
	Keys       APIKeys
}

type AppConfig struct {
	Environment string
	LogFilePath string
}

type AIConfig struct {
	LLMProvider         string // "ollama" or "openai"
	LLMFallbackProvider string // tried when the primary is unavailable
	LLMModel            string
	OllamaBaseURL       string
	OpenAIBaseURL       string
	EmbeddingProvider   string // "gemini" or "ollama"
	OllamaEmbedModel    string
	CompletionTimeout   time.Duration
	WebSearchEnabled    bool
	EmbedTopicName      string
}

type RetrievalConfig struct {
	ChunkSize             int
	ChunkOverlap          int
	RelevanceThreshold    float64
	BiographicalThreshold float64
	ProbeTopK             int
}

type ToolsConfig struct {
	MaxOperationsPerTurn     int
	MaxDestructiveOpsPerTurn int
	Cooldown                 time.Duration
	RateLimitScope           string // "conversation" or "global"
	AuditLogCapacity         int
}

type ResilienceConfig struct {
	MaxRetries       int
	RetryBaseDelay   time.Duration
	RetryMultiplier  float64
	RetryMaxDelay    time.Duration
	FailureThreshold int
	RecoveryTimeout  time.Duration
}

type APIKeys struct {
	GoogleGemini string
	OpenAI       string
	Brave        string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Environment: getEnv("GO_ENV", "development"),
			LogFilePath: getEnv("LOG_FILE_PATH", "assistant.log"),
		},
		Ai: AIConfig{
			LLMProvider:         getEnv("LLM_PROVIDER", "ollama"),
			LLMFallbackProvider: getEnv("LLM_FALLBACK_PROVIDER", ""),
			LLMModel:            getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL:       getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OpenAIBaseURL:       getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			EmbeddingProvider:   getEnv("EMBEDDING_PROVIDER", "gemini"),
			OllamaEmbedModel:    getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			CompletionTimeout:   getEnvAsDuration("COMPLETION_TIMEOUT_MS", 60000),
			WebSearchEnabled:    getEnvAsBool("WEB_SEARCH_ENABLED", true),
			EmbedTopicName:      getEnv("EMBED_CHUNKS_TOPIC_NAME", "EMBED_CHUNKS"),
		},
		Retrieval: RetrievalConfig{
			ChunkSize:             getEnvAsInt("CHUNK_SIZE", 500),
			ChunkOverlap:          getEnvAsInt("CHUNK_OVERLAP", 50),
			RelevanceThreshold:    getEnvAsFloat("RELEVANCE_THRESHOLD", 0.25),
			BiographicalThreshold: getEnvAsFloat("RELEVANCE_THRESHOLD_BIOGRAPHICAL", 0.15),
			ProbeTopK:             getEnvAsInt("ROUTER_PROBE_TOP_K", 5),
		},
		Tools: ToolsConfig{
			MaxOperationsPerTurn:     getEnvAsInt("MAX_OPERATIONS_PER_TURN", 10),
			MaxDestructiveOpsPerTurn: getEnvAsInt("MAX_DESTRUCTIVE_OPS_PER_TURN", 3),
			Cooldown:                 getEnvAsDuration("TOOL_COOLDOWN_MS", 1000),
			RateLimitScope:           getEnv("RATE_LIMIT_SCOPE", "conversation"),
			AuditLogCapacity:         getEnvAsInt("AUDIT_LOG_CAPACITY", 1000),
		},
		Resilience: ResilienceConfig{
			MaxRetries:       getEnvAsInt("MAX_RETRIES", 3),
			RetryBaseDelay:   getEnvAsDuration("RETRY_BASE_DELAY_MS", 1000),
			RetryMultiplier:  getEnvAsFloat("RETRY_MULTIPLIER", 2),
			RetryMaxDelay:    getEnvAsDuration("RETRY_MAX_DELAY_MS", 10000),
			FailureThreshold: getEnvAsInt("BREAKER_FAILURE_THRESHOLD", 5),
			RecoveryTimeout:  getEnvAsDuration("BREAKER_RECOVERY_TIMEOUT_MS", 30000),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			OpenAI:       getEnv("OPENAI_API_KEY", ""),
			Brave:        getEnv("BRAVE_API_KEY", ""),
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

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration reads a millisecond-valued env var.
func getEnvAsDuration(key string, fallbackMs int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallbackMs)) * time.Millisecond
}
