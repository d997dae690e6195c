package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

type EmbeddingsConfig struct {
	Provider  string
	Model     string
	Dimension int
}

type LLMConfig struct {
	Provider string
	Model    string
}

type RetrievalConfig struct {
	ChunkSize          int
	ChunkOverlap       int
	TopK               int
	RelevanceThreshold float64
}

type SearchConfig struct {
	GoogleAPIKey string
	GoogleCSEID  string
	ResultCount  int
}

type Config struct {
	ListenAddr  string
	PostgresDSN string

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string

	MaxUploadMB int

	Embeddings EmbeddingsConfig
	LLM        LLMConfig
	Retrieval  RetrievalConfig
	Search     SearchConfig
}

// Load reads configuration from the environment, consulting a local .env
// file first when present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		ListenAddr:  getEnv("LISTEN_ADDR", ":8000"),
		PostgresDSN: getEnv("POSTGRES_DSN", "postgres://localhost:5432/ragchat?sslmode=disable"),

		OllamaHost:    getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),

		MaxUploadMB: getEnvInt("MAX_FILE_SIZE_MB", 10),

		Embeddings: EmbeddingsConfig{
			Provider:  getEnv("EMBEDDINGS_PROVIDER", ProviderOpenAI),
			Model:     getEnv("EMBEDDINGS_MODEL", "text-embedding-3-small"),
			Dimension: getEnvInt("EMBEDDINGS_DIMENSION", 1536),
		},
		LLM: LLMConfig{
			Provider: getEnv("LLM_PROVIDER", ProviderOpenAI),
			Model:    getEnv("LLM_MODEL", "gpt-4o-mini"),
		},
		Retrieval: RetrievalConfig{
			ChunkSize:          getEnvInt("CHUNK_SIZE", 500),
			ChunkOverlap:       getEnvInt("CHUNK_OVERLAP", 100),
			TopK:               getEnvInt("RETRIEVAL_TOP_K", 5),
			RelevanceThreshold: getEnvFloat("RELEVANCE_THRESHOLD", 0.6),
		},
		Search: SearchConfig{
			GoogleAPIKey: getEnv("GOOGLE_API_KEY", ""),
			GoogleCSEID:  getEnv("GOOGLE_CSE_ID", ""),
			ResultCount:  getEnvInt("SEARCH_RESULT_COUNT", 5),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
