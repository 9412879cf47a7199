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

type EmbeddingConfig struct {
	Provider  string
	Model     string
	Dimension int
}

type LLMConfig struct {
	Provider string
	Model    string
}

type Config struct {
	PostgresDSN string
	RedisAddr   string
	RedisDB     int

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string

	Embeddings EmbeddingConfig
	LLM        LLMConfig

	KnowledgeDir string
	ListenAddr   string

	AlphaVantageKey string

	RetrievalK  int
	HybridAlpha float64
	CacheTTLSec int
}

// Load reads configuration from the environment, applying defaults suitable
// for a local Ollama + Postgres + Redis setup. A .env file in the working
// directory is loaded first when present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		PostgresDSN: getEnv("POSTGRES_DSN", "postgres://localhost:5432/finsight?sslmode=disable"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     getEnvInt("REDIS_DB", 0),

		OllamaHost:    getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),

		Embeddings: EmbeddingConfig{
			Provider:  getEnv("EMBEDDING_PROVIDER", ProviderOllama),
			Model:     getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			Dimension: getEnvInt("EMBEDDING_DIMENSION", 768),
		},
		LLM: LLMConfig{
			Provider: getEnv("LLM_PROVIDER", ProviderOllama),
			Model:    getEnv("LLM_MODEL", "llama3.1:8b"),
		},

		KnowledgeDir: getEnv("KNOWLEDGE_DIR", "./knowledge_base"),
		ListenAddr:   getEnv("LISTEN_ADDR", ":8080"),

		AlphaVantageKey: getEnv("ALPHA_VANTAGE_API_KEY", ""),

		RetrievalK:  getEnvInt("RETRIEVAL_K", 5),
		HybridAlpha: getEnvFloat("HYBRID_ALPHA", 0.5),
		CacheTTLSec: getEnvInt("CACHE_TTL_SECONDS", 3600),
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
