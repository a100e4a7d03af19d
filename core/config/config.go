package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"glowfeed.app/discovery/core/db"
)

type Config struct {
	OTel      OTelConfig
	Search    SearchConfig
	GeminiLLM LLMConfig
	OpenAILLM LLMConfig
	Cache     CacheConfig
	Pipeline  PipelineConfig
	Env       string
	Port      string
	DB        db.Config
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type SearchConfig struct {
	APIKey  string
	BaseURL string
	// Requests per second against the search provider. Serper allows bursts
	// but sustained traffic should stay around 1 rps on the entry plan.
	RateLimit float64
	Timeout   time.Duration
}

type LLMConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

type CacheConfig struct {
	RedisURL string
	TTL      time.Duration
}

type PipelineConfig struct {
	// Worker pool size shared by the per-source fetch+extract stage and the
	// per-candidate analysis stage.
	Concurrency  int
	FetchTimeout time.Duration
	LLMTimeout   time.Duration
}

// Load loads configuration from environment variables.
// In development it first loads a local .env file if one exists.
func Load() (Config, error) {
	if getEnv("GLOWFEED_ENV", "development") == "development" {
		_ = godotenv.Load(".env")
	}

	cfg := Config{
		Env:  getEnv("GLOWFEED_ENV", "development"),
		Port: getEnv("PORT", "8080"),
		DB: db.Config{
			DSN:      getEnv("DATABASE_URL", ""),
			MaxConns: getEnvInt32("DB_MAX_CONNS", 10),
			MinConns: getEnvInt32("DB_MIN_CONNS", 2),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "discovery"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		Search: SearchConfig{
			APIKey:    getEnv("SERPER_API_KEY", ""),
			BaseURL:   getEnv("SERPER_BASE_URL", "https://google.serper.dev"),
			RateLimit: getEnvFloat("SEARCH_RATE_LIMIT", 1.0),
			Timeout:   getEnvDuration("SEARCH_TIMEOUT", 10*time.Second),
		},
		GeminiLLM: LLMConfig{
			APIKey:    getEnv("GEMINI_API_KEY", ""),
			Model:     getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			MaxTokens: getEnvInt("GEMINI_MAX_TOKENS", 2048),
		},
		OpenAILLM: LLMConfig{
			APIKey:    getEnv("OPENAI_API_KEY", ""),
			BaseURL:   getEnv("OPENAI_BASE_URL", ""),
			Model:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			MaxTokens: getEnvInt("OPENAI_MAX_TOKENS", 2048),
		},
		Cache: CacheConfig{
			RedisURL: getEnv("REDIS_URL", ""),
			TTL:      getEnvDuration("CACHE_TTL", 24*time.Hour),
		},
		Pipeline: PipelineConfig{
			Concurrency:  getEnvInt("PIPELINE_CONCURRENCY", 6),
			FetchTimeout: getEnvDuration("FETCH_TIMEOUT", 5*time.Second),
			LLMTimeout:   getEnvDuration("LLM_TIMEOUT", 10*time.Second),
		},
	}

	// The search provider is the one collaborator the pipeline cannot
	// degrade around. Every LLM key is optional.
	if cfg.Search.APIKey == "" {
		return Config{}, fmt.Errorf("SERPER_API_KEY is required")
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c LLMConfig) Enabled() bool {
	return c.APIKey != ""
}

func (c CacheConfig) RedisEnabled() bool {
	return c.RedisURL != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt32(key string, fallback int32) int32 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(i)
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
