package config

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Config is everything the service reads from the environment. godotenv has
// already populated the process env by the time FromEnv runs.
type Config struct {
	Port   string
	AppEnv string

	// STT provider
	OpenAIAPIKey string
	STTBaseURL   string
	STTModel     string

	// Chunking
	MaxChunkBytes    int64
	ChunkConcurrency int

	// External transcode/split service; empty URL means not configured
	TranscodeServiceURL   string
	TranscodeServiceToken string

	// Optional service-to-service auth on the inbound endpoint
	ServiceJWTSecret string
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:                  getenv("PORT", "3000"),
		AppEnv:                getenv("APP_ENV", "development"),
		OpenAIAPIKey:          os.Getenv("OPENAI_API_KEY"),
		STTBaseURL:            os.Getenv("STT_BASE_URL"),
		STTModel:              getenv("STT_MODEL", "whisper-1"),
		MaxChunkBytes:         getenvInt64("MAX_CHUNK_BYTES", 24*1024*1024),
		ChunkConcurrency:      int(getenvInt64("CHUNK_CONCURRENCY", 3)),
		TranscodeServiceURL:   os.Getenv("TRANSCODE_SERVICE_URL"),
		TranscodeServiceToken: os.Getenv("TRANSCODE_SERVICE_TOKEN"),
		ServiceJWTSecret:      os.Getenv("SERVICE_JWT_SECRET"),
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, errors.New("OPENAI_API_KEY must be set")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
