package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the session generation service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	// ProviderMode selects live upstream providers, mocks, or automatic
	// fallback when credentials are missing.
	ProviderMode string

	OpenAIAPIKey         string
	OpenAIBaseURL        string
	OpenAIChatModel      string
	OpenAIEmbeddingModel string
	EmbeddingDim         int

	GoogleTTSAPIKey   string
	GoogleTTSEndpoint string
	GoogleTTSVoice    string
	GoogleTTSLanguage string

	DatabaseURL string

	BlobDir       string
	PublicBaseURL string

	IdempotencyCacheSize int
	IdempotencyTTL       time.Duration

	SynthesisTimeout time.Duration
	InterBatchDelay  time.Duration
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "mindsphere"),
		ProviderMode:     envOrDefault("PROVIDER_MODE", "auto"),
		OpenAIAPIKey:     envTrimmed("OPENAI_API_KEY"),
		OpenAIBaseURL:    envOrDefault("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIChatModel:  envOrDefault("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		// Same embedding family the stored memory rows were written with.
		OpenAIEmbeddingModel: envOrDefault("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDim:         1536,
		GoogleTTSAPIKey:      envTrimmed("GOOGLE_TTS_API_KEY"),
		GoogleTTSEndpoint:    envOrDefault("GOOGLE_TTS_ENDPOINT", "https://texttospeech.googleapis.com/v1/text:synthesize"),
		// Studio voices carry the 5000 byte request ceiling the planner
		// works around.
		GoogleTTSVoice:       envOrDefault("GOOGLE_TTS_VOICE", "en-US-Studio-O"),
		GoogleTTSLanguage:    envOrDefault("GOOGLE_TTS_LANGUAGE", "en-US"),
		DatabaseURL:          envTrimmed("DATABASE_URL"),
		BlobDir:              envOrDefault("APP_BLOB_DIR", "data/audio"),
		PublicBaseURL:        envOrDefault("APP_PUBLIC_BASE_URL", "http://localhost:8080"),
		IdempotencyCacheSize: 512,
		IdempotencyTTL:       time.Hour,
		ShutdownTimeout:      15 * time.Second,
		SynthesisTimeout:     10 * time.Minute,
		InterBatchDelay:      time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SynthesisTimeout, err = durationFromEnv("APP_SYNTHESIS_TIMEOUT", cfg.SynthesisTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.InterBatchDelay, err = durationFromEnv("APP_INTER_BATCH_DELAY", cfg.InterBatchDelay)
	if err != nil {
		return Config{}, err
	}
	cfg.IdempotencyTTL, err = durationFromEnv("APP_IDEMPOTENCY_TTL", cfg.IdempotencyTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.IdempotencyCacheSize, err = intFromEnv("APP_IDEMPOTENCY_CACHE_SIZE", cfg.IdempotencyCacheSize)
	if err != nil {
		return Config{}, err
	}
	cfg.EmbeddingDim, err = intFromEnv("EMBEDDING_DIM", cfg.EmbeddingDim)
	if err != nil {
		return Config{}, err
	}

	switch cfg.ProviderMode {
	case "auto", "live", "mock":
	default:
		return Config{}, fmt.Errorf("PROVIDER_MODE must be auto, live or mock, got %q", cfg.ProviderMode)
	}
	if cfg.EmbeddingDim <= 0 {
		return Config{}, fmt.Errorf("EMBEDDING_DIM must be positive")
	}
	if cfg.IdempotencyCacheSize <= 0 {
		return Config{}, fmt.Errorf("APP_IDEMPOTENCY_CACHE_SIZE must be positive")
	}
	if cfg.IdempotencyTTL <= 0 {
		return Config{}, fmt.Errorf("APP_IDEMPOTENCY_TTL must be positive")
	}
	if cfg.SynthesisTimeout < time.Minute {
		return Config{}, fmt.Errorf("APP_SYNTHESIS_TIMEOUT must be at least 1m")
	}
	if cfg.InterBatchDelay < 0 {
		return Config{}, fmt.Errorf("APP_INTER_BATCH_DELAY must not be negative")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}
