package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mindsphere/mindsphere/internal/config"
	"github.com/mindsphere/mindsphere/internal/httpapi"
	"github.com/mindsphere/mindsphere/internal/lifecycle"
	"github.com/mindsphere/mindsphere/internal/llm"
	"github.com/mindsphere/mindsphere/internal/observability"
	"github.com/mindsphere/mindsphere/internal/personalization"
	"github.com/mindsphere/mindsphere/internal/script"
	"github.com/mindsphere/mindsphere/internal/store"
	"github.com/mindsphere/mindsphere/internal/tts"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	sessionStore, err := store.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("store init failed: %v", err)
	}
	defer sessionStore.Close()
	if cfg.DatabaseURL == "" {
		log.Printf("store: in-memory (DATABASE_URL not set)")
	} else {
		log.Printf("store: postgres")
	}

	blobs, err := store.NewDiskBlobStore(cfg.BlobDir, cfg.PublicBaseURL)
	if err != nil {
		log.Fatalf("blob store init failed: %v", err)
	}

	var llmClient llm.Client
	var synth tts.Synthesizer

	switch cfg.ProviderMode {
	case "live":
		if cfg.OpenAIAPIKey == "" || cfg.GoogleTTSAPIKey == "" {
			log.Fatalf("PROVIDER_MODE=live requires OPENAI_API_KEY and GOOGLE_TTS_API_KEY")
		}
		llmClient = newOpenAI(cfg)
		synth = newGoogleTTS(cfg)
		log.Printf("providers: live (openai + google tts)")
	case "mock":
		llmClient = llm.NewMockClient()
		synth = tts.NewMockSynthesizer()
		log.Printf("providers: mock")
	case "auto":
		if cfg.OpenAIAPIKey != "" && cfg.GoogleTTSAPIKey != "" {
			llmClient = newOpenAI(cfg)
			synth = newGoogleTTS(cfg)
			log.Printf("providers: live (openai + google tts)")
		} else {
			llmClient = llm.NewMockClient()
			synth = tts.NewMockSynthesizer()
			log.Printf("providers: mock (missing provider credentials)")
		}
	}

	sessions := lifecycle.NewService(lifecycle.Options{
		Store:                sessionStore,
		Blobs:                blobs,
		Resolver:             personalization.NewResolver(llmClient, sessionStore),
		Generator:            script.NewGenerator(llmClient),
		Synth:                synth,
		Metrics:              metrics,
		InterBatchDelay:      cfg.InterBatchDelay,
		SynthesisTimeout:     cfg.SynthesisTimeout,
		IdempotencyCacheSize: cfg.IdempotencyCacheSize,
		IdempotencyTTL:       cfg.IdempotencyTTL,
	})

	api := httpapi.New(cfg, sessions, sessionStore, llmClient, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}

func newOpenAI(cfg config.Config) *llm.OpenAIClient {
	return llm.NewOpenAIClient(llm.OpenAIConfig{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		ChatModel:      cfg.OpenAIChatModel,
		EmbeddingModel: cfg.OpenAIEmbeddingModel,
	})
}

func newGoogleTTS(cfg config.Config) *tts.GoogleSynthesizer {
	return tts.NewGoogleSynthesizer(tts.GoogleConfig{
		APIKey:   cfg.GoogleTTSAPIKey,
		Endpoint: cfg.GoogleTTSEndpoint,
		Voice:    cfg.GoogleTTSVoice,
		Language: cfg.GoogleTTSLanguage,
	})
}
