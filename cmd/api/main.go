package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"docchat-ai/internal/config"
	"docchat-ai/internal/http"
	"docchat-ai/internal/llm"
	"docchat-ai/internal/rag"
	"docchat-ai/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx := context.Background()

	// Initialize Qdrant vector store
	store, err := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.QdrantCollection)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}
	if err := store.EnsureCollection(ctx, cfg.QdrantVectorSize); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.QdrantVectorSize)

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.QdrantVectorSize)
	if _, err := embedder.EmbedText(ctx, "test"); err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	slog.Info("Embedding client validated", "model", cfg.EmbeddingModelName, "vector_size", cfg.QdrantVectorSize)

	// Create chat completions client
	chatClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey)

	persona := cfg.Persona
	engine := rag.NewEngine(embedder, store, chatClient, rag.Config{
		ChatModel:     cfg.LLMModelName,
		FallbackModel: cfg.LLMFallbackModel,

		Temperature:         persona.Generation.Temperature,
		MaxTokens:           persona.Generation.MaxTokens,
		FallbackTemperature: persona.Generation.FallbackTemperature,
		FallbackMaxTokens:   persona.Generation.FallbackMaxTokens,

		BaseThreshold:  persona.Retrieval.BaseThreshold,
		FloorThreshold: persona.Retrieval.FloorThreshold,
		CapThreshold:   persona.Retrieval.CapThreshold,
		FallbackScore:  persona.Retrieval.FallbackScore,
		MaxChunks:      persona.Retrieval.MaxChunks,

		MaxTokensPerChunk: persona.Retrieval.MaxTokensPerChunk,
		MaxContextTokens:  persona.Retrieval.MaxContextTokens,
		HardTokenCeiling:  persona.Retrieval.HardTokenCeiling,

		Theme:                persona.Theme,
		Welcome:              persona.Welcome,
		Redirect:             persona.Redirect,
		Topics:               persona.Topics,
		AllowedTopics:        persona.AllowedTopics,
		BannedFollowupWords:  persona.BannedFollowupWords,
		AnswerWithoutContext: persona.AnswerWithoutContext,
	})
	slog.Info("Question engine initialized", "model", cfg.LLMModelName, "fallback_model", cfg.LLMFallbackModel)

	router := http.NewRouter(&http.Deps{
		Engine: engine,
		Store:  store,
	})

	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
