package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"docchat-ai/internal/config"
	"docchat-ai/internal/ingest"
	"docchat-ai/internal/llm"
	"docchat-ai/internal/vectorstore"
)

func main() {
	dir := flag.String("dir", "docs", "directory of markdown documents to ingest")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

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

	ctx := context.Background()

	store, err := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.QdrantCollection)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}
	if err := store.EnsureCollection(ctx, cfg.QdrantVectorSize); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.QdrantVectorSize)

	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.QdrantVectorSize)
	if _, err := embedder.EmbedText(ctx, "test"); err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}

	pipeline := ingest.NewPipeline(embedder, store)
	stats, err := pipeline.IngestDir(ctx, *dir)
	if err != nil {
		log.Fatalf("Ingestion failed: %v", err)
	}

	slog.Info("Done", "files", stats.Files, "chunks", stats.Chunks, "errors", stats.Errors)
	if stats.Errors > 0 {
		os.Exit(1)
	}
}
