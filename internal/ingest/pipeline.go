package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"docchat-ai/internal/chunker"
	"docchat-ai/internal/contextutil"
	"docchat-ai/internal/vectorstore"
)

// Embedder generates embeddings for batches of fragment texts.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Store is the piece of the vector store the ingestion pipeline needs.
type Store interface {
	Upsert(ctx context.Context, points []vectorstore.Point) error
	DeleteBySourceFile(ctx context.Context, sourceFile string) error
}

// Stats summarizes one ingestion run.
type Stats struct {
	Files  int
	Chunks int
	Errors int
}

// Pipeline turns markdown documents into embedded, searchable chunks.
type Pipeline struct {
	embedder Embedder
	store    Store
	chunker  *chunker.Chunker
}

// NewPipeline creates an ingestion pipeline with the default chunker settings.
func NewPipeline(embedder Embedder, store Store) *Pipeline {
	return &Pipeline{
		embedder: embedder,
		store:    store,
		chunker:  chunker.New(0, 0),
	}
}

// IngestFile ingests a single markdown document: front matter is parsed into
// chunk metadata, the body is chunked and embedded, and previous chunks from
// the same file are replaced. Returns the number of chunks stored.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (int, error) {
	logger := contextutil.LoggerFromContext(ctx)

	content, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	meta, body, err := splitFrontMatter(string(content))
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if meta.Title == "" {
		meta.Title = titleFromFilename(path)
	}

	fragments := p.chunker.Split(body)
	if len(fragments) == 0 {
		logger.WarnContext(ctx, "no chunks generated", "path", path)
		return 0, nil
	}

	texts := make([]string, len(fragments))
	for i, fragment := range fragments {
		texts[i] = fragment.Text
	}

	embeddings, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks of %s: %w", path, err)
	}
	if len(embeddings) != len(fragments) {
		return 0, fmt.Errorf("embedding count mismatch for %s: expected %d, got %d",
			path, len(fragments), len(embeddings))
	}

	sourceFile := filepath.ToSlash(path)
	if err := p.store.DeleteBySourceFile(ctx, sourceFile); err != nil {
		return 0, fmt.Errorf("failed to replace chunks of %s: %w", path, err)
	}

	points := make([]vectorstore.Point, len(fragments))
	for i, fragment := range fragments {
		points[i] = vectorstore.Point{
			ID:     uuid.New().String(),
			Vector: embeddings[i],
			Payload: vectorstore.ChunkPayload{
				Text:       fragment.Text,
				Title:      meta.Title,
				Author:     meta.Author,
				Date:       meta.Date,
				Category:   meta.Category,
				Source:     meta.Source,
				SourceFile: sourceFile,
			},
		}
	}

	if err := p.store.Upsert(ctx, points); err != nil {
		return 0, fmt.Errorf("failed to upsert chunks of %s: %w", path, err)
	}

	logger.InfoContext(ctx, "ingested document", "path", path, "title", meta.Title, "chunks", len(points))
	return len(points), nil
}

// IngestDir walks a directory tree and ingests every markdown file.
// Per-file failures are counted and logged but do not stop the run.
func (p *Pipeline) IngestDir(ctx context.Context, dir string) (*Stats, error) {
	logger := contextutil.LoggerFromContext(ctx)
	stats := &Stats{}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".md") {
			return nil
		}

		chunks, err := p.IngestFile(ctx, path)
		if err != nil {
			logger.ErrorContext(ctx, "failed to ingest document", "path", path, "error", err)
			stats.Errors++
			return nil
		}
		stats.Files++
		stats.Chunks += chunks
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	logger.InfoContext(ctx, "ingestion complete",
		"files", stats.Files, "chunks", stats.Chunks, "errors", stats.Errors)
	return stats, nil
}
