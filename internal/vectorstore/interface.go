package vectorstore

import "context"

// ChunkPayload is the metadata stored alongside each vector.
type ChunkPayload struct {
	Text       string `json:"text"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	Date       string `json:"date"`
	Category   string `json:"category"`
	Source     string `json:"source"`
	SourceFile string `json:"source_file"`
}

// ScoredChunk is one hit from a similarity search.
type ScoredChunk struct {
	Score   float64
	Payload ChunkPayload
}

// Point is one vector with its metadata, ready for upsert.
type Point struct {
	ID      string
	Vector  []float32
	Payload ChunkPayload
}

// Searcher defines the similarity-search operation the question pipeline needs.
type Searcher interface {
	// Search returns up to limit chunks scoring at or above scoreThreshold,
	// ordered by descending similarity, with payloads included.
	Search(ctx context.Context, vector []float32, limit int, scoreThreshold float64) ([]ScoredChunk, error)
}
