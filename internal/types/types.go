package types

import (
	"context"

	"github.com/xhad/research/internal/models"
)

// Core interfaces shared by the ingestion and query paths.

type Loader interface {
	Load(ctx context.Context, urls []string, headers map[string]string) ([]models.Document, []error)
}

type Splitter interface {
	Split(docs []models.Document) ([]models.Chunk, error)
}

type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type VectorStore interface {
	Upsert(ctx context.Context, records []models.VectorRecord) error
	Search(ctx context.Context, embedding []float32, k int) ([]models.ScoredChunk, error)
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
	Close() error
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
