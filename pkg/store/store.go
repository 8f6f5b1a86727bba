package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/xhad/research/internal/logger"
	"github.com/xhad/research/internal/models"
	"github.com/xhad/research/internal/types"
)

// ErrStoreNotInitialized is returned when a store is opened for reading
// before anything created it.
var ErrStoreNotInitialized = errors.New("vector store not initialized")

type VectorStoreConfig struct {
	Backend    string // local, pgvector or qdrant
	Path       string // directory of the local store
	Collection string // collection, table or Qdrant collection name
	ConnString string // PostgreSQL connection string
	QdrantAddr string // Qdrant gRPC address
	VectorDim  int
	BatchSize  int
	Logger     *slog.Logger
}

func (c VectorStoreConfig) withDefaults() VectorStoreConfig {
	if c.Backend == "" {
		c.Backend = "local"
	}
	if c.Collection == "" {
		c.Collection = "documents"
	}
	if c.VectorDim == 0 {
		c.VectorDim = 768
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.QdrantAddr == "" {
		c.QdrantAddr = "localhost:6334"
	}
	if c.Logger == nil {
		c.Logger = logger.Discard()
	}
	return c
}

// LoadOrCreate returns the store described by config, creating it when it
// does not exist yet. Calling it again on the same location returns the
// same records.
func LoadOrCreate(ctx context.Context, config VectorStoreConfig) (types.VectorStore, error) {
	return open(ctx, config.withDefaults(), true)
}

// Open returns an existing store or ErrStoreNotInitialized.
func Open(ctx context.Context, config VectorStoreConfig) (types.VectorStore, error) {
	return open(ctx, config.withDefaults(), false)
}

func open(ctx context.Context, config VectorStoreConfig, create bool) (types.VectorStore, error) {
	switch config.Backend {
	case "local":
		return openLocal(config, create)
	case "pgvector":
		return openPgVector(ctx, config, create)
	case "qdrant":
		return openQdrant(ctx, config, create)
	default:
		return nil, fmt.Errorf("unknown vector store backend: %s", config.Backend)
	}
}

// NewRecords pairs chunks with their embeddings under fresh IDs.
func NewRecords(chunks []models.Chunk, embeddings [][]float32) ([]models.VectorRecord, error) {
	if len(chunks) != len(embeddings) {
		return nil, fmt.Errorf("got %d embeddings for %d chunks", len(embeddings), len(chunks))
	}
	records := make([]models.VectorRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = models.VectorRecord{
			ID:        uuid.NewString(),
			Embedding: embeddings[i],
			Chunk:     chunk,
		}
	}
	return records, nil
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	norm := float32(math.Sqrt(sum))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
