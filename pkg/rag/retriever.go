package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xhad/research/internal/logger"
	"github.com/xhad/research/internal/models"
	"github.com/xhad/research/internal/types"
)

const DefaultTopK = 4

type Retriever struct {
	store    types.VectorStore
	embedder types.Embedder
	topK     int
	minScore float32
	log      *slog.Logger
}

// NewRetriever returns a retriever over store. A minScore of 0 keeps every hit.
func NewRetriever(store types.VectorStore, embedder types.Embedder, topK int, minScore float32, log *slog.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Retriever{
		store:    store,
		embedder: embedder,
		topK:     topK,
		minScore: minScore,
		log:      log.With("component", "retriever"),
	}
}

// Retrieve returns up to k chunks ordered by descending similarity to
// question. k <= 0 uses the retriever's default. An empty store yields an
// empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]models.ScoredChunk, error) {
	if r.store == nil {
		return nil, ErrStoreNotInitialized
	}
	if k <= 0 {
		k = r.topK
	}

	embedding, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	hits, err := r.store.Search(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search vector store: %w", err)
	}

	chunks := hits[:0]
	for _, hit := range hits {
		if hit.Score < r.minScore {
			continue
		}
		chunks = append(chunks, hit)
	}

	r.log.Debug("retrieved chunks", "k", k, "hits", len(hits), "kept", len(chunks))
	return chunks, nil
}
