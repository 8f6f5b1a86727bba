package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/xhad/research/internal/models"
)

// LocalStore keeps the index in a chromem-go persistent database on disk.
// Every added document is written to its own file before Upsert returns.
type LocalStore struct {
	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	name       string
	path       string
	log        *slog.Logger
}

func openLocal(config VectorStoreConfig, create bool) (*LocalStore, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("local store path is required")
	}

	if !create {
		if _, err := os.Stat(config.Path); errors.Is(err, fs.ErrNotExist) {
			return nil, ErrStoreNotInitialized
		}
	}

	db, err := chromem.NewPersistentDB(config.Path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store at %s: %w", config.Path, err)
	}

	var collection *chromem.Collection
	if create {
		collection, err = db.GetOrCreateCollection(config.Collection, nil, precomputed)
		if err != nil {
			return nil, fmt.Errorf("failed to create collection %s: %w", config.Collection, err)
		}
	} else {
		collection = db.GetCollection(config.Collection, precomputed)
		if collection == nil {
			return nil, ErrStoreNotInitialized
		}
	}

	s := &LocalStore{
		db:         db,
		collection: collection,
		name:       config.Collection,
		path:       config.Path,
		log:        config.Logger.With("component", "store", "backend", "local"),
	}
	s.log.Debug("opened local store", "path", config.Path, "collection", config.Collection, "records", collection.Count())
	return s, nil
}

// precomputed is handed to chromem so it never computes embeddings itself.
func precomputed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("embeddings must be computed before adding documents")
}

func (s *LocalStore) Upsert(ctx context.Context, records []models.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        r.ID,
			Embedding: normalize(r.Embedding),
			Content:   sanitizeUTF8(r.Chunk.Content),
			Metadata: map[string]string{
				"source": r.Chunk.Source,
				"title":  sanitizeUTF8(r.Chunk.Title),
				"index":  strconv.Itoa(r.Chunk.Index),
				"offset": strconv.Itoa(r.Chunk.Offset),
			},
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add %d documents: %w", len(docs), err)
	}
	s.log.Debug("stored records", "count", len(docs))
	return nil
}

func (s *LocalStore) Search(ctx context.Context, embedding []float32, k int) ([]models.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := s.collection.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := s.collection.QueryEmbedding(ctx, normalize(embedding), k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}

	chunks := make([]models.ScoredChunk, 0, len(results))
	for _, r := range results {
		index, _ := strconv.Atoi(r.Metadata["index"])
		offset, _ := strconv.Atoi(r.Metadata["offset"])
		chunks = append(chunks, models.ScoredChunk{
			Chunk: models.Chunk{
				Content: r.Content,
				Source:  r.Metadata["source"],
				Title:   r.Metadata["title"],
				Index:   index,
				Offset:  offset,
			},
			Score: r.Similarity,
		})
	}
	return chunks, nil
}

func (s *LocalStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection.Count(), nil
}

// Reset drops every record and leaves an empty collection behind.
func (s *LocalStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", s.name, err)
	}
	collection, err := s.db.GetOrCreateCollection(s.name, nil, precomputed)
	if err != nil {
		return fmt.Errorf("failed to recreate collection %s: %w", s.name, err)
	}
	s.collection = collection
	return nil
}

func (s *LocalStore) Close() error {
	return nil
}
