package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/xhad/research/internal/logger"
	"github.com/xhad/research/internal/types"
	"github.com/xhad/research/pkg/scraper"
	"github.com/xhad/research/pkg/store"
)

const DefaultMaxURLs = 3

// Status is one progress report from ProcessURLs. A non-nil Err wrapping a
// *scraper.FetchError concerns a single URL and ingestion goes on; any
// other Err is the last status sent.
type Status struct {
	Message string
	Chunks  int // set on the final status of a successful run
	Err     error
}

func (s Status) String() string {
	if s.Err != nil {
		return fmt.Sprintf("%s: %v", s.Message, s.Err)
	}
	return s.Message
}

// Fatal reports whether the status ended the ingestion run.
func (s Status) Fatal() bool {
	var fetchErr *scraper.FetchError
	return s.Err != nil && !errors.As(s.Err, &fetchErr)
}

type PipelineConfig struct {
	Store         store.VectorStoreConfig
	MaxURLs       int
	TopK          int
	MinScore      float32
	ResetOnIngest bool
	Logger        *slog.Logger
}

// Pipeline ties the ingestion path (load, split, embed, store) to the query
// path (retrieve, generate). The two share only the vector store, which is
// created on the first ingestion and reopened from disk when it exists.
type Pipeline struct {
	config    PipelineConfig
	loader    types.Loader
	splitter  types.Splitter
	embedder  types.Embedder
	generator *Generator
	log       *slog.Logger

	mu    sync.Mutex
	store types.VectorStore
}

func NewPipeline(config PipelineConfig, loader types.Loader, splitter types.Splitter, embedder types.Embedder, model types.Generator) *Pipeline {
	if config.MaxURLs <= 0 {
		config.MaxURLs = DefaultMaxURLs
	}
	if config.TopK <= 0 {
		config.TopK = DefaultTopK
	}
	if config.Logger == nil {
		config.Logger = logger.Discard()
	}
	if config.Store.Logger == nil {
		config.Store.Logger = config.Logger
	}

	return &Pipeline{
		config:    config,
		loader:    loader,
		splitter:  splitter,
		embedder:  embedder,
		generator: NewGenerator(model, config.Logger),
		log:       config.Logger.With("component", "pipeline"),
	}
}

// ProcessURLs ingests urls and reports progress on the returned channel,
// which is closed when ingestion ends. Work advances only as statuses are
// received; cancel ctx to abandon a run early.
func (p *Pipeline) ProcessURLs(ctx context.Context, urls []string, headers map[string]string) <-chan Status {
	statuses := make(chan Status)

	go func() {
		defer close(statuses)

		send := func(s Status) bool {
			select {
			case statuses <- s:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if err := p.ingest(ctx, urls, headers, send); err != nil {
			p.log.Error("ingestion failed", "error", err)
			send(Status{Message: "Ingestion failed", Err: err})
		}
	}()

	return statuses
}

// Ingest runs ProcessURLs to completion and returns the number of chunks
// stored with the fatal error, if any. Per URL failures are logged.
func (p *Pipeline) Ingest(ctx context.Context, urls []string, headers map[string]string) (int, error) {
	var last Status
	for s := range p.ProcessURLs(ctx, urls, headers) {
		if s.Fatal() {
			return 0, s.Err
		}
		last = s
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return last.Chunks, nil
}

func (p *Pipeline) ingest(ctx context.Context, urls []string, headers map[string]string, send func(Status) bool) error {
	var cleaned []string
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			cleaned = append(cleaned, u)
		}
	}
	if len(cleaned) == 0 {
		return ErrNoURLs
	}
	if len(cleaned) > p.config.MaxURLs {
		return fmt.Errorf("%w: got %d, at most %d allowed", ErrTooManyURLs, len(cleaned), p.config.MaxURLs)
	}

	if !send(Status{Message: "Loading URLs..."}) {
		return nil
	}
	docs, errs := p.loader.Load(ctx, cleaned, headers)
	for _, err := range errs {
		if !send(Status{Message: "Failed to load URL", Err: err}) {
			return nil
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(docs) == 0 {
		return ErrNoDocuments
	}

	if !send(Status{Message: "Splitting text..."}) {
		return nil
	}
	chunks, err := p.splitter.Split(docs)
	if err != nil {
		return fmt.Errorf("failed to split documents: %w", err)
	}

	if !send(Status{Message: "Embedding and storing..."}) {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	embeddings, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return err
	}
	records, err := store.NewRecords(chunks, embeddings)
	if err != nil {
		return err
	}

	vs, err := p.storeForWrite(ctx)
	if err != nil {
		return err
	}
	if p.config.ResetOnIngest {
		if !send(Status{Message: "Resetting vector store..."}) {
			return nil
		}
		if err := vs.Reset(ctx); err != nil {
			return err
		}
	}
	if err := vs.Upsert(ctx, records); err != nil {
		return err
	}

	p.log.Info("ingested documents", "urls", len(cleaned), "documents", len(docs), "chunks", len(records))
	send(Status{
		Message: fmt.Sprintf("Done adding %d chunks to the vector store", len(records)),
		Chunks:  len(records),
	})
	return nil
}

// Ask answers question from the ingested documents. sources lists the
// cited URLs one per line and may be empty.
func (p *Pipeline) Ask(ctx context.Context, question string) (answer string, sources string, err error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", "", ErrEmptyQuestion
	}

	vs, err := p.storeForRead(ctx)
	if err != nil {
		return "", "", err
	}

	retriever := NewRetriever(vs, p.embedder, p.config.TopK, p.config.MinScore, p.config.Logger)
	chunks, err := retriever.Retrieve(ctx, question, 0)
	if err != nil {
		return "", "", err
	}

	result, err := p.generator.Answer(ctx, question, chunks)
	if err != nil {
		return "", "", err
	}
	return result.Text, result.SourcesText(), nil
}

// Count returns the number of stored chunks, 0 before any ingestion.
func (p *Pipeline) Count(ctx context.Context) (int, error) {
	vs, err := p.storeForRead(ctx)
	if errors.Is(err, ErrStoreNotInitialized) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return vs.Count(ctx)
}

func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.store == nil {
		return nil
	}
	err := p.store.Close()
	p.store = nil
	return err
}

func (p *Pipeline) storeForWrite(ctx context.Context) (types.VectorStore, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.store != nil {
		return p.store, nil
	}
	vs, err := store.LoadOrCreate(ctx, p.config.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	p.store = vs
	return vs, nil
}

func (p *Pipeline) storeForRead(ctx context.Context) (types.VectorStore, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.store != nil {
		return p.store, nil
	}
	vs, err := store.Open(ctx, p.config.Store)
	if err != nil {
		return nil, err
	}
	p.store = vs
	return vs, nil
}
