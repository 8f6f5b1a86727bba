package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/xhad/research/pkg/config"
	"github.com/xhad/research/pkg/llm"
	"github.com/xhad/research/pkg/processor"
	"github.com/xhad/research/pkg/rag"
	"github.com/xhad/research/pkg/scraper"
	"github.com/xhad/research/pkg/store"
)

// NewPipeline wires the loader, splitter, embedder, chat model and vector
// store described by cfg. onFetch, when set, is called before each page fetch.
func NewPipeline(cfg *config.Config, log *slog.Logger, onFetch func(url string)) (*rag.Pipeline, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		joined := make([]error, len(errs))
		for i, e := range errs {
			joined[i] = e
		}
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(joined...))
	}

	loader, err := scraper.NewWithConfig(scraper.ScraperConfig{
		MaxDepth:          cfg.Scraper.MaxDepth,
		RateLimit:         cfg.Scraper.RateLimit,
		IgnorePatterns:    cfg.Scraper.IgnorePatterns,
		AllowedExtensions: cfg.Scraper.AllowedExtensions,
		Timeout:           cfg.Scraper.Timeout,
		Headers:           cfg.Scraper.Headers,
		OnProgress:        onFetch,
		Logger:            log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize scraper: %w", err)
	}

	splitter, err := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    cfg.Processor.ChunkSize,
		ChunkOverlap: cfg.Processor.ChunkOverlap,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize processor: %w", err)
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Provider:   cfg.LLM.EmbeddingProvider,
		Model:      cfg.LLM.EmbeddingModel,
		Dim:        cfg.Store.VectorDim,
		BaseURL:    cfg.LLM.BaseURL,
		BatchSize:  cfg.Store.BatchSize,
		Timeout:    cfg.LLM.Timeout,
		MaxRetries: cfg.LLM.MaxRetries,
		Logger:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		BaseURL:     cfg.LLM.BaseURL,
		Timeout:     cfg.LLM.Timeout,
		MaxRetries:  cfg.LLM.MaxRetries,
		Logger:      log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat engine: %w", err)
	}

	return rag.NewPipeline(rag.PipelineConfig{
		Store: store.VectorStoreConfig{
			Backend:    cfg.Store.Backend,
			Path:       cfg.Store.Path,
			Collection: cfg.Store.Collection,
			ConnString: cfg.Store.DatabaseURL,
			QdrantAddr: cfg.Store.QdrantAddr,
			VectorDim:  cfg.Store.VectorDim,
			BatchSize:  cfg.Store.BatchSize,
			Logger:     log,
		},
		MaxURLs:       cfg.Scraper.MaxURLs,
		TopK:          cfg.Retriever.TopK,
		MinScore:      cfg.Retriever.MinScore,
		ResetOnIngest: cfg.Store.ResetOnIngest,
		Logger:        log,
	}, loader, splitter, embedder, chatEngine), nil
}
