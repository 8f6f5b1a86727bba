package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/xhad/research/internal/logger"
)

type EmbedderConfig struct {
	Provider   string // ollama, openai or hash
	Model      string
	Dim        int // vector size of the hash embedder
	BaseURL    string // Ollama server URL or OpenAI compatible endpoint
	BatchSize  int
	Timeout    time.Duration
	MaxRetries int
	Logger     *slog.Logger
}

// Embedder computes vectors for chunks and questions. Every call is bounded
// by a timeout and retried with backoff.
type Embedder struct {
	Config EmbedderConfig
	embed  embeddings.Embedder
	retry  RetryConfig
	log    *slog.Logger
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	config = applyEmbedderDefaults(config)

	var client embeddings.EmbedderClient
	switch config.Provider {
	case "ollama":
		emb, err := ollama.New(ollama.WithModel(config.Model), ollama.WithServerURL(config.BaseURL))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedding model: %w", err)
		}
		client = emb
	case "openai":
		opts := []openai.Option{openai.WithEmbeddingModel(config.Model)}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		emb, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedding model: %w", err)
		}
		client = emb
	case "hash":
		return NewEmbedderWith(NewHashEmbedder(config.Dim), config), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", config.Provider)
	}

	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(config.BatchSize),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return NewEmbedderWith(embedder, config), nil
}

// NewEmbedderWith wraps any langchaingo compatible embedder.
func NewEmbedderWith(embedder embeddings.Embedder, config EmbedderConfig) *Embedder {
	config = applyEmbedderDefaults(config)

	retry := DefaultRetryConfig()
	retry.MaxRetries = config.MaxRetries
	retry.Timeout = config.Timeout

	return &Embedder{
		Config: config,
		embed:  embedder,
		retry:  retry.withDefaults(),
		log:    config.Logger.With("component", "embedder"),
	}
}

func applyEmbedderDefaults(config EmbedderConfig) EmbedderConfig {
	if config.Provider == "" {
		config.Provider = "ollama"
	}
	if config.Model == "" {
		switch config.Provider {
		case "hash":
			config.Model = "hash"
		case "openai":
			config.Model = "text-embedding-3-small"
		default:
			config.Model = "nomic-embed-text:latest" // Default Ollama model
		}
	}
	if config.BaseURL == "" && config.Provider == "ollama" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.Logger == nil {
		config.Logger = logger.Discard()
	}
	return config
}

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors, err := withRetry(ctx, e.retry, e.log, "embed_documents", func(ctx context.Context) ([][]float32, error) {
		return e.embed.EmbedDocuments(ctx, texts)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(texts))
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := withRetry(ctx, e.retry, e.log, "embed_query", func(ctx context.Context) ([]float32, error) {
		return e.embed.EmbedQuery(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create query embedding: %w", err)
	}
	return vector, nil
}
