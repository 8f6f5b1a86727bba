package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/xhad/research/internal/logger"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Provider    string // ollama or openai
	Model       string
	Temperature float64
	MaxTokens   int
	BaseURL     string // Ollama server URL or OpenAI compatible endpoint
	Timeout     time.Duration
	MaxRetries  int
	Logger      *slog.Logger
}

// ChatEngine sends filled prompts to the language model.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
	retry  RetryConfig
	log    *slog.Logger
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	config, err := applyChatDefaults(config)
	if err != nil {
		return nil, err
	}

	var model llms.Model
	switch config.Provider {
	case "ollama":
		model, err = ollama.New(ollama.WithModel(config.Model),
			ollama.WithServerURL(config.BaseURL))
	case "openai":
		opts := []openai.Option{openai.WithModel(config.Model)}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		model, err = openai.New(opts...)
	default:
		return nil, fmt.Errorf("unknown provider: %s", config.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return NewWithModel(model, config)
}

// NewWithModel wraps an already constructed model.
func NewWithModel(model llms.Model, config ChatConfig) (*ChatEngine, error) {
	if model == nil {
		return nil, fmt.Errorf("model is required")
	}
	config, err := applyChatDefaults(config)
	if err != nil {
		return nil, err
	}

	retry := DefaultRetryConfig()
	retry.MaxRetries = config.MaxRetries
	retry.Timeout = config.Timeout

	return &ChatEngine{
		config: config,
		llm:    model,
		retry:  retry.withDefaults(),
		log:    config.Logger.With("component", "chat"),
	}, nil
}

func applyChatDefaults(config ChatConfig) (ChatConfig, error) {
	if config.Provider == "" {
		config.Provider = "ollama"
	}
	if config.Model == "" {
		config.Model = "mistral" // Default Ollama model
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return config, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return config, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 500
	}
	if config.BaseURL == "" && config.Provider == "ollama" {
		config.BaseURL = "http://localhost:11434" // Default Ollama URL
	}
	if config.Logger == nil {
		config.Logger = logger.Discard()
	}
	return config, nil
}

// Generate sends a single filled prompt and returns the model's text.
func (ce *ChatEngine) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	out, err := withRetry(ctx, ce.retry, ce.log, "generate", func(ctx context.Context) (string, error) {
		return llms.GenerateFromSinglePrompt(ctx, ce.llm, prompt,
			llms.WithTemperature(ce.config.Temperature),
			llms.WithMaxTokens(ce.config.MaxTokens),
		)
	})
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}

	ce.log.Debug("generated response", "model", ce.config.Model, "chars", len(out), "took", time.Since(start))
	return out, nil
}
