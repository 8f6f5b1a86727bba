package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/prompts"
	"github.com/xhad/research/internal/logger"
	"github.com/xhad/research/internal/models"
	"github.com/xhad/research/internal/types"
)

// Generator turns retrieved chunks and a question into a grounded answer.
type Generator struct {
	model    types.Generator
	qa       prompts.PromptTemplate
	document prompts.PromptTemplate
	log      *slog.Logger
}

func NewGenerator(model types.Generator, log *slog.Logger) *Generator {
	if log == nil {
		log = logger.Discard()
	}
	return &Generator{
		model:    model,
		qa:       newQAPrompt(),
		document: newDocumentPrompt(),
		log:      log.With("component", "generator"),
	}
}

// Prompt renders the full model prompt for question over chunks.
func (g *Generator) Prompt(question string, chunks []models.ScoredChunk) (string, error) {
	blocks := make([]string, 0, len(chunks))
	for _, c := range chunks {
		block, err := g.document.Format(map[string]any{
			"page_content": c.Content,
			"source":       c.Source,
		})
		if err != nil {
			return "", fmt.Errorf("failed to format document: %w", err)
		}
		blocks = append(blocks, block)
	}

	return g.qa.Format(map[string]any{
		"summaries": strings.Join(blocks, "\n\n"),
		"question":  question,
	})
}

// Answer asks the model about chunks. With no chunks it returns
// FallbackAnswer without calling the model.
func (g *Generator) Answer(ctx context.Context, question string, chunks []models.ScoredChunk) (models.Answer, error) {
	if len(chunks) == 0 {
		g.log.Debug("no context retrieved, returning fallback answer")
		return models.Answer{Text: FallbackAnswer}, nil
	}

	prompt, err := g.Prompt(question, chunks)
	if err != nil {
		return models.Answer{}, err
	}

	out, err := g.model.Generate(ctx, prompt)
	if err != nil {
		return models.Answer{}, &GenerationError{Err: err}
	}

	answer := ParseAnswer(out)
	if answer.Text == "" || strings.Contains(answer.Text, FallbackAnswer) {
		// the model declined, so any sources it listed are not citations
		return models.Answer{Text: FallbackAnswer}, nil
	}
	return answer, nil
}
