package rag_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/research/internal/models"
	"github.com/xhad/research/pkg/rag"
)

// echoModel answers with the first context passage and cites every source
// it was shown.
type echoModel struct {
	calls   int
	prompts []string
	reply   string
	err     error
}

func (m *echoModel) Generate(ctx context.Context, prompt string) (string, error) {
	m.calls++
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	if m.reply != "" {
		return m.reply, nil
	}

	var content string
	var sources []string
	for _, line := range strings.Split(prompt, "\n") {
		if strings.HasPrefix(line, "Content: ") && content == "" {
			content = strings.TrimPrefix(line, "Content: ")
		}
		if strings.HasPrefix(line, "Source: ") {
			sources = append(sources, strings.TrimPrefix(line, "Source: "))
		}
	}
	return content + "\n\nSources:\n" + strings.Join(sources, "\n"), nil
}

func scored(content, source string, score float32) models.ScoredChunk {
	return models.ScoredChunk{
		Chunk: models.Chunk{Content: content, Source: source},
		Score: score,
	}
}

func TestGeneratorPrompt(t *testing.T) {
	g := rag.NewGenerator(&echoModel{}, nil)

	prompt, err := g.Prompt("What is the price of unit A?", []models.ScoredChunk{
		scored("The price of unit A is $500,000.", "https://example.com/a", 0.9),
		scored("Unit B has a garden.", "https://example.com/b", 0.4),
	})
	require.NoError(t, err)

	assert.Contains(t, prompt, "Content: The price of unit A is $500,000.\nSource: https://example.com/a\n\nContent: Unit B has a garden.\nSource: https://example.com/b")
	assert.Contains(t, prompt, "Question: What is the price of unit A?")
	assert.Contains(t, prompt, rag.FallbackAnswer)
	assert.True(t, strings.HasSuffix(prompt, "Answer:"))
}

func TestGeneratorAnswer(t *testing.T) {
	model := &echoModel{}
	g := rag.NewGenerator(model, nil)

	answer, err := g.Answer(context.Background(), "What is the price of unit A?", []models.ScoredChunk{
		scored("The price of unit A is $500,000.", "https://example.com/a", 0.9),
	})
	require.NoError(t, err)
	assert.Equal(t, "The price of unit A is $500,000.", answer.Text)
	assert.Equal(t, []string{"https://example.com/a"}, answer.Sources)
	assert.Equal(t, 1, model.calls)
}

func TestGeneratorNoContextSkipsModel(t *testing.T) {
	model := &echoModel{}
	g := rag.NewGenerator(model, nil)

	answer, err := g.Answer(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.Equal(t, rag.FallbackAnswer, answer.Text)
	assert.Empty(t, answer.Sources)
	assert.Zero(t, model.calls)
}

func TestGeneratorDeclinedAnswerDropsSources(t *testing.T) {
	model := &echoModel{reply: rag.FallbackAnswer + "\nSources:\nhttps://example.com/a"}
	g := rag.NewGenerator(model, nil)

	answer, err := g.Answer(context.Background(), "Who won the match?", []models.ScoredChunk{
		scored("Unit B has a garden.", "https://example.com/a", 0.2),
	})
	require.NoError(t, err)
	assert.Equal(t, rag.FallbackAnswer, answer.Text)
	assert.Empty(t, answer.Sources)
}

func TestGeneratorModelFailure(t *testing.T) {
	cause := errors.New("quota exceeded")
	g := rag.NewGenerator(&echoModel{err: cause}, nil)

	_, err := g.Answer(context.Background(), "price?", []models.ScoredChunk{
		scored("The price of unit A is $500,000.", "https://example.com/a", 0.9),
	})
	require.Error(t, err)

	var genErr *rag.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.ErrorIs(t, err, cause)
}
