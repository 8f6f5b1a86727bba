package processor_test

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/research/internal/models"
	"github.com/xhad/research/pkg/processor"
)

const sample = "This is a test document. It contains several sentences to demonstrate text processing.\n\n" +
	"A second paragraph follows! Does it split on questions? It should prefer natural boundaries.\n" +
	"Finally a line without much punctuation but enough words to wrap around a few times"

func TestProcessor_Split(t *testing.T) {
	p, err := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    50,
		ChunkOverlap: 10,
	})
	require.NoError(t, err)

	docs := []models.Document{
		{URL: "https://example.com/a", Title: "A", Content: sample},
		{URL: "https://example.com/b", Title: "B", Content: "short"},
	}

	chunks, err := p.Split(docs)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	var fromA []models.Chunk
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), 50)
		if c.Source == "https://example.com/a" {
			assert.Equal(t, "A", c.Title)
			fromA = append(fromA, c)
		}
	}

	last := chunks[len(chunks)-1]
	assert.Equal(t, "https://example.com/b", last.Source)
	assert.Equal(t, "short", last.Content)
	assert.Equal(t, 0, last.Index)

	assert.Equal(t, sample, processor.Reassemble(fromA, 10))
	assert.True(t, strings.HasPrefix(fromA[0].Content, "This is a test document. "))
}

func TestProcessor_PrefersNaturalBoundaries(t *testing.T) {
	p, err := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 40, ChunkOverlap: 0})
	require.NoError(t, err)

	chunks, err := p.Split([]models.Document{{URL: "u", Content: "First paragraph here.\n\nSecond paragraph is here."}})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "First paragraph here.\n\n", chunks[0].Content)
	assert.Equal(t, "Second paragraph is here.", chunks[1].Content)
	assert.Equal(t, 23, chunks[1].Offset)
}

func TestProcessor_HardCutWithoutBoundary(t *testing.T) {
	p, err := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 4, ChunkOverlap: 1})
	require.NoError(t, err)

	chunks, err := p.Split([]models.Document{{URL: "u", Content: "abcdefghij"}})
	require.NoError(t, err)

	var got []string
	for _, c := range chunks {
		got = append(got, c.Content)
	}
	assert.Equal(t, []string{"abcd", "defg", "ghij"}, got)
}

func TestProcessor_OverlapRepeatsTail(t *testing.T) {
	p, err := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 30, ChunkOverlap: 8})
	require.NoError(t, err)

	chunks, err := p.Split([]models.Document{{URL: "u", Content: sample}})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 2)

	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Content)
		cur := []rune(chunks[i].Content)
		assert.Equal(t, string(prev[len(prev)-8:]), string(cur[:8]), "chunk %d", i)
	}
}

func TestProcessor_RoundTrip(t *testing.T) {
	texts := []string{
		sample,
		"ünïcödé wörds with spécial chàracters. Ånd more! ",
		strings.Repeat("word ", 97),
		"x",
	}

	for _, text := range texts {
		for size := 1; size <= 60; size += 7 {
			for _, overlap := range []int{0, size / 3, size - 1} {
				t.Run(fmt.Sprintf("size=%d/overlap=%d", size, overlap), func(t *testing.T) {
					p, err := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: size, ChunkOverlap: overlap})
					require.NoError(t, err)

					chunks, err := p.Split([]models.Document{{URL: "u", Content: text}})
					require.NoError(t, err)
					for _, c := range chunks {
						assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), size)
					}
					assert.Equal(t, text, processor.Reassemble(chunks, overlap))
				})
			}
		}
	}
}

func TestProcessor_EmptyDocument(t *testing.T) {
	p, err := processor.NewWithConfig(processor.ProcessorConfig{})
	require.NoError(t, err)

	chunks, err := p.Split([]models.Document{{URL: "u", Content: ""}})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestNewWithConfig_InvalidOverlap(t *testing.T) {
	_, err := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 100, ChunkOverlap: 100})
	assert.ErrorIs(t, err, processor.ErrInvalidConfig)

	_, err = processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 100, ChunkOverlap: -1})
	assert.ErrorIs(t, err, processor.ErrInvalidConfig)

	_, err = processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: -5})
	assert.ErrorIs(t, err, processor.ErrInvalidConfig)
}
