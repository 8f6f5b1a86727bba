package processor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xhad/research/internal/models"
)

var ErrInvalidConfig = errors.New("invalid processor config")

type ProcessorConfig struct {
	ChunkSize    int // in runes
	ChunkOverlap int // in runes, must be smaller than ChunkSize
}

type Processor struct {
	config ProcessorConfig
}

// separators in order of preference. A chunk ends right after the
// separator so no text is dropped between chunks.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", " "}

func NewWithConfig(config ProcessorConfig) (*Processor, error) {
	if config.ChunkSize == 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkSize < 1 {
		return nil, fmt.Errorf("%w: chunk size must be positive", ErrInvalidConfig)
	}
	if config.ChunkOverlap < 0 || config.ChunkOverlap >= config.ChunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be non-negative and less than chunk size %d",
			ErrInvalidConfig, config.ChunkOverlap, config.ChunkSize)
	}

	return &Processor{
		config: config,
	}, nil
}

// Split turns documents into overlapping chunks. Each chunk keeps the
// source URL and title of the document it came from.
func (p *Processor) Split(docs []models.Document) ([]models.Chunk, error) {
	var chunks []models.Chunk

	for _, doc := range docs {
		for i, span := range p.splitIntoChunks(doc.Content) {
			chunks = append(chunks, models.Chunk{
				Content: span.text,
				Source:  doc.Source(),
				Title:   doc.Title,
				Index:   i,
				Offset:  span.offset,
			})
		}
	}

	return chunks, nil
}

type span struct {
	text   string
	offset int
}

func (p *Processor) splitIntoChunks(text string) []span {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	size, overlap := p.config.ChunkSize, p.config.ChunkOverlap
	var spans []span

	start := 0
	for {
		end := start + size
		if end >= len(runes) {
			spans = append(spans, span{text: string(runes[start:]), offset: start})
			return spans
		}

		// The cut must land after start+overlap so the next chunk moves forward.
		cut := findBoundary(runes, start+overlap+1, end)
		spans = append(spans, span{text: string(runes[start:cut]), offset: start})
		start = cut - overlap
	}
}

// findBoundary returns the position right after the last preferred
// separator that ends inside [lo, hi], or hi when none does.
func findBoundary(runes []rune, lo, hi int) int {
	for _, sep := range separators {
		sepRunes := []rune(sep)
		for pos := hi; pos >= lo; pos-- {
			if endsWith(runes[:pos], sepRunes) {
				return pos
			}
		}
	}
	return hi
}

func endsWith(runes, suffix []rune) bool {
	if len(runes) < len(suffix) {
		return false
	}
	for i := range suffix {
		if runes[len(runes)-len(suffix)+i] != suffix[i] {
			return false
		}
	}
	return true
}

// Reassemble joins chunks of one document back into its text by dropping
// the overlapping head of every chunk after the first.
func Reassemble(chunks []models.Chunk, overlap int) string {
	var b strings.Builder
	for i, c := range chunks {
		if i == 0 {
			b.WriteString(c.Content)
			continue
		}
		b.WriteString(string([]rune(c.Content)[overlap:]))
	}
	return b.String()
}
