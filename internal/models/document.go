package models

import "strings"

type Document struct {
	URL      string
	Title    string
	Content  string
	Metadata map[string]interface{}
}

// Source is the URL the document was fetched from.
func (d Document) Source() string {
	return d.URL
}

type Chunk struct {
	Content string
	Source  string
	Title   string
	Index   int // position within the source document
	Offset  int // rune offset of Content within the document text
}

type VectorRecord struct {
	ID        string
	Embedding []float32
	Chunk     Chunk
}

type ScoredChunk struct {
	Chunk
	Score float32 // cosine similarity to the query
}

type Answer struct {
	Text    string
	Sources []string
}

// SourcesText joins the sources one per line, empty when there are none.
func (a Answer) SourcesText() string {
	return strings.Join(a.Sources, "\n")
}
