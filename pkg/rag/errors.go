package rag

import (
	"errors"
	"fmt"

	"github.com/xhad/research/pkg/store"
)

// FallbackAnswer is returned when nothing relevant was retrieved.
const FallbackAnswer = "I don't have information about that in the provided documents."

var (
	// ErrStoreNotInitialized means no ingestion has created the store yet.
	// Callers should ask the user to process URLs first.
	ErrStoreNotInitialized = store.ErrStoreNotInitialized

	ErrNoURLs        = errors.New("no URLs provided")
	ErrTooManyURLs   = errors.New("too many URLs")
	ErrNoDocuments   = errors.New("none of the URLs produced any text")
	ErrEmptyQuestion = errors.New("question is empty")
)

// GenerationError wraps a language model failure that survived retries.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("answer generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
