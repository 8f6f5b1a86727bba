package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/research/pkg/rag"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"ingest", "ask", "chat", "serve"})
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestIngestRequiresURL(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"ingest"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestChatURLDetection(t *testing.T) {
	line := "https://example.com/a and http://example.com/b what is the price?"
	assert.Equal(t, []string{"https://example.com/a", "http://example.com/b"}, urlRegex.FindAllString(line, -1))
}

func closedStatuses(statuses ...rag.Status) <-chan rag.Status {
	ch := make(chan rag.Status, len(statuses))
	for _, s := range statuses {
		ch <- s
	}
	close(ch)
	return ch
}

func TestRunIngestion(t *testing.T) {
	err := runIngestion(context.Background(), closedStatuses(
		rag.Status{Message: "Loading URLs..."},
		rag.Status{Message: "Done adding 2 chunks to the vector store", Chunks: 2},
	))
	assert.NoError(t, err)

	fatal := errors.New("vector store unavailable")
	err = runIngestion(context.Background(), closedStatuses(rag.Status{Message: "Embedding and storing...", Err: fatal}))
	assert.ErrorIs(t, err, fatal)
}

func TestRunIngestionCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runIngestion(ctx, closedStatuses(rag.Status{Message: "Loading URLs..."}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIngestQuiet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><title>Unit A</title></head><body><p>The price of unit A is $500,000.</p></body></html>`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "llm:\n  embedding_provider: hash\nstore:\n  path: " + filepath.Join(dir, "vectorstore") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	t.Setenv("RESEARCH_STORE_PATH", "")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs([]string{"--config", path, "--log-level", "error", "ingest", "--quiet", srv.URL + "/unit-a"})
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Equal(t, "1\n", out.String())
}
