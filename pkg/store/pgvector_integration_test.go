//go:build integration

package store_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/xhad/research/pkg/store"
)

var databaseURL string

func TestMain(m *testing.M) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"pgvector/pgvector:pg17",
		postgres.WithDatabase("research"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("error starting postgres container: %v", err)
	}

	databaseURL, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("error getting connection string: %v", err)
	}

	code := m.Run()

	if err := pgContainer.Terminate(ctx); err != nil {
		log.Fatalf("error tearing down postgres container: %v", err)
	}
	os.Exit(code)
}

func pgConfig(table string) store.VectorStoreConfig {
	return store.VectorStoreConfig{
		Backend:    "pgvector",
		ConnString: databaseURL,
		Collection: table,
		VectorDim:  3,
		BatchSize:  2,
	}
}

func TestPgVectorOpenMissingTable(t *testing.T) {
	_, err := store.Open(context.Background(), pgConfig("missing_documents"))
	assert.ErrorIs(t, err, store.ErrStoreNotInitialized)
}

func TestPgVectorStore(t *testing.T) {
	ctx := context.Background()
	s, err := store.LoadOrCreate(ctx, pgConfig("test_documents"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Upsert(ctx, testRecords(t)))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	results, err := s.Search(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "Unit A is priced at $500,000.", results[0].Content)
	assert.Equal(t, "https://example.com/a", results[0].Source)
	assert.InDelta(t, 1.0, results[0].Score, 1e-4)
	assert.InDelta(t, 0.8, results[1].Score, 1e-4)

	reopened, err := store.Open(ctx, pgConfig("test_documents"))
	require.NoError(t, err)
	defer reopened.Close()
	n, err = reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, s.Reset(ctx))
	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
