package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/research/internal/models"
	"github.com/xhad/research/pkg/store"
)

func localConfig(t *testing.T) store.VectorStoreConfig {
	return store.VectorStoreConfig{
		Backend:    "local",
		Path:       filepath.Join(t.TempDir(), "vectorstore"),
		Collection: "test_documents",
		VectorDim:  3,
	}
}

func testRecords(t *testing.T) []models.VectorRecord {
	chunks := []models.Chunk{
		{Content: "Unit A is priced at $500,000.", Source: "https://example.com/a", Title: "Unit A", Index: 0},
		{Content: "Unit A has two bedrooms.", Source: "https://example.com/a", Title: "Unit A", Index: 1, Offset: 30},
		{Content: "Unit B has a garden.", Source: "https://example.com/b", Title: "Unit B", Index: 0},
	}
	records, err := store.NewRecords(chunks, [][]float32{
		{1, 0, 0},
		{0.8, 0.6, 0},
		{0, 0, 1},
	})
	require.NoError(t, err)
	return records
}

func TestOpenMissingStore(t *testing.T) {
	_, err := store.Open(context.Background(), localConfig(t))
	assert.ErrorIs(t, err, store.ErrStoreNotInitialized)
}

func TestOpenMissingCollection(t *testing.T) {
	ctx := context.Background()
	config := localConfig(t)

	s, err := store.LoadOrCreate(ctx, config)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	config.Collection = "other"
	_, err = store.Open(ctx, config)
	assert.ErrorIs(t, err, store.ErrStoreNotInitialized)
}

func TestLocalStoreUpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	s, err := store.LoadOrCreate(ctx, localConfig(t))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Upsert(ctx, testRecords(t)))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	results, err := s.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Unit A is priced at $500,000.", results[0].Content)
	assert.Equal(t, "https://example.com/a", results[0].Source)
	assert.Equal(t, "Unit A", results[0].Title)
	assert.InDelta(t, 1.0, results[0].Score, 1e-4)
	assert.Equal(t, 1, results[1].Index)
	assert.Equal(t, 30, results[1].Offset)
	assert.InDelta(t, 0.8, results[1].Score, 1e-4)
}

func TestLocalStoreSearchMoreThanStored(t *testing.T) {
	ctx := context.Background()
	s, err := store.LoadOrCreate(ctx, localConfig(t))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Upsert(ctx, testRecords(t)))

	results, err := s.Search(ctx, []float32{0, 0, 1}, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "https://example.com/b", results[0].Source)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestLocalStoreEmptySearch(t *testing.T) {
	ctx := context.Background()
	s, err := store.LoadOrCreate(ctx, localConfig(t))
	require.NoError(t, err)
	defer s.Close()

	results, err := s.Search(ctx, []float32{1, 0, 0}, 4)
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, s.Upsert(ctx, nil))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLocalStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	config := localConfig(t)

	s, err := store.LoadOrCreate(ctx, config)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx, testRecords(t)))
	require.NoError(t, s.Close())

	reopened, err := store.Open(ctx, config)
	require.NoError(t, err)
	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	again, err := store.LoadOrCreate(ctx, config)
	require.NoError(t, err)
	n, err = again.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	results, err := again.Search(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Unit A is priced at $500,000.", results[0].Content)
}

func TestLocalStoreAccumulatesAndResets(t *testing.T) {
	ctx := context.Background()
	s, err := store.LoadOrCreate(ctx, localConfig(t))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Upsert(ctx, testRecords(t)))
	require.NoError(t, s.Upsert(ctx, testRecords(t)))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	require.NoError(t, s.Reset(ctx))
	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNewRecords(t *testing.T) {
	records := testRecords(t)
	assert.NotEqual(t, records[0].ID, records[1].ID)
	assert.Equal(t, []float32{0, 0, 1}, records[2].Embedding)

	_, err := store.NewRecords([]models.Chunk{{Content: "x"}}, nil)
	assert.Error(t, err)
}

func TestUnknownBackend(t *testing.T) {
	_, err := store.LoadOrCreate(context.Background(), store.VectorStoreConfig{Backend: "redis"})
	assert.Error(t, err)
}
