package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/research/internal/models"
)

// PgVectorStore keeps records in a PostgreSQL table with a pgvector column.
type PgVectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
	table  string
	log    *slog.Logger
}

func openPgVector(ctx context.Context, config VectorStoreConfig, create bool) (*PgVectorStore, error) {
	if config.ConnString == "" {
		return nil, errors.New("database url is required for the pgvector backend")
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &PgVectorStore{
		config: config,
		pool:   pool,
		table:  pgx.Identifier{config.Collection}.Sanitize(),
		log:    config.Logger.With("component", "store", "backend", "pgvector"),
	}

	if create {
		err = vs.initialize(ctx)
	} else {
		err = vs.ensureExists(ctx)
	}
	if err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *PgVectorStore) ensureExists(ctx context.Context) error {
	var exists bool
	err := vs.pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", vs.table).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to look up table %s: %w", vs.table, err)
	}
	if !exists {
		return ErrStoreNotInitialized
	}
	return nil
}

func (vs *PgVectorStore) initialize(ctx context.Context) error {
	// Enable pgvector extension
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			title TEXT,
			content TEXT,
			chunk_index INTEGER,
			chunk_offset INTEGER,
			embedding vector(%d),
			metadata JSONB
		)`, vs.table, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	// hnsw needs no training data, so it can be built on an empty table
	index := pgx.Identifier{vs.config.Collection + "_embedding_idx"}.Sanitize()
	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s
		ON %s
		USING hnsw (embedding vector_cosine_ops)`,
		index, vs.table)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

func (vs *PgVectorStore) Upsert(ctx context.Context, records []models.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, url, title, content, chunk_index, chunk_offset, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`,
		vs.table)

	for start := 0; start < len(records); start += vs.config.BatchSize {
		end := min(start+vs.config.BatchSize, len(records))

		batch := &pgx.Batch{}
		for _, r := range records[start:end] {
			batch.Queue(stmt,
				r.ID,
				r.Chunk.Source,
				sanitizeUTF8(r.Chunk.Title),
				sanitizeUTF8(r.Chunk.Content),
				r.Chunk.Index,
				r.Chunk.Offset,
				pgvector.NewVector(r.Embedding),
				map[string]interface{}{"source": r.Chunk.Source},
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert documents: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	vs.log.Debug("stored records", "count", len(records))
	return nil
}

func (vs *PgVectorStore) Search(ctx context.Context, embedding []float32, k int) ([]models.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT url, title, content, chunk_index, chunk_offset, 1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`,
		vs.table)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var chunks []models.ScoredChunk
	for rows.Next() {
		var (
			c     models.ScoredChunk
			title *string
			score float64
		)
		if err := rows.Scan(&c.Source, &title, &c.Content, &c.Index, &c.Offset, &score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if title != nil {
			c.Title = *title
		}
		c.Score = float32(score)
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return chunks, nil
}

func (vs *PgVectorStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := vs.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", vs.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

func (vs *PgVectorStore) Reset(ctx context.Context) error {
	if _, err := vs.pool.Exec(ctx, fmt.Sprintf("TRUNCATE %s", vs.table)); err != nil {
		return fmt.Errorf("failed to truncate %s: %w", vs.table, err)
	}
	return nil
}

func (vs *PgVectorStore) Close() error {
	if vs.pool != nil {
		vs.pool.Close()
	}
	return nil
}
