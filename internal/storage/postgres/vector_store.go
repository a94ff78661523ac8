// Package postgres provides a pgvector-backed vector store.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/ragsearch-crawler/internal/rag"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// VectorStoreConfig controls the Postgres connection pool and the
// pgvector table backing the store.
type VectorStoreConfig struct {
	DSN             string
	Table           string
	Dimensions      int
	Metric          rag.DistanceMetric
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close()
}

// VectorStore persists embedded chunks in a pgvector table.
type VectorStore struct {
	pool   pgxPool
	table  string
	dims   int
	metric rag.DistanceMetric
}

// NewVectorStore connects to Postgres and ensures the pgvector schema
// exists.
func NewVectorStore(ctx context.Context, cfg VectorStoreConfig) (*VectorStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("vector.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewVectorStoreWithPool(pool, cfg.Table, cfg.Dimensions, cfg.Metric)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewVectorStoreWithPool constructs a store from an existing pool
// (primarily for testing). It does not touch the schema.
func NewVectorStoreWithPool(pool pgxPool, table string, dims int, metric rag.DistanceMetric) (*VectorStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "chunks"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if dims <= 0 {
		return nil, fmt.Errorf("vector dimensions must be > 0")
	}
	if !metric.Valid() {
		return nil, fmt.Errorf("invalid distance metric %q", metric)
	}
	return &VectorStore{pool: pool, table: table, dims: dims, metric: metric}, nil
}

// EnsureSchema creates the pgvector extension, the chunk table and the
// collection index if they do not exist.
func (s *VectorStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id UUID PRIMARY KEY,
	collection TEXT NOT NULL,
	embedding vector(%d) NOT NULL,
	chunk_text TEXT NOT NULL,
	url TEXT NOT NULL,
	title TEXT,
	domain TEXT NOT NULL,
	seq INT NOT NULL,
	content_hash TEXT
)`, s.table, s.dims),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_collection_idx ON %s (collection)`, s.table, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *VectorStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *VectorStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Upsert writes one embedded chunk, replacing any previous row with
// the same ID so re-crawls overwrite in place.
func (s *VectorStore) Upsert(ctx context.Context, collection string, v rag.StoredVector) error {
	if v.ID == "" {
		return fmt.Errorf("vector id is required")
	}
	if len(v.Vector) != s.dims {
		return fmt.Errorf("vector has %d dimensions, store expects %d", len(v.Vector), s.dims)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (id, collection, embedding, chunk_text, url, title, domain, seq, content_hash)
VALUES ($1, $2, $3::vector, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
	embedding = EXCLUDED.embedding,
	chunk_text = EXCLUDED.chunk_text,
	url = EXCLUDED.url,
	title = EXCLUDED.title,
	seq = EXCLUDED.seq,
	content_hash = EXCLUDED.content_hash`, s.table)

	args := []any{
		v.ID,
		collection,
		encodeVector(v.Vector),
		v.Payload.Text,
		v.Payload.URL,
		v.Payload.Title,
		v.Payload.Domain,
		v.Payload.Seq,
		v.Payload.ContentHash,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert chunk: %w", err)
	}
	return nil
}

// Query returns the k nearest chunks in the collection, best first.
func (s *VectorStore) Query(ctx context.Context, collection string, vector []float32, k int) ([]rag.Match, error) {
	if len(vector) != s.dims {
		return nil, fmt.Errorf("query vector has %d dimensions, store expects %d", len(vector), s.dims)
	}
	query := fmt.Sprintf(`
SELECT chunk_text, url, title, seq, embedding %s $2::vector AS dist
FROM %s
WHERE collection = $1
ORDER BY dist ASC
LIMIT $3`, s.operator(), s.table)

	rows, err := s.pool.Query(ctx, query, collection, encodeVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var matches []rag.Match
	for rows.Next() {
		var (
			m    rag.Match
			dist float64
		)
		if err := rows.Scan(&m.Text, &m.URL, &m.Title, &m.Seq, &dist); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		m.Score = s.score(dist)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk rows: %w", err)
	}
	return matches, nil
}

func (s *VectorStore) operator() string {
	switch s.metric {
	case rag.MetricEuclidean:
		return "<->"
	case rag.MetricDot:
		return "<#>"
	default:
		return "<=>"
	}
}

// score converts a pgvector distance to a higher-is-better score.
// Cosine distance maps to similarity; the other operators are negated
// (<#> already yields the negative inner product).
func (s *VectorStore) score(dist float64) float32 {
	if s.metric == rag.MetricCosine {
		return float32(1 - dist)
	}
	return float32(-dist)
}

func encodeVector(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
