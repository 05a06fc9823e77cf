// Package pgvector adapts a PostgreSQL database with the pgvector extension
// to indexing.VectorIndex. All namespaces share one table.
package pgvector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"
	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/indexing"
)

// DefaultTable holds every vector, keyed by namespace and ID.
const DefaultTable = "docsift_vectors"

var (
	ErrPoolRequired = errors.New("connection pool is required")
	ErrInvalidTable = errors.New("invalid table name")
)

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Index is a VectorIndex backed by pgvector.
type Index struct {
	pool   *pgxpool.Pool
	table  string
	logger *slog.Logger
}

var (
	_ indexing.VectorIndex   = (*Index)(nil)
	_ indexing.FilterDeleter = (*Index)(nil)
)

// Option configures an Index.
type Option func(*Index) error

// WithTable overrides DefaultTable.
func WithTable(name string) Option {
	return func(x *Index) error {
		if !tableName.MatchString(name) {
			return fmt.Errorf("%w: %q", ErrInvalidTable, name)
		}
		x.table = name
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(x *Index) error {
		if logger == nil {
			logger = slog.Default()
		}
		x.logger = logger.With("component", "pgvector-index")
		return nil
	}
}

// New wraps pool. Call Migrate once before first use.
func New(pool *pgxpool.Pool, opts ...Option) (*Index, error) {
	if pool == nil {
		return nil, ErrPoolRequired
	}
	x := &Index{
		pool:   pool,
		table:  DefaultTable,
		logger: slog.Default().With("component", "pgvector-index"),
	}
	for _, opt := range opts {
		if err := opt(x); err != nil {
			return nil, err
		}
	}
	return x, nil
}

// Connect opens a pool for dsn and wraps it.
func Connect(ctx context.Context, dsn string, opts ...Option) (*Index, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	x, err := New(pool, opts...)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return x, nil
}

// Close releases the pool.
func (x *Index) Close() {
	x.pool.Close()
}

func (x *Index) ident() string {
	return pgx.Identifier{x.table}.Sanitize()
}

// Migrate creates the extension and the vector table if missing.
func (x *Index) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			namespace TEXT NOT NULL,
			id TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			embedding vector NOT NULL,
			PRIMARY KEY (namespace, id)
		)`, x.ident()),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING GIN (metadata jsonb_path_ops)`,
			pgx.Identifier{x.table + "_metadata_idx"}.Sanitize(), x.ident()),
	}
	for _, stmt := range stmts {
		if _, err := x.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate vector table: %w", err)
		}
	}
	return nil
}

// Upsert adds or replaces vectors in one round trip.
func (x *Index) Upsert(ctx context.Context, namespace string, vectors []core.Embedding) error {
	if namespace == "" {
		return indexing.ErrNamespaceEmpty
	}
	if len(vectors) == 0 {
		return nil
	}
	query := fmt.Sprintf(`INSERT INTO %s (namespace, id, metadata, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (namespace, id) DO UPDATE
		SET metadata = EXCLUDED.metadata, embedding = EXCLUDED.embedding`, x.ident())

	batch := &pgx.Batch{}
	for _, v := range vectors {
		meta := v.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		batch.Queue(query, namespace, v.ID, meta, pgv.NewVector(v.Values))
	}
	if err := x.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert vectors: %w", err)
	}
	x.logger.Debug("upserted vectors", "namespace", namespace, "count", len(vectors))
	return nil
}

// Query returns the req.TopK nearest vectors by cosine distance. A zero
// vector lists matches unranked with a zero score.
func (x *Index) Query(ctx context.Context, namespace string, req indexing.QueryRequest) ([]indexing.Match, error) {
	if namespace == "" {
		return nil, indexing.ErrNamespaceEmpty
	}
	if req.TopK < 1 {
		return []indexing.Match{}, nil
	}

	args := []any{namespace}
	where, args, err := whereClause(req.Filter, args)
	if err != nil {
		return nil, err
	}

	var query string
	if indexing.IsZeroVector(req.Vector) {
		args = append(args, req.TopK)
		query = fmt.Sprintf(`SELECT id, metadata, 0::float8 FROM %s
			WHERE namespace = $1 AND %s
			LIMIT $%d`, x.ident(), where, len(args))
	} else {
		args = append(args, pgv.NewVector(req.Vector), req.TopK)
		query = fmt.Sprintf(`SELECT id, metadata, 1 - (embedding <=> $%d) FROM %s
			WHERE namespace = $1 AND %s
			ORDER BY embedding <=> $%d
			LIMIT $%d`, len(args)-1, x.ident(), where, len(args)-1, len(args))
	}

	rows, err := x.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer rows.Close()

	matches := []indexing.Match{}
	for rows.Next() {
		var (
			m     indexing.Match
			score float64
		)
		if err := rows.Scan(&m.ID, &m.Metadata, &score); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		m.Score = float32(score)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read matches: %w", err)
	}
	return matches, nil
}

// Delete removes vectors by ID.
func (x *Index) Delete(ctx context.Context, namespace string, ids []string) error {
	if namespace == "" {
		return indexing.ErrNamespaceEmpty
	}
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE namespace = $1 AND id = ANY($2)`, x.ident())
	if _, err := x.pool.Exec(ctx, query, namespace, ids); err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}
	return nil
}

// DeleteByFilter removes every vector in namespace matching filter.
func (x *Index) DeleteByFilter(ctx context.Context, namespace string, filter indexing.Filter) (int, error) {
	if namespace == "" {
		return 0, indexing.ErrNamespaceEmpty
	}
	if len(filter) == 0 {
		return 0, indexing.ErrEmptyFilter
	}
	where, args, err := whereClause(filter, []any{namespace})
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE namespace = $1 AND %s`, x.ident(), where)
	tag, err := x.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete vectors: %w", err)
	}
	x.logger.Debug("deleted by filter", "namespace", namespace, "count", tag.RowsAffected())
	return int(tag.RowsAffected()), nil
}
