// Package pgstore reads the chunk corpus from a Postgres table and serves
// similarity search over its pgvector embedding column.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"coursetutor/internal/config"
	"coursetutor/internal/domain"
	"coursetutor/internal/embedding"
)

// Store maps corpus positions onto rows of the chunk table. Position i is the
// i-th row in ascending id order.
type Store struct {
	db    *bun.DB
	table string
	ids   []int64
	pos   map[int64]int
}

type chunkRow struct {
	ID      int64  `bun:"id"`
	Content string `bun:"content"`
}

type hitRow struct {
	ID       int64   `bun:"id"`
	Content  string  `bun:"content"`
	Distance float64 `bun:"distance"`
}

// NewDB opens a bun handle over pgdriver.
func NewDB(cfg config.PostgresConfig) (*bun.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres dsn is required")
	}
	opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
	if cfg.PasswordEnv != "" {
		if pw := os.Getenv(cfg.PasswordEnv); pw != "" {
			opts = append(opts, pgdriver.WithPassword(pw))
		}
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(opts...))
	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db, nil
}

// Open connects and loads the id ordering of the chunk table.
func Open(ctx context.Context, cfg config.PostgresConfig) (*Store, []string, error) {
	db, err := NewDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	s := &Store{db: db, table: cfg.Table}
	chunks, err := s.load(ctx)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return s, chunks, nil
}

func (s *Store) load(ctx context.Context) ([]string, error) {
	var rows []chunkRow
	err := s.db.NewSelect().
		TableExpr("? AS d", bun.Ident(s.table)).
		ColumnExpr("d.id, d.content").
		OrderExpr("d.id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("load chunks from %s: %w", s.table, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("table %s holds no chunks", s.table)
	}
	s.ids = make([]int64, len(rows))
	s.pos = make(map[int64]int, len(rows))
	chunks := make([]string, len(rows))
	for i, r := range rows {
		s.ids[i] = r.ID
		s.pos[r.ID] = i
		chunks[i] = r.Content
	}
	log.Info().Str("table", s.table).Int("chunks", len(chunks)).Msg("loaded corpus from postgres")
	return chunks, nil
}

// Count returns how many chunks already carry an embedding.
func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.db.NewSelect().
		TableExpr("? AS d", bun.Ident(s.table)).
		Where("d.embedding IS NOT NULL").
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count embedded chunks: %w", err)
	}
	return n, nil
}

// Upsert writes embeddings for the chunks at the given corpus positions.
// Chunk text already lives in the table and is not rewritten.
func (s *Store) Upsert(ctx context.Context, ids []int, vectors [][]float32, texts []string) error {
	if len(ids) != len(vectors) {
		return errors.New("ids and vectors length mismatch")
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for i, p := range ids {
			if p < 0 || p >= len(s.ids) {
				return fmt.Errorf("chunk position %d out of range", p)
			}
			_, err := tx.ExecContext(ctx,
				"UPDATE ? SET embedding = ?::vector WHERE id = ?",
				bun.Ident(s.table), VectorLiteral(vectors[i]), s.ids[p])
			if err != nil {
				return fmt.Errorf("update embedding for chunk %d: %w", p, err)
			}
		}
		return nil
	})
}

// Search ranks chunks by cosine similarity using the pgvector <=> operator.
func (s *Store) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	// <=> is NaN against a zero vector
	if embedding.IsZero(vector) {
		return nil, nil
	}
	if topK <= 0 {
		topK = 5
	}
	var rows []hitRow
	err := s.db.NewSelect().
		TableExpr("? AS d", bun.Ident(s.table)).
		ColumnExpr("d.id, d.content").
		ColumnExpr("d.embedding <=> ?::vector AS distance", VectorLiteral(vector)).
		Where("d.embedding IS NOT NULL").
		OrderExpr("distance ASC").
		OrderExpr("d.id ASC").
		Limit(topK).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("pgvector search: %w", err)
	}
	results := make([]domain.SearchResult, 0, len(rows))
	for _, r := range rows {
		if math.IsNaN(r.Distance) {
			continue
		}
		p, ok := s.pos[r.ID]
		if !ok {
			// row inserted after startup
			continue
		}
		results = append(results, domain.SearchResult{Index: p, Text: r.Content, Score: 1 - r.Distance})
	}
	return results, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// VectorLiteral renders v in pgvector's text input format, e.g. [0.1,0.2].
func VectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v)*10 + 2)
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
