package pgstore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"coursetutor/internal/config"
)

func TestVectorLiteral(t *testing.T) {
	tests := []struct {
		in   []float32
		want string
	}{
		{nil, "[]"},
		{[]float32{1}, "[1]"},
		{[]float32{0.5, -0.25, 0}, "[0.5,-0.25,0]"},
	}
	for _, tt := range tests {
		if got := VectorLiteral(tt.in); got != tt.want {
			t.Fatalf("VectorLiteral(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewDB_RequiresDSN(t *testing.T) {
	if _, err := NewDB(config.PostgresConfig{}); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

// TestStore_Postgres runs against a real pgvector database when
// COURSETUTOR_TEST_PG_DSN is set.
func TestStore_Postgres(t *testing.T) {
	dsn := os.Getenv("COURSETUTOR_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("COURSETUTOR_TEST_PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	table := fmt.Sprintf("coursetutor_test_%d", time.Now().UnixNano())
	cfg := config.PostgresConfig{DSN: dsn, Table: table}
	db, err := NewDB(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mustExec := func(q string, args ...any) {
		t.Helper()
		if _, err := db.ExecContext(ctx, q, args...); err != nil {
			t.Fatalf("exec %q: %v", q, err)
		}
	}
	mustExec("CREATE EXTENSION IF NOT EXISTS vector")
	mustExec("CREATE TABLE ? (id bigserial PRIMARY KEY, content text NOT NULL, embedding vector(2))", bun.Ident(table))
	defer mustExec("DROP TABLE IF EXISTS ?", bun.Ident(table))
	mustExec("INSERT INTO ? (content) VALUES ('alpha'), ('beta'), ('gamma')", bun.Ident(table))

	s, chunks, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()
	if len(chunks) != 3 || chunks[0] != "alpha" || chunks[2] != "gamma" {
		t.Fatalf("unexpected chunks: %v", chunks)
	}

	if n, err := s.Count(ctx); err != nil || n != 0 {
		t.Fatalf("Count before upsert = %d, %v", n, err)
	}
	vecs := [][]float32{{1, 0}, {0, 1}, {0.6, 0.8}}
	if err := s.Upsert(ctx, []int{0, 1, 2}, vecs, chunks); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if n, _ := s.Count(ctx); n != 3 {
		t.Fatalf("Count after upsert = %d", n)
	}

	res, err := s.Search(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(res) != 2 || res[0].Index != 0 || res[1].Index != 2 {
		t.Fatalf("unexpected results: %+v", res)
	}
	if res[0].Score < 0.99 {
		t.Fatalf("top score = %v", res[0].Score)
	}
}
