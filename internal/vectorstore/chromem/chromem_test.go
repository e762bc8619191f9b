package chromem

import (
	"context"
	"math"
	"testing"
)

func TestStorage_UpsertAndSearch(t *testing.T) {
	s, err := Open(Config{Collection: "course", InMemory: true})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	ctx := context.Background()
	if n, _ := s.Count(ctx); n != 0 {
		t.Fatalf("fresh collection count = %d", n)
	}
	if res, err := s.Search(ctx, []float32{1, 0}, 3); err != nil || res != nil {
		t.Fatalf("empty search = %v, %v", res, err)
	}

	err = s.Upsert(ctx,
		[]int{0, 1, 2},
		[][]float32{{1, 0}, {0, 1}, {0.6, 0.8}},
		[]string{"zero", "one", "two"},
	)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if n, _ := s.Count(ctx); n != 3 {
		t.Fatalf("count = %d, want 3", n)
	}

	// more than stored is clamped
	res, err := s.Search(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(res) != 3 {
		t.Fatalf("expected 3 results, got %d", len(res))
	}
	if res[0].Index != 0 || res[0].Text != "zero" {
		t.Fatalf("unexpected top result: %+v", res[0])
	}
	if res[1].Index != 2 {
		t.Fatalf("unexpected second result: %+v", res[1])
	}
}

func TestOpen_RequiresCollection(t *testing.T) {
	if _, err := Open(Config{InMemory: true}); err == nil {
		t.Fatalf("expected error without collection name")
	}
}

func TestStorage_Persistent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s, err := Open(Config{Path: dir, Collection: "course"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Upsert(ctx, []int{5}, [][]float32{{1, 0}}, []string{"five"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	reopened, err := Open(Config{Path: dir, Collection: "course"})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if n, _ := reopened.Count(ctx); n != 1 {
		t.Fatalf("reopened count = %d, want 1", n)
	}
	res, err := reopened.Search(ctx, []float32{1, 0}, 1)
	if err != nil || len(res) != 1 || res[0].Index != 5 {
		t.Fatalf("reopened search = %+v, %v", res, err)
	}
}

func TestStorage_ZeroVectors(t *testing.T) {
	s, err := Open(Config{Collection: "course", InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	// chunk 1 had only stopwords and embedded to the zero vector
	err = s.Upsert(ctx,
		[]int{0, 1, 2},
		[][]float32{{0, 1}, {0, 0}, {0.6, 0.8}},
		[]string{"zero", "the of and", "two"},
	)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if n, _ := s.Count(ctx); n != 3 {
		t.Fatalf("count = %d, want 3", n)
	}

	res, err := s.Search(ctx, []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(res) != 2 || res[0].Index != 2 || res[1].Index != 0 {
		t.Fatalf("unexpected results: %+v", res)
	}
	for _, r := range res {
		if math.IsNaN(r.Score) {
			t.Fatalf("NaN score in %+v", res)
		}
	}

	if res, err := s.Search(ctx, []float32{0, 0}, 3); err != nil || res != nil {
		t.Fatalf("zero query = %+v, %v", res, err)
	}
}
