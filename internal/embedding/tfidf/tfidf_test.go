package tfidf

import (
	"context"
	"math"
	"testing"
)

func TestEmbed_RequiresPrepare(t *testing.T) {
	e := NewEmbedder()
	if _, err := e.Embed(context.Background(), []string{"x"}, true); err == nil {
		t.Fatalf("expected error before Prepare")
	}
}

func TestEmbed_NormalizedAndDeterministic(t *testing.T) {
	e := NewEmbedder()
	corpus := []string{
		"Photosynthesis converts light energy into chemical energy.",
		"Mitosis produces identical daughter cells.",
	}
	if err := e.Prepare(corpus); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if e.Dimension() == 0 {
		t.Fatalf("expected non-zero dimension")
	}
	vecs, err := e.Embed(context.Background(), []string{"light energy", "light energy"}, true)
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	var norm float64
	for i, v := range vecs[0] {
		norm += float64(v) * float64(v)
		if vecs[1][i] != v {
			t.Fatalf("embedding not deterministic at %d", i)
		}
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Fatalf("norm^2 = %v, want 1", norm)
	}
}

func TestEmbed_UnknownTermsGiveZeroVector(t *testing.T) {
	e := NewEmbedder()
	if err := e.Prepare([]string{"alpha beta"}); err != nil {
		t.Fatal(err)
	}
	vecs, err := e.Embed(context.Background(), []string{"what is the zeta"}, true)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range vecs[0] {
		if v != 0 {
			t.Fatalf("expected zero vector, got %v", vecs[0])
		}
	}
}

func TestEmbed_CancelledContext(t *testing.T) {
	e := NewEmbedder()
	if err := e.Prepare([]string{"alpha beta"}); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Embed(ctx, []string{"alpha"}, true); err == nil {
		t.Fatalf("expected context error")
	}
}
