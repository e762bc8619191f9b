package rerank

import (
	"context"
	"errors"
	"strings"
	"testing"

	"coursetutor/internal/domain"
)

type stubLLM struct {
	out  string
	err  error
	msgs []domain.Message
	opts domain.CompletionOptions
}

func (s *stubLLM) Complete(ctx context.Context, msgs []domain.Message, opts domain.CompletionOptions) (string, error) {
	s.msgs = msgs
	s.opts = opts
	return s.out, s.err
}

func TestRerank_UsesOutputVerbatim(t *testing.T) {
	llm := &stubLLM{out: "  passage two  "}
	r := New(llm)
	got := r.RerankOrKeep(context.Background(), "What is mitosis?", "p1\n\np2")
	if got != "  passage two  " {
		t.Fatalf("got %q", got)
	}
	if llm.opts.Temperature != 0 {
		t.Fatalf("temperature = %v, want 0", llm.opts.Temperature)
	}
	if len(llm.msgs) != 1 || llm.msgs[0].Role != domain.RoleUser {
		t.Fatalf("unexpected messages: %+v", llm.msgs)
	}
	p := llm.msgs[0].Content
	if !strings.HasPrefix(p, instruction) || !strings.Contains(p, "What is mitosis?") || !strings.Contains(p, "p1\n\np2") {
		t.Fatalf("prompt missing parts: %q", p)
	}
}

func TestRerankOrKeep_FallsBack(t *testing.T) {
	tests := []struct {
		name string
		llm  *stubLLM
	}{
		{"error", &stubLLM{err: errors.New("timeout")}},
		{"blank", &stubLLM{out: " \n "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.llm).RerankOrKeep(context.Background(), "q", "original")
			if got != "original" {
				t.Fatalf("got %q, want unranked context", got)
			}
		})
	}
}

func TestRerank_ErrorIsUpstream(t *testing.T) {
	_, err := New(&stubLLM{err: errors.New("boom")}).Rerank(context.Background(), "q", "p")
	if !domain.IsUpstream(err) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}
