// Package rerank asks the generative model to keep only the passages that
// answer a question.
package rerank

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"coursetutor/internal/domain"
)

const instruction = "Select only the passages that best answer the question."

// Reranker condenses retrieved context with a single deterministic completion.
type Reranker struct {
	llm domain.Completer
}

func New(llm domain.Completer) *Reranker {
	return &Reranker{llm: llm}
}

// Prompt renders the reranking request for question over passages.
func Prompt(question, passages string) string {
	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\n\nQuestion:\n")
	b.WriteString(question)
	b.WriteString("\n\nPassages:\n")
	b.WriteString(passages)
	b.WriteString("\n")
	return b.String()
}

// Rerank returns the model's selection verbatim. The output is free text,
// not a structured list of passage ids.
func (r *Reranker) Rerank(ctx context.Context, question, passages string) (string, error) {
	msgs := []domain.Message{{Role: domain.RoleUser, Content: Prompt(question, passages)}}
	out, err := r.llm.Complete(ctx, msgs, domain.CompletionOptions{Temperature: 0})
	if err != nil {
		return "", domain.Upstream("llm", err)
	}
	return out, nil
}

// RerankOrKeep falls back to the unranked passages when the model fails or
// returns nothing usable.
func (r *Reranker) RerankOrKeep(ctx context.Context, question, passages string) string {
	out, err := r.Rerank(ctx, question, passages)
	if err != nil {
		log.Warn().Err(err).Msg("rerank failed; using unranked context")
		return passages
	}
	if strings.TrimSpace(out) == "" {
		log.Warn().Msg("rerank returned empty output; using unranked context")
		return passages
	}
	return out
}
