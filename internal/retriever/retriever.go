// Package retriever turns a question or a topic selection into a small,
// ranked set of course chunks.
package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"coursetutor/internal/corpus"
	"coursetutor/internal/domain"
	"coursetutor/internal/embedding"
	"coursetutor/internal/keyword"
	"coursetutor/internal/topics"
	"coursetutor/internal/vectorstore/memory"
)

// Options tunes retrieval depth and the relevance gate.
type Options struct {
	ChatTopK       int
	AdHocTopK      int
	RelevanceFloor float64
}

// Retriever is safe for concurrent use; all of its state is read-only.
type Retriever struct {
	corpus   *corpus.Store
	embedder domain.Embedder
	index    domain.VectorIndex
	topics   *topics.Map
	opts     Options
}

func New(c *corpus.Store, e domain.Embedder, full domain.VectorIndex, tm *topics.Map, opts Options) *Retriever {
	if opts.ChatTopK <= 0 {
		opts.ChatTopK = 7
	}
	if opts.AdHocTopK <= 0 {
		opts.AdHocTopK = 20
	}
	return &Retriever{corpus: c, embedder: e, index: full, topics: tm, opts: opts}
}

// AdHoc narrows the corpus with the keyword filter over all query expansions,
// embeds only those candidates into a transient index and returns the top
// AdHocTopK hits for the question.
func (r *Retriever) AdHoc(ctx context.Context, question string) ([]domain.SearchResult, error) {
	candidates := keyword.Candidates(r.corpus, question)
	log.Debug().Int("candidates", len(candidates)).Int("corpus", r.corpus.Len()).Msg("keyword filter")

	vectors, err := r.embedder.Embed(ctx, r.corpus.Texts(candidates), true)
	if err != nil {
		return nil, domain.Upstream("embedder", err)
	}
	idx, err := memory.Build(candidates, vectors)
	if err != nil {
		return nil, fmt.Errorf("build candidate index: %w", err)
	}
	qv, err := r.embedQuery(ctx, question)
	if err != nil {
		return nil, err
	}
	hits, err := idx.Search(ctx, qv, r.opts.AdHocTopK)
	if err != nil {
		return nil, fmt.Errorf("search candidate index: %w", err)
	}
	return r.withText(hits), nil
}

// Scoped searches the full-corpus index once. When nothing is found, or the
// best hit does not reach the relevance floor, it returns domain.ErrOutOfScope.
// A question that embeds to the zero vector shares nothing with the corpus
// and is out of scope without a search.
func (r *Retriever) Scoped(ctx context.Context, question string) ([]domain.SearchResult, error) {
	qv, err := r.embedQuery(ctx, question)
	if err != nil {
		return nil, err
	}
	if embedding.IsZero(qv) {
		log.Info().Msg("question has no terms in common with the corpus")
		return nil, domain.ErrOutOfScope
	}
	hits, err := r.index.Search(ctx, qv, r.opts.ChatTopK)
	if err != nil {
		return nil, domain.Upstream("vector index", err)
	}
	// negated so that a NaN score is rejected too
	if len(hits) == 0 || !(hits[0].Score >= r.opts.RelevanceFloor) {
		top := 0.0
		if len(hits) > 0 {
			top = hits[0].Score
		}
		log.Info().Float64("top_score", top).Float64("floor", r.opts.RelevanceFloor).Msg("question below relevance floor")
		return nil, domain.ErrOutOfScope
	}
	return r.withText(hits), nil
}

// TopicCandidates resolves a unit/section selection to chunk indices without
// any embedding search. Sections take precedence over units.
func (r *Retriever) TopicCandidates(units []string, sections []topics.SectionRef) ([]int, error) {
	ids := r.topics.Resolve(units, sections)
	if len(ids) == 0 {
		return nil, domain.ErrNoCandidates
	}
	return ids, nil
}

// Text returns the chunk text at corpus position i.
func (r *Retriever) Text(i int) string { return r.corpus.Text(i) }

func (r *Retriever) embedQuery(ctx context.Context, question string) ([]float32, error) {
	vecs, err := r.embedder.Embed(ctx, []string{question}, true)
	if err != nil {
		return nil, domain.Upstream("embedder", err)
	}
	if len(vecs) != 1 {
		return nil, domain.Upstream("embedder", fmt.Errorf("expected 1 query vector, got %d", len(vecs)))
	}
	return vecs[0], nil
}

func (r *Retriever) withText(hits []domain.SearchResult) []domain.SearchResult {
	for i := range hits {
		if hits[i].Text == "" {
			hits[i].Text = r.corpus.Text(hits[i].Index)
		}
	}
	return hits
}

// JoinContext concatenates hit texts best-first, separated by blank lines.
func JoinContext(hits []domain.SearchResult) string {
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = h.Text
	}
	return strings.Join(parts, "\n\n")
}
