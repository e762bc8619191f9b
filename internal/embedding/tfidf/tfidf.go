// Package tfidf is a corpus-fitted lexical embedder. It needs no network and
// is the default for local runs and tests.
package tfidf

import (
	"context"
	"errors"
	"maps"
	"math"
	"regexp"
	"slices"
	"strings"
)

var (
	wordRe = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)

	stopwords = toSet(
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of",
		"in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been",
		"being", "it", "this", "that", "these", "those", "from", "up", "down", "over",
		"under", "again", "further", "than", "so", "such", "into", "about", "between",
		"through", "during", "before", "after", "above", "below", "out", "off", "own",
		"same", "too", "very", "can", "will", "just", "don", "should", "now",
		"what", "which", "who", "how", "why", "does", "do", "did",
	)
)

// Embedder maps text to smoothed TF-IDF weights over the corpus vocabulary.
// Prepare must run first; afterwards it is read-only and safe for
// concurrent use.
type Embedder struct {
	terms map[string]int
	idf   []float64
}

func NewEmbedder() *Embedder { return &Embedder{} }

func (e *Embedder) Name() string { return "tfidf" }

// Prepare fits the vocabulary (sorted, so dimensions are stable) and the
// document frequencies.
func (e *Embedder) Prepare(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("tfidf: empty corpus")
	}
	df := make(map[string]int)
	for _, text := range corpus {
		for tok := range toSet(terms(text)...) {
			df[tok]++
		}
	}
	if len(df) == 0 {
		return errors.New("tfidf: corpus has no indexable terms")
	}

	vocab := slices.Sorted(maps.Keys(df))
	n := float64(len(corpus))
	e.terms = make(map[string]int, len(vocab))
	e.idf = make([]float64, len(vocab))
	for i, term := range vocab {
		e.terms[term] = i
		e.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return nil
}

func (e *Embedder) Dimension() int { return len(e.idf) }

// Embed weights each text's term frequencies by IDF. Texts with no known
// terms come back as zero vectors.
func (e *Embedder) Embed(ctx context.Context, texts []string, normalize bool) ([][]float32, error) {
	if e.terms == nil {
		return nil, errors.New("tfidf: Prepare has not been called")
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, e.vector(text, normalize))
	}
	return out, nil
}

func (e *Embedder) vector(text string, normalize bool) []float32 {
	counts := make(map[int]int)
	total := 0
	for _, tok := range terms(text) {
		if i, ok := e.terms[tok]; ok {
			counts[i]++
			total++
		}
	}
	vec := make([]float32, len(e.idf))
	if total == 0 {
		return vec
	}

	weights := make(map[int]float64, len(counts))
	var sq float64
	for i, c := range counts {
		w := float64(c) / float64(total) * e.idf[i]
		weights[i] = w
		sq += w * w
	}
	scale := 1.0
	if normalize && sq > 0 {
		scale = 1 / math.Sqrt(sq)
	}
	for i, w := range weights {
		vec[i] = float32(w * scale)
	}
	return vec
}

// terms lowercases and splits text, dropping stopwords.
func terms(text string) []string {
	words := wordRe.FindAllString(strings.ToLower(text), -1)
	return slices.DeleteFunc(words, func(w string) bool {
		_, stop := stopwords[w]
		return stop
	})
}

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
