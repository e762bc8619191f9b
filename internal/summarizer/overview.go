// Package summarizer picks the most representative sentences of the course
// corpus for a short overview.
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]`)
	wordRe     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

// Frequency ranks sentences by the normalized frequency of their content
// words.
type Frequency struct {
	stopwords map[string]struct{}
}

func NewFrequency() *Frequency {
	return &Frequency{stopwords: defaultStopwords()}
}

// Overview summarizes the chunks with at most maxSentences sentences, kept in
// corpus order.
func (f *Frequency) Overview(chunks []string, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	var sentences []string
	for _, c := range chunks {
		for _, s := range sentenceRe.FindAllString(c, -1) {
			if s = strings.TrimSpace(s); s != "" {
				sentences = append(sentences, s)
			}
		}
	}
	if len(sentences) == 0 {
		return strings.TrimSpace(strings.Join(chunks, " "))
	}

	freq := map[string]float64{}
	maxF := 0.0
	for _, s := range sentences {
		for _, w := range f.words(s) {
			freq[w]++
			if freq[w] > maxF {
				maxF = freq[w]
			}
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i, s := range sentences {
		words := f.words(s)
		sum := 0.0
		for _, w := range words {
			sum += freq[w] / maxF
		}
		if len(words) > 0 {
			sum /= math.Sqrt(float64(len(words)))
		}
		scores[i] = scored{i, sum}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if maxSentences > len(scores) {
		maxSentences = len(scores)
	}
	picked := make([]int, maxSentences)
	for i := range picked {
		picked[i] = scores[i].idx
	}
	sort.Ints(picked)
	out := make([]string, len(picked))
	for i, idx := range picked {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " ")
}

func (f *Frequency) words(s string) []string {
	raw := wordRe.FindAllString(strings.ToLower(s), -1)
	out := raw[:0]
	for _, w := range raw {
		if _, stop := f.stopwords[w]; !stop {
			out = append(out, w)
		}
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that", "these", "those", "from", "into", "about", "between", "through", "during", "before", "after", "than", "so", "such", "can", "will", "which", "each", "also",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
