// Package keyword narrows the corpus to chunks sharing a token with a query,
// so that an ad-hoc vector index only has to embed a small candidate pool.
package keyword

import (
	"regexp"
	"strings"
)

// Corpus is the read-only view of the chunk store the filter needs.
type Corpus interface {
	Len() int
	Lower(i int) string
}

var punctuationRe = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

// Tokens lowercases the query, blanks out punctuation and splits on whitespace.
func Tokens(query string) []string {
	return strings.Fields(punctuationRe.ReplaceAllString(strings.ToLower(query), " "))
}

// Filter returns the indices, in corpus order, of chunks whose lowercased text
// contains at least one query token as a substring.
func Filter(c Corpus, query string) []int {
	tokens := Tokens(query)
	if len(tokens) == 0 {
		return nil
	}
	var out []int
	for i := 0; i < c.Len(); i++ {
		text := c.Lower(i)
		for _, tok := range tokens {
			if strings.Contains(text, tok) {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

// Expand returns deduplicated lexical variants of a question in first-seen order.
func Expand(question string) []string {
	variants := []string{
		question,
		strings.ReplaceAll(question, ".", " "),
		strings.ReplaceAll(question, "section", ""),
		"Unit " + question,
	}
	seen := make(map[string]struct{}, len(variants))
	out := variants[:0]
	for _, v := range variants {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Candidates unions the filter results of every expansion of question. When
// nothing matches, every chunk is a candidate; the result is never empty for
// a non-empty corpus.
func Candidates(c Corpus, question string) []int {
	hit := make([]bool, c.Len())
	found := 0
	for _, q := range Expand(question) {
		for _, i := range Filter(c, q) {
			if !hit[i] {
				hit[i] = true
				found++
			}
		}
	}
	out := make([]int, 0, found)
	if found == 0 {
		for i := range hit {
			out = append(out, i)
		}
		return out
	}
	for i, ok := range hit {
		if ok {
			out = append(out, i)
		}
	}
	return out
}
