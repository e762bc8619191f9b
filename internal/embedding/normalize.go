// Package embedding holds helpers shared by the embedder implementations in
// its subpackages.
package embedding

import "math"

// Normalize scales v to unit L2 length in place and returns it. Zero vectors
// are returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

// IsZero reports whether v has no non-zero component. Such a vector has no
// direction, so cosine similarity against it is undefined.
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// NormalizeAll applies Normalize to every vector when normalize is set.
func NormalizeAll(vecs [][]float32, normalize bool) [][]float32 {
	if !normalize {
		return vecs
	}
	for i := range vecs {
		Normalize(vecs[i])
	}
	return vecs
}

// Batches splits texts into consecutive slices of at most size elements.
func Batches(texts []string, size int) [][]string {
	if size <= 0 {
		size = len(texts)
	}
	var out [][]string
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}
		out = append(out, texts[start:end])
	}
	return out
}
