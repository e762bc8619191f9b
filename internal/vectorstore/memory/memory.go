package memory

import (
	"context"
	"errors"
	"math"
	"slices"
	"sort"
	"sync"

	"coursetutor/internal/domain"
)

// Storage is a simple in-memory vector index using brute-force dot-product
// similarity. Vectors are expected to be L2-normalized, so scores are cosine
// similarities. It backs both the full-corpus index and the transient
// per-request candidate index.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	ids       []int
	vectors   [][]float32
}

// NewStorage returns an empty index; call Init before Upsert.
func NewStorage() *Storage { return &Storage{} }

// Build creates an index over ids and vectors in one step.
func Build(ids []int, vectors [][]float32) (*Storage, error) {
	s := NewStorage()
	if len(vectors) == 0 {
		return s, nil
	}
	if err := s.Init(len(vectors[0])); err != nil {
		return nil, err
	}
	if err := s.Upsert(ids, vectors); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Storage) Init(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = nil
	s.ids = nil
	return nil
}

func (s *Storage) Upsert(ids []int, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return errors.New("ids and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if len(v) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	s.ids = append(s.ids, ids...)
	s.vectors = append(s.vectors, vectors...)
	return nil
}

// Len returns the number of indexed vectors.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Search returns up to topK hits by descending score, ties by ascending id.
func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.ids) == 0 {
		return nil, nil
	}
	if len(vector) != s.dimension {
		return nil, errors.New("query dimension mismatch")
	}
	if topK <= 0 {
		topK = 5
	}
	results := make([]domain.SearchResult, len(s.vectors))
	for i := range s.vectors {
		results[i] = domain.SearchResult{Index: s.ids[i], Score: dot(s.vectors[i], vector)}
	}
	SortResults(results)
	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

// Rank drops hits whose score is NaN and sorts the rest with SortResults.
// Stores that normalize zero vectors report NaN similarities for them.
func Rank(results []domain.SearchResult) []domain.SearchResult {
	results = slices.DeleteFunc(results, func(r domain.SearchResult) bool {
		return math.IsNaN(r.Score)
	})
	SortResults(results)
	return results
}

// SortResults orders hits by descending score, breaking ties by chunk index.
func SortResults(results []domain.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Index < results[j].Index
	})
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
