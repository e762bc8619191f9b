package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Store is the ordered, read-only chunk sequence. A chunk is identified by
// its position.
type Store struct {
	chunks []string
	lower  []string
}

// New builds a store over the given chunk texts.
func New(chunks []string) *Store {
	s := &Store{
		chunks: append([]string(nil), chunks...),
		lower:  make([]string, len(chunks)),
	}
	for i, c := range s.chunks {
		s.lower[i] = strings.ToLower(c)
	}
	return s
}

// LoadFile reads a JSON array of chunk strings, or an array of objects with a
// "text" field, from path.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", path, err)
	}
	chunks, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode corpus %s: %w", path, err)
	}
	if len(chunks) == 0 {
		return nil, errors.New("corpus is empty")
	}
	return New(chunks), nil
}

func decode(data []byte) ([]string, error) {
	var plain []string
	if err := json.Unmarshal(data, &plain); err == nil {
		return plain, nil
	}
	var records []struct {
		Text    string `json:"text"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Text
		if out[i] == "" {
			out[i] = r.Content
		}
	}
	return out, nil
}

// Len returns the number of chunks.
func (s *Store) Len() int { return len(s.chunks) }

// Text returns the chunk at index i.
func (s *Store) Text(i int) string { return s.chunks[i] }

// Lower returns the lowercased chunk at index i.
func (s *Store) Lower(i int) string { return s.lower[i] }

// Texts returns the chunks at the given indices, in the given order.
func (s *Store) Texts(indices []int) []string {
	out := make([]string, len(indices))
	for n, i := range indices {
		out[n] = s.chunks[i]
	}
	return out
}

// All returns a copy of every chunk in corpus order.
func (s *Store) All() []string { return append([]string(nil), s.chunks...) }

// AllIndices returns 0..Len()-1.
func (s *Store) AllIndices() []int {
	out := make([]int, len(s.chunks))
	for i := range out {
		out[i] = i
	}
	return out
}
