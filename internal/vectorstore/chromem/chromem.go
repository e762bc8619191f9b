package chromem

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"coursetutor/internal/domain"
	"coursetutor/internal/embedding"
	"coursetutor/internal/vectorstore/memory"
)

const (
	indexKey = "index"
	// searchableKey marks documents with a usable embedding. Chunks that
	// embed to the zero vector are stored for counting but never searched.
	searchableKey = "searchable"
)

// Storage persists chunk embeddings in a chromem-go collection so the
// corpus only has to be embedded once per embedder.
type Storage struct {
	db         *chromem.DB
	collection *chromem.Collection
}

type Config struct {
	Path       string
	Collection string
	Compress   bool
	// InMemory skips persistence; used by tests.
	InMemory bool
}

// Open loads or creates the database and the named collection.
func Open(cfg Config) (*Storage, error) {
	if cfg.Collection == "" {
		return nil, errors.New("chromem: collection name is required")
	}
	var db *chromem.DB
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("open chromem db at %s: %w", cfg.Path, err)
		}
	}
	meta := map[string]string{"hnsw:space": "cosine"}
	c, err := db.GetOrCreateCollection(cfg.Collection, meta, nil)
	if err != nil {
		return nil, fmt.Errorf("get or create collection %s: %w", cfg.Collection, err)
	}
	log.Debug().Str("collection", cfg.Collection).Int("count", c.Count()).Msg("chromem collection ready")
	return &Storage{db: db, collection: c}, nil
}

// Count returns the number of stored chunks.
func (s *Storage) Count(ctx context.Context) (int, error) {
	return s.collection.Count(), nil
}

// Upsert adds chunk embeddings keyed by chunk index.
func (s *Storage) Upsert(ctx context.Context, ids []int, vectors [][]float32, texts []string) error {
	if len(ids) != len(vectors) || len(ids) != len(texts) {
		return errors.New("ids, vectors and texts length mismatch")
	}
	docs := make([]chromem.Document, len(ids))
	for i, id := range ids {
		if len(vectors[i]) == 0 {
			return fmt.Errorf("chunk %d has an empty embedding", id)
		}
		key := strconv.Itoa(id)
		vec, searchable := vectors[i], "true"
		if embedding.IsZero(vec) {
			// chromem normalizes every stored vector; a zero vector would
			// become NaN and poison its top-k heap.
			vec = make([]float32, len(vectors[i]))
			vec[0] = 1
			searchable = "false"
		}
		docs[i] = chromem.Document{
			ID:        key,
			Content:   texts[i],
			Metadata:  map[string]string{indexKey: key, searchableKey: searchable},
			Embedding: vec,
		}
	}
	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	return nil
}

// Search returns up to topK chunks by cosine similarity. A zero query vector
// matches nothing.
func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	n := s.collection.Count()
	if n == 0 || embedding.IsZero(vector) {
		return nil, nil
	}
	if topK <= 0 {
		topK = 5
	}
	// chromem rejects requests for more results than documents
	if topK > n {
		topK = n
	}
	found, err := s.collection.QueryEmbedding(ctx, vector, topK, map[string]string{searchableKey: "true"}, nil)
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}
	results := make([]domain.SearchResult, 0, len(found))
	for _, r := range found {
		idx, err := strconv.Atoi(r.Metadata[indexKey])
		if err != nil {
			idx, err = strconv.Atoi(r.ID)
			if err != nil {
				return nil, fmt.Errorf("document %q has no chunk index", r.ID)
			}
		}
		results = append(results, domain.SearchResult{
			Index: idx,
			Text:  r.Content,
			Score: float64(r.Similarity),
		})
	}
	return memory.Rank(results), nil
}
