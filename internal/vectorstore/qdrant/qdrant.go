package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"coursetutor/internal/domain"
	"coursetutor/internal/embedding"
	"coursetutor/internal/vectorstore/memory"
)

// Storage is a minimal REST client to Qdrant.
// It assumes cosine distance and creates the collection if missing.
// Point ids are corpus chunk indices.
type Storage struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

var errNotFound = errors.New("qdrant: not found")

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// Count returns the number of points, or 0 when the collection is missing.
func (s *Storage) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			PointsCount int `json:"points_count"`
		} `json:"result"`
	}
	err := s.doJSON(ctx, http.MethodGet, s.collectionURL(""), nil, &resp)
	if errors.Is(err, errNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return resp.Result.PointsCount, nil
}

// Upsert writes points, creating the collection first when it does not exist.
func (s *Storage) Upsert(ctx context.Context, ids []int, vectors [][]float32, texts []string) error {
	if len(ids) != len(vectors) || len(ids) != len(texts) {
		return errors.New("ids, vectors and texts length mismatch")
	}
	if len(ids) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}
	points := make([]map[string]any, len(ids))
	for i := range ids {
		points[i] = map[string]any{
			"id":     ids[i],
			"vector": vectors[i],
			"payload": map[string]any{
				"index": ids[i],
				"text":  texts[i],
			},
		}
	}
	body := map[string]any{"points": points}
	return s.doJSON(ctx, http.MethodPut, s.collectionURL("/points?wait=true"), body, nil)
}

func (s *Storage) ensureCollection(ctx context.Context, dimension int) error {
	err := s.doJSON(ctx, http.MethodGet, s.collectionURL(""), nil, nil)
	if err == nil {
		return nil
	}
	if !errors.Is(err, errNotFound) {
		return err
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return s.doJSON(ctx, http.MethodPut, s.collectionURL(""), body, nil)
}

// Search returns the nearest points by cosine similarity.
func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if embedding.IsZero(vector) {
		return nil, nil
	}
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.doJSON(ctx, http.MethodPost, s.collectionURL("/points/search"), req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		idx, ok := r.Payload["index"].(float64)
		if !ok {
			return nil, errors.New("qdrant: point payload has no chunk index")
		}
		res := domain.SearchResult{Index: int(idx), Score: r.Score}
		if v, ok := r.Payload["text"].(string); ok {
			res.Text = v
		}
		results = append(results, res)
	}
	return memory.Rank(results), nil
}

func (s *Storage) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

func (s *Storage) doJSON(ctx context.Context, method, url string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
