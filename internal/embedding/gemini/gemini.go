package gemini

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"coursetutor/internal/embedding"
)

// Embedder embeds text with a Gemini embedding model.
type Embedder struct {
	client    *genai.Client
	model     *genai.EmbeddingModel
	batchSize int
	dimension atomic.Int64
}

// NewEmbedder creates a Gemini embedder reading the API key from apiKeyEnv.
func NewEmbedder(ctx context.Context, apiKeyEnv, model string, batchSize int) (*Embedder, error) {
	key := os.Getenv(apiKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", apiKeyEnv)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	em := client.EmbeddingModel(model)
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Embedder{client: client, model: em, batchSize: batchSize}, nil
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "gemini" }

// Prepare is a no-op for remote models.
func (e *Embedder) Prepare(corpus []string) error { return nil }

// Dimension returns the vector size observed on the first call.
func (e *Embedder) Dimension() int { return int(e.dimension.Load()) }

// Embed embeds texts in batches.
func (e *Embedder) Embed(ctx context.Context, texts []string, normalize bool) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, chunk := range embedding.Batches(texts, e.batchSize) {
		b := e.model.NewBatch()
		for _, t := range chunk {
			b.AddContent(genai.Text(t))
		}
		resp, err := e.model.BatchEmbedContents(ctx, b)
		if err != nil {
			return nil, fmt.Errorf("gemini batch embed: %w", err)
		}
		if len(resp.Embeddings) != len(chunk) {
			return nil, fmt.Errorf("gemini: expected %d embeddings, got %d", len(chunk), len(resp.Embeddings))
		}
		for _, emb := range resp.Embeddings {
			if emb == nil || len(emb.Values) == 0 {
				return nil, fmt.Errorf("gemini: empty embedding")
			}
			out = append(out, append([]float32(nil), emb.Values...))
		}
	}
	if len(out) > 0 {
		e.dimension.CompareAndSwap(0, int64(len(out[0])))
	}
	return embedding.NormalizeAll(out, normalize), nil
}

// Close releases the underlying client.
func (e *Embedder) Close() error {
	return e.client.Close()
}
