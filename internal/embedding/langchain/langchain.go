package langchain

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"coursetutor/internal/embedding"
)

// Embedder adapts a langchaingo embeddings client to domain.Embedder.
type Embedder struct {
	name      string
	impl      embeddings.Embedder
	dimension atomic.Int64
}

// New wraps any langchaingo EmbedderClient.
func New(name string, client embeddings.EmbedderClient, batchSize int) (*Embedder, error) {
	opts := []embeddings.Option{embeddings.WithStripNewLines(false)}
	if batchSize > 0 {
		opts = append(opts, embeddings.WithBatchSize(batchSize))
	}
	impl, err := embeddings.NewEmbedder(client, opts...)
	if err != nil {
		return nil, fmt.Errorf("create %s embedder: %w", name, err)
	}
	return &Embedder{name: name, impl: impl}, nil
}

// NewOllama builds an embedder backed by an Ollama server.
func NewOllama(serverURL, model string, batchSize int) (*Embedder, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(serverURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("init ollama: %w", err)
	}
	return New("ollama", llm, batchSize)
}

// OpenAIConfig configures an OpenAI-compatible embeddings endpoint.
type OpenAIConfig struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
	BatchSize int
}

// NewOpenAI builds an embedder for an OpenAI-compatible API. The key is read
// from the environment variable named by APIKeyEnv. Failed batches are
// retried with backoff.
func NewOpenAI(cfg OpenAIConfig) (*Embedder, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(key, "Bearer ")),
		openai.WithEmbeddingModel(cfg.Model),
		openai.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("init openai embeddings: %w", err)
	}
	return New("openai", withRetry(llm, defaultRetries), cfg.BatchSize)
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return e.name }

// Prepare is a no-op for remote models.
func (e *Embedder) Prepare(corpus []string) error { return nil }

// Dimension returns the vector size observed on the first call.
func (e *Embedder) Dimension() int { return int(e.dimension.Load()) }

// Embed embeds texts as documents.
func (e *Embedder) Embed(ctx context.Context, texts []string, normalize bool) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := e.impl.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%s: expected %d embeddings, got %d", e.name, len(texts), len(vecs))
	}
	e.dimension.CompareAndSwap(0, int64(len(vecs[0])))
	return embedding.NormalizeAll(vecs, normalize), nil
}
