package langchain

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
)

const (
	defaultRetries   = 4
	baseRetryDelay   = 200 * time.Millisecond
	maxRetryInterval = 5 * time.Second
)

// retryClient retries failed embedding batches with capped exponential
// backoff. Hosted providers throttle bulk embedding at startup.
type retryClient struct {
	next    embeddings.EmbedderClient
	retries int
	base    time.Duration
}

func withRetry(next embeddings.EmbedderClient, retries int) *retryClient {
	return &retryClient{next: next, retries: retries, base: baseRetryDelay}
}

func (r *retryClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	for attempt := 0; ; attempt++ {
		vecs, err := r.next.CreateEmbedding(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		if attempt >= r.retries || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		delay := r.delay(attempt)
		log.Warn().Err(err).Int("attempt", attempt+1).Dur("delay", delay).Msg("embedding batch failed, retrying")
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func (r *retryClient) delay(attempt int) time.Duration {
	d := r.base << attempt
	if d <= 0 || d > maxRetryInterval {
		d = maxRetryInterval
	}
	return d
}
