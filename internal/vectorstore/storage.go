package vectorstore

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"coursetutor/internal/domain"
	"coursetutor/internal/embedding"
)

// Storage is a persistent full-corpus index keyed by chunk index.
type Storage interface {
	domain.VectorIndex
	Count(ctx context.Context) (int, error)
	Upsert(ctx context.Context, ids []int, vectors [][]float32, texts []string) error
}

// warmBatch bounds how many chunks are embedded and written per round trip.
const warmBatch = 64

// Warm embeds and stores the corpus when the store is empty. A store that
// already holds exactly len(chunks) points is left as is; any other count is
// reported as a mismatch so a stale index is never served.
func Warm(ctx context.Context, s Storage, e domain.Embedder, chunks []string) error {
	n, err := s.Count(ctx)
	if err != nil {
		return fmt.Errorf("count stored chunks: %w", err)
	}
	switch {
	case n == len(chunks):
		log.Info().Int("chunks", n).Msg("vector index already populated")
		return nil
	case n != 0:
		return fmt.Errorf("vector index holds %d chunks but corpus has %d; rebuild the index", n, len(chunks))
	}

	log.Info().Int("chunks", len(chunks)).Str("embedder", e.Name()).Msg("populating vector index")
	offset := 0
	for _, batch := range embedding.Batches(chunks, warmBatch) {
		vectors, err := e.Embed(ctx, batch, true)
		if err != nil {
			return domain.Upstream("embedder", err)
		}
		ids := make([]int, len(batch))
		for i := range batch {
			ids[i] = offset + i
		}
		if err := s.Upsert(ctx, ids, vectors, batch); err != nil {
			return fmt.Errorf("store chunks %d-%d: %w", offset, offset+len(batch)-1, err)
		}
		offset += len(batch)
	}
	return nil
}
