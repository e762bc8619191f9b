// Package bootstrap assembles the tutor service from configuration. All
// loading and index preparation happens here, once, before serving.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"

	"coursetutor/internal/answer"
	"coursetutor/internal/config"
	"coursetutor/internal/corpus"
	"coursetutor/internal/domain"
	"coursetutor/internal/embedding/gemini"
	"coursetutor/internal/embedding/langchain"
	"coursetutor/internal/embedding/tfidf"
	"coursetutor/internal/llm"
	"coursetutor/internal/pgstore"
	"coursetutor/internal/quiz"
	"coursetutor/internal/rerank"
	"coursetutor/internal/retriever"
	"coursetutor/internal/service"
	"coursetutor/internal/summarizer"
	"coursetutor/internal/topics"
	"coursetutor/internal/vectorstore"
	"coursetutor/internal/vectorstore/chromem"
	"coursetutor/internal/vectorstore/memory"
	"coursetutor/internal/vectorstore/qdrant"
)

const overviewSentences = 3

// Options overrides collaborators, mainly for tests.
type Options struct {
	Completer domain.Completer
	Rand      *rand.Rand
}

// App owns the tutor and the resources it holds open.
type App struct {
	Tutor   *service.Tutor
	closers []func() error
}

// Close releases database handles and remote clients.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build loads the corpus and topic metadata, prepares the embedder and the
// full-corpus index, and wires the service.
func Build(ctx context.Context, cfg *config.AppConfig, opts Options) (*App, error) {
	start := time.Now()
	app := &App{}
	fail := func(err error) (*App, error) {
		_ = app.Close()
		return nil, err
	}

	store, pg, err := loadCorpus(ctx, cfg.Corpus)
	if err != nil {
		return fail(err)
	}
	if pg != nil {
		app.closers = append(app.closers, pg.Close)
	}

	meta, err := topics.LoadMetadata(cfg.Corpus.TopicsPath)
	if err != nil {
		return fail(err)
	}
	topicMap := topics.Build(meta, store)

	emb, err := newEmbedder(ctx, cfg.Embedder)
	if err != nil {
		return fail(err)
	}
	if g, ok := emb.(*gemini.Embedder); ok {
		app.closers = append(app.closers, g.Close)
	}
	if err := emb.Prepare(store.All()); err != nil {
		return fail(fmt.Errorf("prepare embedder: %w", err))
	}

	index, err := buildIndex(ctx, cfg.VectorStore, emb, store, pg)
	if err != nil {
		return fail(err)
	}

	completer := opts.Completer
	if completer == nil {
		c, err := llm.New(cfg.LLM)
		if err != nil {
			return fail(err)
		}
		completer = c
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}

	r := retriever.New(store, emb, index, topicMap, retriever.Options{
		ChatTopK:       cfg.Retrieval.ChatTopK,
		AdHocTopK:      cfg.Retrieval.AdHocTopK,
		RelevanceFloor: cfg.Retrieval.RelevanceFloor,
	})
	app.Tutor = service.NewTutor(service.Deps{
		Retriever: r,
		Reranker:  rerank.New(completer),
		Answers:   answer.New(completer, cfg.Retrieval.HistoryWindow),
		Quizzes: quiz.New(r, completer, rng, quiz.Options{
			MaxQuestions:    cfg.Quiz.MaxQuestions,
			SampleSize:      cfg.Quiz.SampleSize,
			MinContextChars: cfg.Quiz.MinContextChars,
		}),
		Topics:   topicMap,
		Rerank:   cfg.Retrieval.Rerank,
		Chunks:   store.Len(),
		Overview: summarizer.NewFrequency().Overview(store.All(), overviewSentences),
	})

	log.Info().
		Int("chunks", store.Len()).
		Int("units", len(topicMap.Units())).
		Str("embedder", emb.Name()).
		Str("index", cfg.VectorStore.Type).
		Dur("took", time.Since(start)).
		Msg("tutor ready")
	return app, nil
}

func loadCorpus(ctx context.Context, cfg config.CorpusConfig) (*corpus.Store, *pgstore.Store, error) {
	switch cfg.Source {
	case "", "file":
		s, err := corpus.LoadFile(cfg.ChunksPath)
		return s, nil, err
	case "postgres":
		if cfg.Postgres == nil {
			return nil, nil, errors.New("corpus.postgres must be set when corpus.source is postgres")
		}
		pg, chunks, err := pgstore.Open(ctx, *cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return corpus.New(chunks), pg, nil
	default:
		return nil, nil, fmt.Errorf("unknown corpus source %q", cfg.Source)
	}
}

func newEmbedder(ctx context.Context, cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "", "tfidf":
		return tfidf.NewEmbedder(), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, errors.New("embedder.openai must be set for type openai")
		}
		e, err := langchain.NewOpenAI(langchain.OpenAIConfig{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			BatchSize: cfg.OpenAI.BatchSize,
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	case "ollama":
		if cfg.Ollama == nil {
			return nil, errors.New("embedder.ollama must be set for type ollama")
		}
		e, err := langchain.NewOllama(cfg.Ollama.ServerURL, cfg.Ollama.Model, cfg.Ollama.BatchSize)
		if err != nil {
			return nil, err
		}
		return e, nil
	case "gemini":
		if cfg.Gemini == nil {
			return nil, errors.New("embedder.gemini must be set for type gemini")
		}
		e, err := gemini.NewEmbedder(ctx, cfg.Gemini.APIKeyEnv, cfg.Gemini.Model, cfg.Gemini.BatchSize)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown embedder type %q", cfg.Type)
	}
}

func buildIndex(ctx context.Context, cfg config.VectorStoreConfig, emb domain.Embedder, store *corpus.Store, pg *pgstore.Store) (domain.VectorIndex, error) {
	switch cfg.Type {
	case "", "memory":
		vectors, err := emb.Embed(ctx, store.All(), true)
		if err != nil {
			return nil, domain.Upstream("embedder", err)
		}
		idx, err := memory.Build(store.AllIndices(), vectors)
		if err != nil {
			return nil, fmt.Errorf("build memory index: %w", err)
		}
		return idx, nil
	case "chromem":
		c := config.ChromemConfig{Path: "./chromemdb", Collection: "course_chunks"}
		if cfg.Chromem != nil {
			c = *cfg.Chromem
		}
		s, err := chromem.Open(chromem.Config{Path: c.Path, Collection: c.Collection, Compress: c.Compress})
		if err != nil {
			return nil, err
		}
		return warmed(ctx, s, emb, store)
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, errors.New("vector_store.qdrant must be set for type qdrant")
		}
		s := qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		})
		return warmed(ctx, s, emb, store)
	case "pgvector":
		if pg == nil {
			return nil, errors.New("vector_store.type pgvector requires corpus.source postgres")
		}
		return warmed(ctx, pg, emb, store)
	default:
		return nil, fmt.Errorf("unknown vector store type %q", cfg.Type)
	}
}

func warmed(ctx context.Context, s vectorstore.Storage, emb domain.Embedder, store *corpus.Store) (domain.VectorIndex, error) {
	if err := vectorstore.Warm(ctx, s, emb, store.All()); err != nil {
		return nil, err
	}
	return s, nil
}
