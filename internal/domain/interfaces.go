package domain

import "context"

// SearchResult is a chunk hit returned by a vector index, best-first.
type SearchResult struct {
	Index int
	Text  string
	Score float64
}

// Role tags a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat exchange sent to the generative model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// QuizQuestion is a single multiple-choice question.
type QuizQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answer_index"`
}

// Embedder converts free text into numeric vectors.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, texts []string, normalize bool) ([][]float32, error)
}

// VectorIndex answers k-nearest-neighbour queries over chunk embeddings.
// Results are ordered by descending similarity; ties keep corpus order.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error)
}

// CompletionOptions controls decoding for a single completion call.
type CompletionOptions struct {
	Temperature float64
	MaxTokens   int
}

// Completer is a hosted text-completion service.
type Completer interface {
	Complete(ctx context.Context, messages []Message, opts CompletionOptions) (string, error)
}
