// Package quiz generates multiple-choice questions from randomly sampled
// chunks of the selected course topics.
package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"coursetutor/internal/domain"
	"coursetutor/internal/topics"
)

const (
	temperature = 0.3
	maxTokens   = 300
	optionCount = 4
)

// QuestionLimit is the most questions one request can produce, whatever the
// configuration says.
const QuestionLimit = 10

const systemPrompt = "You are a university-level exam setter."

const instructions = `You are a university-level exam setter.

Generate ONE high-quality multiple choice question STRICTLY from the material below.

Rules:
- Question MUST test understanding of a concept.
- DO NOT ask about document structure (units, sections, formatting).
- DO NOT ask about "where something is mentioned".
- Focus only on conceptual or theoretical content.
- 4 options.
- Only 1 correct answer.
- Wrong options must be plausible but clearly incorrect.
- Avoid trivial wording.
- Return STRICT JSON only:

{
  "question": "text",
  "options": ["A","B","C","D"],
  "answer_index": 0
}

Course Material:
`

// Request selects topics and the number of questions to generate.
type Request struct {
	Units        []string            `json:"units"`
	Sections     []topics.SectionRef `json:"sections"`
	NumQuestions int                 `json:"num_questions"`
	Difficulty   string              `json:"difficulty"`
}

// Attempt is the outcome of generating one question: either a valid
// question or the parse error that caused it to be skipped.
type Attempt struct {
	Question *domain.QuizQuestion
	Err      error
}

// Result collects every attempt of one generation call.
type Result struct {
	Attempts []Attempt
}

// Questions returns the valid questions in generation order.
func (r Result) Questions() []domain.QuizQuestion {
	out := make([]domain.QuizQuestion, 0, len(r.Attempts))
	for _, a := range r.Attempts {
		if a.Question != nil {
			out = append(out, *a.Question)
		}
	}
	return out
}

// Source resolves topic selections to chunks.
type Source interface {
	TopicCandidates(units []string, sections []topics.SectionRef) ([]int, error)
	Text(i int) string
}

type Options struct {
	MaxQuestions    int
	SampleSize      int
	MinContextChars int
}

// Generator is safe for concurrent use; draws from its random source are
// serialized.
type Generator struct {
	src  Source
	llm  domain.Completer
	opts Options

	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a generator drawing samples from rng.
func New(src Source, llm domain.Completer, rng *rand.Rand, opts Options) *Generator {
	if opts.MaxQuestions <= 0 || opts.MaxQuestions > QuestionLimit {
		opts.MaxQuestions = QuestionLimit
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = 3
	}
	if opts.MinContextChars <= 0 {
		opts.MinContextChars = 200
	}
	return &Generator{src: src, llm: llm, opts: opts, rng: rng}
}

// Clamp bounds n to [1, max].
func Clamp(n, max int) int {
	if n < 1 {
		return 1
	}
	if n > max {
		return max
	}
	return n
}

// Generate produces up to NumQuestions questions. Malformed model output
// skips that question. Too little material, an upstream failure or
// cancellation aborts the whole call.
func (g *Generator) Generate(ctx context.Context, req Request) (Result, error) {
	pool, err := g.src.TopicCandidates(req.Units, req.Sections)
	if err != nil {
		return Result{}, err
	}
	n := Clamp(req.NumQuestions, g.opts.MaxQuestions)
	logger := log.With().Int("pool", len(pool)).Int("questions", n).Str("difficulty", req.Difficulty).Logger()
	logger.Debug().Msg("generating quiz")

	res := Result{Attempts: make([]Attempt, 0, n)}
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		material := g.material(pool)
		if len(strings.TrimSpace(material)) < g.opts.MinContextChars {
			return Result{}, domain.ErrInsufficientContext
		}
		msgs := []domain.Message{
			{Role: domain.RoleSystem, Content: systemPrompt},
			{Role: domain.RoleUser, Content: instructions + material + "\n"},
		}
		raw, err := g.llm.Complete(ctx, msgs, domain.CompletionOptions{Temperature: temperature, MaxTokens: maxTokens})
		if err != nil {
			return Result{}, domain.Upstream("llm", err)
		}
		q, err := Parse(raw)
		if err != nil {
			logger.Warn().Err(err).Int("attempt", i+1).Msg("skipping malformed question")
			res.Attempts = append(res.Attempts, Attempt{Err: err})
			continue
		}
		res.Attempts = append(res.Attempts, Attempt{Question: &q})
	}
	return res, nil
}

func (g *Generator) material(pool []int) string {
	ids := g.sample(pool)
	texts := make([]string, len(ids))
	for i, id := range ids {
		texts[i] = g.src.Text(id)
	}
	return strings.Join(texts, "\n\n")
}

// sample draws min(SampleSize, len(pool)) distinct indices uniformly.
func (g *Generator) sample(pool []int) []int {
	k := g.opts.SampleSize
	if k > len(pool) {
		k = len(pool)
	}
	cp := append([]int(nil), pool...)
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := 0; i < k; i++ {
		j := i + g.rng.IntN(len(cp)-i)
		cp[i], cp[j] = cp[j], cp[i]
	}
	return cp[:k]
}

type rawQuestion struct {
	Question    *string  `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex *int     `json:"answer_index"`
}

// Parse decodes one generated question, tolerating a surrounding Markdown
// code fence, and validates its shape.
func Parse(raw string) (domain.QuizQuestion, error) {
	body := stripFence(raw)
	var rq rawQuestion
	if err := json.Unmarshal([]byte(body), &rq); err != nil {
		return domain.QuizQuestion{}, &domain.ParseError{Reason: "invalid JSON", Raw: raw, Err: err}
	}
	switch {
	case rq.Question == nil || strings.TrimSpace(*rq.Question) == "":
		return domain.QuizQuestion{}, &domain.ParseError{Reason: "missing question", Raw: raw}
	case rq.Options == nil:
		return domain.QuizQuestion{}, &domain.ParseError{Reason: "missing options", Raw: raw}
	case rq.AnswerIndex == nil:
		return domain.QuizQuestion{}, &domain.ParseError{Reason: "missing answer_index", Raw: raw}
	case len(rq.Options) != optionCount:
		return domain.QuizQuestion{}, &domain.ParseError{Reason: fmt.Sprintf("expected %d options, got %d", optionCount, len(rq.Options)), Raw: raw}
	case *rq.AnswerIndex < 0 || *rq.AnswerIndex >= optionCount:
		return domain.QuizQuestion{}, &domain.ParseError{Reason: fmt.Sprintf("answer_index %d out of range", *rq.AnswerIndex), Raw: raw}
	}
	for i, o := range rq.Options {
		if strings.TrimSpace(o) == "" {
			return domain.QuizQuestion{}, &domain.ParseError{Reason: fmt.Sprintf("option %d is empty", i), Raw: raw}
		}
	}
	return domain.QuizQuestion{
		Question:    strings.TrimSpace(*rq.Question),
		Options:     rq.Options,
		AnswerIndex: *rq.AnswerIndex,
	}, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// drop an optional language tag such as ```json
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// IsParseError reports whether err marks a skipped, malformed question.
func IsParseError(err error) bool {
	var pe *domain.ParseError
	return errors.As(err, &pe)
}
