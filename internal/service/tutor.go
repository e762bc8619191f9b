package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"coursetutor/internal/answer"
	"coursetutor/internal/domain"
	"coursetutor/internal/quiz"
	"coursetutor/internal/rerank"
	"coursetutor/internal/retriever"
	"coursetutor/internal/topics"
)

// User-visible quiz failures.
const (
	MsgNoContent    = "No content found for selected topics."
	MsgInsufficient = "Insufficient material for quiz generation."
	MsgQuizFailed   = "Quiz generation failed."
)

var (
	// ErrEmptyQuestion rejects blank questions before any retrieval happens.
	ErrEmptyQuestion = errors.New("question must not be empty")
	ErrNoQuestions   = errors.New("no questions to grade")
)

// AnswerResponse is the result of a chat question.
type AnswerResponse struct {
	Answer     string `json:"answer"`
	OutOfScope bool   `json:"outOfScope,omitempty"`
}

// QuizResponse is the result of a quiz request. Questions is always present
// when OK is set, possibly empty.
type QuizResponse struct {
	OK         bool                  `json:"ok"`
	Questions  []domain.QuizQuestion `json:"questions,omitempty"`
	Error      string                `json:"error,omitempty"`
	Difficulty string                `json:"difficulty,omitempty"`
	// TimeLimitSeconds is the attempt budget for the generated questions.
	TimeLimitSeconds int `json:"time_limit_seconds,omitempty"`
}

// GradeRequest is a submitted attempt. Answers[i] is the chosen option for
// Questions[i], or quiz.Unanswered.
type GradeRequest struct {
	Questions []domain.QuizQuestion `json:"questions"`
	Answers   []int                 `json:"answers"`
}

// MarshalJSON keeps an empty question list visible on success.
func (r QuizResponse) MarshalJSON() ([]byte, error) {
	type plain QuizResponse
	if !r.OK {
		return json.Marshal(plain(r))
	}
	qs := r.Questions
	if qs == nil {
		qs = []domain.QuizQuestion{}
	}
	return json.Marshal(struct {
		plain
		Questions []domain.QuizQuestion `json:"questions"`
	}{plain(r), qs})
}

// Tutor is the process-wide service context. It is built once at startup and
// never mutated, so handlers may share it freely.
type Tutor struct {
	retriever *retriever.Retriever
	reranker  *rerank.Reranker
	answers   *answer.Synthesizer
	quizzes   *quiz.Generator
	topics    *topics.Map
	rerank    bool
	chunks    int
	overview  string
}

// Deps are the collaborators a Tutor is assembled from.
type Deps struct {
	Retriever *retriever.Retriever
	Reranker  *rerank.Reranker
	Answers   *answer.Synthesizer
	Quizzes   *quiz.Generator
	Topics    *topics.Map
	Rerank    bool
	Chunks    int
	Overview  string
}

func NewTutor(d Deps) *Tutor {
	return &Tutor{
		retriever: d.Retriever,
		reranker:  d.Reranker,
		answers:   d.Answers,
		quizzes:   d.Quizzes,
		topics:    d.Topics,
		rerank:    d.Rerank,
		chunks:    d.Chunks,
		overview:  d.Overview,
	}
}

// Answer replies to a chat question using the full-corpus index. A question
// below the relevance floor gets the fixed out-of-scope reply without any
// call to the generative model.
func (t *Tutor) Answer(ctx context.Context, question string, history []domain.Message) (AnswerResponse, error) {
	ctx, logger := withRequest(ctx, "answer")
	question = strings.TrimSpace(question)
	if question == "" {
		return AnswerResponse{}, ErrEmptyQuestion
	}
	start := time.Now()

	hits, err := t.retriever.Scoped(ctx, question)
	if errors.Is(err, domain.ErrOutOfScope) {
		logger.Info().Dur("took", time.Since(start)).Msg("out of scope")
		return AnswerResponse{Answer: answer.OutOfScope, OutOfScope: true}, nil
	}
	if err != nil {
		logger.Error().Err(err).Msg("retrieval failed")
		return AnswerResponse{}, err
	}

	reply, err := t.answers.Answer(ctx, question, retriever.JoinContext(hits), history)
	if err != nil {
		logger.Error().Err(err).Msg("answer synthesis failed")
		return AnswerResponse{}, err
	}
	logger.Info().Int("hits", len(hits)).Float64("top_score", hits[0].Score).Dur("took", time.Since(start)).Msg("answered")
	return AnswerResponse{Answer: reply}, nil
}

// Query answers a one-off question through keyword narrowing, an ad-hoc
// index and optional reranking.
func (t *Tutor) Query(ctx context.Context, question string) (string, error) {
	ctx, logger := withRequest(ctx, "query")
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}
	hits, err := t.retriever.AdHoc(ctx, question)
	if err != nil {
		logger.Error().Err(err).Msg("retrieval failed")
		return "", err
	}
	material := retriever.JoinContext(hits)
	if t.rerank {
		material = t.reranker.RerankOrKeep(ctx, question, material)
	}
	reply, err := t.answers.Answer(ctx, question, material, nil)
	if err != nil {
		logger.Error().Err(err).Msg("answer synthesis failed")
		return "", err
	}
	logger.Info().Int("hits", len(hits)).Bool("reranked", t.rerank).Msg("answered")
	return reply, nil
}

// ListTopics returns the course structure in declaration order.
func (t *Tutor) ListTopics() []topics.Topic {
	return t.topics.List()
}

// GenerateQuiz never returns an error; failures are reported in the response
// with a fixed message.
func (t *Tutor) GenerateQuiz(ctx context.Context, req quiz.Request) QuizResponse {
	ctx, logger := withRequest(ctx, "quiz")
	res, err := t.quizzes.Generate(ctx, req)
	if err != nil {
		resp := QuizResponse{Difficulty: req.Difficulty}
		switch {
		case errors.Is(err, domain.ErrNoCandidates):
			resp.Error = MsgNoContent
		case errors.Is(err, domain.ErrInsufficientContext):
			resp.Error = MsgInsufficient
		default:
			resp.Error = MsgQuizFailed
		}
		logger.Warn().Err(err).Strs("units", req.Units).Msg("quiz not generated")
		return resp
	}
	skipped := 0
	for _, a := range res.Attempts {
		if a.Err != nil {
			skipped++
		}
	}
	qs := res.Questions()
	logger.Info().Int("questions", len(qs)).Int("skipped", skipped).Msg("quiz generated")
	return QuizResponse{
		OK:               true,
		Questions:        qs,
		Difficulty:       req.Difficulty,
		TimeLimitSeconds: quiz.TimeLimitSeconds(req.Difficulty, len(qs)),
	}
}

// GradeQuiz marks a submitted attempt.
func (t *Tutor) GradeQuiz(ctx context.Context, req GradeRequest) (quiz.Grade, error) {
	_, logger := withRequest(ctx, "grade")
	if len(req.Questions) == 0 {
		return quiz.Grade{}, ErrNoQuestions
	}
	g, err := quiz.Mark(req.Questions, req.Answers)
	if err != nil {
		return quiz.Grade{}, err
	}
	logger.Info().Int("score", g.Score).Int("total", g.Total).Msg("quiz graded")
	return g, nil
}

// Chunks returns the corpus size.
func (t *Tutor) Chunks() int { return t.chunks }

// Overview returns a short extractive summary of the corpus.
func (t *Tutor) Overview() string { return t.overview }

func withRequest(ctx context.Context, op string) (context.Context, *zerolog.Logger) {
	logger := log.With().Str("request_id", uuid.NewString()).Str("op", op).Logger()
	return logger.WithContext(ctx), &logger
}
