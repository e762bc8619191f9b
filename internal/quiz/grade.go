package quiz

import (
	"errors"
	"fmt"
	"strings"

	"coursetutor/internal/domain"
)

// Seconds allowed per question. Any difficulty other than easy or medium
// gets the hard budget.
const (
	easySeconds   = 60
	mediumSeconds = 120
	hardSeconds   = 150
)

// Unanswered marks a question the student skipped.
const Unanswered = -1

// ErrAnswerCount rejects a submission with more answers than questions.
var ErrAnswerCount = errors.New("more answers than questions")

// TimeLimitSeconds is the time budget for a quiz of n questions.
func TimeLimitSeconds(difficulty string, n int) int {
	if n <= 0 {
		return 0
	}
	switch strings.ToLower(strings.TrimSpace(difficulty)) {
	case "easy":
		return n * easySeconds
	case "medium":
		return n * mediumSeconds
	default:
		return n * hardSeconds
	}
}

// Grade is the outcome of marking one submission.
type Grade struct {
	Score   int    `json:"score"`
	Total   int    `json:"total"`
	Correct []bool `json:"correct"`
}

// Mark scores answers against questions position by position. Missing
// trailing answers and Unanswered entries count as wrong.
func Mark(questions []domain.QuizQuestion, answers []int) (Grade, error) {
	if len(answers) > len(questions) {
		return Grade{}, ErrAnswerCount
	}
	g := Grade{Total: len(questions), Correct: make([]bool, len(questions))}
	for i, a := range answers {
		if a == Unanswered {
			continue
		}
		if a < 0 || a >= len(questions[i].Options) {
			return Grade{}, fmt.Errorf("answer %d: option %d out of range", i+1, a)
		}
		if a == questions[i].AnswerIndex {
			g.Correct[i] = true
			g.Score++
		}
	}
	return g, nil
}
