// Package answer builds the professor-persona prompt and asks the generative
// model for a grounded reply.
package answer

import (
	"context"
	"strings"

	"coursetutor/internal/domain"
)

// OutOfScope is returned verbatim when a question is unrelated to the course.
const OutOfScope = "This question appears to be outside the scope of the current course syllabus."

const (
	temperature = 0.2
	maxTokens   = 700
)

// HistoryLimit caps how many earlier turns reach the model.
const HistoryLimit = 6

const persona = `You are a university professor teaching this course.

Your behaviour rules:

1. First determine whether the student's question is:
   A) Directly covered in the course material
   B) Closely related to course topics but not explicitly covered
   C) Completely unrelated to the course

2. If A:
   - Answer clearly using the course material.
   - Explain conceptually.
   - Structure the answer in small readable paragraphs.
   - End with 1 short reflective question.

3. If B:
   - Briefly explain the concept using general academic knowledge.
   - Clearly connect it back to relevant course topics.
   - Do NOT mention "context" or "documents".

4. If C:
   - Respond with:
     "` + OutOfScope + `"
   - Do not elaborate further.

5. Never mention that you are using provided material.
6. Do not fabricate facts.
7. Avoid document-structure questions (units, sections).`

// Synthesizer produces answers from retrieved course material.
type Synthesizer struct {
	llm    domain.Completer
	window int
}

// New returns a synthesizer keeping at most window history turns.
func New(llm domain.Completer, window int) *Synthesizer {
	if window <= 0 || window > HistoryLimit {
		window = HistoryLimit
	}
	return &Synthesizer{llm: llm, window: window}
}

// Messages assembles the chat sent to the model: persona, course material,
// recent history and the question, in that order.
func (s *Synthesizer) Messages(question, material string, history []domain.Message) []domain.Message {
	turns := TruncateHistory(history, s.window)
	msgs := make([]domain.Message, 0, len(turns)+3)
	msgs = append(msgs,
		domain.Message{Role: domain.RoleSystem, Content: persona},
		domain.Message{Role: domain.RoleSystem, Content: "Course Material:\n" + material},
	)
	msgs = append(msgs, turns...)
	msgs = append(msgs, domain.Message{Role: domain.RoleUser, Content: question})
	return msgs
}

// Answer asks the model for a reply grounded in material.
func (s *Synthesizer) Answer(ctx context.Context, question, material string, history []domain.Message) (string, error) {
	out, err := s.llm.Complete(ctx, s.Messages(question, material, history),
		domain.CompletionOptions{Temperature: temperature, MaxTokens: maxTokens})
	if err != nil {
		return "", domain.Upstream("llm", err)
	}
	return strings.TrimSpace(out), nil
}

// TruncateHistory drops blank turns and turns whose role is not a chat
// participant, then keeps the most recent window turns in order.
func TruncateHistory(history []domain.Message, window int) []domain.Message {
	kept := make([]domain.Message, 0, len(history))
	for _, m := range history {
		role, ok := NormalizeRole(string(m.Role))
		if !ok || strings.TrimSpace(m.Content) == "" {
			continue
		}
		kept = append(kept, domain.Message{Role: role, Content: m.Content})
	}
	if window >= 0 && len(kept) > window {
		kept = kept[len(kept)-window:]
	}
	return kept
}

// NormalizeRole maps a caller-supplied sender to a chat role. Student turns
// are "user"; bot-side senders become "assistant". System turns are never
// accepted from callers.
func NormalizeRole(sender string) (domain.Role, bool) {
	switch strings.ToLower(strings.TrimSpace(sender)) {
	case "user", "student":
		return domain.RoleUser, true
	case "assistant", "bot", "ai", "tutor":
		return domain.RoleAssistant, true
	default:
		return "", false
	}
}
