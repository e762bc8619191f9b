package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"coursetutor/internal/config"
	"coursetutor/internal/domain"
)

type fakeModel struct {
	got  []llms.MessageContent
	opts llms.CallOptions
	resp *llms.ContentResponse
	err  error
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.got = messages
	for _, o := range options {
		o(&f.opts)
	}
	return f.resp, f.err
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", errors.New("not used")
}

func TestComplete_MapsRolesAndOptions(t *testing.T) {
	m := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "hello"}}}}
	c := NewWithModel(m, "test")

	out, err := c.Complete(context.Background(), []domain.Message{
		{Role: domain.RoleSystem, Content: "sys"},
		{Role: domain.RoleUser, Content: "q"},
		{Role: domain.RoleAssistant, Content: "a"},
	}, domain.CompletionOptions{Temperature: 0.2, MaxTokens: 700})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if out != "hello" {
		t.Fatalf("got %q", out)
	}
	want := []llms.ChatMessageType{llms.ChatMessageTypeSystem, llms.ChatMessageTypeHuman, llms.ChatMessageTypeAI}
	if len(m.got) != len(want) {
		t.Fatalf("sent %d messages", len(m.got))
	}
	for i, role := range want {
		if m.got[i].Role != role {
			t.Fatalf("message %d role = %s, want %s", i, m.got[i].Role, role)
		}
	}
	if m.opts.Temperature != 0.2 || m.opts.MaxTokens != 700 {
		t.Fatalf("options not applied: %+v", m.opts)
	}
}

func TestComplete_ErrorsAreUpstream(t *testing.T) {
	c := NewWithModel(&fakeModel{err: errors.New("rate limited")}, "test")
	_, err := c.Complete(context.Background(), nil, domain.CompletionOptions{})
	if !domain.IsUpstream(err) {
		t.Fatalf("expected upstream error, got %v", err)
	}

	empty := NewWithModel(&fakeModel{resp: &llms.ContentResponse{}}, "test")
	if _, err := empty.Complete(context.Background(), nil, domain.CompletionOptions{}); !domain.IsUpstream(err) {
		t.Fatalf("expected upstream error on empty response, got %v", err)
	}
}

func TestNew_MissingKey(t *testing.T) {
	t.Setenv("COURSETUTOR_TEST_LLM_KEY", "")
	if _, err := New(config.LLMConfig{APIKeyEnv: "COURSETUTOR_TEST_LLM_KEY"}); err == nil {
		t.Fatalf("expected missing key error")
	}
}
