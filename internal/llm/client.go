// Package llm adapts a langchaingo chat model to the domain Completer.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"coursetutor/internal/config"
	"coursetutor/internal/domain"
)

// Client sends chat completions to an OpenAI-compatible endpoint.
type Client struct {
	model llms.Model
	name  string
}

// New creates a client for the configured endpoint; the API key is read
// from the environment variable named in cfg.
func New(cfg config.LLMConfig) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	m, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(key, "Bearer ")),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}
	return &Client{model: m, name: cfg.Model}, nil
}

// NewWithModel wraps an existing langchaingo model.
func NewWithModel(m llms.Model, name string) *Client {
	return &Client{model: m, name: name}
}

// Complete returns the first choice of a single chat completion.
func (c *Client) Complete(ctx context.Context, messages []domain.Message, opts domain.CompletionOptions) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.TextParts(chatRole(m.Role), m.Content))
	}
	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}
	log.Debug().Str("model", c.name).Int("messages", len(messages)).
		Float64("temperature", opts.Temperature).Msg("requesting completion")

	resp, err := c.model.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return "", domain.Upstream("llm", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", domain.Upstream("llm", errors.New("empty completion response"))
	}
	return resp.Choices[0].Content, nil
}

func chatRole(r domain.Role) llms.ChatMessageType {
	switch r {
	case domain.RoleSystem:
		return llms.ChatMessageTypeSystem
	case domain.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
