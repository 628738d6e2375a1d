package expansion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ErrNoAPIKey is returned when no Anthropic key is configured
var ErrNoAPIKey = errors.New("ANTHROPIC_API_KEY is not set")

// Completer sends a single prompt to a language model and returns its text
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompletionUsage reports token counts of the last completion
type CompletionUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// UsageReporter is implemented by completers that report token usage
type UsageReporter interface {
	LastUsage() CompletionUsage
}

type messageCreator func(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)

// AnthropicCompleter implements Completer on the Messages API
type AnthropicCompleter struct {
	create    messageCreator
	model     string
	maxTokens int64
	lastUsage CompletionUsage
}

// NewAnthropicCompleter builds a client from the expansion config.
// Retries are disabled; a failed request fails the section.
func NewAnthropicCompleter(config *Config) (*AnthropicCompleter, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, ErrNoAPIKey
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if config.RequestTimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.RequestTimeout))
	}

	client := anthropic.NewClient(opts...)
	return &AnthropicCompleter{
		create:    client.Messages.New,
		model:     config.Model,
		maxTokens: config.MaxTokens,
	}, nil
}

// WithMaxTokens returns a copy that requests at most n output tokens
func (c *AnthropicCompleter) WithMaxTokens(n int64) *AnthropicCompleter {
	cp := *c
	cp.maxTokens = n
	return &cp
}

// Complete sends the prompt as a single user message
func (c *AnthropicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := c.create(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}

	c.lastUsage = CompletionUsage{
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: no text content in response", ErrMalformedResponse)
	}
	return sb.String(), nil
}

// LastUsage returns the token usage reported for the last completion
func (c *AnthropicCompleter) LastUsage() CompletionUsage {
	return c.lastUsage
}

// SmokeTest sends a trivial prompt to verify the key and endpoint
func SmokeTest(ctx context.Context, config *Config, timeout time.Duration) (string, error) {
	completer, err := NewAnthropicCompleter(config)
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return completer.WithMaxTokens(100).Complete(ctx, "Say hello in one sentence.")
}
