package assistant

import (
	"context"
	"fmt"
	"strings"

	"orbitus-api/internal/config"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultMaxTokens = 1024

// Provider generates text for a prompt under a system context.
type Provider interface {
	Available() bool
	Generate(ctx context.Context, system, prompt string) (string, error)
}

type AnthropicProvider struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewAnthropicProvider returns nil when no API key is configured.
func NewAnthropicProvider(cfg config.AssistantConfig, opts ...option.RequestOption) *AnthropicProvider {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil
	}

	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(key)}, opts...)...)

	model := anthropic.Model(cfg.Model)
	if cfg.Model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &AnthropicProvider{
		client:    &client,
		model:     model,
		maxTokens: maxTokens,
	}
}

func (p *AnthropicProvider) Available() bool {
	return p != nil && p.client != nil
}

func (p *AnthropicProvider) Generate(ctx context.Context, system, prompt string) (string, error) {
	response, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to call Anthropic API: %w", err)
	}

	var text strings.Builder
	for _, block := range response.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(b.Text)
		}
	}
	return text.String(), nil
}
