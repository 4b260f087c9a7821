package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const DefaultAnthropicModel = "claude-haiku-4-5"

type AnthropicBackend struct {
	client *anthropic.Client
	model  string
}

func NewAnthropicBackend(apiKey, apiBase, model string, opts ...option.RequestOption) *AnthropicBackend {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if apiBase != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(strings.TrimSuffix(strings.TrimRight(apiBase, "/"), "/v1")))
	}
	reqOpts = append(reqOpts, opts...)
	if model == "" {
		model = DefaultAnthropicModel
	}
	client := anthropic.NewClient(reqOpts...)
	return &AnthropicBackend{client: &client, model: model}
}

func (b *AnthropicBackend) Name() string { return "anthropic" }

func (b *AnthropicBackend) Translate(ctx context.Context, text, source, target string) (string, error) {
	resp, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: defaultMaxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt(source, target)}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic translate: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("anthropic translate: empty response")
	}
	return sb.String(), nil
}
