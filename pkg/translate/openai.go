package translate

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const DefaultOpenAIModel = "gpt-4o-mini"

type OpenAIBackend struct {
	client *openai.Client
	model  string
}

func NewOpenAIBackend(apiKey, apiBase, model string, opts ...option.RequestOption) *OpenAIBackend {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if apiBase != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(apiBase))
	}
	reqOpts = append(reqOpts, opts...)
	if model == "" {
		model = DefaultOpenAIModel
	}
	client := openai.NewClient(reqOpts...)
	return &OpenAIBackend{client: &client, model: model}
}

func (b *OpenAIBackend) Name() string { return "openai" }

func (b *OpenAIBackend) Translate(ctx context.Context, text, source, target string) (string, error) {
	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(b.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt(source, target)),
			openai.UserMessage(text),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai translate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai translate: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
