package extract

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const DefaultAnthropicModel = "claude-haiku-4-5"

type AnthropicVision struct {
	client *anthropic.Client
	model  string
}

func NewAnthropicVision(apiKey, apiBase, model string, opts ...option.RequestOption) *AnthropicVision {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if apiBase != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(strings.TrimSuffix(strings.TrimRight(apiBase, "/"), "/v1")))
	}
	reqOpts = append(reqOpts, opts...)
	if model == "" {
		model = DefaultAnthropicModel
	}
	client := anthropic.NewClient(reqOpts...)
	return &AnthropicVision{client: &client, model: model}
}

func (v *AnthropicVision) Name() string { return "anthropic" }

func (v *AnthropicVision) Extract(ctx context.Context, image []byte) (Content, error) {
	if len(image) == 0 {
		return Content{}, ErrEmptyImage
	}

	resp, err := v.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(v.model),
		MaxTokens: defaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mediaType(image), base64.StdEncoding.EncodeToString(image)),
				anthropic.NewTextBlock(visionPrompt),
			),
		},
	})
	if err != nil {
		return Content{}, fmt.Errorf("anthropic vision: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	return parseVisionAnswer(sb.String()), nil
}
