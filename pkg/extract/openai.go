package extract

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIVision asks an OpenAI-compatible chat model with image input.
type OpenAIVision struct {
	client *openai.Client
	model  string
}

func NewOpenAIVision(apiKey, apiBase, model string, opts ...option.RequestOption) *OpenAIVision {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if apiBase != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(apiBase))
	}
	reqOpts = append(reqOpts, opts...)
	if model == "" {
		model = DefaultOpenAIModel
	}
	client := openai.NewClient(reqOpts...)
	return &OpenAIVision{client: &client, model: model}
}

func (v *OpenAIVision) Name() string { return "openai" }

func (v *OpenAIVision) Extract(ctx context.Context, image []byte) (Content, error) {
	if len(image) == 0 {
		return Content{}, ErrEmptyImage
	}
	dataURL := "data:" + mediaType(image) + ";base64," + base64.StdEncoding.EncodeToString(image)

	resp, err := v.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(v.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(visionPrompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
	})
	if err != nil {
		return Content{}, fmt.Errorf("openai vision: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Content{}, errors.New("openai vision: no choices returned")
	}
	return parseVisionAnswer(resp.Choices[0].Message.Content), nil
}
