// openai.go - OpenAI-compatible chat completion provider

package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIGenerator implements Generator against any OpenAI-compatible
// chat completions endpoint that accepts image_url parts.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	policy callPolicy
}

// NewOpenAIGenerator creates the client. An empty base URL uses the
// default OpenAI endpoint.
func NewOpenAIGenerator(cfg ProviderConfig, logger *zap.Logger) *OpenAIGenerator {
	clientCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAIBaseURL
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.OpenAIModel,
		policy: newCallPolicy(cfg.RequestsPerMinute, cfg.MaxAttempts, logger),
	}
}

// Name returns "openai"
func (o *OpenAIGenerator) Name() string {
	return "openai"
}

// Generate sends one user message with the prompt text and inline images
// as data URIs.
func (o *OpenAIGenerator) Generate(ctx context.Context, prompt Prompt) (*Completion, error) {
	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: prompt.Text}}
	for _, img := range prompt.Images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    dataURI(img),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}

	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
	}

	var completion *Completion
	err := o.policy.invoke(ctx, o.Name(), prompt.Purpose, func(ctx context.Context) (Usage, error) {
		resp, err := o.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return Usage{}, err
		}
		usage := Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		}
		if len(resp.Choices) == 0 {
			return usage, ErrEmptyResponse
		}
		text := strings.TrimSpace(resp.Choices[0].Message.Content)
		if text == "" {
			return usage, ErrEmptyResponse
		}
		completion = &Completion{Text: text, Model: resp.Model, Usage: usage}
		return usage, nil
	})
	if err != nil {
		return nil, err
	}
	return completion, nil
}

func dataURI(img InlineImage) string {
	return fmt.Sprintf("data:%s;base64,%s", img.MIMEType, base64.StdEncoding.EncodeToString(img.Data))
}
