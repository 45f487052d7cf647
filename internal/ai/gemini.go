// gemini.go - Gemini generation and OCR providers

package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiGenerator implements Generator with the Gemini API. Verification
// and best-guess prompts go to verifyModel; everything else to model.
type GeminiGenerator struct {
	client      *genai.Client
	model       string
	verifyModel string
	policy      callPolicy
}

// NewGeminiGenerator creates a Gemini client. Close releases it.
func NewGeminiGenerator(ctx context.Context, cfg ProviderConfig, logger *zap.Logger, opts ...option.ClientOption) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(cfg.GeminiAPIKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	verifyModel := cfg.VerifyModel
	if verifyModel == "" {
		verifyModel = cfg.GenerationModel
	}
	return &GeminiGenerator{
		client:      client,
		model:       cfg.GenerationModel,
		verifyModel: verifyModel,
		policy:      newCallPolicy(cfg.RequestsPerMinute, cfg.MaxAttempts, logger),
	}, nil
}

// Name returns "gemini"
func (g *GeminiGenerator) Name() string {
	return "gemini"
}

// Close releases the underlying client.
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

// Generate sends the prompt text followed by its images.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt Prompt) (*Completion, error) {
	modelName := g.model
	if prompt.Purpose == PurposeVerify || prompt.Purpose == PurposeBestGuess {
		modelName = g.verifyModel
	}

	model := g.client.GenerativeModel(modelName)
	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: ptr(int32(2048)),
		Temperature:     ptrFloat(0),
	}
	model.ResponseMIMEType = "application/json"

	parts := []genai.Part{genai.Text(prompt.Text)}
	for _, img := range prompt.Images {
		parts = append(parts, genai.Blob{MIMEType: img.MIMEType, Data: img.Data})
	}

	var completion *Completion
	err := g.policy.invoke(ctx, g.Name(), prompt.Purpose, func(ctx context.Context) (Usage, error) {
		resp, err := model.GenerateContent(ctx, parts...)
		if err != nil {
			return Usage{}, err
		}
		usage := geminiUsage(resp)
		text := responseText(resp)
		if text == "" {
			return usage, ErrEmptyResponse
		}
		completion = &Completion{Text: text, Model: modelName, Usage: usage}
		return usage, nil
	})
	if err != nil {
		return nil, err
	}
	return completion, nil
}

// GeminiRecognizer implements TextRecognizer by asking a multimodal Gemini
// model for a plain transcription.
type GeminiRecognizer struct {
	client *genai.Client
	model  string
	policy callPolicy
}

// NewGeminiRecognizer creates a Gemini OCR provider.
func NewGeminiRecognizer(ctx context.Context, cfg ProviderConfig, logger *zap.Logger, opts ...option.ClientOption) (*GeminiRecognizer, error) {
	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(cfg.GeminiAPIKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiRecognizer{
		client: client,
		model:  cfg.OCRModel,
		policy: newCallPolicy(cfg.RequestsPerMinute, cfg.MaxAttempts, logger),
	}, nil
}

// Name returns "gemini"
func (r *GeminiRecognizer) Name() string {
	return "gemini"
}

// Close releases the underlying client.
func (r *GeminiRecognizer) Close() error {
	return r.client.Close()
}

// Recognize transcribes the label text. A response cut at the token limit
// is still returned; the lines read so far remain usable.
func (r *GeminiRecognizer) Recognize(ctx context.Context, image InlineImage) (*Recognition, error) {
	model := r.client.GenerativeModel(r.model)
	// Set explicit MaxOutputTokens to prevent silent truncation
	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: ptr(int32(8192)),
	}

	var result *Recognition
	err := r.policy.invoke(ctx, r.Name(), PurposeRecognize, func(ctx context.Context) (Usage, error) {
		resp, err := model.GenerateContent(ctx,
			genai.Text(BuildOCRPrompt()),
			genai.Blob{MIMEType: image.MIMEType, Data: image.Data},
		)
		if err != nil {
			return Usage{}, err
		}
		usage := geminiUsage(resp)
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonMaxTokens {
			r.policy.logger.Warn("OCR response truncated at token limit", zap.String("model", r.model))
		}
		result = &Recognition{Text: StripCodeFence(responseText(resp)), Model: r.model, Usage: usage}
		return usage, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String())
}

func geminiUsage(resp *genai.GenerateContentResponse) Usage {
	if resp == nil || resp.UsageMetadata == nil {
		return Usage{}
	}
	return Usage{
		InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
		OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
	}
}

func ptr(i int32) *int32 {
	return &i
}

func ptrFloat(f float32) *float32 {
	return &f
}
