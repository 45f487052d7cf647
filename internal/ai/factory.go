// factory.go - Provider factory for generation and recognition

package ai

import (
	"context"
	"fmt"

	"github.com/bosocmputer/product_label_matcher/configs"
	"go.uber.org/zap"
)

// ConfigFromEnv builds a ProviderConfig from the loaded configs package.
func ConfigFromEnv() ProviderConfig {
	return ProviderConfig{
		GenerationProvider:  configs.GENERATION_PROVIDER,
		RecognitionProvider: configs.OCR_PROVIDER,
		GeminiAPIKey:        configs.GEMINI_API_KEY,
		GenerationModel:     configs.GENERATION_MODEL,
		VerifyModel:         configs.VERIFY_MODEL,
		OpenAIAPIKey:        configs.OPENAI_API_KEY,
		OpenAIBaseURL:       configs.OPENAI_BASE_URL,
		OpenAIModel:         configs.OPENAI_MODEL,
		VisionAPIKey:        configs.GOOGLE_VISION_API_KEY,
		OCRModel:            configs.OCR_MODEL_NAME,
		MistralAPIKey:       configs.MISTRAL_API_KEY,
		MistralModel:        configs.MISTRAL_MODEL_NAME,
		RequestsPerMinute:   configs.GENERATION_RPM,
		MaxAttempts:         configs.GENERATION_MAX_ATTEMPTS,
	}
}

// CreateGenerator creates the generation provider named in cfg.
func CreateGenerator(ctx context.Context, cfg ProviderConfig, logger *zap.Logger) (Generator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.GenerationProvider {
	case "gemini":
		logger.Info("creating generation provider", zap.String("provider", "gemini"), zap.String("model", cfg.GenerationModel), zap.String("verify_model", cfg.VerifyModel))
		gen, err := NewGeminiGenerator(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return gen, nil
	case "openai":
		logger.Info("creating generation provider", zap.String("provider", "openai"), zap.String("model", cfg.OpenAIModel))
		return NewOpenAIGenerator(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s (supported: gemini, openai)", cfg.GenerationProvider)
	}
}

// CreateRecognizer creates the text recognition provider named in cfg.
func CreateRecognizer(ctx context.Context, cfg ProviderConfig, logger *zap.Logger) (TextRecognizer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.RecognitionProvider {
	case "vision":
		logger.Info("creating OCR provider", zap.String("provider", "vision"))
		rec, err := NewVisionRecognizer(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return rec, nil
	case "gemini":
		logger.Info("creating OCR provider", zap.String("provider", "gemini"), zap.String("model", cfg.OCRModel))
		rec, err := NewGeminiRecognizer(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return rec, nil
	case "mistral":
		logger.Info("creating OCR provider", zap.String("provider", "mistral"), zap.String("model", cfg.MistralModel))
		return NewMistralRecognizer(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported OCR provider: %s (supported: vision, gemini, mistral)", cfg.RecognitionProvider)
	}
}
