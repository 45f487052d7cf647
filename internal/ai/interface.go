// interface.go - Provider interfaces for text recognition and generation

package ai

import "context"

// Call purposes. They label metrics and logs and let callers tell prompts apart.
const (
	PurposeRecognize = "recognize"
	PurposeDetect    = "detect_products"
	PurposeVariants  = "variant_expansion"
	PurposeRerank    = "rerank"
	PurposeVerify    = "verify"
	PurposeBestGuess = "best_guess"
)

// InlineImage is an image payload sent inline with a prompt.
type InlineImage struct {
	MIMEType string
	Data     []byte
}

// Prompt is one generation request: instruction text plus zero or more images.
type Prompt struct {
	Purpose string
	Text    string
	Images  []InlineImage
}

// Usage reports token consumption for one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Completion is the free-form text returned by a generation call.
type Completion struct {
	Text  string
	Model string
	Usage Usage
}

// Generator sends prompts to a generative model.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (*Completion, error)
	// Name returns the provider name (e.g. "gemini", "openai")
	Name() string
}

// Recognition is the raw text read from an image.
type Recognition struct {
	Text  string
	Model string
	Usage Usage
}

// TextRecognizer reads text from an image. Empty Text means nothing was detected.
type TextRecognizer interface {
	Recognize(ctx context.Context, image InlineImage) (*Recognition, error)
	// Name returns the provider name (e.g. "vision", "gemini", "mistral")
	Name() string
}

// ProviderConfig contains configuration for generation and recognition providers
type ProviderConfig struct {
	GenerationProvider  string // "gemini" or "openai"
	RecognitionProvider string // "vision", "gemini" or "mistral"

	GeminiAPIKey    string
	GenerationModel string
	VerifyModel     string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	VisionAPIKey string
	OCRModel     string

	MistralAPIKey string
	MistralModel  string

	RequestsPerMinute int
	MaxAttempts       int
}
