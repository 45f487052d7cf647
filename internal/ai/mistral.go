// mistral.go - Mistral OCR provider

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultMistralEndpoint is the Mistral OCR API endpoint.
const DefaultMistralEndpoint = "https://api.mistral.ai/v1/ocr"

// MistralRecognizer implements TextRecognizer with the Mistral OCR API.
type MistralRecognizer struct {
	apiKey    string
	modelName string
	endpoint  string
	client    *http.Client
	policy    callPolicy
}

// NewMistralRecognizer creates a new Mistral OCR provider
func NewMistralRecognizer(cfg ProviderConfig, logger *zap.Logger) *MistralRecognizer {
	return &MistralRecognizer{
		apiKey:    cfg.MistralAPIKey,
		modelName: cfg.MistralModel,
		endpoint:  DefaultMistralEndpoint,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		policy: newCallPolicy(cfg.RequestsPerMinute, cfg.MaxAttempts, logger),
	}
}

// WithEndpoint points the recognizer at another OCR endpoint.
func (m *MistralRecognizer) WithEndpoint(endpoint string) *MistralRecognizer {
	m.endpoint = endpoint
	return m
}

// Name returns "mistral"
func (m *MistralRecognizer) Name() string {
	return "mistral"
}

// Mistral OCR API request/response structures
type mistralOCRDocument struct {
	Type     string `json:"type"`
	ImageURL string `json:"image_url,omitempty"`
}

type mistralOCRRequest struct {
	Model    string             `json:"model"`
	Document mistralOCRDocument `json:"document"`
}

type mistralOCRPage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

type mistralOCRUsageInfo struct {
	PagesProcessed int `json:"pages_processed"`
	DocSizeBytes   int `json:"doc_size_bytes,omitempty"`
}

type mistralOCRResponse struct {
	Model     string              `json:"model"`
	Pages     []mistralOCRPage    `json:"pages"`
	UsageInfo mistralOCRUsageInfo `json:"usage_info"`
}

type mistralErrorResponse struct {
	Message string `json:"message"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Recognize sends the image as a base64 data URL and joins the markdown of
// all returned pages.
func (m *MistralRecognizer) Recognize(ctx context.Context, image InlineImage) (*Recognition, error) {
	request := mistralOCRRequest{
		Model: m.modelName,
		Document: mistralOCRDocument{
			Type:     "image_url",
			ImageURL: dataURI(image),
		},
	}

	var result *Recognition
	err := m.policy.invoke(ctx, m.Name(), PurposeRecognize, func(ctx context.Context) (Usage, error) {
		response, err := m.callOCRAPI(ctx, request)
		if err != nil {
			return Usage{}, err
		}

		var text strings.Builder
		for i, page := range response.Pages {
			if i > 0 {
				text.WriteString("\n\n")
			}
			text.WriteString(page.Markdown)
		}

		// Pages stand in for tokens; OCR is billed per page
		usage := Usage{InputTokens: response.UsageInfo.PagesProcessed, TotalTokens: response.UsageInfo.PagesProcessed}
		result = &Recognition{Text: text.String(), Model: response.Model, Usage: usage}
		return usage, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// callOCRAPI makes HTTP request to the Mistral OCR API
func (m *MistralRecognizer) callOCRAPI(ctx context.Context, request mistralOCRRequest) (*mistralOCRResponse, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(respBody)
		var errorResp mistralErrorResponse
		if json.Unmarshal(respBody, &errorResp) == nil {
			if errorResp.Error.Message != "" {
				msg = errorResp.Error.Message
			} else if errorResp.Message != "" {
				msg = errorResp.Message
			}
		}
		return nil, newStatusError(m.Name(), resp.StatusCode, msg)
	}

	var response mistralOCRResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to parse OCR response: %w", err)
	}
	return &response, nil
}
