package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

var testImage = InlineImage{MIMEType: "image/png", Data: []byte("png-bytes")}

func TestOpenAIGenerator(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"image_url"`)
		assert.Contains(t, string(body), "data:image/png;base64,")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-test",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"sameProduct\": true}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 100, "completion_tokens": 5, "total_tokens": 105}
		}`))
	}))
	defer srv.Close()

	gen := NewOpenAIGenerator(ProviderConfig{OpenAIAPIKey: "sk-test", OpenAIBaseURL: srv.URL + "/v1", OpenAIModel: "gpt-test"}, nil)
	assert.Equal(t, "openai", gen.Name())

	out, err := gen.Generate(context.Background(), Prompt{Purpose: PurposeVerify, Text: BuildVerifyPrompt(), Images: []InlineImage{testImage, testImage}})
	require.NoError(t, err)
	assert.Equal(t, `{"sameProduct": true}`, out.Text)
	assert.Equal(t, Usage{InputTokens: 100, OutputTokens: 5, TotalTokens: 105}, out.Usage)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestOpenAIGeneratorErrorIsCategorized(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "slow down", "type": "rate_limit_error"}}`))
	}))
	defer srv.Close()

	gen := NewOpenAIGenerator(ProviderConfig{OpenAIAPIKey: "k", OpenAIBaseURL: srv.URL + "/v1", OpenAIModel: "m"}, nil)
	_, err := gen.Generate(context.Background(), Prompt{Purpose: PurposeRerank, Text: "x"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "rate_limit", apiErr.Category)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "no retry by default")
}

func TestMistralRecognizer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req mistralOCRRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mistral-ocr-latest", req.Model)
		assert.Equal(t, "image_url", req.Document.Type)
		assert.True(t, strings.HasPrefix(req.Document.ImageURL, "data:image/png;base64,"))

		_, _ = w.Write([]byte(`{"model": "mistral-ocr-latest", "pages": [{"index": 0, "markdown": "칠성사이다"}, {"index": 1, "markdown": "500ml"}], "usage_info": {"pages_processed": 2}}`))
	}))
	defer srv.Close()

	rec := NewMistralRecognizer(ProviderConfig{MistralAPIKey: "k", MistralModel: "mistral-ocr-latest"}, nil).WithEndpoint(srv.URL)
	out, err := rec.Recognize(context.Background(), testImage)
	require.NoError(t, err)
	assert.Equal(t, "칠성사이다\n\n500ml", out.Text)
	assert.Equal(t, 2, out.Usage.InputTokens)
}

func TestMistralRecognizerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "Unauthorized"}`))
	}))
	defer srv.Close()

	rec := NewMistralRecognizer(ProviderConfig{MistralAPIKey: "bad", MistralModel: "m"}, nil).WithEndpoint(srv.URL)
	_, err := rec.Recognize(context.Background(), testImage)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "unauthorized", apiErr.Category)
	assert.Equal(t, "mistral", apiErr.Provider)
}

func TestVisionRecognizer(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"text found", `{"responses": [{"textAnnotations": [{"description": "콜라\n펩시콜라"}, {"description": "콜라"}]}]}`, "콜라\n펩시콜라"},
		{"no text", `{"responses": [{}]}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/images:annotate"), r.URL.Path)
				body, _ := io.ReadAll(r.Body)
				assert.Contains(t, string(body), "TEXT_DETECTION")
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			rec, err := NewVisionRecognizer(context.Background(), ProviderConfig{VisionAPIKey: "k"}, nil,
				option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
			require.NoError(t, err)

			out, err := rec.Recognize(context.Background(), testImage)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Text)
		})
	}
}

func TestGeminiResponseHelpers(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(" {\"index\": "), genai.Text("2} ")}},
		}},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 12, CandidatesTokenCount: 3, TotalTokenCount: 15},
	}
	assert.Equal(t, `{"index": 2}`, responseText(resp))
	assert.Equal(t, Usage{InputTokens: 12, OutputTokens: 3, TotalTokens: 15}, geminiUsage(resp))

	assert.Empty(t, responseText(nil))
	assert.Empty(t, responseText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}))
	assert.Equal(t, Usage{}, geminiUsage(&genai.GenerateContentResponse{}))
}

func TestFactoryUnsupported(t *testing.T) {
	_, err := CreateGenerator(context.Background(), ProviderConfig{GenerationProvider: "claude"}, nil)
	assert.Error(t, err)

	_, err = CreateRecognizer(context.Background(), ProviderConfig{RecognitionProvider: "tesseract"}, nil)
	assert.Error(t, err)
}

func TestFactoryHTTPProviders(t *testing.T) {
	gen, err := CreateGenerator(context.Background(), ProviderConfig{GenerationProvider: "openai", OpenAIAPIKey: "k", OpenAIModel: "m"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "openai", gen.Name())

	rec, err := CreateRecognizer(context.Background(), ProviderConfig{RecognitionProvider: "mistral", MistralAPIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "mistral", rec.Name())
}

func TestPrompts(t *testing.T) {
	assert.Contains(t, BuildVariantPrompt("사이다"), `"사이다"`)

	rerank := BuildRerankPrompt("칠성사이다", []string{"칠성사이다", "사이다"}, 5)
	assert.Contains(t, rerank, "최대 5개")
	assert.Contains(t, rerank, "- 칠성사이다\n- 사이다\n")

	guess := BuildBestGuessPrompt("사이다", []string{"칠성사이다", "스프라이트"})
	assert.Contains(t, guess, "1. 칠성사이다\n2. 스프라이트\n")
	assert.Contains(t, BuildVerifyPrompt(), `"sameProduct"`)
}
