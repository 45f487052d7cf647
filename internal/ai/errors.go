// errors.go - Categorization of provider API errors

package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
)

// APIError represents a categorized provider error
type APIError struct {
	OriginalError error
	Provider      string
	Category      string
	StatusCode    int
	Message       string
	Retryable     bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("[%s/%s] %s (status: %d, retryable: %v)", e.Provider, e.Category, e.Message, e.StatusCode, e.Retryable)
}

func (e *APIError) Unwrap() error {
	return e.OriginalError
}

// CategorizeError analyzes err and determines retry strategy. An error that
// already is an *APIError is returned as is.
func CategorizeError(provider string, err error) *APIError {
	if err == nil {
		return nil
	}

	var already *APIError
	if errors.As(err, &already) {
		return already
	}

	apiErr := &APIError{
		OriginalError: err,
		Provider:      provider,
		Category:      "unknown",
		Message:       err.Error(),
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		applyStatus(apiErr, gErr.Code, gErr.Message)
		return apiErr
	}

	var oErr *openai.APIError
	if errors.As(err, &oErr) {
		applyStatus(apiErr, oErr.HTTPStatusCode, oErr.Message)
		return apiErr
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		applyStatus(apiErr, reqErr.HTTPStatusCode, reqErr.Error())
		return apiErr
	}

	// Check for context errors
	if errors.Is(err, context.DeadlineExceeded) {
		apiErr.Category = "timeout"
		apiErr.Message = "Request timeout - processing took too long"
		apiErr.Retryable = true
		return apiErr
	}
	if errors.Is(err, context.Canceled) {
		apiErr.Category = "canceled"
		apiErr.Message = "Request was canceled"
		return apiErr
	}

	// Check error message for common patterns
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota"):
		apiErr.Category = "quota_exceeded"
		apiErr.Message = "API quota exceeded"
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		apiErr.Category = "timeout"
		apiErr.Message = "Request timeout"
		apiErr.Retryable = true
	case strings.Contains(msg, "connection") || strings.Contains(msg, "network"):
		apiErr.Category = "network_error"
		apiErr.Message = "Network connection error"
		apiErr.Retryable = true
	}
	return apiErr
}

// newStatusError builds an APIError from a raw HTTP status, for providers
// called without an SDK.
func newStatusError(provider string, status int, message string) *APIError {
	apiErr := &APIError{
		OriginalError: fmt.Errorf("%s API error (%d): %s", provider, status, message),
		Provider:      provider,
	}
	applyStatus(apiErr, status, message)
	return apiErr
}

func applyStatus(e *APIError, status int, detail string) {
	e.StatusCode = status
	switch status {
	case http.StatusBadRequest:
		e.Category = "bad_request"
		e.Message = "Invalid request format or parameters"
	case http.StatusUnauthorized:
		e.Category = "unauthorized"
		e.Message = "Invalid API key or authentication failed"
	case http.StatusForbidden:
		e.Category = "forbidden"
		e.Message = "API key lacks required permissions"
	case http.StatusNotFound:
		e.Category = "not_found"
		e.Message = "Model not found or invalid endpoint"
	case http.StatusRequestEntityTooLarge:
		e.Category = "payload_too_large"
		e.Message = "Request size exceeds limit (reduce image size)"
	case http.StatusTooManyRequests:
		e.Category = "rate_limit"
		e.Message = "Rate limit exceeded - too many requests"
		e.Retryable = true
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		e.Category = "server_error"
		e.Message = fmt.Sprintf("%s server error (%d)", e.Provider, status)
		e.Retryable = true
	default:
		e.Category = "unknown_api_error"
		e.Message = fmt.Sprintf("API error: %s", detail)
		e.Retryable = status >= 500
	}
}

// UserFacingError converts a categorized error into a response body with
// guidance for the caller.
func UserFacingError(e *APIError) map[string]interface{} {
	body := map[string]interface{}{
		"error":    "AI processing failed",
		"category": e.Category,
		"details":  e.Message,
	}

	switch e.Category {
	case "rate_limit":
		body["suggestion"] = "Too many requests. Please wait a moment and try again."
		body["retry_after"] = "30-60 seconds"
	case "quota_exceeded":
		body["suggestion"] = "API quota exceeded. Please contact support or try again later."
		body["action_required"] = "upgrade_plan"
	case "unauthorized", "forbidden":
		body["suggestion"] = "API authentication failed. Please contact system administrator."
		body["action_required"] = "check_api_key"
	case "payload_too_large":
		body["suggestion"] = "Image size is too large. Please use a smaller image."
		body["action_required"] = "reduce_image_size"
	case "timeout", "server_error", "network_error":
		body["suggestion"] = "The AI service is temporarily unavailable. Please try again shortly."
		body["retry_recommended"] = true
	default:
		body["suggestion"] = "An unexpected error occurred. Please try again or contact support."
		body["retry_recommended"] = false
	}
	return body
}
