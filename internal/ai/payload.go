// payload.go - Extract structured JSON payloads from model text

package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyResponse means the model returned no text at all.
	ErrEmptyResponse = errors.New("ai: empty model response")
	// ErrUnparseablePayload means no JSON value could be decoded from the response.
	ErrUnparseablePayload = errors.New("ai: unparseable model payload")
)

// StripCodeFence trims the text and removes a surrounding Markdown code
// fence (``` or ```json) if present.
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the info string (json, JSON, ...) on the opening fence line
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		if info := strings.TrimSpace(s[:nl]); !strings.ContainsAny(info, "{[\"") {
			s = s[nl+1:]
		}
	} else {
		s = strings.TrimPrefix(strings.TrimSpace(s), "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// DecodePayload decodes a JSON value from model text into v. It tries the
// fence-stripped text first, then the outermost {...} or [...] span found
// in it. The returned error wraps ErrEmptyResponse or ErrUnparseablePayload.
// Callers decide whether a failure is tolerable.
func DecodePayload(text string, v interface{}) error {
	cleaned := StripCodeFence(text)
	if cleaned == "" {
		return ErrEmptyResponse
	}

	firstErr := json.Unmarshal([]byte(cleaned), v)
	if firstErr == nil {
		return nil
	}

	if span := extractJSONSpan(cleaned); span != "" && span != cleaned {
		if err := json.Unmarshal([]byte(span), v); err == nil {
			return nil
		}
	}

	return fmt.Errorf("%w: %v (snippet: %s)", ErrUnparseablePayload, firstErr, snippet(cleaned, 160))
}

// extractJSONSpan returns the substring from the first opening brace or
// bracket to the matching last closing one.
func extractJSONSpan(s string) string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return ""
	}
	return s[start : end+1]
}

func snippet(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
