// images.go - Loading source and reference images

package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/bosocmputer/product_label_matcher/internal/ai"
	"github.com/bosocmputer/product_label_matcher/internal/processor"
)

// maxImageBytes caps reference image downloads.
const maxImageBytes = 20 << 20

// ImageLoader reads the uploaded label image and downloads catalog
// reference images. Returned payloads are raw; the resolver resizes them.
type ImageLoader interface {
	LoadFile(path string) (ai.InlineImage, error)
	Fetch(ctx context.Context, url string) (ai.InlineImage, error)
}

// HTTPImageLoader reads local files and fetches URLs over HTTP.
type HTTPImageLoader struct {
	client *http.Client
}

// NewHTTPImageLoader creates a loader whose fetches time out after timeout.
func NewHTTPImageLoader(timeout time.Duration) *HTTPImageLoader {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &HTTPImageLoader{client: &http.Client{Timeout: timeout}}
}

// WithClient replaces the HTTP client.
func (l *HTTPImageLoader) WithClient(client *http.Client) *HTTPImageLoader {
	l.client = client
	return l
}

// LoadFile reads an image from disk.
func (l *HTTPImageLoader) LoadFile(path string) (ai.InlineImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ai.InlineImage{}, fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return ai.InlineImage{}, fmt.Errorf("read image: %s is empty", path)
	}
	return ai.InlineImage{MIMEType: processor.DetectMIMEType(data, path), Data: data}, nil
}

// Fetch downloads an image. Non-2xx responses are errors.
func (l *HTTPImageLoader) Fetch(ctx context.Context, url string) (ai.InlineImage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ai.InlineImage{}, fmt.Errorf("build image request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return ai.InlineImage{}, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ai.InlineImage{}, fmt.Errorf("fetch image %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return ai.InlineImage{}, fmt.Errorf("read image body: %w", err)
	}
	if len(data) == 0 {
		return ai.InlineImage{}, fmt.Errorf("fetch image %s: empty body", url)
	}
	return ai.InlineImage{MIMEType: processor.DetectMIMEType(data, url), Data: data}, nil
}
