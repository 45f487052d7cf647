// handlers.go - HTTP handlers for label uploads and text resolution.

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bosocmputer/product_label_matcher/internal/ai"
	"github.com/bosocmputer/product_label_matcher/internal/catalog"
	"github.com/bosocmputer/product_label_matcher/internal/common"
	"github.com/bosocmputer/product_label_matcher/internal/resolver"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Maximum upload size for a label image
const maxUploadBytes = 20 << 20

var allowedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true, ".bmp": true,
}

// CatalogProvider hands out the current catalog snapshot.
type CatalogProvider interface {
	Get(ctx context.Context) (*catalog.Index, error)
}

// TextRequest is the body of POST /api/v1/resolve/text.
type TextRequest struct {
	Text string `json:"text" binding:"required"`
}

// Handler serves the resolution endpoints. Each request builds a resolver
// over the catalog snapshot current at that moment.
type Handler struct {
	catalog   CatalogProvider
	deps      resolver.Dependencies
	opts      resolver.Options
	uploadDir string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewHandler creates the HTTP handler.
func NewHandler(cat CatalogProvider, deps resolver.Dependencies, opts resolver.Options, uploadDir string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		catalog:   cat,
		deps:      deps,
		opts:      opts,
		uploadDir: uploadDir,
		timeout:   5 * time.Minute,
		logger:    logger,
	}
}

// WithTimeout sets the per-request processing limit.
func (h *Handler) WithTimeout(d time.Duration) *Handler {
	h.timeout = d
	return h
}

// Register mounts the routes on router.
func (h *Handler) Register(router gin.IRouter) {
	router.GET("/health", h.Health)

	v1 := router.Group("/api/v1")
	v1.POST("/resolve", h.Resolve)
	v1.POST("/resolve/verify", h.ResolveVerified)
	v1.POST("/resolve/text", h.ResolveText)
}

// Health reports service status and the catalog size.
func (h *Handler) Health(c *gin.Context) {
	idx, err := h.catalog.Get(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "degraded",
			"service": "product-label-matcher",
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"service":         "product-label-matcher",
		"catalog_records": idx.Len(),
	})
}

// Resolve handles POST /api/v1/resolve: multipart "image" in, top-N
// catalog matches for the recognized label text out.
func (h *Handler) Resolve(c *gin.Context) {
	h.withUpload(c, func(ctx context.Context, rc *common.RequestContext, r *resolver.Resolver, path string) {
		matches, err := r.ResolveImage(ctx, path)
		if err != nil {
			h.writeError(c, rc, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"request_id": rc.RequestID,
			"matches":    matches,
			"summary":    rc.GetSummary(),
		})
	})
}

// ResolveVerified handles POST /api/v1/resolve/verify: multipart "image"
// in, one Confirmed/BestGuess/NoMatch resolution per detected product out.
func (h *Handler) ResolveVerified(c *gin.Context) {
	h.withUpload(c, func(ctx context.Context, rc *common.RequestContext, r *resolver.Resolver, path string) {
		resolutions, err := r.ResolveWithVerification(ctx, path)
		if err != nil {
			h.writeError(c, rc, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"request_id":  rc.RequestID,
			"resolutions": resolutions,
			"summary":     rc.GetSummary(),
		})
	})
}

// ResolveText handles POST /api/v1/resolve/text with body {"text": "..."}.
func (h *Handler) ResolveText(c *gin.Context) {
	var req TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Invalid request format",
			"details":  err.Error(),
			"expected": `JSON with a non-empty "text" field`,
		})
		return
	}

	ctx, rc, cancel := h.startRequest(c, "text")
	defer cancel()

	r, ok := h.newResolver(ctx, c, rc)
	if !ok {
		return
	}
	matches, err := r.Resolve(ctx, req.Text)
	if err != nil {
		h.writeError(c, rc, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"request_id": rc.RequestID,
		"matches":    matches,
		"summary":    rc.GetSummary(),
	})
}

// withUpload saves the multipart "image" file under uploadDir, runs fn
// and removes the file afterwards.
func (h *Handler) withUpload(c *gin.Context, fn func(ctx context.Context, rc *common.RequestContext, r *resolver.Resolver, path string)) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Missing image file",
			"details":  err.Error(),
			"expected": `multipart/form-data with an "image" field`,
		})
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("Image exceeds %d MB", maxUploadBytes>>20),
		})
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Unsupported image type",
			"details": fmt.Sprintf("extension %q is not one of .jpg, .jpeg, .png, .webp, .gif, .bmp", ext),
		})
		return
	}

	ctx, rc, cancel := h.startRequest(c, file.Filename)
	defer cancel()

	path := filepath.Join(h.uploadDir, uuid.New().String()+ext)
	if err := c.SaveUploadedFile(file, path); err != nil {
		rc.LogError("failed to save upload: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "Failed to save uploaded image",
			"request_id": rc.RequestID,
		})
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			rc.LogWarning("failed to delete temporary file %s: %v", path, err)
		}
	}()

	r, ok := h.newResolver(ctx, c, rc)
	if !ok {
		return
	}
	fn(ctx, rc, r, path)
}

func (h *Handler) startRequest(c *gin.Context, source string) (context.Context, *common.RequestContext, context.CancelFunc) {
	rc := common.NewRequestContext(h.logger, source)
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	return common.WithRequestContext(ctx, rc), rc, cancel
}

func (h *Handler) newResolver(ctx context.Context, c *gin.Context, rc *common.RequestContext) (*resolver.Resolver, bool) {
	rc.StartStep("catalog_load")
	idx, err := h.catalog.Get(ctx)
	rc.EndStep(stepStatus(err), nil, err)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":      "Product catalog unavailable",
			"details":    err.Error(),
			"request_id": rc.RequestID,
		})
		return nil, false
	}
	return resolver.New(idx, h.deps, h.opts, rc.Logger()), true
}

// writeError maps pipeline errors to HTTP responses.
func (h *Handler) writeError(c *gin.Context, rc *common.RequestContext, err error) {
	rc.LogError("request failed: %v", err)

	var apiErr *ai.APIError
	switch {
	case errors.As(err, &apiErr):
		body := gin.H(ai.UserFacingError(apiErr))
		body["request_id"] = rc.RequestID
		status := http.StatusBadGateway
		if apiErr.Category == "rate_limit" {
			status = http.StatusTooManyRequests
		}
		c.JSON(status, body)
	case errors.Is(err, resolver.ErrRerankUnparseable):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":      "Candidate re-ranking failed",
			"details":    err.Error(),
			"request_id": rc.RequestID,
		})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"error":      "Processing timeout",
			"message":    fmt.Sprintf("Processing exceeded %s. Please try again with a clearer image.", h.timeout),
			"request_id": rc.RequestID,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "Resolution failed",
			"details":    err.Error(),
			"request_id": rc.RequestID,
		})
	}
}

func stepStatus(err error) string {
	if err != nil {
		return "failed"
	}
	return "success"
}
