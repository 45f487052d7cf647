// retry.go - Retry with exponential backoff for provider calls

package ai

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// RetryConfig defines retry behavior for provider calls
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig makes a single attempt; failures surface immediately.
// Raise MaxAttempts to opt into retries of retryable errors.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     1,
	InitialDelay:    1 * time.Second,
	MaxDelay:        8 * time.Second,
	BackoffMultiple: 2.0,
}

// WithRetry runs call until it succeeds, returns a non-retryable error or
// MaxAttempts is reached. Errors are returned categorized as *APIError.
func WithRetry(ctx context.Context, provider string, cfg RetryConfig, logger *zap.Logger, call func(ctx context.Context) error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var lastErr *APIError
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := call(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info("retry succeeded", zap.String("provider", provider), zap.Int("attempt", attempt))
			}
			return nil
		}

		lastErr = CategorizeError(provider, err)
		if !lastErr.Retryable || attempt >= cfg.MaxAttempts {
			break
		}

		delay := calculateBackoff(attempt, cfg)
		// Rate limits get a longer pause
		if lastErr.Category == "rate_limit" {
			delay *= 2
		}
		logger.Warn("provider call failed, retrying",
			zap.String("provider", provider),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", cfg.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(lastErr),
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("context canceled during retry wait: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return lastErr
}

// calculateBackoff computes exponential backoff delay
func calculateBackoff(attempt int, cfg RetryConfig) time.Duration {
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.BackoffMultiple, float64(attempt-1))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	return time.Duration(delay)
}
