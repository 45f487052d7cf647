// invoke.go - Shared pacing, retry and metrics around provider calls

package ai

import (
	"context"
	"time"

	"github.com/bosocmputer/product_label_matcher/internal/metrics"
	"github.com/bosocmputer/product_label_matcher/internal/ratelimit"
	"go.uber.org/zap"
)

// callPolicy holds what every provider applies around a single API call.
type callPolicy struct {
	limiter *ratelimit.Limiter
	retry   RetryConfig
	logger  *zap.Logger
}

func newCallPolicy(rpm, maxAttempts int, logger *zap.Logger) callPolicy {
	retry := DefaultRetryConfig
	if maxAttempts > 0 {
		retry.MaxAttempts = maxAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return callPolicy{limiter: ratelimit.NewPerMinute(rpm), retry: retry, logger: logger}
}

// invoke waits for the limiter, runs call with retry and records metrics.
// Each attempt waits for the limiter separately.
func (p callPolicy) invoke(ctx context.Context, provider, purpose string, call func(ctx context.Context) (Usage, error)) error {
	start := time.Now()
	var usage Usage

	err := WithRetry(ctx, provider, p.retry, p.logger, func(ctx context.Context) error {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
		u, err := call(ctx)
		usage = u
		return err
	})

	metrics.ExternalCallDuration.WithLabelValues(provider, purpose).Observe(time.Since(start).Seconds())
	status := "success"
	if err != nil {
		status = "error"
		if apiErr, ok := err.(*APIError); ok {
			status = apiErr.Category
		}
	}
	metrics.ExternalCallsTotal.WithLabelValues(provider, purpose, status).Inc()
	if usage.InputTokens > 0 || usage.OutputTokens > 0 {
		metrics.TokensTotal.WithLabelValues(provider, "input").Add(float64(usage.InputTokens))
		metrics.TokensTotal.WithLabelValues(provider, "output").Add(float64(usage.OutputTokens))
	}

	p.logger.Debug("provider call finished",
		zap.String("provider", provider),
		zap.String("purpose", purpose),
		zap.String("status", status),
		zap.Duration("duration", time.Since(start)),
		zap.Int("tokens", usage.TotalTokens),
	)
	return err
}
