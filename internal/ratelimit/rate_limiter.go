// rate_limiter.go - Request pacing for recognition and generation API calls

package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outbound calls. A nil *Limiter never blocks.
type Limiter struct {
	limiter *rate.Limiter
}

// NewPerMinute allows rpm requests per minute with a burst of one, so calls
// are spread evenly. rpm <= 0 disables pacing and returns nil.
func NewPerMinute(rpm int) *Limiter {
	if rpm <= 0 {
		return nil
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)}
}

// Wait blocks until a call may proceed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}

// Limit reports the configured rate in events per second; 0 when disabled.
func (l *Limiter) Limit() float64 {
	if l == nil {
		return 0
	}
	return float64(l.limiter.Limit())
}
