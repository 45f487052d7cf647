// request_context.go - Per-run tracking of steps, timing and token cost

package common

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bosocmputer/product_label_matcher/configs"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestContext tracks one resolution run from start to finish.
// Token accounting is safe for concurrent use; step tracking is not.
type RequestContext struct {
	RequestID        string
	Source           string
	StartTime        time.Time
	Steps            []StepLog
	CurrentStep      string
	CurrentStepStart time.Time

	logger *zap.Logger

	mu          sync.Mutex
	totalTokens TokenUsage
}

// StepLog represents a single processing step
type StepLog struct {
	Name      string      `json:"name"`
	StartTime time.Time   `json:"start_time"`
	Duration  int64       `json:"duration_ms"`
	Status    string      `json:"status"` // "success", "failed", "skipped"
	Tokens    *TokenUsage `json:"tokens,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// TokenUsage tracks API token consumption
type TokenUsage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	CostKRW      float64 `json:"cost_krw"`
}

// Add accumulates other into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
	u.CostUSD += other.CostUSD
	u.CostKRW += other.CostKRW
}

// NewRequestContext starts tracking a run. source describes the input
// (file name, "text", ...) and is attached to every log line.
func NewRequestContext(logger *zap.Logger, source string) *RequestContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	reqID := uuid.New().String()
	rc := &RequestContext{
		RequestID: reqID,
		Source:    source,
		StartTime: time.Now(),
		Steps:     []StepLog{},
		logger:    logger.With(zap.String("request_id", reqID)),
	}
	rc.logger.Info("request started", zap.String("source", source))
	return rc
}

type contextKey struct{}

// WithRequestContext attaches rc to ctx so downstream components log and
// account tokens against the same run.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, contextKey{}, rc)
}

// FromContext returns the RequestContext attached to ctx, if any.
func FromContext(ctx context.Context) (*RequestContext, bool) {
	rc, ok := ctx.Value(contextKey{}).(*RequestContext)
	return rc, ok && rc != nil
}

// Logger returns the request-scoped logger.
func (rc *RequestContext) Logger() *zap.Logger {
	return rc.logger
}

// StartStep begins tracking a new processing step
func (rc *RequestContext) StartStep(stepName string) {
	rc.CurrentStep = stepName
	rc.CurrentStepStart = time.Now()
	rc.logger.Debug("step started", zap.String("step", stepName))
}

// EndStep completes the current step and records timing. Tokens passed
// here are added to the run total.
func (rc *RequestContext) EndStep(status string, tokens *TokenUsage, err error) {
	duration := time.Since(rc.CurrentStepStart)

	step := StepLog{
		Name:      rc.CurrentStep,
		StartTime: rc.CurrentStepStart,
		Duration:  duration.Milliseconds(),
		Status:    status,
		Tokens:    tokens,
	}

	fields := []zap.Field{
		zap.String("step", rc.CurrentStep),
		zap.String("status", status),
		zap.Duration("duration", duration),
	}
	if tokens != nil {
		rc.AddTokens(*tokens)
		fields = append(fields, zap.Int("tokens", tokens.TotalTokens), zap.Float64("cost_krw", tokens.CostKRW))
	}

	if err != nil {
		step.Error = err.Error()
		rc.logger.Warn("step failed", append(fields, zap.Error(err))...)
	} else {
		rc.logger.Info("step finished", fields...)
	}

	rc.Steps = append(rc.Steps, step)
	rc.CurrentStep = ""
}

// AddTokens adds usage to the run total without closing a step.
func (rc *RequestContext) AddTokens(usage TokenUsage) {
	rc.mu.Lock()
	rc.totalTokens.Add(usage)
	rc.mu.Unlock()
}

// TotalTokens returns the accumulated usage.
func (rc *RequestContext) TotalTokens() TokenUsage {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.totalTokens
}

// Pricing is a per-million-token price pair in USD.
type Pricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// GenerationPricing is used for detection, variant, re-rank and best-guess calls.
func GenerationPricing() Pricing {
	return Pricing{configs.GENERATION_INPUT_PRICE_PER_MILLION, configs.GENERATION_OUTPUT_PRICE_PER_MILLION}
}

// VerifyPricing is used for pairwise image comparison calls.
func VerifyPricing() Pricing {
	return Pricing{configs.VERIFY_INPUT_PRICE_PER_MILLION, configs.VERIFY_OUTPUT_PRICE_PER_MILLION}
}

// CalculateTokenCost computes USD and KRW cost from token counts
func CalculateTokenCost(inputTokens, outputTokens int, p Pricing) TokenUsage {
	costUSD := float64(inputTokens)*p.InputPerMillion/1_000_000 +
		float64(outputTokens)*p.OutputPerMillion/1_000_000

	return TokenUsage{
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		TotalTokens:  inputTokens + outputTokens,
		CostUSD:      costUSD,
		CostKRW:      costUSD * configs.USD_TO_KRW,
	}
}

// GetSummary returns a final summary of the run and logs it.
func (rc *RequestContext) GetSummary() map[string]interface{} {
	total := time.Since(rc.StartTime)
	tokens := rc.TotalTokens()

	breakdown := make(map[string]int64, len(rc.Steps))
	for _, step := range rc.Steps {
		breakdown[step.Name] += step.Duration
	}

	rc.logger.Info("request finished",
		zap.Duration("duration", total),
		zap.Int("steps", len(rc.Steps)),
		zap.Int("tokens", tokens.TotalTokens),
		zap.Float64("cost_krw", tokens.CostKRW),
	)

	return map[string]interface{}{
		"request_id":        rc.RequestID,
		"source":            rc.Source,
		"total_duration_ms": total.Milliseconds(),
		"step_breakdown":    breakdown,
		"total_steps":       len(rc.Steps),
		"token_usage": map[string]interface{}{
			"input_tokens":  tokens.InputTokens,
			"output_tokens": tokens.OutputTokens,
			"total_tokens":  tokens.TotalTokens,
			"cost_usd":      fmt.Sprintf("$%.4f", tokens.CostUSD),
			"cost_krw":      fmt.Sprintf("₩%.0f", tokens.CostKRW),
		},
	}
}

// LogInfo logs info-level message with the request id attached
func (rc *RequestContext) LogInfo(format string, args ...interface{}) {
	rc.logger.Info(fmt.Sprintf(format, args...))
}

// LogWarning logs warning-level message with the request id attached
func (rc *RequestContext) LogWarning(format string, args ...interface{}) {
	rc.logger.Warn(fmt.Sprintf(format, args...))
}

// LogError logs error-level message with the request id attached
func (rc *RequestContext) LogError(format string, args ...interface{}) {
	rc.logger.Error(fmt.Sprintf(format, args...))
}
