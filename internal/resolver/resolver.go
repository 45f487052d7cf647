// Package resolver turns recognized label text, or a label photo, into
// catalog products: a quick top-N report, or a verified resolution that
// re-ranks candidates with the generation service and compares images.
package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/bosocmputer/product_label_matcher/configs"
	"github.com/bosocmputer/product_label_matcher/internal/ai"
	"github.com/bosocmputer/product_label_matcher/internal/catalog"
	"github.com/bosocmputer/product_label_matcher/internal/common"
	"github.com/bosocmputer/product_label_matcher/internal/processor"
	"github.com/bosocmputer/product_label_matcher/internal/taskqueue"
	"go.uber.org/zap"
)

// FallbackPolicy picks the best guess when no candidate is confirmed.
type FallbackPolicy string

const (
	// FallbackLLM asks the generation service to pick a candidate, and
	// falls back to FallbackScore if that call fails.
	FallbackLLM FallbackPolicy = "llm"
	// FallbackScore takes the first re-ranked candidate.
	FallbackScore FallbackPolicy = "score"
)

// Options tunes the pipeline. Non-positive counts take the DefaultOptions
// value; MaxImageDimension <= 0 disables resizing.
type Options struct {
	SummaryTopN        int
	CoarseTopN         int
	RerankTopK         int
	ExpandVariants     bool
	Fallback           FallbackPolicy
	VerifyWorkers      int
	MaxImageDimension  int
	EnhanceRecognition bool
}

// DefaultOptions returns the standard pipeline settings.
func DefaultOptions() Options {
	return Options{
		SummaryTopN:       3,
		CoarseTopN:        100,
		RerankTopK:        5,
		ExpandVariants:    true,
		Fallback:          FallbackLLM,
		VerifyWorkers:     1,
		MaxImageDimension: 2000,
	}
}

// OptionsFromEnv builds Options from the loaded configs package.
func OptionsFromEnv() Options {
	return Options{
		SummaryTopN:        configs.SUMMARY_TOP_N,
		CoarseTopN:         configs.COARSE_TOP_N,
		RerankTopK:         configs.RERANK_TOP_K,
		ExpandVariants:     configs.EXPAND_VARIANTS,
		Fallback:           FallbackPolicy(configs.FALLBACK_POLICY),
		VerifyWorkers:      configs.VERIFY_WORKERS,
		MaxImageDimension:  configs.MAX_IMAGE_DIMENSION,
		EnhanceRecognition: configs.ENABLE_IMAGE_PREPROCESSING,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.SummaryTopN <= 0 {
		o.SummaryTopN = def.SummaryTopN
	}
	if o.CoarseTopN <= 0 {
		o.CoarseTopN = def.CoarseTopN
	}
	if o.RerankTopK <= 0 {
		o.RerankTopK = def.RerankTopK
	}
	if o.Fallback != FallbackScore {
		o.Fallback = FallbackLLM
	}
	if o.VerifyWorkers <= 0 {
		o.VerifyWorkers = def.VerifyWorkers
	}
	return o
}

// Dependencies are the external collaborators. Any of them may be nil:
// without a Recognizer image input yields no candidates, without a
// Generator variants are skipped and verification is unavailable.
type Dependencies struct {
	Recognizer ai.TextRecognizer
	Generator  ai.Generator
	Images     ImageLoader
}

// Resolver runs the pipeline against one catalog snapshot. It is safe
// for concurrent use; every call owns its transient state.
type Resolver struct {
	matcher    *processor.Matcher
	expander   *VariantExpander
	recognizer ai.TextRecognizer
	gen        ai.Generator
	images     ImageLoader
	queue      *taskqueue.Queue
	opts       Options
	logger     *zap.Logger
}

// New creates a resolver over index.
func New(index *catalog.Index, deps Dependencies, opts Options, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Images == nil {
		deps.Images = NewHTTPImageLoader(20 * time.Second)
	}
	opts = opts.withDefaults()
	return &Resolver{
		matcher:    processor.NewMatcher(index),
		expander:   NewVariantExpander(deps.Generator, logger),
		recognizer: deps.Recognizer,
		gen:        deps.Generator,
		images:     deps.Images,
		queue:      taskqueue.New(opts.VerifyWorkers),
		opts:       opts,
		logger:     logger,
	}
}

// Options returns the effective options.
func (r *Resolver) Options() Options {
	return r.opts
}

// Resolve extracts candidate lines from recognized text, optionally
// expands them into name variants, and returns the top SummaryTopN
// catalog matches. No candidates or an empty catalog give an empty list.
func (r *Resolver) Resolve(ctx context.Context, text string) ([]processor.MatchCandidate, error) {
	rc, ctx := r.requestContext(ctx, "text")
	return r.matchLines(ctx, rc, processor.ExtractCandidates(text))
}

// ResolveImage recognizes the text on the image at path and resolves it.
// An unreadable image is an error; a failed recognition is not.
func (r *Resolver) ResolveImage(ctx context.Context, path string) ([]processor.MatchCandidate, error) {
	rc, ctx := r.requestContext(ctx, path)

	img, err := r.images.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return r.matchLines(ctx, rc, r.recognizeLines(ctx, rc, img))
}

func (r *Resolver) matchLines(ctx context.Context, rc *common.RequestContext, lines []string) ([]processor.MatchCandidate, error) {
	inputs := lines
	if r.opts.ExpandVariants && r.gen != nil && len(lines) > 0 {
		rc.StartStep("variant_expansion")
		inputs = make([]string, 0, len(lines)*3)
		for _, line := range lines {
			if err := ctx.Err(); err != nil {
				rc.EndStep("failed", nil, err)
				return nil, err
			}
			variants, usage := r.expander.Expand(ctx, line)
			rc.AddTokens(common.CalculateTokenCost(usage.InputTokens, usage.OutputTokens, common.GenerationPricing()))
			inputs = append(inputs, variants...)
		}
		rc.EndStep("success", nil, nil)
	}

	rc.StartStep("fuzzy_match")
	matches := r.matcher.Match(inputs, r.opts.SummaryTopN)
	rc.EndStep("success", nil, nil)

	rc.Logger().Info("resolved text",
		zap.Int("lines", len(lines)),
		zap.Int("inputs", len(inputs)),
		zap.Int("matches", len(matches)),
	)
	return matches, nil
}

// requestContext returns the RequestContext carried by ctx, creating and
// attaching one when the caller did not.
func (r *Resolver) requestContext(ctx context.Context, source string) (*common.RequestContext, context.Context) {
	if rc, ok := common.FromContext(ctx); ok {
		return rc, ctx
	}
	rc := common.NewRequestContext(r.logger, source)
	return rc, common.WithRequestContext(ctx, rc)
}

// generate sends prompt and records its token cost against rc.
func (r *Resolver) generate(ctx context.Context, rc *common.RequestContext, prompt ai.Prompt, pricing common.Pricing) (string, error) {
	if r.gen == nil {
		return "", errors.New("generation service not configured")
	}
	completion, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	rc.AddTokens(common.CalculateTokenCost(completion.Usage.InputTokens, completion.Usage.OutputTokens, pricing))
	return completion.Text, nil
}

// forComparison downsizes img for a multimodal prompt. Formats the
// decoder does not know are sent unchanged.
func (r *Resolver) forComparison(rc *common.RequestContext, img ai.InlineImage) ai.InlineImage {
	if r.opts.MaxImageDimension <= 0 {
		return img
	}
	data, mimeType, err := processor.ShrinkForComparison(img.Data, img.MIMEType, r.opts.MaxImageDimension)
	if err != nil {
		rc.Logger().Debug("image sent without resizing", zap.Error(err))
		return img
	}
	return ai.InlineImage{MIMEType: mimeType, Data: data}
}
