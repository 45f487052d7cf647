// verify.go - Coarse filter, LLM re-rank, visual verification and fallback

package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/bosocmputer/product_label_matcher/internal/ai"
	"github.com/bosocmputer/product_label_matcher/internal/catalog"
	"github.com/bosocmputer/product_label_matcher/internal/common"
	"github.com/bosocmputer/product_label_matcher/internal/metrics"
	"github.com/bosocmputer/product_label_matcher/internal/processor"
	"go.uber.org/zap"
)

// ErrRerankUnparseable means the re-rank reply was not a JSON array of
// names. The candidate set cannot be trusted, so the run stops.
var ErrRerankUnparseable = errors.New("resolver: re-rank reply unparseable")

// State is the terminal state of one detected product.
type State string

const (
	StateConfirmed State = "confirmed"
	StateBestGuess State = "best_guess"
	StateNoMatch   State = "no_match"
)

// Comparison is one pairwise image comparison.
type Comparison struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
	Same     bool   `json:"same"`
	Error    string `json:"error,omitempty"`
}

// Resolution is the outcome for one detected product.
type Resolution struct {
	Product     DetectedProduct        `json:"product"`
	State       State                  `json:"state"`
	Record      *catalog.ProductRecord `json:"record,omitempty"`
	ImageURL    string                 `json:"image_url,omitempty"`
	Score       float64                `json:"score,omitempty"`
	Candidates  []string               `json:"candidates"`
	Comparisons []Comparison           `json:"comparisons"`
	// GuessedBy is "llm" or "score" for StateBestGuess
	GuessedBy string `json:"guessed_by,omitempty"`
}

type verifyPayload struct {
	SameProduct bool `json:"sameProduct"`
}

type bestGuessPayload struct {
	Index int `json:"index"`
}

// ResolveWithVerification detects the products in the image at path and
// resolves each one to Confirmed, BestGuess or NoMatch. An unreadable
// image or a failed re-rank (see ErrRerankUnparseable) aborts the run.
func (r *Resolver) ResolveWithVerification(ctx context.Context, path string) ([]Resolution, error) {
	rc, ctx := r.requestContext(ctx, path)
	if r.gen == nil {
		return nil, errors.New("verification requires a generation service")
	}

	img, err := r.images.LoadFile(path)
	if err != nil {
		return nil, err
	}
	source := r.forComparison(rc, img)

	products, err := r.DetectProducts(ctx, img)
	if err != nil {
		return nil, err
	}

	resolutions := make([]Resolution, 0, len(products))
	for _, product := range products {
		res, err := r.resolveProduct(ctx, rc, source, product)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", product.Name(), err)
		}
		metrics.ResolutionsTotal.WithLabelValues(string(res.State)).Inc()
		rc.Logger().Info("product resolved",
			zap.String("product", product.Name()),
			zap.String("state", string(res.State)),
			zap.String("image_url", res.ImageURL),
		)
		resolutions = append(resolutions, res)
	}
	return resolutions, nil
}

func (r *Resolver) resolveProduct(ctx context.Context, rc *common.RequestContext, source ai.InlineImage, product DetectedProduct) (Resolution, error) {
	name := product.Name()
	res := Resolution{Product: product, State: StateNoMatch, Candidates: []string{}, Comparisons: []Comparison{}}

	rc.StartStep("coarse_filter")
	coarse := r.coarseFilter(name)
	rc.EndStep("success", nil, nil)
	if len(coarse) == 0 {
		return res, nil
	}

	rc.StartStep("llm_rerank")
	refined, err := r.rerank(ctx, rc, name, coarse)
	rc.EndStep(stepStatus(err), nil, err)
	if err != nil {
		return res, err
	}
	for _, c := range refined {
		res.Candidates = append(res.Candidates, c.MatchedName)
	}
	if len(refined) == 0 {
		return res, nil
	}

	rc.StartStep("visual_verification")
	winner, comparisons := r.verify(ctx, rc, source, refined)
	rc.EndStep("success", nil, nil)
	res.Comparisons = comparisons
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if winner >= 0 {
		res.setMatch(StateConfirmed, refined[winner])
		return res, nil
	}

	rc.StartStep("fallback_selection")
	pick, by := r.bestGuess(ctx, rc, source, name, refined)
	rc.EndStep("success", nil, nil)
	res.setMatch(StateBestGuess, refined[pick])
	res.GuessedBy = by
	return res, nil
}

func (res *Resolution) setMatch(state State, c processor.MatchCandidate) {
	record := c.Record
	res.State = state
	res.Record = &record
	res.ImageURL = CleanImageURL(record.ImageURL)
	res.Score = c.Score
}

// coarseFilter keeps the CoarseTopN closest catalog products that have a
// reference image.
func (r *Resolver) coarseFilter(name string) []processor.MatchCandidate {
	matches := r.matcher.Match([]string{name}, r.opts.CoarseTopN)
	kept := matches[:0]
	for _, m := range matches {
		if CleanImageURL(m.Record.ImageURL) != "" {
			kept = append(kept, m)
		}
	}
	return kept
}

// rerank asks the generation service for the most plausible names and
// keeps the coarse candidates it named, in coarse order, at most RerankTopK.
func (r *Resolver) rerank(ctx context.Context, rc *common.RequestContext, name string, coarse []processor.MatchCandidate) ([]processor.MatchCandidate, error) {
	names := make([]string, len(coarse))
	for i, c := range coarse {
		names[i] = c.MatchedName
	}

	text, err := r.generate(ctx, rc, ai.Prompt{
		Purpose: ai.PurposeRerank,
		Text:    ai.BuildRerankPrompt(name, names, r.opts.RerankTopK),
	}, common.GenerationPricing())
	if err != nil {
		return nil, fmt.Errorf("re-rank call: %w", err)
	}

	var picked []string
	if err := ai.DecodePayload(text, &picked); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRerankUnparseable, err)
	}

	wanted := make(map[string]struct{}, len(picked))
	for _, p := range picked {
		wanted[p] = struct{}{}
	}
	refined := make([]processor.MatchCandidate, 0, r.opts.RerankTopK)
	for _, c := range coarse {
		if _, ok := wanted[c.MatchedName]; ok {
			refined = append(refined, c)
			if len(refined) == r.opts.RerankTopK {
				break
			}
		}
	}
	return refined, nil
}

// verify compares the source image with each candidate's reference image
// and returns the index of the first confirmed candidate, or -1. Fetch
// failures and unparseable replies count as "not the same product".
func (r *Resolver) verify(ctx context.Context, rc *common.RequestContext, source ai.InlineImage, candidates []processor.MatchCandidate) (int, []Comparison) {
	results := make([]*Comparison, len(candidates))

	winner, ok := r.queue.FirstMatch(ctx, len(candidates), func(ctx context.Context, i int) bool {
		c := candidates[i]
		cmp := &Comparison{Name: c.MatchedName, ImageURL: CleanImageURL(c.Record.ImageURL)}
		results[i] = cmp

		same, err := r.compare(ctx, rc, source, cmp.ImageURL)
		cmp.Same = same
		switch {
		case err != nil:
			cmp.Error = err.Error()
			metrics.VerificationsTotal.WithLabelValues("error").Inc()
			rc.Logger().Warn("image comparison failed", zap.String("candidate", c.MatchedName), zap.Error(err))
		case same:
			metrics.VerificationsTotal.WithLabelValues("same").Inc()
		default:
			metrics.VerificationsTotal.WithLabelValues("different").Inc()
		}
		return same
	})

	comparisons := make([]Comparison, 0, len(candidates))
	for i, cmp := range results {
		if ok && i > winner {
			break
		}
		if cmp != nil {
			comparisons = append(comparisons, *cmp)
		}
	}
	if !ok {
		return -1, comparisons
	}
	return winner, comparisons
}

func (r *Resolver) compare(ctx context.Context, rc *common.RequestContext, source ai.InlineImage, url string) (bool, error) {
	ref, err := r.images.Fetch(ctx, url)
	if err != nil {
		return false, err
	}

	text, err := r.generate(ctx, rc, ai.Prompt{
		Purpose: ai.PurposeVerify,
		Text:    ai.BuildVerifyPrompt(),
		Images:  []ai.InlineImage{source, r.forComparison(rc, ref)},
	}, common.VerifyPricing())
	if err != nil {
		return false, err
	}

	var payload verifyPayload
	if err := ai.DecodePayload(text, &payload); err != nil {
		return false, err
	}
	return payload.SameProduct, nil
}

// bestGuess picks a candidate when none was confirmed. It returns the
// candidate index and which policy made the choice.
func (r *Resolver) bestGuess(ctx context.Context, rc *common.RequestContext, source ai.InlineImage, name string, candidates []processor.MatchCandidate) (int, string) {
	if r.opts.Fallback == FallbackLLM {
		idx, err := r.llmBestGuess(ctx, rc, source, name, candidates)
		if err == nil {
			return idx, string(FallbackLLM)
		}
		rc.Logger().Warn("best-guess call failed, using fuzzy score", zap.Error(err))
	}
	// candidates keep coarse order, so the first has the highest score
	return 0, string(FallbackScore)
}

func (r *Resolver) llmBestGuess(ctx context.Context, rc *common.RequestContext, source ai.InlineImage, name string, candidates []processor.MatchCandidate) (int, error) {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.MatchedName
	}

	text, err := r.generate(ctx, rc, ai.Prompt{
		Purpose: ai.PurposeBestGuess,
		Text:    ai.BuildBestGuessPrompt(name, names),
		Images:  []ai.InlineImage{source},
	}, common.VerifyPricing())
	if err != nil {
		return 0, err
	}

	var payload bestGuessPayload
	if err := ai.DecodePayload(text, &payload); err != nil {
		return 0, err
	}
	if payload.Index < 1 || payload.Index > len(candidates) {
		return 0, fmt.Errorf("best-guess index %d out of range 1..%d", payload.Index, len(candidates))
	}
	return payload.Index - 1, nil
}

func stepStatus(err error) string {
	if err != nil {
		return "failed"
	}
	return "success"
}
