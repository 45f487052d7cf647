// detect.go - Product names visible in a label image

package resolver

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/bosocmputer/product_label_matcher/internal/ai"
	"github.com/bosocmputer/product_label_matcher/internal/common"
	"github.com/bosocmputer/product_label_matcher/internal/processor"
	"go.uber.org/zap"
)

// DetectedProduct is one product the generation service found in an image.
type DetectedProduct struct {
	Label   string `json:"label,omitempty"`
	Korean  string `json:"korean"`
	English string `json:"english,omitempty"`
}

// Name is the name matched against the catalog: Korean, else English.
func (p DetectedProduct) Name() string {
	if k := strings.TrimSpace(p.Korean); k != "" {
		return k
	}
	return strings.TrimSpace(p.English)
}

// detectedPair accepts both the English and the Korean key spellings.
type detectedPair struct {
	Korean    string `json:"korean"`
	English   string `json:"english"`
	KoreanKo  string `json:"한글"`
	EnglishKo string `json:"영어"`
}

func (d detectedPair) product(label string) DetectedProduct {
	p := DetectedProduct{Label: label, Korean: d.Korean, English: d.English}
	if p.Korean == "" {
		p.Korean = d.KoreanKo
	}
	if p.English == "" {
		p.English = d.EnglishKo
	}
	return p
}

// parseDetectedProducts accepts a JSON array of pairs, or an object keyed
// by product label whose values are pairs. Object entries are ordered by key.
func parseDetectedProducts(text string) ([]DetectedProduct, error) {
	var raw json.RawMessage
	if err := ai.DecodePayload(text, &raw); err != nil {
		return nil, err
	}

	var products []DetectedProduct
	if trimmed := strings.TrimSpace(string(raw)); strings.HasPrefix(trimmed, "[") {
		var pairs []detectedPair
		if err := json.Unmarshal(raw, &pairs); err != nil {
			return nil, err
		}
		for _, pair := range pairs {
			products = append(products, pair.product(""))
		}
	} else {
		var keyed map[string]detectedPair
		if err := json.Unmarshal(raw, &keyed); err != nil {
			return nil, err
		}
		labels := make([]string, 0, len(keyed))
		for label := range keyed {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			products = append(products, keyed[label].product(label))
		}
	}

	named := products[:0]
	for _, p := range products {
		if p.Name() != "" {
			named = append(named, p)
		}
	}
	return named, nil
}

// DetectProducts lists the products visible in img. When the generation
// service fails or finds nothing, the OCR candidate lines stand in as
// product names; with no recognizer either, the result is empty.
func (r *Resolver) DetectProducts(ctx context.Context, img ai.InlineImage) ([]DetectedProduct, error) {
	rc, ctx := r.requestContext(ctx, "detect")

	if r.gen != nil {
		rc.StartStep("detect_products")
		products, err := r.detectWithGenerator(ctx, rc, img)
		if err == nil && len(products) > 0 {
			rc.EndStep("success", nil, nil)
			return products, nil
		}
		rc.EndStep("failed", nil, err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
	}

	lines := r.recognizeLines(ctx, rc, img)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	products := make([]DetectedProduct, 0, len(lines))
	for _, line := range lines {
		products = append(products, DetectedProduct{Korean: line})
	}
	if len(products) > 0 {
		rc.Logger().Info("using OCR lines as detected products", zap.Int("count", len(products)))
	}
	return products, nil
}

func (r *Resolver) detectWithGenerator(ctx context.Context, rc *common.RequestContext, img ai.InlineImage) ([]DetectedProduct, error) {
	text, err := r.generate(ctx, rc, ai.Prompt{
		Purpose: ai.PurposeDetect,
		Text:    ai.BuildDetectProductsPrompt(),
		Images:  []ai.InlineImage{r.forComparison(rc, img)},
	}, common.GenerationPricing())
	if err != nil {
		return nil, err
	}
	return parseDetectedProducts(text)
}

// recognizeLines runs OCR and extracts candidate lines. Recognition
// failures yield no lines.
func (r *Resolver) recognizeLines(ctx context.Context, rc *common.RequestContext, img ai.InlineImage) []string {
	if r.recognizer == nil {
		rc.LogWarning("no text recognizer configured")
		return nil
	}

	rc.StartStep("text_recognition")
	prepared := img
	data, mimeType, err := processor.PrepareForRecognition(img.Data, img.MIMEType, r.opts.MaxImageDimension, r.opts.EnhanceRecognition)
	if err == nil {
		prepared = ai.InlineImage{MIMEType: mimeType, Data: data}
	} else {
		rc.Logger().Debug("image preparation skipped", zap.Error(err))
	}

	recognition, err := r.recognizer.Recognize(ctx, prepared)
	if err != nil {
		rc.EndStep("failed", nil, err)
		return nil
	}
	rc.AddTokens(common.CalculateTokenCost(recognition.Usage.InputTokens, recognition.Usage.OutputTokens, common.GenerationPricing()))
	rc.EndStep("success", nil, nil)

	return processor.ExtractCandidates(recognition.Text)
}
