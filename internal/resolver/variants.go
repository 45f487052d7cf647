// variants.go - Korean/English name variants from the generation service

package resolver

import (
	"context"
	"strings"

	"github.com/bosocmputer/product_label_matcher/internal/ai"
	"github.com/bosocmputer/product_label_matcher/internal/processor"
	"go.uber.org/zap"
)

// VariantSet is an ordered, deduplicated list of names. The original name
// is always the first element.
type VariantSet []string

type variantPayload struct {
	Korean  string `json:"korean"`
	English string `json:"english"`
}

// VariantExpander asks the generation service for the Korean and English
// renderings of a name.
type VariantExpander struct {
	gen    ai.Generator
	logger *zap.Logger
}

// NewVariantExpander creates an expander. A nil generator disables
// expansion: Expand then returns only the original name.
func NewVariantExpander(gen ai.Generator, logger *zap.Logger) *VariantExpander {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VariantExpander{gen: gen, logger: logger}
}

// Expand returns name plus its variants. Service errors and unparseable
// replies are logged and yield a singleton set; they never fail the caller.
func (e *VariantExpander) Expand(ctx context.Context, name string) (VariantSet, ai.Usage) {
	if e.gen == nil || strings.TrimSpace(name) == "" {
		return newVariantSet(name), ai.Usage{}
	}

	completion, err := e.gen.Generate(ctx, ai.Prompt{
		Purpose: ai.PurposeVariants,
		Text:    ai.BuildVariantPrompt(name),
	})
	if err != nil {
		e.logger.Warn("variant expansion failed", zap.String("name", name), zap.Error(err))
		return newVariantSet(name), ai.Usage{}
	}

	var payload variantPayload
	if err := ai.DecodePayload(completion.Text, &payload); err != nil {
		e.logger.Warn("variant reply unparseable", zap.String("name", name), zap.Error(err))
		return newVariantSet(name), completion.Usage
	}
	return newVariantSet(name, payload.Korean, payload.English), completion.Usage
}

// newVariantSet keeps the first occurrence of each normalized name. The
// original is kept even when it normalizes to nothing.
func newVariantSet(original string, variants ...string) VariantSet {
	set := VariantSet{original}
	seen := map[string]struct{}{processor.Normalize(original): {}}
	for _, v := range variants {
		v = strings.TrimSpace(v)
		key := processor.Normalize(v)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		set = append(set, v)
	}
	return set
}
