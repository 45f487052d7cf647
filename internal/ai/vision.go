// vision.go - Google Cloud Vision text detection provider

package ai

import (
	"context"
	"encoding/base64"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

// VisionRecognizer implements TextRecognizer with the Vision TEXT_DETECTION feature.
type VisionRecognizer struct {
	service *vision.Service
	policy  callPolicy
}

// NewVisionRecognizer creates the Vision service client with an API key.
// Extra options (endpoint, HTTP client) are appended after the key.
func NewVisionRecognizer(ctx context.Context, cfg ProviderConfig, logger *zap.Logger, opts ...option.ClientOption) (*VisionRecognizer, error) {
	svc, err := vision.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(cfg.VisionAPIKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vision client: %w", err)
	}
	return &VisionRecognizer{
		service: svc,
		policy:  newCallPolicy(cfg.RequestsPerMinute, cfg.MaxAttempts, logger),
	}, nil
}

// Name returns "vision"
func (v *VisionRecognizer) Name() string {
	return "vision"
}

// Recognize returns the full-text annotation of the image, or "" when no
// text was detected.
func (v *VisionRecognizer) Recognize(ctx context.Context, image InlineImage) (*Recognition, error) {
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{
			{
				Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(image.Data)},
				Features: []*vision.Feature{{Type: "TEXT_DETECTION"}},
			},
		},
	}

	result := &Recognition{Model: "TEXT_DETECTION"}
	err := v.policy.invoke(ctx, v.Name(), PurposeRecognize, func(ctx context.Context) (Usage, error) {
		resp, err := v.service.Images.Annotate(req).Context(ctx).Do()
		if err != nil {
			return Usage{}, err
		}
		if len(resp.Responses) == 0 {
			return Usage{}, nil
		}
		first := resp.Responses[0]
		if first.Error != nil && first.Error.Code != 0 {
			return Usage{}, fmt.Errorf("vision annotate error %d: %s", first.Error.Code, first.Error.Message)
		}
		if len(first.TextAnnotations) > 0 {
			result.Text = first.TextAnnotations[0].Description
		}
		return Usage{}, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
