// imageprocessor.go - Image preparation before recognition and comparison calls

package processor

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// DefaultMIMEType is used when neither the content nor the name identify the format.
const DefaultMIMEType = "image/png"

var extensionMIMETypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
}

// DetectMIMEType sniffs the image format from its bytes, falling back to
// the file extension of name and then to DefaultMIMEType.
func DetectMIMEType(data []byte, name string) string {
	if len(data) > 0 {
		if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
			return sniffed
		}
	}
	// URLs may carry a query string after the extension
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	if mt, ok := extensionMIMETypes[strings.ToLower(filepath.Ext(name))]; ok {
		return mt
	}
	return DefaultMIMEType
}

// ShrinkForComparison downsizes an image so its longest side is at most
// maxDimension. Images already within bounds are returned unchanged.
// Undecodable formats return an error; callers may send the original bytes.
func ShrinkForComparison(data []byte, mimeType string, maxDimension int) ([]byte, string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return data, mimeType, fmt.Errorf("failed to decode image: %w", err)
	}
	if !exceeds(img, maxDimension) {
		return data, mimeType, nil
	}
	return encode(fitWithin(img, maxDimension), mimeType, 90)
}

// PrepareForRecognition resizes and, when enhance is set, applies contrast
// enhancement tuned to the measured image quality. The enhancement tier is
// chosen by analyzeImageQuality.
func PrepareForRecognition(data []byte, mimeType string, maxDimension int, enhance bool) ([]byte, string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return data, mimeType, fmt.Errorf("failed to decode image: %w", err)
	}
	if !enhance && !exceeds(img, maxDimension) {
		return data, mimeType, nil
	}

	img = fitWithin(img, maxDimension)
	if enhance {
		quality := analyzeImageQuality(img)
		switch {
		case quality < 50:
			img = applyStrongEnhancement(img)
		case quality < 75:
			img = applyStandardEnhancement(img)
		default:
			img = applyLightEnhancement(img)
		}
	}
	return encode(img, mimeType, 95)
}

func exceeds(img image.Image, maxDimension int) bool {
	if maxDimension <= 0 {
		return false
	}
	b := img.Bounds()
	return b.Dx() > maxDimension || b.Dy() > maxDimension
}

func fitWithin(img image.Image, maxDimension int) image.Image {
	if !exceeds(img, maxDimension) {
		return img
	}
	b := img.Bounds()
	if b.Dx() > b.Dy() {
		return imaging.Resize(img, maxDimension, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, maxDimension, imaging.Lanczos)
}

// encode writes PNG for PNG input and JPEG for everything else.
func encode(img image.Image, mimeType string, quality int) ([]byte, string, error) {
	var buf bytes.Buffer
	var err error
	if mimeType == "image/png" {
		err = png.Encode(&buf, img)
	} else {
		mimeType = "image/jpeg"
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode processed image: %w", err)
	}
	return buf.Bytes(), mimeType, nil
}

// analyzeImageQuality returns a 0-100 score from sampled brightness and contrast.
func analyzeImageQuality(img image.Image) float64 {
	bounds := img.Bounds()

	var total float64
	minB, maxB := 255.0, 0.0
	samples := 0

	// Every 10th pixel is enough for a global estimate
	for y := bounds.Min.Y; y < bounds.Max.Y; y += 10 {
		for x := bounds.Min.X; x < bounds.Max.X; x += 10 {
			r, g, b, _ := img.At(x, y).RGBA()
			brightness := (float64(r>>8) + float64(g>>8) + float64(b>>8)) / 3.0
			total += brightness
			minB = math.Min(minB, brightness)
			maxB = math.Max(maxB, brightness)
			samples++
		}
	}
	if samples == 0 {
		return 0
	}

	avg := total / float64(samples)
	brightnessScore := 100.0 - math.Abs(avg-128.0)/1.28
	contrastScore := math.Min((maxB-minB)/2.0, 100.0)

	// 40% brightness, 60% contrast
	return brightnessScore*0.4 + contrastScore*0.6
}

// Enhancement tiers keep color.
func applyLightEnhancement(img image.Image) image.Image {
	result := imaging.Sharpen(img, 1.5)
	return imaging.AdjustContrast(result, 15)
}

func applyStandardEnhancement(img image.Image) image.Image {
	result := imaging.Sharpen(img, 2.5)
	result = imaging.AdjustContrast(result, 30)
	return imaging.AdjustGamma(result, 1.1)
}

func applyStrongEnhancement(img image.Image) image.Image {
	result := imaging.Sharpen(img, 3.5)
	result = imaging.AdjustContrast(result, 45)
	result = imaging.AdjustBrightness(result, 15)
	result = imaging.AdjustGamma(result, 1.2)
	// Blur then re-sharpen to drop speckle noise
	result = imaging.Blur(result, 0.5)
	return imaging.Sharpen(result, 2.0)
}
