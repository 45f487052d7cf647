package processor

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDetectMIMEType(t *testing.T) {
	data := pngFixture(t, 4, 4)

	assert.Equal(t, "image/png", DetectMIMEType(data, "photo.jpg"), "content wins over extension")
	assert.Equal(t, "image/jpeg", DetectMIMEType([]byte("not an image"), "photo.JPG"))
	assert.Equal(t, "image/webp", DetectMIMEType(nil, "https://cdn.example.com/a.webp?size=2"))
	assert.Equal(t, DefaultMIMEType, DetectMIMEType([]byte("???"), "blob"))
}

func TestShrinkForComparison(t *testing.T) {
	t.Run("within bounds is untouched", func(t *testing.T) {
		data := pngFixture(t, 40, 20)
		out, mt, err := ShrinkForComparison(data, "image/png", 100)
		require.NoError(t, err)
		assert.Equal(t, data, out)
		assert.Equal(t, "image/png", mt)
	})

	t.Run("wide image is resized on width", func(t *testing.T) {
		data := pngFixture(t, 200, 100)
		out, mt, err := ShrinkForComparison(data, "image/png", 50)
		require.NoError(t, err)
		assert.Equal(t, "image/png", mt)

		img, err := imaging.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, 50, img.Bounds().Dx())
		assert.Equal(t, 25, img.Bounds().Dy())
	})

	t.Run("non png is re-encoded as jpeg", func(t *testing.T) {
		data := pngFixture(t, 30, 120)
		_, mt, err := ShrinkForComparison(data, "image/webp", 60)
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", mt)
	})

	t.Run("undecodable returns original with error", func(t *testing.T) {
		raw := []byte("garbage")
		out, mt, err := ShrinkForComparison(raw, "image/png", 10)
		assert.Error(t, err)
		assert.Equal(t, raw, out)
		assert.Equal(t, "image/png", mt)
	})
}

func TestPrepareForRecognition(t *testing.T) {
	data := pngFixture(t, 80, 60)

	out, mt, err := PrepareForRecognition(data, "image/png", 2000, false)
	require.NoError(t, err)
	assert.Equal(t, data, out, "no resize and no enhancement")
	assert.Equal(t, "image/png", mt)

	out, mt, err = PrepareForRecognition(data, "image/jpeg", 40, true)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mt)
	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
}

func TestAnalyzeImageQuality(t *testing.T) {
	flat := image.NewGray(image.Rect(0, 0, 50, 50))
	for i := range flat.Pix {
		flat.Pix[i] = 128
	}
	// mid-gray with no contrast: brightness term only
	assert.InDelta(t, 40.0, analyzeImageQuality(flat), 0.01)

	empty := image.NewGray(image.Rect(0, 0, 0, 0))
	assert.Equal(t, 0.0, analyzeImageQuality(empty))
}
