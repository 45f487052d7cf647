package resolver

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestHTTPImageLoaderFetch(t *testing.T) {
	data := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.jpg":
			// content wins over a misleading extension
			w.Write(data)
		case "/empty.png":
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	loader := NewHTTPImageLoader(time.Second).WithClient(srv.Client())

	img, err := loader.Fetch(context.Background(), srv.URL+"/ok.jpg?size=large")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, data, img.Data)

	_, err = loader.Fetch(context.Background(), srv.URL+"/missing.jpg")
	assert.ErrorContains(t, err, "status 404")

	_, err = loader.Fetch(context.Background(), srv.URL+"/empty.png")
	assert.ErrorContains(t, err, "empty body")
}

func TestHTTPImageLoaderLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "label.webp")
	require.NoError(t, os.WriteFile(path, []byte("not really an image"), 0o644))

	img, err := NewHTTPImageLoader(0).LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image/webp", img.MIMEType)

	_, err = NewHTTPImageLoader(0).LoadFile(filepath.Join(dir, "missing.jpg"))
	assert.Error(t, err)
}
