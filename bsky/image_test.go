package bsky

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
)

func pngBytes(t *testing.T, width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func newImageServer(body []byte, contentType string, status int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		w.Write(body)
	}))
}

func TestTranscodeScalesDownWideImage(t *testing.T) {
	server := newImageServer(pngBytes(t, 2048, 1000), "image/png", http.StatusOK)
	defer server.Close()

	it := NewImageTranscoder(testConf("http://unused/xrpc/"))
	out, err := it.Transcode(server.URL)
	if err != nil {
		t.Fatalf("Transcode failed: %v", err)
	}

	decoded, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Output is not valid JPEG: %v", err)
	}

	bounds := decoded.Bounds()
	if bounds.Dx() != 1024 {
		t.Errorf("Expected width 1024, got %d", bounds.Dx())
	}
	if bounds.Dy() != 500 {
		t.Errorf("Expected height 500, got %d", bounds.Dy())
	}
}

func TestTranscodeScalesDownTallImage(t *testing.T) {
	server := newImageServer(pngBytes(t, 500, 2000), "image/png", http.StatusOK)
	defer server.Close()

	it := NewImageTranscoder(testConf("http://unused/xrpc/"))
	out, err := it.Transcode(server.URL)
	if err != nil {
		t.Fatalf("Transcode failed: %v", err)
	}

	decoded, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Output is not valid JPEG: %v", err)
	}

	bounds := decoded.Bounds()
	if bounds.Dy() != 1024 {
		t.Errorf("Expected height 1024, got %d", bounds.Dy())
	}
	if bounds.Dx() != 256 {
		t.Errorf("Expected width 256, got %d", bounds.Dx())
	}
}

func TestTranscodeKeepsSmallImageDimensions(t *testing.T) {
	server := newImageServer(pngBytes(t, 640, 480), "image/png", http.StatusOK)
	defer server.Close()

	it := NewImageTranscoder(testConf("http://unused/xrpc/"))
	out, err := it.Transcode(server.URL)
	if err != nil {
		t.Fatalf("Transcode failed: %v", err)
	}

	decoded, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Output is not valid JPEG: %v", err)
	}

	bounds := decoded.Bounds()
	if bounds.Dx() != 640 || bounds.Dy() != 480 {
		t.Errorf("Expected 640x480 passthrough, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestTranscodeRejectsNonImage(t *testing.T) {
	server := newImageServer([]byte("<html>not an image</html>"), "text/html", http.StatusOK)
	defer server.Close()

	it := NewImageTranscoder(testConf("http://unused/xrpc/"))
	_, err := it.Transcode(server.URL)
	if !errors.Is(err, ErrImagePipeline) {
		t.Errorf("Expected ErrImagePipeline, got %v", err)
	}
}

func TestTranscodeNon200(t *testing.T) {
	server := newImageServer(nil, "image/png", http.StatusNotFound)
	defer server.Close()

	it := NewImageTranscoder(testConf("http://unused/xrpc/"))
	_, err := it.Transcode(server.URL)
	if !errors.Is(err, ErrImagePipeline) {
		t.Errorf("Expected ErrImagePipeline, got %v", err)
	}
}

func TestTranscodeTransportFailure(t *testing.T) {
	it := NewImageTranscoder(testConf("http://unused/xrpc/"))
	_, err := it.Transcode("http://127.0.0.1:1/cover.png")
	if !errors.Is(err, ErrImagePipeline) {
		t.Errorf("Expected ErrImagePipeline, got %v", err)
	}
}
