package bsky

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"

	"github.com/quillhq/skypress/util"
)

const (
	maxImageDim = 1024
	jpegQuality = 80
)

// ImageTranscoder downloads a preview image and normalizes it for the
// blob upload: scaled to fit maxImageDim on the longer side, re-encoded
// as JPEG. Everything happens in memory.
type ImageTranscoder struct {
	client *http.Client
}

func NewImageTranscoder(conf *util.AppConfig) *ImageTranscoder {
	return &ImageTranscoder{
		client: &http.Client{Timeout: conf.FetchTimeout()},
	}
}

func (it *ImageTranscoder) Transcode(imageUrl string) ([]byte, error) {
	resp, err := it.client.Get(imageUrl)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %v", ErrImagePipeline, imageUrl, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrImagePipeline, imageUrl, resp.StatusCode)
	}

	src, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrImagePipeline, imageUrl, err)
	}

	src = scaleToFit(src, maxImageDim)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("%w: encoding: %v", ErrImagePipeline, err)
	}

	return buf.Bytes(), nil
}

// scaleToFit shrinks img so both dimensions fit within maxDim,
// preserving aspect ratio. Images already within bounds pass through
// untouched.
func scaleToFit(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxDim && height <= maxDim {
		return img
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxDim
		newHeight = height * maxDim / width
	} else {
		newHeight = maxDim
		newWidth = width * maxDim / height
	}
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
