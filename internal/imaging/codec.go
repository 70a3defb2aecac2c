package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp"
)

const (
	ContentTypePNG  = "image/png"
	ContentTypeJPEG = "image/jpeg"
	ContentTypeWebP = "image/webp"

	jpegQuality = 90
)

// Decode parses provider bytes and reports the matching content type.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty image payload")
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, "", fmt.Errorf("image has zero area (%dx%d)", b.Dx(), b.Dy())
	}
	return img, ContentTypeFor(format), nil
}

// ContentTypeFor maps a decoder format name to a MIME type.
func ContentTypeFor(format string) string {
	switch format {
	case "png":
		return ContentTypePNG
	case "webp":
		return ContentTypeWebP
	default:
		return ContentTypeJPEG
	}
}

// Extension returns the storage file extension of a content type.
func Extension(contentType string) string {
	switch contentType {
	case ContentTypePNG:
		return "png"
	case ContentTypeWebP:
		return "webp"
	default:
		return "jpg"
	}
}

// EncodePNG encodes an image losslessly.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJPEG encodes an image at a fixed quality.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// CaptureTime reads the EXIF capture timestamp, if the payload carries one.
func CaptureTime(data []byte) (time.Time, bool) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return time.Time{}, false
	}
	t, err := x.DateTime()
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
