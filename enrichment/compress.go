package enrichment

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"regexp"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var dataURIPattern = regexp.MustCompile(`(?s)^data:(image/[\w.+-]+);base64,(.*)$`)

// CompressOptions controls when and how hard images are recompressed.
type CompressOptions struct {
	// Threshold is the decoded size in bytes above which an image is recompressed.
	Threshold int
	// Quality is the JPEG quality used for every re-encode.
	Quality int
	// Scale shrinks both dimensions on each resize attempt.
	Scale float64
	// MaxResizes bounds resize attempts once re-encoding alone is not enough.
	MaxResizes int
}

// DefaultCompressOptions returns the limits used for vision model uploads.
func DefaultCompressOptions() CompressOptions {
	return CompressOptions{
		Threshold:  int(0.9 * 1024 * 1024),
		Quality:    60,
		Scale:      0.8,
		MaxResizes: 5,
	}
}

// IsDataURI reports whether s is a base64 image data URI.
func IsDataURI(s string) bool {
	return dataURIPattern.MatchString(s)
}

// CompressDataURI re-encodes an image data URI as JPEG when its payload is
// larger than opts.Threshold, downscaling until it fits or MaxResizes runs
// out. Images at or under the threshold are returned unchanged. The result
// may still exceed the threshold.
func CompressDataURI(uri string, opts CompressOptions) (string, error) {
	m := dataURIPattern.FindStringSubmatch(uri)
	if m == nil {
		return "", ErrInvalidDataURI
	}
	raw, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidDataURI, err)
	}
	if len(raw) <= opts.Threshold {
		return uri, nil
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUndecodableImage, err)
	}
	flat := flatten(src)

	data, err := encodeJPEG(flat, opts.Quality)
	if err != nil {
		return "", err
	}

	scale := opts.Scale
	b := flat.Bounds()
	for attempt := 0; len(data) > opts.Threshold && attempt < opts.MaxResizes; attempt++ {
		w := int(float64(b.Dx()) * scale)
		h := int(float64(b.Dy()) * scale)
		if w < 1 || h < 1 {
			break
		}
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), flat, b, draw.Src, nil)
		if data, err = encodeJPEG(dst, opts.Quality); err != nil {
			return "", err
		}
		scale *= opts.Scale
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data), nil
}

// flatten drops transparency by compositing onto white, since JPEG has no alpha.
func flatten(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
