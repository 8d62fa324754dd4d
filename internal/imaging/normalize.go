// Package imaging turns uploaded photos into uniform portrait card images.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/Billy-Davies-2/futdraw/internal/metrics"
)

// Card canvas size (3:4 portrait).
const (
	CardWidth  = 300
	CardHeight = 400

	// MaxSourcePixels rejects images whose decoded size would be unreasonable.
	MaxSourcePixels = 40_000_000

	DefaultMaxBytes = 10 << 20
)

var (
	ErrUnsupportedImage = errors.New("unsupported image")
	ErrImageTooLarge    = errors.New("image too large")
)

// Normalize reads at most maxBytes of an encoded image (PNG, JPEG, GIF or
// WebP) and returns the 300x400 card as PNG.
func Normalize(r io.Reader, maxBytes int64) ([]byte, error) {
	start := time.Now()
	out, err := normalize(r, maxBytes)
	metrics.ObserveImageNormalize(time.Since(start), err)
	return out, err
}

func normalize(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	raw, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrImageTooLarge, maxBytes)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty %s image", ErrUnsupportedImage, format)
	}
	if cfg.Width*cfg.Height > MaxSourcePixels {
		return nil, fmt.Errorf("%w: %dx%d pixels", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, Cover(src)); err != nil {
		return nil, fmt.Errorf("encoding card: %w", err)
	}
	return buf.Bytes(), nil
}

// Cover scales src to fill the card canvas completely, keeping its aspect
// ratio. Overflow is cropped: wide images lose equal parts left and right,
// tall images lose the bottom so faces near the top stay in frame.
func Cover(src image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, CardWidth, CardHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, CropRect(src.Bounds()), draw.Src, nil)
	return dst
}

// CropRect returns the part of b that Cover maps onto the canvas.
func CropRect(b image.Rectangle) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	if w*CardHeight > h*CardWidth {
		// wider than 3:4, center horizontally
		cw := h * CardWidth / CardHeight
		if cw < 1 {
			cw = 1
		}
		x0 := b.Min.X + (w-cw)/2
		return image.Rect(x0, b.Min.Y, x0+cw, b.Max.Y)
	}
	// taller than (or exactly) 3:4, keep the top
	ch := w * CardHeight / CardWidth
	if ch < 1 {
		ch = 1
	}
	return image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+ch)
}
