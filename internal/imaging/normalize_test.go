package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red   = color.RGBA{255, 0, 0, 255}
	green = color.RGBA{0, 255, 0, 255}
	blue  = color.RGBA{0, 0, 255, 255}
)

// stripes fills w x h with vertical (or horizontal) bands of the given colors.
func stripes(w, h int, vertical bool, colors ...color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var band int
			if vertical {
				band = x * len(colors) / w
			} else {
				band = y * len(colors) / h
			}
			img.Set(x, y, colors[band])
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCropRect(t *testing.T) {
	tests := []struct {
		name string
		in   image.Rectangle
		want image.Rectangle
	}{
		{"exact ratio", image.Rect(0, 0, 300, 400), image.Rect(0, 0, 300, 400)},
		{"landscape centered", image.Rect(0, 0, 600, 400), image.Rect(150, 0, 450, 400)},
		{"portrait keeps top", image.Rect(0, 0, 300, 800), image.Rect(0, 0, 300, 400)},
		{"square", image.Rect(0, 0, 400, 400), image.Rect(50, 0, 350, 400)},
		{"offset bounds", image.Rect(10, 20, 310, 820), image.Rect(10, 20, 310, 420)},
		{"tiny", image.Rect(0, 0, 1, 1), image.Rect(0, 0, 1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CropRect(tt.in))
		})
	}
}

func TestCoverLandscapeCentersHorizontally(t *testing.T) {
	// red | green | blue, 200px each; the crop is x=150..450
	out := Cover(stripes(600, 400, true, red, green, blue))

	assert.Equal(t, image.Rect(0, 0, CardWidth, CardHeight), out.Bounds())
	assert.Equal(t, green, out.RGBAAt(150, 200))
	assert.Equal(t, red, out.RGBAAt(10, 200))
	assert.Equal(t, blue, out.RGBAAt(290, 200))
}

func TestCoverPortraitAlignsTop(t *testing.T) {
	// red top half, blue bottom half; only the top 400 rows survive
	out := Cover(stripes(300, 800, false, red, blue))

	assert.Equal(t, red, out.RGBAAt(150, 10))
	assert.Equal(t, red, out.RGBAAt(150, 390))
}

func TestCoverUpscalesSmallImages(t *testing.T) {
	out := Cover(stripes(30, 40, false, green))
	assert.Equal(t, image.Rect(0, 0, CardWidth, CardHeight), out.Bounds())
	assert.Equal(t, green, out.RGBAAt(150, 200))
}

func TestNormalizeProducesPNGCard(t *testing.T) {
	var jpg bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpg, stripes(640, 480, true, red), nil))

	for name, input := range map[string][]byte{
		"png":  encodePNG(t, stripes(800, 600, true, red, green, blue)),
		"jpeg": jpg.Bytes(),
	} {
		t.Run(name, func(t *testing.T) {
			out, err := Normalize(bytes.NewReader(input), DefaultMaxBytes)
			require.NoError(t, err)

			cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
			require.NoError(t, err)
			assert.Equal(t, "png", format)
			assert.Equal(t, CardWidth, cfg.Width)
			assert.Equal(t, CardHeight, cfg.Height)
		})
	}
}

func TestNormalizeErrors(t *testing.T) {
	_, err := Normalize(strings.NewReader("definitely not an image"), DefaultMaxBytes)
	assert.True(t, errors.Is(err, ErrUnsupportedImage), "got %v", err)

	data := encodePNG(t, stripes(300, 400, true, red))
	_, err = Normalize(bytes.NewReader(data), int64(len(data)-1))
	assert.True(t, errors.Is(err, ErrImageTooLarge), "got %v", err)

	_, err = Normalize(bytes.NewReader(data), int64(len(data)))
	assert.NoError(t, err)
}
