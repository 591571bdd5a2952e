package imageutil

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
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

func TestIsImageContentType(t *testing.T) {
	assert.True(t, IsImageContentType("image/jpeg"))
	assert.True(t, IsImageContentType(" Image/PNG"))
	assert.False(t, IsImageContentType("text/plain"))
	assert.False(t, IsImageContentType(""))
	assert.False(t, IsImageContentType("application/octet-stream"))
}

func TestPreprocessShapeAndRange(t *testing.T) {
	data := encodePNG(t, solidImage(10, 10, color.RGBA{R: 255, G: 128, B: 0, A: 255}))

	tensor, err := Preprocess(data, 16, 8, LayoutNHWC)
	require.NoError(t, err)
	require.Len(t, tensor, 16*8*3)

	for _, v := range tensor {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.LessOrEqual(t, v, float32(1))
	}

	assert.InDelta(t, 1.0, tensor[0], 1e-6)
	assert.InDelta(t, 128.0/255.0, tensor[1], 1e-6)
	assert.InDelta(t, 0.0, tensor[2], 1e-6)
}

func TestPreprocessNCHWPlanes(t *testing.T) {
	data := encodePNG(t, solidImage(4, 4, color.RGBA{R: 255, G: 0, B: 255, A: 255}))

	tensor, err := Preprocess(data, 2, 2, LayoutNCHW)
	require.NoError(t, err)
	require.Len(t, tensor, 12)

	assert.Equal(t, []float32{1, 1, 1, 1}, tensor[0:4])
	assert.Equal(t, []float32{0, 0, 0, 0}, tensor[4:8])
	assert.Equal(t, []float32{1, 1, 1, 1}, tensor[8:12])
}

func TestPreprocessGrayscaleReplicatesChannels(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 5, 5))
	for i := range gray.Pix {
		gray.Pix[i] = 51
	}

	tensor, err := Preprocess(encodePNG(t, gray), 3, 3, LayoutNHWC)
	require.NoError(t, err)

	for i := 0; i < len(tensor); i += 3 {
		assert.InDelta(t, 0.2, tensor[i], 1e-6)
		assert.Equal(t, tensor[i], tensor[i+1])
		assert.Equal(t, tensor[i], tensor[i+2])
	}
}

func TestPreprocessJPEG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solidImage(10, 10, color.RGBA{R: 10, G: 200, B: 30, A: 255}), nil))

	tensor, err := Preprocess(buf.Bytes(), 224, 224, LayoutNHWC)
	require.NoError(t, err)
	assert.Len(t, tensor, 224*224*3)
}

func TestPreprocessRejectsGarbage(t *testing.T) {
	_, err := Preprocess([]byte("definitely not an image"), 8, 8, LayoutNHWC)
	assert.True(t, errors.Is(err, ErrDecode))

	_, err = Preprocess(nil, 8, 8, LayoutNHWC)
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestPreprocessInvalidSize(t *testing.T) {
	data := encodePNG(t, solidImage(2, 2, color.White))

	_, err := Preprocess(data, 0, 8, LayoutNHWC)
	assert.Error(t, err)
}
