package imageutil

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/anthonynsimon/bild/transform"
	"github.com/disintegration/imaging"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	LayoutNHWC = "nhwc"
	LayoutNCHW = "nchw"
)

var (
	ErrNotImage   = errors.New("file must be an image")
	ErrDecode     = errors.New("error preprocessing image")
	ErrEmptyImage = errors.New("image is empty")
)

// IsImageContentType reports whether a declared MIME type is an image type.
func IsImageContentType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

// Decode decodes data and applies its EXIF orientation.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrDecode, ErrEmptyImage)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: %w", ErrDecode, ErrEmptyImage)
	}

	return img, nil
}

// Resize scales img to exactly width x height with nearest-neighbour sampling.
func Resize(img image.Image, width, height int) *image.RGBA {
	return transform.Resize(img, width, height, transform.NearestNeighbor)
}

// ToTensor flattens img into normalized [0,1] RGB values with a leading
// batch axis of 1. Alpha is discarded.
func ToTensor(img *image.RGBA, layout string) []float32 {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height
	tensor := make([]float32, 3*plane)

	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < width; x++ {
			px := row[x*4 : x*4+4]
			r, g, b := unpremultiply(px[0], px[3]), unpremultiply(px[1], px[3]), unpremultiply(px[2], px[3])

			pixel := y*width + x
			if layout == LayoutNCHW {
				tensor[pixel] = r
				tensor[plane+pixel] = g
				tensor[2*plane+pixel] = b
			} else {
				tensor[pixel*3] = r
				tensor[pixel*3+1] = g
				tensor[pixel*3+2] = b
			}
		}
	}

	return tensor
}

// Preprocess decodes data, resizes it and returns the model input tensor.
func Preprocess(data []byte, width, height int, layout string) ([]float32, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}

	img, err := Decode(data)
	if err != nil {
		return nil, err
	}

	return ToTensor(Resize(img, width, height), layout), nil
}

func unpremultiply(c, a uint8) float32 {
	switch a {
	case 0:
		return 0
	case 0xff:
		return float32(c) / 255
	default:
		v := float32(c) / float32(a)
		if v > 1 {
			v = 1
		}
		return v
	}
}
