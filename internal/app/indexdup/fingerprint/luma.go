package fingerprint

import (
	"image"
	"image/color"
	"math"
)

// Luma is a row-major luminance matrix with values in [0,255].
type Luma struct {
	Width  int
	Height int
	Pix    []float64
}

// NewLuma allocates a zeroed width x height matrix.
func NewLuma(width, height int) *Luma {
	return &Luma{Width: width, Height: height, Pix: make([]float64, width*height)}
}

// At returns the value at column x, row y.
func (l *Luma) At(x, y int) float64 {
	return l.Pix[y*l.Width+x]
}

// Set sets the value at column x, row y.
func (l *Luma) Set(x, y int, v float64) {
	l.Pix[y*l.Width+x] = v
}

// LumaFromImage converts img with the same weights image/color uses for gray, so an
// image already converted to *image.Gray produces an identical matrix.
func LumaFromImage(img image.Image) *Luma {
	var b = img.Bounds()
	var l = NewLuma(b.Dx(), b.Dy())

	if gray, ok := img.(*image.Gray); ok {
		for y := 0; y < l.Height; y++ {
			var row = gray.Pix[y*gray.Stride : y*gray.Stride+l.Width]
			for x, v := range row {
				l.Pix[y*l.Width+x] = float64(v)
			}
		}
		return l
	}

	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			var g = color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			l.Pix[y*l.Width+x] = float64(g.Y)
		}
	}
	return l
}

// LumaFromBytes wraps an 8 bit gray frame, as produced by a raw video decoder.
func LumaFromBytes(width, height int, pix []byte) *Luma {
	var l = NewLuma(width, height)
	for i := 0; i < width*height && i < len(pix); i++ {
		l.Pix[i] = float64(pix[i])
	}
	return l
}

// Gray rounds l back into an 8 bit image, the inverse of LumaFromImage on *image.Gray.
func (l *Luma) Gray() *image.Gray {
	var img = image.NewGray(image.Rect(0, 0, l.Width, l.Height))
	for i, v := range l.Pix {
		img.Pix[i] = uint8(math.Max(0, math.Min(255, math.Round(v))))
	}
	return img
}
