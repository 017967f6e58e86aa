package fingerprint

import (
	"errors"
	"math"
)

const (
	// grid is the side of the decimated luminance matrix fed to the DCT.
	grid = 64
	// coefficients is the side of the kept low frequency DCT block.
	coefficients = 16
	// qualityScale is the mean absolute deviation, in DCT units, treated as full quality.
	qualityScale = 64.0
	// jaroszPasses is how many times the box filter runs along each axis.
	jaroszPasses = 2
)

// ErrEmptyImage is returned for a matrix with no pixels.
var ErrEmptyImage = errors.New("image has no pixels")

// Fingerprint is a perceptual hash plus a quality score in [0,1].
type Fingerprint struct {
	Hash    Hash256 `json:"hash"`
	Quality float64 `json:"quality"`
}

// dctMatrix is the 16x64 partial DCT-II basis, skipping the DC row.
var dctMatrix = func() [coefficients][grid]float64 {
	var m [coefficients][grid]float64
	var scale = math.Sqrt(2.0 / grid)
	for i := 0; i < coefficients; i++ {
		for j := 0; j < grid; j++ {
			m[i][j] = scale * math.Cos(math.Pi/2/grid*float64(i+1)*float64(2*j+1))
		}
	}
	return m
}()

// PerceptualHash computes the 256 bit fingerprint of a luminance matrix: box blur,
// decimate to 64x64, take the 16x16 low frequency DCT block and set every bit whose
// coefficient is above the block median.
func PerceptualHash(l *Luma) (Fingerprint, error) {
	var fp Fingerprint
	var decimated, err = Decimate(l)
	if err != nil {
		return fp, err
	}

	var dct = dct16(decimated)
	var flat = make([]float64, 0, coefficients*coefficients)
	for i := range dct {
		flat = append(flat, dct[i][:]...)
	}
	var median = TorbenMedian(flat)

	var deviation float64
	for k, v := range flat {
		if v > median {
			fp.Hash.SetBit(k)
		}
		deviation += math.Abs(v - median)
	}
	deviation /= float64(len(flat))
	fp.Quality = math.Min(1, deviation/qualityScale)

	return fp, nil
}

// Decimate blurs l and samples it down to a 64x64 grid.
func Decimate(l *Luma) (*[grid][grid]float64, error) {
	if l == nil || l.Width <= 0 || l.Height <= 0 || len(l.Pix) < l.Width*l.Height {
		return nil, ErrEmptyImage
	}

	var buf1 = make([]float64, l.Width*l.Height)
	copy(buf1, l.Pix)
	var buf2 = make([]float64, len(buf1))
	jaroszFilter(buf1, buf2, l.Height, l.Width)

	var out [grid][grid]float64
	for i := 0; i < grid; i++ {
		var row = int((float64(i) + 0.5) * float64(l.Height) / grid)
		for j := 0; j < grid; j++ {
			var col = int((float64(j) + 0.5) * float64(l.Width) / grid)
			out[i][j] = buf1[row*l.Width+col]
		}
	}
	return &out, nil
}

// GradientQuality is the classic PDQ quality metric, 0 to 100, computed on the
// decimated matrix from neighbour gradients.
func GradientQuality(decimated *[grid][grid]float64) int {
	var sum int
	for i := 0; i < grid-1; i++ {
		for j := 0; j < grid; j++ {
			sum += absInt(int((decimated[i][j] - decimated[i+1][j]) * 100 / 255))
		}
	}
	for i := 0; i < grid; i++ {
		for j := 0; j < grid-1; j++ {
			sum += absInt(int((decimated[i][j] - decimated[i][j+1]) * 100 / 255))
		}
	}
	var quality = sum / 90
	if quality > 100 {
		quality = 100
	}
	return quality
}

// dct16 computes D * A * Dt where D is the 16x64 basis.
func dct16(a *[grid][grid]float64) [coefficients][coefficients]float64 {
	var tmp [coefficients][grid]float64
	for i := 0; i < coefficients; i++ {
		for j := 0; j < grid; j++ {
			var sum float64
			for k := 0; k < grid; k++ {
				sum += dctMatrix[i][k] * a[k][j]
			}
			tmp[i][j] = sum
		}
	}

	var out [coefficients][coefficients]float64
	for i := 0; i < coefficients; i++ {
		for j := 0; j < coefficients; j++ {
			var sum float64
			for k := 0; k < grid; k++ {
				sum += tmp[i][k] * dctMatrix[j][k]
			}
			out[i][j] = sum
		}
	}
	return out
}

// jaroszFilter approximates a tent blur with repeated box filters. The result ends up in buf1.
func jaroszFilter(buf1, buf2 []float64, rows, cols int) {
	var windowAlongRows = windowSize(cols)
	var windowAlongCols = windowSize(rows)
	for pass := 0; pass < jaroszPasses; pass++ {
		for i := 0; i < rows; i++ {
			box1D(buf1[i*cols:], buf2[i*cols:], cols, 1, windowAlongRows)
		}
		for j := 0; j < cols; j++ {
			box1D(buf2[j:], buf1[j:], rows, cols, windowAlongCols)
		}
	}
}

// windowSize is ceil(dim / 128): half the decimation step.
func windowSize(dim int) int {
	return (dim + 2*grid - 1) / (2 * grid)
}

// box1D is a running mean over n elements spaced stride apart, shrinking the
// window at both ends instead of padding.
func box1D(in, out []float64, n, stride, window int) {
	var half = (window + 2) / 2
	var phase1 = half - 1
	var phase2 = window - half + 1
	var phase3 = n - window
	var phase4 = half - 1

	var li, ri, oi int
	var sum float64
	var size int

	for i := 0; i < phase1; i++ {
		sum += in[ri]
		size++
		ri += stride
	}
	for i := 0; i < phase2; i++ {
		sum += in[ri]
		size++
		out[oi] = sum / float64(size)
		ri += stride
		oi += stride
	}
	for i := 0; i < phase3; i++ {
		sum += in[ri]
		sum -= in[li]
		out[oi] = sum / float64(size)
		li += stride
		ri += stride
		oi += stride
	}
	for i := 0; i < phase4; i++ {
		sum -= in[li]
		size--
		out[oi] = sum / float64(size)
		li += stride
		oi += stride
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
