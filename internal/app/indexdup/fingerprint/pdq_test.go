package fingerprint

import (
	"image"
	"image/color"
	"math"
	"math/rand"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
)

// wavesImage paints a few low frequency sinusoids per channel so the picture has
// structure at the scales the hash looks at.
func wavesImage(width, height int, seed int64) *image.NRGBA {
	type wave struct{ fx, fy, phase, amp float64 }

	var r = rand.New(rand.NewSource(seed))
	var channels [3][]wave
	for c := range channels {
		for i := 0; i < 12; i++ {
			channels[c] = append(channels[c], wave{
				fx:    float64(r.Intn(9)),
				fy:    float64(r.Intn(9)),
				phase: r.Float64() * 2 * math.Pi,
				amp:   8 + r.Float64()*16,
			})
		}
	}

	var img = image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var u, v = float64(x) / float64(width), float64(y) / float64(height)
			var px [3]uint8
			for c, waves := range channels {
				var val = 128.0
				for _, w := range waves {
					val += w.amp * math.Sin(2*math.Pi*(w.fx*u+w.fy*v)+w.phase)
				}
				px[c] = uint8(math.Max(0, math.Min(255, val)))
			}
			img.SetNRGBA(x, y, color.NRGBA{R: px[0], G: px[1], B: px[2], A: 255})
		}
	}
	return img
}

func hashImage(t *testing.T, img image.Image) Fingerprint {
	t.Helper()
	var fp, err = PerceptualHash(LumaFromImage(img))
	assert.NoError(t, err)
	return fp
}

func TestPerceptualHashDeterministic(t *testing.T) {
	t.Parallel()

	var img = wavesImage(256, 256, 1)
	var one, two = hashImage(t, img), hashImage(t, img)
	assert.Equal(t, one, two)
	assert.Equal(t, 0, one.Hash.Distance(two.Hash))
	assert.Greater(t, one.Quality, 0.2)
	assert.LessOrEqual(t, one.Quality, 1.0)
}

func TestPerceptualHashGrayscale(t *testing.T) {
	t.Parallel()

	var img = wavesImage(300, 200, 2)
	var gray = image.NewGray(img.Bounds())
	for y := 0; y < 200; y++ {
		for x := 0; x < 300; x++ {
			gray.Set(x, y, img.At(x, y))
		}
	}

	assert.Equal(t, 0, hashImage(t, img).Hash.Distance(hashImage(t, gray).Hash))
}

func TestPerceptualHashRotateAndScale(t *testing.T) {
	t.Parallel()

	var img = wavesImage(256, 256, 3)
	var original = hashImage(t, img)

	var rotated = hashImage(t, imaging.Rotate90(img))
	assert.GreaterOrEqual(t, original.Hash.Distance(rotated.Hash), 64)

	var half = hashImage(t, imaging.Resize(img, 128, 128, imaging.Box))
	assert.LessOrEqual(t, original.Hash.Distance(half.Hash), 32)

	var unrelated = hashImage(t, wavesImage(256, 256, 99))
	assert.Greater(t, original.Hash.Distance(unrelated.Hash), 64)
}

func TestPerceptualHashFlatImage(t *testing.T) {
	t.Parallel()

	var flat = NewLuma(100, 80)
	for i := range flat.Pix {
		flat.Pix[i] = 90
	}
	var fp, err = PerceptualHash(flat)
	assert.NoError(t, err)
	assert.Less(t, fp.Quality, 0.01)

	_, err = PerceptualHash(NewLuma(0, 0))
	assert.ErrorIs(t, err, ErrEmptyImage)
	_, err = PerceptualHash(nil)
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestPerceptualHashTinyImage(t *testing.T) {
	t.Parallel()

	var tiny = LumaFromBytes(3, 2, []byte{0, 50, 100, 150, 200, 250})
	var _, err = PerceptualHash(tiny)
	assert.NoError(t, err)
}

func TestGradientQuality(t *testing.T) {
	t.Parallel()

	var flat = NewLuma(64, 64)
	var decimated, err = Decimate(flat)
	assert.NoError(t, err)
	assert.Equal(t, 0, GradientQuality(decimated))

	decimated, err = Decimate(LumaFromImage(wavesImage(128, 128, 4)))
	assert.NoError(t, err)
	var q = GradientQuality(decimated)
	assert.Greater(t, q, 0)
	assert.LessOrEqual(t, q, 100)
}

func TestBox1DPreservesConstant(t *testing.T) {
	t.Parallel()

	for _, window := range []int{1, 2, 3, 5} {
		var in = []float64{4, 4, 4, 4, 4, 4, 4}
		var out = make([]float64, len(in))
		box1D(in, out, len(in), 1, window)
		for _, v := range out {
			assert.InDelta(t, 4.0, v, 1e-9)
		}
	}
}
