package similar

import (
	"image"
	"image/color"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/kmulvey/indexdup/pkg/indexdup/types"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func wavesImage(width, height int, seed int64) *image.NRGBA {
	type wave struct{ fx, fy, phase, amp float64 }

	var r = rand.New(rand.NewSource(seed))
	var waves []wave
	for i := 0; i < 12; i++ {
		waves = append(waves, wave{
			fx:    float64(r.Intn(9)),
			fy:    float64(r.Intn(9)),
			phase: r.Float64() * 2 * math.Pi,
			amp:   8 + r.Float64()*16,
		})
	}

	var img = image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var u, v = float64(x) / float64(width), float64(y) / float64(height)
			var val = 128.0
			for _, w := range waves {
				val += w.amp * math.Sin(2*math.Pi*(w.fx*u+w.fy*v)+w.phase)
			}
			var c = uint8(math.Max(0, math.Min(255, val)))
			img.SetNRGBA(x, y, color.NRGBA{R: c, G: 255 - c, B: c / 2, A: 255})
		}
	}
	return img
}

func flatImage(width, height int, c uint8) *image.NRGBA {
	return imaging.New(width, height, color.NRGBA{R: c, G: c, B: c, A: 255})
}

func writeImage(t *testing.T, fs afero.Fs, path string, img image.Image) types.IndexedObject {
	t.Helper()

	var f, err = fs.Create(path)
	require.NoError(t, err)
	require.NoError(t, imaging.Encode(f, img, imaging.PNG))
	require.NoError(t, f.Close())

	info, err := fs.Stat(path)
	require.NoError(t, err)
	return types.IndexedObject{Path: path, ParentPath: "/img", Size: info.Size(), Category: types.Image}
}

type warnings struct {
	lock sync.Mutex
	all  []types.Warning
}

func (w *warnings) add(warning types.Warning) {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.all = append(w.all, warning)
}

func memberPaths(groups []types.SimilarGroup) [][]string {
	var out [][]string
	for _, g := range groups {
		var paths []string
		for _, m := range g.Members {
			paths = append(paths, m.Path)
		}
		out = append(out, paths)
	}
	return out
}
