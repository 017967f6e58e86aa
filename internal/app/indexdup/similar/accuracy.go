package similar

import (
	"math"

	"github.com/kmulvey/indexdup/internal/app/indexdup/fingerprint"
)

const (
	histogramBins = 64
	// minHistogramCorrelation is the lowest mapped correlation an edge accepts in
	// improve accuracy mode.
	minHistogramCorrelation = 0.9
)

// Histogram is a normalized luminance histogram.
type Histogram [histogramBins]float64

func lumaHistogram(l *fingerprint.Luma) Histogram {
	var h Histogram
	if len(l.Pix) == 0 {
		return h
	}
	for _, v := range l.Pix {
		var bin = int(v) * histogramBins / 256
		if bin >= histogramBins {
			bin = histogramBins - 1
		} else if bin < 0 {
			bin = 0
		}
		h[bin]++
	}
	for i := range h {
		h[i] /= float64(len(l.Pix))
	}
	return h
}

// Correlation is the Pearson correlation of two histograms mapped from [-1,1] to [0,1].
func (h Histogram) Correlation(other Histogram) float64 {
	var meanA, meanB float64
	for i := range h {
		meanA += h[i]
		meanB += other[i]
	}
	meanA /= histogramBins
	meanB /= histogramBins

	var cov, varA, varB float64
	for i := range h {
		var da, db = h[i] - meanA, other[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}

	if varA == 0 || varB == 0 {
		if h == other {
			return 1
		}
		return 0.5
	}
	var c = cov / math.Sqrt(varA*varB)
	return math.Max(0, math.Min(1, (c+1)/2))
}

// accurate is the extra edge predicate of improve accuracy mode: the luminance
// histograms must correlate and the 64 bit difference hashes must be as close as the
// similarity allows.
func accurate(a, b *ImageDescriptor, minSimilarity float64) bool {
	if a.Histogram.Correlation(b.Histogram) < minHistogramCorrelation {
		return false
	}
	if a.DHash == nil || b.DHash == nil {
		return false
	}
	var d, err = a.DHash.Distance(b.DHash)
	if err != nil {
		return false
	}
	return d <= int(math.Floor((1-minSimilarity)*64))
}
