// Package similar groups perceptually similar images and videos.
package similar

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"
	"github.com/kmulvey/indexdup/internal/app/indexdup/fingerprint"
	"github.com/kmulvey/indexdup/internal/app/indexdup/mih"
	"github.com/kmulvey/indexdup/internal/app/indexdup/pool"
	"github.com/kmulvey/indexdup/pkg/indexdup/types"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrLowQuality is the warning cause for images too flat to fingerprint reliably.
var ErrLowQuality = errors.New("image quality below threshold")

// ImageDescriptor is what the grouper keeps per image.
type ImageDescriptor struct {
	Fingerprint fingerprint.Fingerprint
	Histogram   Histogram
	DHash       *goimagehash.ImageHash
	Width       int
	Height      int

	// Variants are the rotated and flipped fingerprints, filled in dihedral mode only.
	Variants []ImageVariant
}

// ImageVariant fingerprints one rotation or flip of an image.
type ImageVariant struct {
	Hash  fingerprint.Hash256
	DHash *goimagehash.ImageHash
}

// oriented returns d as seen through variant v, where 0 is upright.
func (d *ImageDescriptor) oriented(v int) *ImageDescriptor {
	if v == 0 || v > len(d.Variants) {
		return d
	}
	var o = *d
	o.Fingerprint.Hash = d.Variants[v-1].Hash
	o.DHash = d.Variants[v-1].DHash
	return &o
}

// ImageConfig tunes GroupImages.
type ImageConfig struct {
	MinSimilarity   float64
	ImproveAccuracy bool
	// MinQuality drops images whose fingerprint quality is lower. Zero keeps everything.
	MinQuality float64
	// Dihedral also matches copies that were rotated or flipped.
	Dihedral   bool
	Blocks     int
	MaxThreads int
}

// Radius converts a minimum similarity into a hamming radius over 256 bits.
func Radius(minSimilarity float64) int {
	var r = int(math.Floor((1 - minSimilarity) * fingerprint.HashBits))
	if r < 0 {
		return 0
	}
	return r
}

// ImageGrouper finds connected components of similar images.
type ImageGrouper struct {
	fs     afero.Fs
	config ImageConfig
	cache  *Cache[*ImageDescriptor]

	// Fingerprints, Candidates and Matches are optional.
	Fingerprints prometheus.Counter
	Candidates   prometheus.Counter
	Matches      prometheus.Counter
}

// NewImageGrouper returns a grouper reading from fs. cache may be shared between
// groupers with the same Dihedral setting; nil allocates a private one.
func NewImageGrouper(fs afero.Fs, config ImageConfig, cache *Cache[*ImageDescriptor]) *ImageGrouper {
	if cache == nil {
		cache = NewCache[*ImageDescriptor](nil, nil)
	}
	if config.Blocks == 0 {
		config.Blocks = mih.DefaultBlocks
	}
	return &ImageGrouper{fs: fs, config: config, cache: cache}
}

// DescribeImage decodes the file at path and fingerprints it.
func DescribeImage(fs afero.Fs, path string) (*ImageDescriptor, error) {
	return describeFile(fs, path, false)
}

// DescribeImageDihedral is DescribeImage plus the fingerprints of every rotation and flip.
func DescribeImageDihedral(fs afero.Fs, path string) (*ImageDescriptor, error) {
	return describeFile(fs, path, true)
}

func describeFile(fs afero.Fs, path string, dihedral bool) (*ImageDescriptor, error) {
	var f, err = fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ImageGrouper error opening file: %s, err: %w", path, err)
	}
	defer f.Close()

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("ImageGrouper error decoding file: %s, err: %w", path, err)
	}

	var luma = fingerprint.LumaFromImage(img)
	var d = &ImageDescriptor{
		Histogram: lumaHistogram(luma),
		Width:     img.Bounds().Dx(),
		Height:    img.Bounds().Dy(),
	}

	d.Fingerprint, err = fingerprint.PerceptualHash(luma)
	if err != nil {
		return nil, fmt.Errorf("ImageGrouper error hashing file: %s, err: %w", path, err)
	}

	d.DHash, err = goimagehash.DifferenceHash(img)
	if err != nil {
		return nil, fmt.Errorf("ImageGrouper error calculating difference hash for file: %s, err: %w", path, err)
	}

	if dihedral {
		for _, t := range transforms(img) {
			var fp, err = fingerprint.PerceptualHash(fingerprint.LumaFromImage(t))
			if err != nil {
				return nil, fmt.Errorf("ImageGrouper error hashing variant of file: %s, err: %w", path, err)
			}
			dh, err := goimagehash.DifferenceHash(t)
			if err != nil {
				return nil, fmt.Errorf("ImageGrouper error calculating difference hash for variant of file: %s, err: %w", path, err)
			}
			d.Variants = append(d.Variants, ImageVariant{Hash: fp.Hash, DHash: dh})
		}
	}

	return d, nil
}

type edge struct{ a, b int }

// Group fingerprints every IMAGE object and returns the components of the similarity
// graph with two or more members. progress runs from 0 to 1 across fingerprinting and
// querying. In dihedral mode every variant of image i is indexed as id i*8+v and
// queries use the upright hash only, which covers every relative orientation.
func (g *ImageGrouper) Group(ctx context.Context, objects []types.IndexedObject, progress func(float64, types.IndexedObject), warn types.WarnFunc) ([]types.SimilarGroup, error) {
	var images = types.FilterObjects(objects, func(o types.IndexedObject) bool { return o.Category == types.Image })
	types.SortByPath(images)

	var index, err = mih.NewIndex(g.config.Blocks)
	if err != nil {
		return nil, err
	}

	var variants = variantsPerItem(g.config.Dihedral)
	var ids = make([]int, len(images))
	for i := range ids {
		ids[i] = i
	}
	var done atomic.Int64
	var total = float64(2 * len(images))
	var step = func(obj types.IndexedObject) {
		if progress != nil {
			progress(float64(done.Add(1))/total, obj)
		}
	}

	descriptors, err := pool.Map(ctx, g.config.MaxThreads, ids, func(ctx context.Context, i int) (*ImageDescriptor, error) {
		var obj = images[i]
		defer step(obj)

		var d = g.describe(obj, warn)
		if d == nil {
			return nil, nil
		}
		if d.Fingerprint.Quality < g.config.MinQuality {
			warn(types.NewWarning(obj.Path, fmt.Errorf("%w: %.3f", ErrLowQuality, d.Fingerprint.Quality)))
			return nil, nil
		}
		index.Insert(uint32(i*variants), d.Fingerprint.Hash)
		if g.config.Dihedral {
			for v, variant := range d.Variants {
				index.Insert(uint32(i*variants+v+1), variant.Hash)
			}
		}
		return d, nil
	})
	if err != nil {
		return nil, err
	}

	var radius = Radius(g.config.MinSimilarity)
	edges, err := pool.Map(ctx, g.config.MaxThreads, ids, func(ctx context.Context, i int) ([]edge, error) {
		defer step(images[i])

		var d = descriptors[i]
		if d == nil {
			return nil, nil
		}

		var out []edge
		var linked = make(map[int]struct{})
		for _, m := range index.Query(d.Fingerprint.Hash, radius) {
			var j, v = int(m.ID) / variants, int(m.ID) % variants
			if j <= i {
				continue
			}
			if _, ok := linked[j]; ok {
				continue
			}
			if g.config.ImproveAccuracy && !accurate(d, descriptors[j].oriented(v), g.config.MinSimilarity) {
				continue
			}
			linked[j] = struct{}{}
			out = append(out, edge{a: i, b: j})
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	var uf = newUnionFind(len(images))
	var numEdges int
	for _, list := range edges {
		for _, e := range list {
			uf.union(e.a, e.b)
			numEdges++
		}
	}

	var probes, scanned, matched = index.Stats()
	if g.Candidates != nil {
		g.Candidates.Add(float64(scanned))
	}
	if g.Matches != nil {
		g.Matches.Add(float64(matched))
	}

	var groups = collect(images, uf)
	log.WithFields(log.Fields{
		"images":  len(images),
		"indexed": index.Len(),
		"radius":  radius,
		"probes":  probes,
		"edges":   numEdges,
		"groups":  len(groups),
	}).Debug("similar images done")

	return groups, nil
}

// describe returns nil after warning when the image cannot be fingerprinted. Decoder
// panics are turned into warnings.
func (g *ImageGrouper) describe(obj types.IndexedObject, warn types.WarnFunc) (d *ImageDescriptor) {
	defer func() {
		if p := recover(); p != nil {
			warn(types.PanicWarning(obj.Path, p))
			d = nil
		}
	}()

	var err error
	d, err = g.cache.Get(obj.Path, func() (*ImageDescriptor, error) {
		if g.Fingerprints != nil {
			g.Fingerprints.Inc()
		}
		return describeFile(g.fs, obj.Path, g.config.Dihedral)
	})
	if err != nil {
		warn(types.NewWarning(obj.Path, err))
		return nil
	}
	return d
}

func collect(objects []types.IndexedObject, uf *unionFind) []types.SimilarGroup {
	var groups []types.SimilarGroup
	for _, component := range uf.components(2) {
		var members = make([]types.IndexedObject, 0, len(component))
		for _, i := range component {
			members = append(members, objects[i])
		}
		types.SortByPath(members)
		groups = append(groups, types.SimilarGroup{Members: members})
	}
	types.SortGroups(groups)
	return groups
}
