package similar

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/kmulvey/indexdup/internal/app/indexdup/fingerprint"
	"github.com/kmulvey/indexdup/internal/app/indexdup/mih"
	"github.com/kmulvey/indexdup/internal/app/indexdup/pool"
	"github.com/kmulvey/indexdup/pkg/indexdup/types"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// pruneDistance collapses runs of near identical consecutive frames.
const pruneDistance = 2

// ErrNoFrames is the warning cause for videos that produced no usable frame.
var ErrNoFrames = errors.New("no frames could be fingerprinted")

// VideoConfig tunes VideoGrouper.
type VideoConfig struct {
	// MinHashSimilarity sets the radius under which two frames match.
	MinHashSimilarity float64
	// MinFrameSimilarity is the fraction of one video's frames that must match the other.
	MinFrameSimilarity float64
	FPS                float64
	// Dihedral also matches frames that were rotated or flipped.
	Dihedral   bool
	Blocks     int
	MaxThreads int
}

// VideoGrouper finds connected components of similar videos by comparing sampled frames.
type VideoGrouper struct {
	frames FrameSource
	config VideoConfig
	cache  *Cache[[][]fingerprint.Hash256]

	// Fingerprints counts hashed frames and may be nil.
	Fingerprints prometheus.Counter
}

// NewVideoGrouper returns a grouper decoding through frames. cache holds, per video,
// each kept frame's hashes with the upright one first, and may be nil.
func NewVideoGrouper(frames FrameSource, config VideoConfig, cache *Cache[[][]fingerprint.Hash256]) *VideoGrouper {
	if cache == nil {
		cache = NewCache[[][]fingerprint.Hash256](nil, nil)
	}
	if config.Blocks == 0 {
		config.Blocks = mih.DefaultBlocks
	}
	return &VideoGrouper{frames: frames, config: config, cache: cache}
}

// Group samples every VIDEO object and returns similar components of two or more.
func (g *VideoGrouper) Group(ctx context.Context, objects []types.IndexedObject, progress func(float64, types.IndexedObject), warn types.WarnFunc) ([]types.SimilarGroup, error) {
	var videos = types.FilterObjects(objects, func(o types.IndexedObject) bool { return o.Category == types.Video })
	types.SortByPath(videos)

	var index, err = mih.NewIndex(g.config.Blocks)
	if err != nil {
		return nil, err
	}

	var ids = make([]int, len(videos))
	for i := range ids {
		ids[i] = i
	}
	var done atomic.Int64
	var total = float64(2 * len(videos))
	var step = func(obj types.IndexedObject) {
		if progress != nil {
			progress(float64(done.Add(1))/total, obj)
		}
	}

	hashes, err := pool.Map(ctx, g.config.MaxThreads, ids, func(ctx context.Context, i int) ([][]fingerprint.Hash256, error) {
		defer step(videos[i])
		return g.describe(ctx, videos[i], warn)
	})
	if err != nil {
		return nil, err
	}

	// frame variant id -> video
	var owner []int
	var numFrames int
	for i, frames := range hashes {
		for _, variants := range frames {
			for _, h := range variants {
				index.Insert(uint32(len(owner)), h)
				owner = append(owner, i)
			}
		}
		numFrames += len(frames)
	}

	var radius = Radius(g.config.MinHashSimilarity)
	matches, err := pool.Map(ctx, g.config.MaxThreads, ids, func(ctx context.Context, i int) (map[int]int, error) {
		defer step(videos[i])

		// other video -> how many of our frames have a match in it
		var counts = make(map[int]int)
		for _, variants := range hashes[i] {
			var seen = make(map[int]struct{})
			for _, m := range index.Query(variants[0], radius) {
				var j = owner[m.ID]
				if j == i {
					continue
				}
				if _, dup := seen[j]; !dup {
					seen[j] = struct{}{}
					counts[j]++
				}
			}
		}
		return counts, nil
	})
	if err != nil {
		return nil, err
	}

	var uf = newUnionFind(len(videos))
	var numEdges int
	for i, counts := range matches {
		for j, n := range counts {
			if j <= i || len(hashes[i]) == 0 || len(hashes[j]) == 0 {
				continue
			}
			var forward = float64(n) / float64(len(hashes[i]))
			var backward = float64(matches[j][i]) / float64(len(hashes[j]))
			if forward >= g.config.MinFrameSimilarity || backward >= g.config.MinFrameSimilarity {
				uf.union(i, j)
				numEdges++
			}
		}
	}

	var groups = collect(videos, uf)
	log.WithFields(log.Fields{
		"videos": len(videos),
		"frames": numFrames,
		"ids":    len(owner),
		"radius": radius,
		"edges":  numEdges,
		"groups": len(groups),
	}).Debug("similar videos done")

	return groups, nil
}

// describe hashes the sampled frames of one video, dropping frames within
// pruneDistance of the previously kept one. In dihedral mode each kept frame also
// carries the hashes of its rotations and flips. Failures are warned and return no frames.
func (g *VideoGrouper) describe(ctx context.Context, obj types.IndexedObject, warn types.WarnFunc) (hashes [][]fingerprint.Hash256, err error) {
	defer func() {
		if p := recover(); p != nil {
			warn(types.PanicWarning(obj.Path, p))
			hashes, err = nil, nil
		}
	}()

	hashes, err = g.cache.Get(obj.Path, func() ([][]fingerprint.Hash256, error) {
		var frames, err = g.frames.Frames(ctx, obj.Path, g.config.FPS)
		if err != nil {
			return nil, err
		}

		var out [][]fingerprint.Hash256
		for _, frame := range frames {
			var fp, err = fingerprint.PerceptualHash(frame)
			if err != nil {
				continue
			}
			if g.Fingerprints != nil {
				g.Fingerprints.Inc()
			}
			if len(out) > 0 && out[len(out)-1][0].Distance(fp.Hash) <= pruneDistance {
				continue
			}
			var variants = []fingerprint.Hash256{fp.Hash}
			if g.config.Dihedral {
				for _, t := range transforms(frame.Gray()) {
					var tfp, err = fingerprint.PerceptualHash(fingerprint.LumaFromImage(t))
					if err != nil {
						continue
					}
					variants = append(variants, tfp.Hash)
				}
			}
			out = append(out, variants)
		}
		if len(out) == 0 {
			return nil, ErrNoFrames
		}
		return out, nil
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		warn(types.NewWarning(obj.Path, fmt.Errorf("VideoGrouper error sampling file: %s, err: %w", obj.Path, err)))
		return nil, nil
	}
	return hashes, nil
}
