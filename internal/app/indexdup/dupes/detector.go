// Package dupes finds exact duplicates by content, duplicate names, and empty files and folders.
package dupes

import (
	"context"
	"sync/atomic"

	"github.com/kmulvey/indexdup/internal/app/indexdup/fingerprint"
	"github.com/kmulvey/indexdup/internal/app/indexdup/pool"
	"github.com/kmulvey/indexdup/pkg/indexdup/types"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Phase is the checksum pass a progress update belongs to.
type Phase int

const (
	PartialPhase Phase = iota
	FullPhase
)

// ProgressFunc is called once per checksummed file.
type ProgressFunc func(phase Phase, progress float64, obj types.IndexedObject)

// Detector groups files with identical content. Files are first bucketed by size, then
// by the checksum of their head, and only the survivors are read in full.
type Detector struct {
	fs afero.Fs

	SampleBytes int
	BufferSize  int
	MaxThreads  int
	// VerifyBytes splits checksum groups whose bytes differ.
	VerifyBytes bool

	// PartialReads and FullReads are optional.
	PartialReads prometheus.Counter
	FullReads    prometheus.Counter
}

type sizeSum struct {
	size int64
	sum  uint32
}

type summed struct {
	obj types.IndexedObject
	sum uint32
	ok  bool
}

// NewDetector returns a Detector with the default read sizes.
func NewDetector(fs afero.Fs) *Detector {
	return &Detector{
		fs:          fs,
		SampleBytes: fingerprint.DefaultSampleBytes,
		BufferSize:  fingerprint.DefaultBufferBytes,
	}
}

// FindDuplicateHashes returns every set of two or more files with the same size and full
// checksum, ordered by total size. Unreadable files are reported through warn and dropped.
func (d *Detector) FindDuplicateHashes(ctx context.Context, objects []types.IndexedObject, progress ProgressFunc, warn types.WarnFunc) ([]types.DuplicateHash, error) {
	var bySize = make(map[int64][]types.IndexedObject)
	for _, obj := range objects {
		if obj.IsFolder() || obj.Size <= 0 {
			continue
		}
		bySize[obj.Size] = append(bySize[obj.Size], obj)
	}

	var candidates []types.IndexedObject
	for _, bucket := range bySize {
		if len(bucket) > 1 {
			candidates = append(candidates, bucket...)
		}
	}
	types.SortByPath(candidates)

	var partial, err = d.checksum(ctx, PartialPhase, candidates, progress, warn)
	if err != nil {
		return nil, err
	}

	candidates = candidates[:0]
	for _, bucket := range bucketize(partial) {
		if len(bucket) > 1 {
			candidates = append(candidates, bucket...)
		}
	}
	types.SortByPath(candidates)

	full, err := d.checksum(ctx, FullPhase, candidates, progress, warn)
	if err != nil {
		return nil, err
	}

	var groups []types.DuplicateHash
	for key, bucket := range bucketize(full) {
		if len(bucket) > 1 {
			groups = append(groups, types.DuplicateHash{Hash: key.sum, Members: bucket})
		}
	}

	if d.VerifyBytes {
		if groups, err = d.verify(ctx, groups, warn); err != nil {
			return nil, err
		}
	}

	for _, g := range groups {
		types.SortByPath(g.Members)
	}
	types.SortGroups(groups)

	log.WithFields(log.Fields{
		"objects": len(objects),
		"full":    len(candidates),
		"groups":  len(groups),
	}).Debug("duplicate hashes done")

	return groups, nil
}

func (d *Detector) checksum(ctx context.Context, phase Phase, objects []types.IndexedObject, progress ProgressFunc, warn types.WarnFunc) ([]summed, error) {
	var done atomic.Int64
	var total = float64(len(objects))

	return pool.Map(ctx, d.MaxThreads, objects, func(ctx context.Context, obj types.IndexedObject) (summed, error) {
		var sum uint32
		var err error
		var counter prometheus.Counter
		if phase == PartialPhase {
			sum, err = fingerprint.PartialChecksum(d.fs, obj.Path, d.SampleBytes)
			counter = d.PartialReads
		} else {
			sum, err = fingerprint.FullChecksum(ctx, d.fs, obj.Path, d.BufferSize)
			counter = d.FullReads
		}

		if progress != nil {
			progress(phase, float64(done.Add(1))/total, obj)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return summed{}, ctxErr
		}
		if err != nil {
			warn(types.NewWarning(obj.Path, err))
			return summed{obj: obj}, nil
		}
		if counter != nil {
			counter.Inc()
		}
		return summed{obj: obj, sum: sum, ok: true}, nil
	})
}

// verify splits each group into classes of byte-identical files.
func (d *Detector) verify(ctx context.Context, groups []types.DuplicateHash, warn types.WarnFunc) ([]types.DuplicateHash, error) {
	var split, err = pool.Map(ctx, d.MaxThreads, groups, func(ctx context.Context, g types.DuplicateHash) ([]types.DuplicateHash, error) {
		types.SortByPath(g.Members)

		var classes [][]types.IndexedObject
	members:
		for _, obj := range g.Members {
			for i, class := range classes {
				var same, err = fingerprint.SameContents(ctx, d.fs, class[0].Path, obj.Path, d.BufferSize)
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				if err != nil {
					warn(types.NewWarning(obj.Path, err))
					continue members
				}
				if same {
					classes[i] = append(class, obj)
					continue members
				}
			}
			classes = append(classes, []types.IndexedObject{obj})
		}

		var out []types.DuplicateHash
		for _, class := range classes {
			if len(class) > 1 {
				out = append(out, types.DuplicateHash{Hash: g.Hash, Members: class})
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	var verified []types.DuplicateHash
	for _, s := range split {
		verified = append(verified, s...)
	}
	return verified, nil
}

func bucketize(sums []summed) map[sizeSum][]types.IndexedObject {
	var buckets = make(map[sizeSum][]types.IndexedObject)
	for _, s := range sums {
		if !s.ok {
			continue
		}
		var key = sizeSum{size: s.obj.Size, sum: s.sum}
		buckets[key] = append(buckets[key], s.obj)
	}
	return buckets
}

