// Package indexdup drives a run: walk, index, and every enabled analyzer, publishing
// the current stage as it goes.
package indexdup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kmulvey/indexdup/internal/app/indexdup/dupes"
	"github.com/kmulvey/indexdup/internal/app/indexdup/fingerprint"
	"github.com/kmulvey/indexdup/internal/app/indexdup/similar"
	"github.com/kmulvey/indexdup/internal/app/indexdup/walk"
	"github.com/kmulvey/indexdup/pkg/indexdup/types"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// ErrAlreadyRunning is returned by Run while another Run is in progress.
var ErrAlreadyRunning = errors.New("pipeline is already running")

// Pipeline runs the analyzers over one configuration. It can be run again after a
// run finishes, fails or is cancelled.
type Pipeline struct {
	*stats
	config Config
	fs     afero.Fs
	frames similar.FrameSource

	imageCache *similar.Cache[*similar.ImageDescriptor]
	videoCache *similar.Cache[[][]fingerprint.Hash256]

	stage    *Observable[Stage]
	warnings *Observable[[]types.Warning]
	result   *Observable[*Result]

	// lock guards frozen and makes stage writes and the final publish atomic
	lock    sync.Mutex
	frozen  bool
	running atomic.Bool
	runID   string

	cancelStats context.CancelFunc
}

// NewPipeline validates config and registers the prometheus stats under promNamespace.
// A nil frames decodes videos with ffmpeg.
func NewPipeline(promNamespace string, config Config, fs afero.Fs, frames similar.FrameSource) (*Pipeline, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if frames == nil {
		frames = similar.FFmpegFrames{}
	}

	var p = &Pipeline{
		config:   config,
		fs:       fs,
		frames:   frames,
		stats:    newStats(promNamespace),
		stage:    NewObservable[Stage](NotStarted{}),
		warnings: NewObservable[[]types.Warning](nil),
		result:   NewObservable[*Result](nil),
	}
	p.imageCache = similar.NewCache[*similar.ImageDescriptor](p.FingerprintCacheHits, p.FingerprintCacheMisses)
	p.videoCache = similar.NewCache[[][]fingerprint.Hash256](nil, nil)

	var statsCtx, cancel = context.WithCancel(context.Background())
	p.cancelStats = cancel
	go p.stats.publishStats(statsCtx, 10*time.Second)

	return p, nil
}

// Stage returns the latest stage.
func (p *Pipeline) Stage() Stage {
	return p.stage.Get()
}

// Watch streams stages until ctx is done. A slow reader only sees the newest one.
func (p *Pipeline) Watch(ctx context.Context) <-chan Stage {
	return p.stage.Watch(ctx)
}

// Changed is closed by the next stage change.
func (p *Pipeline) Changed() <-chan struct{} {
	return p.stage.Changed()
}

// Warnings returns the warnings of the current run so far.
func (p *Pipeline) Warnings() []types.Warning {
	return p.warnings.Get()
}

// Result returns the result of the last successful run, or nil.
func (p *Pipeline) Result() *Result {
	return p.result.Get()
}

// UpdateResult replaces the published result with fn applied to it, used by the
// maintenance operations.
func (p *Pipeline) UpdateResult(fn func(*Result) *Result) {
	p.result.Update(func(r *Result) *Result {
		if r == nil {
			return nil
		}
		return fn(r)
	})
}

// RunID identifies the current or last run in logs and reports.
func (p *Pipeline) RunID() string {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.runID
}

// Shutdown unregisters prom stats. Context cancel must be called to stop a running Run.
func (p *Pipeline) Shutdown() {
	p.cancelStats()
	p.stats.unregister()
}

// run is the per-call state of Run.
type run struct {
	*Pipeline
	ctx        context.Context
	id         string
	log        *log.Entry
	started    time.Time
	stageStart time.Time
	kind       StageKind
}

// Run executes every enabled stage in order. On success the result is published and the
// stage becomes Done. A fatal error moves the stage to Failed. Cancelling ctx stops the
// run without publishing anything further; Run then returns ctx's error.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer p.running.Store(false)

	var r = &run{Pipeline: p, ctx: ctx, id: uuid.New().String(), started: time.Now()}
	r.stageStart = r.started
	r.log = log.WithField("run", r.id)

	p.lock.Lock()
	p.frozen = false
	p.runID = r.id
	p.stage.Set(NotStarted{})
	p.warnings.Set(nil)
	p.result.Set(nil)
	p.lock.Unlock()

	// fingerprints are only valid for the run that computed them
	p.imageCache.Reset()
	p.videoCache.Reset()

	r.log.WithFields(log.Fields{"roots": p.config.IncludedPaths, "threads": p.config.MaxThreads}).Info("run started")

	var result, err = r.execute()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			r.freeze()
			r.log.Info("run cancelled")
			return nil, ctxErr
		}
		r.fail(err)
		return nil, err
	}

	p.lock.Lock()
	defer p.lock.Unlock()
	if ctxErr := ctx.Err(); ctxErr != nil {
		p.frozen = true
		r.log.Info("run cancelled")
		return nil, ctxErr
	}
	r.timeStage(KindDone)
	result.RunID = r.id
	result.Warnings = p.warnings.Get()
	p.result.Set(result)
	p.stage.Set(Done{})
	p.CurrentStage.Set(float64(KindDone))

	r.log.WithFields(log.Fields{
		"objects":  len(result.Objects),
		"warnings": len(result.Warnings),
		"took":     time.Since(r.started).String(),
	}).Info("run done")

	return result, nil
}

func (r *run) execute() (*Result, error) {
	var analyzers = r.config.Analyzers
	var walker = walk.NewWalker(r.fs, r.config.walkConfig())

	if len(r.config.IncludedPaths) > 0 {
		r.setStage(Walking{Path: r.config.IncludedPaths[0]})
	}
	var entries, err = walker.Walk(r.ctx, func(dir string) { r.setStage(Walking{Path: dir}) }, r.warn)
	if err != nil {
		return nil, err
	}

	r.setStage(Indexing{})
	objects, err := walker.Index(r.ctx, r.config.MaxThreads, entries, func(progress float64, obj types.IndexedObject) {
		r.ObjectsIndexed.Inc()
		r.setStage(Indexing{Progress: progress, Object: obj})
	}, r.warn)
	if err != nil {
		return nil, err
	}

	var result = &Result{Objects: objects}

	if analyzers.DuplicateHashes {
		r.setStage(DuplicateHashesAnalyzing{})
		var detector = dupes.NewDetector(r.fs)
		detector.SampleBytes = r.config.SampleBytes
		detector.BufferSize = r.config.BufferBytes
		detector.MaxThreads = r.config.MaxThreads
		detector.VerifyBytes = r.config.VerifyBytes
		detector.PartialReads = r.PartialChecksums
		detector.FullReads = r.FullChecksums

		result.DuplicateHashes, err = detector.FindDuplicateHashes(r.ctx, objects, func(phase dupes.Phase, progress float64, obj types.IndexedObject) {
			if phase == dupes.PartialPhase {
				r.setStage(DuplicateHashesAnalyzing{Progress: progress, Object: obj})
			} else {
				r.setStage(DuplicateHashesComputingFullHash{Progress: progress, Object: obj})
			}
		}, r.warn)
		if err != nil {
			return nil, err
		}
	}

	if analyzers.DuplicateFileNames || analyzers.DuplicateFolderNames {
		r.setStage(DuplicateNamesAnalyzing{})
		if analyzers.DuplicateFileNames {
			result.DuplicateFileNames = dupes.FindDuplicateFileNames(objects)
		}
		if analyzers.DuplicateFolderNames {
			result.DuplicateFolderNames = dupes.FindDuplicateFolderNames(objects)
		}
	}

	if analyzers.EmptyFiles {
		r.setStage(EmptyFilesAnalyzing{})
		result.EmptyFiles = dupes.FindEmptyFiles(objects)
	}

	if analyzers.EmptyFolders {
		r.setStage(EmptyFoldersAnalyzing{})
		result.EmptyFolders = dupes.FindEmptyFolders(objects)
	}

	if analyzers.SimilarImages {
		r.setStage(SimilarImagesComparing{})
		var grouper = similar.NewImageGrouper(r.fs, r.config.imageConfig(), r.imageCache)
		grouper.Fingerprints = r.Fingerprints
		grouper.Candidates = r.MIHCandidates
		grouper.Matches = r.MIHMatches

		result.SimilarImages, err = grouper.Group(r.ctx, objects, func(progress float64, obj types.IndexedObject) {
			r.setStage(SimilarImagesComparing{Progress: progress, Object: obj})
		}, r.warn)
		if err != nil {
			return nil, err
		}
	}

	if analyzers.SimilarVideos {
		r.setStage(SimilarVideosComparing{})
		var grouper = similar.NewVideoGrouper(r.frames, r.config.videoConfig(), r.videoCache)
		grouper.Fingerprints = r.Fingerprints

		result.SimilarVideos, err = grouper.Group(r.ctx, objects, func(progress float64, obj types.IndexedObject) {
			r.setStage(SimilarVideosComparing{Progress: progress, Object: obj})
		}, r.warn)
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

// setStage publishes s unless the run is frozen. Progress within a stage never moves
// backwards even though workers report out of order.
func (r *run) setStage(s Stage) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.frozen {
		return
	}
	if r.ctx.Err() != nil {
		r.frozen = true
		return
	}

	var current = r.stage.Get()
	if next, ok := s.(Progress); ok {
		if prev, ok := current.(Progress); ok && prev.Kind() == next.Kind() && next.Fraction() < prev.Fraction() {
			return
		}
	}

	if s.Kind() != current.Kind() {
		r.timeStage(s.Kind())
		r.CurrentStage.Set(float64(s.Kind()))
		r.log.WithField("stage", s.Kind().String()).Debug("stage changed")
	}
	r.stage.Set(s)
}

// timeStage records how long the stage being left took. r.lock must be held.
func (r *run) timeStage(next StageKind) {
	var now = time.Now()
	if r.kind != KindNotStarted {
		r.StageDuration.WithLabelValues(r.kind.String()).Set(now.Sub(r.stageStart).Seconds())
	}
	r.kind = next
	r.stageStart = now
}

func (r *run) warn(w types.Warning) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.frozen {
		return
	}
	r.WarningCount.Inc()
	r.log.WithFields(log.Fields{"path": w.Path, "message": w.Message}).Warn("skipped")
	r.warnings.Update(func(all []types.Warning) []types.Warning {
		return append(append([]types.Warning(nil), all...), w)
	})
}

func (r *run) freeze() {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.frozen = true
}

func (r *run) fail(err error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.frozen {
		return
	}
	r.frozen = true
	var message = err.Error()
	if errors.Is(err, walk.ErrRootInaccessible) {
		message = fmt.Sprintf("cannot read included path: %s", err)
	}
	r.stage.Set(Failed{Message: message})
	r.CurrentStage.Set(float64(KindFailed))
	r.log.WithField("error", err).Error("run failed")
}
