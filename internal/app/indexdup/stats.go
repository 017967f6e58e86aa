package indexdup

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// stats are prometheus stats for indexdup
type stats struct {
	ObjectsIndexed         prometheus.Counter
	WarningCount           prometheus.Counter
	PartialChecksums       prometheus.Counter
	FullChecksums          prometheus.Counter
	Fingerprints           prometheus.Counter
	FingerprintCacheHits   prometheus.Counter
	FingerprintCacheMisses prometheus.Counter
	MIHCandidates          prometheus.Counter
	MIHMatches             prometheus.Counter
	CurrentStage           prometheus.Gauge
	StageDuration          *prometheus.GaugeVec
	GCTime                 prometheus.Gauge
	PromNamespace          string
}

// newStats inits all the stats
func newStats(promNamespace string) *stats {
	var s = new(stats)
	s.PromNamespace = promNamespace

	var counter = func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Namespace: promNamespace, Name: name, Help: help})
	}

	s.ObjectsIndexed = counter("objects_indexed", "how many files and folders were stat'ed")
	s.WarningCount = counter("warnings", "per item failures")
	s.PartialChecksums = counter("partial_checksums", "files whose head was checksummed")
	s.FullChecksums = counter("full_checksums", "files read in full")
	s.Fingerprints = counter("fingerprints", "perceptual hashes computed for images and video frames")
	s.FingerprintCacheHits = counter("fingerprint_cache_hits", "image descriptors served from cache")
	s.FingerprintCacheMisses = counter("fingerprint_cache_misses", "image descriptors computed")
	s.MIHCandidates = counter("mih_candidates", "candidates refined by the hamming index")
	s.MIHMatches = counter("mih_matches", "candidates within the query radius")
	s.CurrentStage = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: promNamespace,
			Name:      "stage",
			Help:      "the current pipeline stage",
		},
	)
	s.StageDuration = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: promNamespace,
			Name:      "stage_duration_seconds",
			Help:      "how long the last run spent in each stage",
		},
		[]string{"stage"},
	)
	s.GCTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: promNamespace,
			Name:      "gc_time_nano",
			Help:      "how long a gc sweep took",
		},
	)

	for _, c := range s.collectors() {
		prometheus.MustRegister(c)
	}

	return s
}

func (s *stats) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		s.ObjectsIndexed,
		s.WarningCount,
		s.PartialChecksums,
		s.FullChecksums,
		s.Fingerprints,
		s.FingerprintCacheHits,
		s.FingerprintCacheMisses,
		s.MIHCandidates,
		s.MIHMatches,
		s.CurrentStage,
		s.StageDuration,
		s.GCTime,
	}
}

// publishStats publishes go GC stats to prom every interval until ctx is done
func (s *stats) publishStats(ctx context.Context, interval time.Duration) {
	var ticker = time.NewTicker(interval)
	defer ticker.Stop()

	for {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)
		s.GCTime.Set(float64(memStats.PauseTotalNs))

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// unregister removes all the stats
func (s *stats) unregister() {
	for _, c := range s.collectors() {
		prometheus.Unregister(c)
	}
}
