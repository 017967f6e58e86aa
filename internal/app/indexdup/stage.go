package indexdup

import (
	"fmt"

	"github.com/kmulvey/indexdup/pkg/indexdup/types"
)

// StageKind orders the phases of a run. Every run visits them in this order, skipping
// the disabled ones.
type StageKind int

const (
	KindNotStarted StageKind = iota
	KindWalking
	KindIndexing
	KindDuplicateHashesAnalyzing
	KindDuplicateHashesComputingFullHash
	KindDuplicateNamesAnalyzing
	KindEmptyFilesAnalyzing
	KindEmptyFoldersAnalyzing
	KindSimilarImagesComparing
	KindSimilarVideosComparing
	KindDone
	KindFailed
)

var stageNames = [...]string{
	KindNotStarted:                       "not_started",
	KindWalking:                          "walking",
	KindIndexing:                         "indexing",
	KindDuplicateHashesAnalyzing:         "duplicate_hashes_analyzing",
	KindDuplicateHashesComputingFullHash: "duplicate_hashes_computing_full_hash",
	KindDuplicateNamesAnalyzing:          "duplicate_names_analyzing",
	KindEmptyFilesAnalyzing:              "empty_files_analyzing",
	KindEmptyFoldersAnalyzing:            "empty_folders_analyzing",
	KindSimilarImagesComparing:           "similar_images_comparing",
	KindSimilarVideosComparing:           "similar_videos_comparing",
	KindDone:                             "done",
	KindFailed:                           "failed",
}

func (k StageKind) String() string {
	if k < 0 || int(k) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(k))
	}
	return stageNames[k]
}

// Stage is the observable state of a pipeline. The concrete types below are the only
// implementations; consumers switch on them.
type Stage interface {
	Kind() StageKind
	stage()
}

// Progress is implemented by the stages that iterate over objects.
type Progress interface {
	Stage
	Fraction() float64
	Current() types.IndexedObject
}

type (
	NotStarted struct{}
	Walking    struct{ Path string }
	Indexing   struct {
		Progress float64
		Object   types.IndexedObject
	}
	DuplicateHashesAnalyzing struct {
		Progress float64
		Object   types.IndexedObject
	}
	DuplicateHashesComputingFullHash struct {
		Progress float64
		Object   types.IndexedObject
	}
	DuplicateNamesAnalyzing struct{}
	EmptyFilesAnalyzing     struct{}
	EmptyFoldersAnalyzing   struct{}
	SimilarImagesComparing  struct {
		Progress float64
		Object   types.IndexedObject
	}
	SimilarVideosComparing struct {
		Progress float64
		Object   types.IndexedObject
	}
	Done   struct{}
	Failed struct{ Message string }
)

func (NotStarted) Kind() StageKind                       { return KindNotStarted }
func (Walking) Kind() StageKind                          { return KindWalking }
func (Indexing) Kind() StageKind                         { return KindIndexing }
func (DuplicateHashesAnalyzing) Kind() StageKind         { return KindDuplicateHashesAnalyzing }
func (DuplicateHashesComputingFullHash) Kind() StageKind { return KindDuplicateHashesComputingFullHash }
func (DuplicateNamesAnalyzing) Kind() StageKind          { return KindDuplicateNamesAnalyzing }
func (EmptyFilesAnalyzing) Kind() StageKind              { return KindEmptyFilesAnalyzing }
func (EmptyFoldersAnalyzing) Kind() StageKind            { return KindEmptyFoldersAnalyzing }
func (SimilarImagesComparing) Kind() StageKind           { return KindSimilarImagesComparing }
func (SimilarVideosComparing) Kind() StageKind           { return KindSimilarVideosComparing }
func (Done) Kind() StageKind                             { return KindDone }
func (Failed) Kind() StageKind                           { return KindFailed }

func (NotStarted) stage()                       {}
func (Walking) stage()                          {}
func (Indexing) stage()                         {}
func (DuplicateHashesAnalyzing) stage()         {}
func (DuplicateHashesComputingFullHash) stage() {}
func (DuplicateNamesAnalyzing) stage()          {}
func (EmptyFilesAnalyzing) stage()              {}
func (EmptyFoldersAnalyzing) stage()            {}
func (SimilarImagesComparing) stage()           {}
func (SimilarVideosComparing) stage()           {}
func (Done) stage()                             {}
func (Failed) stage()                           {}

func (s Indexing) Fraction() float64                                    { return s.Progress }
func (s Indexing) Current() types.IndexedObject                         { return s.Object }
func (s DuplicateHashesAnalyzing) Fraction() float64                    { return s.Progress }
func (s DuplicateHashesAnalyzing) Current() types.IndexedObject         { return s.Object }
func (s DuplicateHashesComputingFullHash) Fraction() float64            { return s.Progress }
func (s DuplicateHashesComputingFullHash) Current() types.IndexedObject { return s.Object }
func (s SimilarImagesComparing) Fraction() float64                      { return s.Progress }
func (s SimilarImagesComparing) Current() types.IndexedObject           { return s.Object }
func (s SimilarVideosComparing) Fraction() float64                      { return s.Progress }
func (s SimilarVideosComparing) Current() types.IndexedObject           { return s.Object }

// Terminal reports whether no further stage can follow s.
func Terminal(s Stage) bool {
	var k = s.Kind()
	return k == KindDone || k == KindFailed
}

// Describe renders a stage for logs and the CLI.
func Describe(s Stage) string {
	switch s := s.(type) {
	case Walking:
		return fmt.Sprintf("%s %s", s.Kind(), s.Path)
	case Failed:
		return fmt.Sprintf("%s: %s", s.Kind(), s.Message)
	case Progress:
		return fmt.Sprintf("%s %.1f%% %s", s.Kind(), 100*s.Fraction(), s.Current().Path)
	default:
		return s.Kind().String()
	}
}
