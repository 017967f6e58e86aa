package indexdup

import (
	"github.com/kmulvey/indexdup/pkg/indexdup/types"
)

// Result is everything a successful run produced. Methods never modify the receiver;
// they return an updated copy.
type Result struct {
	RunID                string                `json:"run"`
	Objects              []types.IndexedObject `json:"objects"`
	DuplicateHashes      []types.DuplicateHash `json:"duplicateHashes,omitempty"`
	DuplicateFileNames   []types.DuplicateName `json:"duplicateFileNames,omitempty"`
	DuplicateFolderNames []types.DuplicateName `json:"duplicateFolderNames,omitempty"`
	EmptyFiles           []types.IndexedObject `json:"emptyFiles,omitempty"`
	EmptyFolders         []types.IndexedObject `json:"emptyFolders,omitempty"`
	SimilarImages        []types.SimilarGroup  `json:"similarImages,omitempty"`
	SimilarVideos        []types.SimilarGroup  `json:"similarVideos,omitempty"`
	Warnings             []types.Warning       `json:"warnings,omitempty"`
}

func (r *Result) clone() *Result {
	var c = *r
	return &c
}

// DiscardDuplicateHashes removes paths from the duplicate hash groups.
func (r *Result) DiscardDuplicateHashes(paths ...string) *Result {
	var c = r.clone()
	c.DuplicateHashes = types.Remove(r.DuplicateHashes, types.NewPathSet(paths...))
	return c
}

// DiscardDuplicateFileNames removes paths from the duplicate file name groups.
func (r *Result) DiscardDuplicateFileNames(paths ...string) *Result {
	var c = r.clone()
	c.DuplicateFileNames = types.Remove(r.DuplicateFileNames, types.NewPathSet(paths...))
	return c
}

// DiscardDuplicateFolderNames removes paths from the duplicate folder name groups.
func (r *Result) DiscardDuplicateFolderNames(paths ...string) *Result {
	var c = r.clone()
	c.DuplicateFolderNames = types.Remove(r.DuplicateFolderNames, types.NewPathSet(paths...))
	return c
}

// DiscardEmptyFiles removes paths from the empty files.
func (r *Result) DiscardEmptyFiles(paths ...string) *Result {
	var c = r.clone()
	c.EmptyFiles = types.RemoveObjects(r.EmptyFiles, types.NewPathSet(paths...))
	return c
}

// DiscardEmptyFolders removes paths from the empty folders.
func (r *Result) DiscardEmptyFolders(paths ...string) *Result {
	var c = r.clone()
	c.EmptyFolders = types.RemoveObjects(r.EmptyFolders, types.NewPathSet(paths...))
	return c
}

// DiscardSimilarImages removes paths from the similar image groups.
func (r *Result) DiscardSimilarImages(paths ...string) *Result {
	var c = r.clone()
	c.SimilarImages = types.Remove(r.SimilarImages, types.NewPathSet(paths...))
	return c
}

// DiscardSimilarVideos removes paths from the similar video groups.
func (r *Result) DiscardSimilarVideos(paths ...string) *Result {
	var c = r.clone()
	c.SimilarVideos = types.Remove(r.SimilarVideos, types.NewPathSet(paths...))
	return c
}

// DiscardObjects drops paths from the object list, as after deleting them from disk,
// and syncs every group with it.
func (r *Result) DiscardObjects(paths ...string) *Result {
	var c = r.clone()
	c.Objects = types.RemoveObjects(r.Objects, types.NewPathSet(paths...))
	return c.Sync()
}

// Sync keeps only the group members still present in the object list.
func (r *Result) Sync() *Result {
	var present = make(types.PathSet, len(r.Objects))
	for _, o := range r.Objects {
		present[o.Path] = struct{}{}
	}

	var c = r.clone()
	c.DuplicateHashes = types.Retain(r.DuplicateHashes, present)
	c.DuplicateFileNames = types.Retain(r.DuplicateFileNames, present)
	c.DuplicateFolderNames = types.Retain(r.DuplicateFolderNames, present)
	c.EmptyFiles = types.RetainObjects(r.EmptyFiles, present)
	c.EmptyFolders = types.RetainObjects(r.EmptyFolders, present)
	c.SimilarImages = types.Retain(r.SimilarImages, present)
	c.SimilarVideos = types.Retain(r.SimilarVideos, present)
	return c
}

// DismissWarning drops the first warning equal to w.
func (r *Result) DismissWarning(w types.Warning) *Result {
	var c = r.clone()
	c.Warnings = make([]types.Warning, 0, len(r.Warnings))
	var dismissed bool
	for _, existing := range r.Warnings {
		if !dismissed && existing == w {
			dismissed = true
			continue
		}
		c.Warnings = append(c.Warnings, existing)
	}
	return c
}

// ReclaimableBytes is what deleting all but one member of every duplicate hash group
// would free.
func (r *Result) ReclaimableBytes() int64 {
	var total int64
	for _, g := range r.DuplicateHashes {
		if len(g.Members) > 1 {
			total += g.TotalSizeBytes() - g.Members[0].Size
		}
	}
	return total
}
