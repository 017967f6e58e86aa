package indexdup

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/kmulvey/indexdup/pkg/indexdup/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obj(path string, size int64, category types.Category) types.IndexedObject {
	return types.IndexedObject{Path: path, ParentPath: "/r", Size: size, Category: category}
}

func sampleResult() *Result {
	var a, b, c = obj("/r/a", 25, types.Image), obj("/r/b", 25, types.Image), obj("/r/c", 25, types.Image)
	var d, e, f = obj("/r/d", 25, types.Video), obj("/r/e", 25, types.Video), obj("/r/f", 25, types.Video)
	var empty = obj("/r/empty", 0, types.Document)
	var folder = obj("/r/dir", 0, types.Folder)

	return &Result{
		Objects: []types.IndexedObject{a, b, c, d, e, f, empty, folder},
		DuplicateHashes: []types.DuplicateHash{
			{Hash: 1, Members: []types.IndexedObject{a, b, c}},
			{Hash: 2, Members: []types.IndexedObject{d, e, f}},
		},
		DuplicateFileNames: []types.DuplicateName{{Name: "x", Members: []types.IndexedObject{a, d}}},
		EmptyFiles:         []types.IndexedObject{empty},
		EmptyFolders:       []types.IndexedObject{folder},
		SimilarImages:      []types.SimilarGroup{{Members: []types.IndexedObject{a, b, c}}},
		SimilarVideos:      []types.SimilarGroup{{Members: []types.IndexedObject{d, e, f}}},
		Warnings:           []types.Warning{{Path: "/r/x", Message: "one"}, {Path: "/r/x", Message: "one"}, {Path: "/r/y"}},
	}
}

func TestDiscardDuplicateHashes(t *testing.T) {
	t.Parallel()

	var r = sampleResult()
	var discarded = r.DiscardDuplicateHashes("/r/c")

	assert.Equal(t, [][]string{{"/r/d", "/r/e", "/r/f"}, {"/r/a", "/r/b"}}, groupPaths(discarded.DuplicateHashes))
	assert.Equal(t, int64(50), discarded.DuplicateHashes[1].TotalSizeBytes())
	// the receiver is untouched
	assert.Equal(t, [][]string{{"/r/a", "/r/b", "/r/c"}, {"/r/d", "/r/e", "/r/f"}}, groupPaths(r.DuplicateHashes))
	assert.Equal(t, r.SimilarImages, discarded.SimilarImages)
}

func TestDiscardWrappers(t *testing.T) {
	t.Parallel()

	var r = sampleResult()
	assert.Empty(t, r.DiscardDuplicateFileNames("/r/a").DuplicateFileNames)
	assert.Empty(t, r.DiscardEmptyFiles("/r/empty").EmptyFiles)
	assert.Empty(t, r.DiscardEmptyFolders("/r/dir").EmptyFolders)
	assert.Equal(t, [][]string{{"/r/b", "/r/c"}}, groupPaths(r.DiscardSimilarImages("/r/a").SimilarImages))
	assert.Empty(t, r.DiscardSimilarVideos("/r/d", "/r/e").SimilarVideos)
	assert.Equal(t, r.SimilarImages, r.DiscardSimilarVideos("/r/d").SimilarImages)
	assert.Empty(t, r.DiscardDuplicateFolderNames("/r/dir").DuplicateFolderNames)
}

func TestDiscardObjectsSyncs(t *testing.T) {
	t.Parallel()

	var r = sampleResult().DiscardObjects("/r/a", "/r/empty")
	assert.NotContains(t, objectPaths(r.Objects), "/r/a")
	assert.Equal(t, [][]string{{"/r/b", "/r/c"}}, groupPaths(r.SimilarImages))
	assert.Equal(t, [][]string{{"/r/d", "/r/e", "/r/f"}, {"/r/b", "/r/c"}}, groupPaths(r.DuplicateHashes))
	assert.Empty(t, r.DuplicateFileNames)
	assert.Empty(t, r.EmptyFiles)
	assert.Equal(t, []string{"/r/dir"}, objectPaths(r.EmptyFolders))
}

func TestDismissWarning(t *testing.T) {
	t.Parallel()

	var r = sampleResult().DismissWarning(types.Warning{Path: "/r/x", Message: "one"})
	assert.Equal(t, []types.Warning{{Path: "/r/x", Message: "one"}, {Path: "/r/y"}}, r.Warnings)
	assert.Equal(t, 2, len(r.DismissWarning(types.Warning{Path: "/nope"}).Warnings))
}

func TestReclaimableBytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(100), sampleResult().ReclaimableBytes())
}

func TestSearch(t *testing.T) {
	t.Parallel()

	var day = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	var r = &Result{Objects: []types.IndexedObject{
		{Path: "/r/Beach.jpg", Size: 300, Category: types.Image, Created: day, Modified: day.Add(48 * time.Hour)},
		{Path: "/r/beach.mp4", Size: 900, Category: types.Video, Created: day.Add(24 * time.Hour), Modified: day},
		{Path: "/r/notes.txt", Size: 10, Category: types.Document, Created: day.Add(72 * time.Hour), Modified: day},
	}}

	assert.Equal(t, []string{"/r/Beach.jpg", "/r/beach.mp4"}, objectPaths(r.Search(Query{Name: "BEACH"})))
	assert.Equal(t, []string{"/r/beach.mp4"}, objectPaths(r.Search(Query{Categories: []types.Category{types.Video}})))
	assert.Equal(t, []string{"/r/beach.mp4", "/r/Beach.jpg", "/r/notes.txt"}, objectPaths(r.Search(Query{Sort: SortBySize, Descending: true})))
	assert.Equal(t, []string{"/r/Beach.jpg"}, objectPaths(r.Search(Query{MinSize: 100, MaxSize: 500})))
	assert.Equal(t, []string{"/r/beach.mp4", "/r/notes.txt"}, objectPaths(r.Search(Query{CreatedAfter: day.Add(time.Hour), Sort: SortByCreated})))
	assert.Equal(t, []string{"/r/beach.mp4", "/r/notes.txt"}, objectPaths(r.Search(Query{ModifiedBefore: day.Add(time.Hour)})))
	assert.Equal(t, []string{"/r/notes.txt", "/r/beach.mp4", "/r/Beach.jpg"}, objectPaths(r.Search(Query{Descending: true})))
}

func TestExport(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	var r = sampleResult()
	r.RunID = "abc"
	require.NoError(t, r.Export(&buf))

	var decoded Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "abc", decoded.RunID)
	assert.Equal(t, objectPaths(r.Objects), objectPaths(decoded.Objects))
	assert.Equal(t, groupPaths(r.DuplicateHashes), groupPaths(decoded.DuplicateHashes))
}
