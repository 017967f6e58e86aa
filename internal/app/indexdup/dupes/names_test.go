package dupes

import (
	"testing"

	"github.com/kmulvey/indexdup/pkg/indexdup/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tree = []types.IndexedObject{
	{Path: "/r", Category: types.Folder},
	{Path: "/r/a", ParentPath: "/r", Category: types.Folder},
	{Path: "/r/b", ParentPath: "/r", Category: types.Folder},
	{Path: "/r/a/Photos", ParentPath: "/r/a", Category: types.Folder},
	{Path: "/r/b/photos", ParentPath: "/r/b", Category: types.Folder},
	{Path: "/r/a/Photos/IMG.jpg", ParentPath: "/r/a/Photos", Size: 10, Category: types.Image},
	{Path: "/r/b/img.JPG", ParentPath: "/r/b", Size: 30, Category: types.Image},
	{Path: "/r/a/notes.txt", ParentPath: "/r/a", Size: 0, Category: types.Document},
	{Path: "/r/b/notes.txt", ParentPath: "/r/b", Size: 1, Category: types.Document},
	{Path: "/r/b/empty.log", ParentPath: "/r/b", Size: 0, Category: types.Document},
}

func TestFindDuplicateFileNames(t *testing.T) {
	t.Parallel()

	var groups = FindDuplicateFileNames(tree)
	require.Equal(t, 2, len(groups))
	assert.Equal(t, "img.jpg", groups[0].Name)
	assert.Equal(t, []string{"/r/a/Photos/IMG.jpg", "/r/b/img.JPG"}, paths(groups[0].Members))
	assert.Equal(t, int64(40), groups[0].TotalSizeBytes())
	assert.Equal(t, "notes.txt", groups[1].Name)
}

func TestFindDuplicateFolderNames(t *testing.T) {
	t.Parallel()

	var groups = FindDuplicateFolderNames(tree)
	require.Equal(t, 1, len(groups))
	assert.Equal(t, "photos", groups[0].Name)
	assert.Equal(t, []string{"/r/a/Photos", "/r/b/photos"}, paths(groups[0].Members))
}

func TestFindEmpty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"/r/a/notes.txt", "/r/b/empty.log"}, paths(FindEmptyFiles(tree)))
	assert.Equal(t, []string{"/r/b/photos"}, paths(FindEmptyFolders(tree)))
	assert.Empty(t, FindEmptyFolders(nil))
}
