package dupes

import "github.com/kmulvey/indexdup/pkg/indexdup/types"

// FindEmptyFiles returns the zero byte files, ordered by path.
func FindEmptyFiles(objects []types.IndexedObject) []types.IndexedObject {
	var empty = types.FilterObjects(objects, func(obj types.IndexedObject) bool {
		return !obj.IsFolder() && obj.Size <= 0
	})
	types.SortByPath(empty)
	return empty
}

// FindEmptyFolders returns the folders no other object names as its parent, ordered by path.
func FindEmptyFolders(objects []types.IndexedObject) []types.IndexedObject {
	var parents = make(map[string]struct{}, len(objects))
	for _, obj := range objects {
		if obj.ParentPath != "" {
			parents[obj.ParentPath] = struct{}{}
		}
	}

	var empty = types.FilterObjects(objects, func(obj types.IndexedObject) bool {
		var _, hasChildren = parents[obj.Path]
		return obj.IsFolder() && !hasChildren
	})
	types.SortByPath(empty)
	return empty
}
