package types

import "sort"

// Group is implemented by every group kind so maintenance can work on all of them.
type Group[G any] interface {
	Key() string
	Objects() []IndexedObject
	TotalSizeBytes() int64
	WithObjects([]IndexedObject) G
}

// PathSet is a set of absolute paths.
type PathSet map[string]struct{}

// NewPathSet builds a PathSet from paths.
func NewPathSet(paths ...string) PathSet {
	var s = make(PathSet, len(paths))
	for _, p := range paths {
		s[p] = struct{}{}
	}
	return s
}

// Contains reports whether p is in the set.
func (s PathSet) Contains(p string) bool {
	var _, ok = s[p]
	return ok
}

// Remove drops every member whose path is in paths, drops groups left with fewer
// than two members and re-sorts. The input is not modified.
func Remove[G Group[G]](groups []G, paths PathSet) []G {
	return filterGroups(groups, func(o IndexedObject) bool { return !paths.Contains(o.Path) })
}

// Retain keeps only members whose path is in paths, with the same drop and sort rules as Remove.
func Retain[G Group[G]](groups []G, paths PathSet) []G {
	return filterGroups(groups, func(o IndexedObject) bool { return paths.Contains(o.Path) })
}

func filterGroups[G Group[G]](groups []G, keep func(IndexedObject) bool) []G {
	var out = make([]G, 0, len(groups))
	for _, g := range groups {
		var members = FilterObjects(g.Objects(), keep)
		if len(members) < 2 {
			continue
		}
		out = append(out, g.WithObjects(members))
	}
	SortGroups(out)
	return out
}

// SortGroups orders groups by total size descending, then by key, then by first member path.
func SortGroups[G Group[G]](groups []G) {
	sort.SliceStable(groups, func(i, j int) bool {
		var si, sj = groups[i].TotalSizeBytes(), groups[j].TotalSizeBytes()
		if si != sj {
			return si > sj
		}
		var ki, kj = groups[i].Key(), groups[j].Key()
		if ki != kj {
			return ki < kj
		}
		return firstPath(groups[i].Objects()) < firstPath(groups[j].Objects())
	})
}

// FilterObjects returns a new slice with the objects keep accepts.
func FilterObjects(objects []IndexedObject, keep func(IndexedObject) bool) []IndexedObject {
	var out = make([]IndexedObject, 0, len(objects))
	for _, o := range objects {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}

// RemoveObjects drops objects whose path is in paths.
func RemoveObjects(objects []IndexedObject, paths PathSet) []IndexedObject {
	return FilterObjects(objects, func(o IndexedObject) bool { return !paths.Contains(o.Path) })
}

// RetainObjects keeps objects whose path is in paths.
func RetainObjects(objects []IndexedObject, paths PathSet) []IndexedObject {
	return FilterObjects(objects, func(o IndexedObject) bool { return paths.Contains(o.Path) })
}

// SortByPath sorts objects in place by path.
func SortByPath(objects []IndexedObject) {
	sort.Slice(objects, func(i, j int) bool { return objects[i].Path < objects[j].Path })
}

func firstPath(objects []IndexedObject) string {
	if len(objects) == 0 {
		return ""
	}
	return objects[0].Path
}
