package indexdup

import (
	"sort"
	"strings"
	"time"

	"github.com/kmulvey/indexdup/pkg/indexdup/types"
)

// SortKey picks the order of search results.
type SortKey int

const (
	SortByPath SortKey = iota
	SortByName
	SortBySize
	SortByCreated
	SortByModified
)

// Query filters the object list. Zero fields match everything.
type Query struct {
	// Name is a case insensitive substring of the base name.
	Name           string
	Categories     []types.Category
	MinSize        int64
	MaxSize        int64
	CreatedAfter   time.Time
	CreatedBefore  time.Time
	ModifiedAfter  time.Time
	ModifiedBefore time.Time
	Sort           SortKey
	Descending     bool
}

func (q Query) matches(o types.IndexedObject) bool {
	if q.Name != "" && !strings.Contains(strings.ToLower(o.Name()), strings.ToLower(q.Name)) {
		return false
	}
	if len(q.Categories) > 0 {
		var found bool
		for _, c := range q.Categories {
			if c == o.Category {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if o.Size < q.MinSize || (q.MaxSize > 0 && o.Size > q.MaxSize) {
		return false
	}
	return within(o.Created, q.CreatedAfter, q.CreatedBefore) && within(o.Modified, q.ModifiedAfter, q.ModifiedBefore)
}

func within(t, after, before time.Time) bool {
	if !after.IsZero() && t.Before(after) {
		return false
	}
	if !before.IsZero() && t.After(before) {
		return false
	}
	return true
}

// Search returns the objects q matches, ordered by q.Sort with path as the tie break.
func (r *Result) Search(q Query) []types.IndexedObject {
	var found = types.FilterObjects(r.Objects, q.matches)

	var compare = func(a, b types.IndexedObject) int {
		switch q.Sort {
		case SortByName:
			return strings.Compare(strings.ToLower(a.Name()), strings.ToLower(b.Name()))
		case SortBySize:
			return compareInt64(a.Size, b.Size)
		case SortByCreated:
			return a.Created.Compare(b.Created)
		case SortByModified:
			return a.Modified.Compare(b.Modified)
		default:
			return strings.Compare(a.Path, b.Path)
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		var c = compare(found[i], found[j])
		if c == 0 {
			return found[i].Path < found[j].Path
		}
		if q.Descending {
			return c > 0
		}
		return c < 0
	})
	return found
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
