package types

import "fmt"

// DuplicateHash is a set of files with identical content.
type DuplicateHash struct {
	Hash    uint32          `json:"hash"`
	Members []IndexedObject `json:"members"`
}

func (g DuplicateHash) Key() string              { return fmt.Sprintf("%08x", g.Hash) }
func (g DuplicateHash) Objects() []IndexedObject { return g.Members }
func (g DuplicateHash) TotalSizeBytes() int64    { return TotalSize(g.Members) }
func (g DuplicateHash) WithObjects(members []IndexedObject) DuplicateHash {
	return DuplicateHash{Hash: g.Hash, Members: members}
}

// DuplicateName is a set of files, or a set of folders, sharing a normalized name.
type DuplicateName struct {
	Name    string          `json:"name"`
	Members []IndexedObject `json:"members"`
}

func (g DuplicateName) Key() string              { return g.Name }
func (g DuplicateName) Objects() []IndexedObject { return g.Members }
func (g DuplicateName) TotalSizeBytes() int64    { return TotalSize(g.Members) }
func (g DuplicateName) WithObjects(members []IndexedObject) DuplicateName {
	return DuplicateName{Name: g.Name, Members: members}
}

// SimilarGroup is a connected component of perceptually similar images or videos.
type SimilarGroup struct {
	Members []IndexedObject `json:"members"`
}

// Key is the path of the first member; members are kept sorted by path.
func (g SimilarGroup) Key() string {
	if len(g.Members) == 0 {
		return ""
	}
	return g.Members[0].Path
}

func (g SimilarGroup) Objects() []IndexedObject { return g.Members }
func (g SimilarGroup) TotalSizeBytes() int64    { return TotalSize(g.Members) }
func (g SimilarGroup) WithObjects(members []IndexedObject) SimilarGroup {
	return SimilarGroup{Members: members}
}

// TotalSize sums the sizes of objects.
func TotalSize(objects []IndexedObject) int64 {
	var total int64
	for _, o := range objects {
		total += o.Size
	}
	return total
}
