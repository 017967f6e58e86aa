package similar

import "sort"

// unionFind is a disjoint set forest with path compression and union by rank.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	var uf = &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(x, y int) {
	var px, py = uf.find(x), uf.find(y)
	if px == py {
		return
	}
	if uf.rank[px] < uf.rank[py] {
		px, py = py, px
	}
	uf.parent[py] = px
	if uf.rank[px] == uf.rank[py] {
		uf.rank[px]++
	}
}

// components returns the sets with at least min members. Members are ascending and
// sets are ordered by their smallest member.
func (uf *unionFind) components(min int) [][]int {
	var byRoot = make(map[int][]int)
	for i := range uf.parent {
		var root = uf.find(i)
		byRoot[root] = append(byRoot[root], i)
	}

	var out [][]int
	for _, members := range byRoot {
		if len(members) >= min {
			out = append(out, members)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
