// Package mih is a multi-index hashing structure for radius queries in hamming space.
//
// The 256 bits of a fingerprint are split into m contiguous blocks, each block value
// keyed into its own table of roaring bitmaps. If two fingerprints are within r of
// each other then at least one block is within r/m, so probing every pattern within
// r/m flips of each query block finds every true neighbour.
package mih

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring"
	"github.com/kmulvey/indexdup/internal/app/indexdup/fingerprint"
)

// DefaultBlocks splits the hash into 16 bit words.
const DefaultBlocks = 16

// maxLocalRadius bounds the per block enumeration. Past it a query refines over
// every inserted id instead, which is still exact.
const maxLocalRadius = 3

// ErrBlockCount is returned for a block count that does not give 8, 16, 32 or 64 bit blocks.
var ErrBlockCount = errors.New("block count must be one of 4, 8, 16, 32")

// Match is one neighbour returned by Query.
type Match struct {
	ID       uint32
	Distance int
}

// Index is safe for concurrent use. Inserts and queries are serialized under a RWMutex
// so a query started after Insert returns always sees it.
type Index struct {
	lock    sync.RWMutex
	blocks  int
	width   int
	tables  []map[uint64]*roaring.Bitmap
	hashes  map[uint32]fingerprint.Hash256
	all     *roaring.Bitmap
	probes  atomic.Uint64
	scanned atomic.Uint64
	matched atomic.Uint64
}

// NewIndex builds an empty index with the given number of blocks.
func NewIndex(blocks int) (*Index, error) {
	switch blocks {
	case 4, 8, 16, 32:
	default:
		return nil, fmt.Errorf("%w: got %d", ErrBlockCount, blocks)
	}

	var ix = &Index{
		blocks: blocks,
		width:  fingerprint.HashBits / blocks,
		tables: make([]map[uint64]*roaring.Bitmap, blocks),
		hashes: make(map[uint32]fingerprint.Hash256),
		all:    roaring.New(),
	}
	for i := range ix.tables {
		ix.tables[i] = make(map[uint64]*roaring.Bitmap)
	}
	return ix, nil
}

// Insert adds id under every block of hash.
func (ix *Index) Insert(id uint32, hash fingerprint.Hash256) {
	ix.lock.Lock()
	defer ix.lock.Unlock()

	for b := 0; b < ix.blocks; b++ {
		var key = hash.Block(b, ix.width)
		var bucket, ok = ix.tables[b][key]
		if !ok {
			bucket = roaring.New()
			ix.tables[b][key] = bucket
		}
		bucket.Add(id)
	}
	ix.hashes[id] = hash
	ix.all.Add(id)
}

// Len is the number of distinct ids inserted.
func (ix *Index) Len() int {
	ix.lock.RLock()
	defer ix.lock.RUnlock()

	return len(ix.hashes)
}

// Hash returns the fingerprint stored for id.
func (ix *Index) Hash(id uint32) (fingerprint.Hash256, bool) {
	ix.lock.RLock()
	defer ix.lock.RUnlock()

	var h, ok = ix.hashes[id]
	return h, ok
}

// Query returns every inserted id within radius of q, ordered by distance then id.
func (ix *Index) Query(q fingerprint.Hash256, radius int) []Match {
	if radius < 0 {
		return nil
	}

	ix.lock.RLock()
	defer ix.lock.RUnlock()

	var candidates = ix.candidates(q, radius)

	var matches []Match
	var it = candidates.Iterator()
	for it.HasNext() {
		var id = it.Next()
		var d = q.Distance(ix.hashes[id])
		if d <= radius {
			matches = append(matches, Match{ID: id, Distance: d})
		}
	}

	ix.scanned.Add(candidates.GetCardinality())
	ix.matched.Add(uint64(len(matches)))

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})
	return matches
}

// Candidates is the unrefined id set a query for radius would scan.
func (ix *Index) Candidates(q fingerprint.Hash256, radius int) *roaring.Bitmap {
	ix.lock.RLock()
	defer ix.lock.RUnlock()

	return ix.candidates(q, radius).Clone()
}

// Stats returns the bucket probes, candidates scanned and matches returned so far.
func (ix *Index) Stats() (probes, scanned, matched uint64) {
	return ix.probes.Load(), ix.scanned.Load(), ix.matched.Load()
}

// candidates needs at least the read lock.
func (ix *Index) candidates(q fingerprint.Hash256, radius int) *roaring.Bitmap {
	var local = radius / ix.blocks
	if local > maxLocalRadius || local >= ix.width {
		return ix.all
	}

	var found []*roaring.Bitmap
	var probes uint64
	for b := 0; b < ix.blocks; b++ {
		var table = ix.tables[b]
		flips(q.Block(b, ix.width), ix.width, local, 0, func(key uint64) {
			probes++
			if bucket, ok := table[key]; ok {
				found = append(found, bucket)
			}
		})
	}
	ix.probes.Add(probes)

	if len(found) == 0 {
		return roaring.New()
	}
	return roaring.FastOr(found...)
}

// flips calls fn with key and every value reachable by flipping at most radius of
// the bits in [start, width), each exactly once.
func flips(key uint64, width, radius, start int, fn func(uint64)) {
	fn(key)
	if radius == 0 {
		return
	}
	for i := start; i < width; i++ {
		flips(key^(1<<uint(i)), width, radius-1, i+1, fn)
	}
}
