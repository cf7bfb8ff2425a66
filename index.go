package blockdb

import "sort"

// memIndex holds the two lookup maps rebuilt from the index logs at
// open time.  The logs are the source of truth; these maps are never
// persisted directly.
type memIndex struct {
	byHash   map[Hash]IndexEntry
	byHeight map[uint64]Hash
}

func newMemIndex() *memIndex {
	return &memIndex{
		byHash:   make(map[Hash]IndexEntry),
		byHeight: make(map[uint64]Hash),
	}
}

// insert records a hash entry.  During replay a repeated key overwrites
// the earlier one, though the write path never appends a duplicate.
func (ix *memIndex) insert(e IndexEntry) {
	ix.byHash[e.Key] = e
}

// setHeight records a height entry with last-write-wins semantics; the
// height-index log may carry several hashes for one height and the most
// recent record is authoritative.
func (ix *memIndex) setHeight(height uint64, hash Hash) {
	ix.byHeight[height] = hash
}

// heights materializes the known height set in ascending order.
func (ix *memIndex) heights() []uint64 {
	out := make([]uint64, 0, len(ix.byHeight))
	for h := range ix.byHeight {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
