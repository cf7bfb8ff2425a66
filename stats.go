package blockdb

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Stats is a point-in-time copy of the metadata aggregate.
type Stats struct {
	EntryCount   uint64
	DataSize     uint64
	LatestHeight uint64
	LatestHash   Hash
	GenesisHash  Hash
}

// Stats snapshots the in-memory aggregate.  The values reflect every
// successful Put, synced or not.
func (d *DB) Stats() Stats {
	return Stats{
		EntryCount:   d.meta.EntryCount,
		DataSize:     d.meta.DataSize,
		LatestHeight: d.meta.LatestHeight,
		LatestHash:   d.meta.LatestHash,
		GenesisHash:  d.meta.GenesisHash,
	}
}

// EntryCount returns the number of stored records.
func (d *DB) EntryCount() uint64 { return d.meta.EntryCount }

// DataSize returns the cumulative payload bytes in the data log.
func (d *DB) DataSize() uint64 { return d.meta.DataSize }

// LatestHeight returns the highest height ever written.
func (d *DB) LatestHeight() uint64 { return d.meta.LatestHeight }

// LatestHash returns the hash written at the latest height.  Until a
// height above 0 is written this is the zero sentinel, even after a
// genesis write; see Put.
func (d *DB) LatestHash() Hash { return d.meta.LatestHash }

// GenesisHash returns the hash stored at height 0, or the zero sentinel
// if no genesis record exists.
func (d *DB) GenesisHash() Hash { return d.meta.GenesisHash }

// Heights returns every known height in ascending order.  The set is
// materialized and sorted on each call, which is fine at the scale this
// engine targets.
func (d *DB) Heights() []uint64 {
	return d.index.heights()
}

func (s Stats) String() string {
	return fmt.Sprintf("%s entries, %s, height %d, latest %x, genesis %x",
		humanize.Comma(int64(s.EntryCount)), humanize.Bytes(s.DataSize),
		s.LatestHeight, s.LatestHash, s.GenesisHash)
}
