package blockdb

import (
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Put stores data under hash at the given height.  The store is
// content-addressable: the first write for a hash is permanent, and any
// later Put with the same hash returns nil without touching disk, even
// if the payload or height differ.
//
// A successful Put appends the payload to the data log, one record to
// each index log, and updates the in-memory maps and the metadata
// aggregate.  There is no rollback between those steps; a crash
// mid-sequence can leave an orphaned payload in the data log, which is
// an accepted cost of the append-only design.
//
// Put is not safe for concurrent use.
func (d *DB) Put(hash Hash, height uint64, data []byte) error {
	if height > MaxReasonableHeight {
		return &HeightTooLargeError{Height: height}
	}

	// Deduplicate before any I/O.
	if _, ok := d.index.byHash[hash]; ok {
		return nil
	}

	offset, err := d.dataFile.Seek(0, io.SeekEnd)
	if err != nil {
		return errors.Wrap(err, "blockdb: seek data log")
	}
	if _, err := d.dataFile.Write(data); err != nil {
		return errors.Wrap(err, "blockdb: append data")
	}

	entry := IndexEntry{
		Key:    hash,
		Offset: uint64(offset),
		Size:   uint32(len(data)),
		Height: height,
	}
	ibuf := entry.encode()
	if err := appendRecord(d.indexFile, ibuf[:]); err != nil {
		return errors.Wrap(err, "blockdb: append index entry")
	}
	hbuf := HeightEntry{Height: height, Hash: hash}.encode()
	if err := appendRecord(d.heightFile, hbuf[:]); err != nil {
		return errors.Wrap(err, "blockdb: append height entry")
	}

	d.index.insert(entry)
	d.index.setHeight(height, hash)

	d.meta.EntryCount++
	d.meta.DataSize += uint64(len(data))
	if height > d.meta.LatestHeight {
		// Strictly greater: a lone genesis write at height 0 leaves
		// LatestHash at the zero sentinel until a higher block lands.
		d.meta.LatestHeight = height
		d.meta.LatestHash = hash
	}
	if height == 0 {
		d.meta.GenesisHash = hash
	}

	if d.syncWrites {
		return d.Sync()
	}
	return nil
}

func appendRecord(fh afero.File, rec []byte) error {
	if _, err := fh.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	_, err := fh.Write(rec)
	return err
}
