package blockdb

import "github.com/pkg/errors"

// Sync rewrites the metadata record in place and flushes all four files
// in a fixed order: data log, hash-index log, height-index log,
// metadata.  The ordering is a convention, not a transaction; a crash
// between flushes can leave the files mutually inconsistent and reopen
// performs no repair beyond the normal log replay.
func (d *DB) Sync() error {
	buf := d.meta.encode()
	if _, err := d.metaFile.WriteAt(buf[:], 0); err != nil {
		return errors.Wrap(err, "blockdb: write metadata")
	}

	if err := d.dataFile.Sync(); err != nil {
		return errors.Wrap(err, "blockdb: sync data log")
	}
	if err := d.indexFile.Sync(); err != nil {
		return errors.Wrap(err, "blockdb: sync index log")
	}
	if err := d.heightFile.Sync(); err != nil {
		return errors.Wrap(err, "blockdb: sync height log")
	}
	if err := d.metaFile.Sync(); err != nil {
		return errors.Wrap(err, "blockdb: sync metadata")
	}
	return nil
}
