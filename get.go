package blockdb

import "github.com/pkg/errors"

// Get returns the payload stored under hash, or ErrNotFound.  The read
// is one map lookup plus one positioned read of exactly the recorded
// size; a truncated data log surfaces as the underlying I/O error.
func (d *DB) Get(hash Hash) ([]byte, error) {
	entry, ok := d.index.byHash[hash]
	if !ok {
		return nil, ErrNotFound
	}

	if d.cache != nil {
		if data, ok := d.cache.Get(string(hash[:])); ok {
			d.cacheHits.Add(1)
			return data, nil
		}
		d.cacheMisses.Add(1)
	}

	data := make([]byte, entry.Size)
	if _, err := d.dataFile.ReadAt(data, int64(entry.Offset)); err != nil {
		return nil, errors.Wrapf(err, "blockdb: read %d bytes at offset %d", entry.Size, entry.Offset)
	}

	if d.cache != nil {
		d.cache.Add(string(hash[:]), data)
	}
	return data, nil
}

// GetByHeight resolves height to a hash and returns that payload.  When
// several hashes were stored at one height the most recently written
// one wins.
func (d *DB) GetByHeight(height uint64) ([]byte, error) {
	hash, ok := d.index.byHeight[height]
	if !ok {
		return nil, ErrNotFound
	}
	return d.Get(hash)
}

// GetHashByHeight returns the hash recorded at height, or ErrNotFound.
func (d *DB) GetHashByHeight(height uint64) (Hash, error) {
	hash, ok := d.index.byHeight[height]
	if !ok {
		return ZeroHash, ErrNotFound
	}
	return hash, nil
}

// Contains reports whether hash is stored.  It never touches the data
// log.
func (d *DB) Contains(hash Hash) bool {
	_, ok := d.index.byHash[hash]
	return ok
}

// ContainsHeight reports whether any record is indexed at height.
func (d *DB) ContainsHeight(height uint64) bool {
	_, ok := d.index.byHeight[height]
	return ok
}
