// Copyright 2025 github.com/pschou
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package blockdb is an append-only, content-addressable store for
// sequential immutable records such as blockchain blocks.  Records are
// retrievable in O(1) either by their 32-byte hash or by a caller
// assigned height.  Data is never overwritten or deleted; the only
// in-place mutation on disk is the fixed-size metadata record.
//
// A database is a directory holding four files: an append-only data
// log, an append-only hash-index log, an append-only height-index log,
// and a 96-byte metadata file.  Opening a database replays the two
// index logs to rebuild the in-memory lookup maps; the data log itself
// is never scanned.
//
// Note: a DB is single-writer by design and does no internal locking.
// If an instance is shared between goroutines the caller must serialize
// Put and Sync externally.
package blockdb

import (
	"log"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Debug enables creation and recovery logging to the standard logger.
var Debug bool

// Hash is a 256-bit content identifier and the primary key of a stored
// record.
type Hash [HashSize]byte

const HashSize = 32

// ZeroHash is reserved to mean "no value".  Index records carrying it
// are treated as padding on replay and never enter the lookup maps.
var ZeroHash = Hash{}

// File names within the database directory.
const (
	DataFileName   = "blockdb.dat"
	IndexFileName  = "blockdb.idx"
	HeightFileName = "blockdb.hgt"
	MetaFileName   = "blockdb.meta"
)

const (
	// MaxValueSize is the declared upper bound on a stored payload
	// (1 GB).  It is part of the format contract but is not checked by
	// any write path in this version.
	MaxValueSize = 1 << 30

	// MaxReasonableHeight is a sanity bound used for corruption
	// detection, both on Put and when decoding a persisted metadata
	// record.  It is not a capacity limit.
	MaxReasonableHeight = 10_000_000
)

// DB is a handle on one database directory.  All four file handles are
// held for the life of the handle and released by Close.
type DB struct {
	fs   afero.Fs
	path string

	dataFile   afero.File
	indexFile  afero.File
	heightFile afero.File
	metaFile   afero.File

	index *memIndex
	meta  Metadata

	syncWrites bool

	cache       Cache
	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64
}

// Option adjusts a DB before its files are opened.
type Option func(*DB)

// WithFS runs the database on an alternate filesystem, such as
// afero.NewMemMapFs for testing.  The default is the OS filesystem.
func WithFS(fs afero.Fs) Option {
	return func(d *DB) { d.fs = fs }
}

// WithSyncWrites controls whether every Put ends with a full Sync.
// The default is true; when disabled writes are buffered by the OS
// until an explicit Sync call.
func WithSyncWrites(sync bool) Option {
	return func(d *DB) { d.syncWrites = sync }
}

// WithCache installs a read cache in front of the data log.
func WithCache(c Cache) Option {
	return func(d *DB) { d.cache = c }
}

// WithCacheSize enables an LRU read cache holding up to size payloads.
// A size of zero or less leaves caching disabled.
func WithCacheSize(size int) Option {
	return func(d *DB) {
		if size > 0 {
			d.cache = NewLRUCache(size)
		}
	}
}

func newDB(path string, opts []Option) *DB {
	d := &DB{
		fs:         afero.NewOsFs(),
		path:       path,
		index:      newMemIndex(),
		meta:       newMetadata(),
		syncWrites: true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *DB) filename(name string) string {
	return filepath.Join(d.path, name)
}

// Create makes a new database directory at path.  It fails with
// ErrAlreadyExists if a data log or hash-index log is already present.
// The four files are created empty and a default metadata record is
// written and made durable before Create returns.
func Create(path string, opts ...Option) (*DB, error) {
	d := newDB(path, opts)
	if err := d.fs.MkdirAll(path, 0755); err != nil {
		return nil, errors.Wrapf(err, "blockdb: create %q", path)
	}

	for _, name := range []string{DataFileName, IndexFileName} {
		if ok, err := afero.Exists(d.fs, d.filename(name)); err != nil {
			return nil, errors.Wrapf(err, "blockdb: create %q", path)
		} else if ok {
			return nil, ErrAlreadyExists
		}
	}

	if err := d.openFiles(true); err != nil {
		return nil, err
	}

	// Seed the metadata file so a later Open always finds a record.
	buf := d.meta.encode()
	if _, err := d.metaFile.WriteAt(buf[:], 0); err != nil {
		d.Close()
		return nil, errors.Wrap(err, "blockdb: write initial metadata")
	}
	if err := d.metaFile.Sync(); err != nil {
		d.Close()
		return nil, errors.Wrap(err, "blockdb: sync initial metadata")
	}

	if Debug {
		debugf("created database at %q", path)
	}
	return d, nil
}

// Open opens an existing database directory at path and rebuilds the
// in-memory indexes by replaying the two index logs.  Missing files
// surface as I/O errors; a bad metadata record surfaces as a
// CorruptionError or HeightTooLargeError and the open fails.
func Open(path string, opts ...Option) (*DB, error) {
	d := newDB(path, opts)
	if err := d.openFiles(false); err != nil {
		return nil, err
	}
	if err := d.load(); err != nil {
		d.Close()
		return nil, err
	}
	if Debug {
		debugf("opened database at %q: %d entries, height %d",
			path, d.meta.EntryCount, d.meta.LatestHeight)
	}
	return d, nil
}

// OpenOrCreate opens the database at path if its metadata file exists,
// otherwise it creates a fresh one.
func OpenOrCreate(path string, opts ...Option) (*DB, error) {
	probe := newDB(path, opts)
	ok, err := afero.Exists(probe.fs, probe.filename(MetaFileName))
	if err != nil {
		return nil, errors.Wrapf(err, "blockdb: stat %q", path)
	}
	if ok {
		return Open(path, opts...)
	}
	return Create(path, opts...)
}

// openFiles acquires all four handles, releasing any already-opened
// handle if a later one fails.
func (d *DB) openFiles(create bool) error {
	flag := readWriteFlag(create)
	open := func(name string) (afero.File, error) {
		fh, err := d.fs.OpenFile(d.filename(name), flag, 0644)
		if err != nil {
			return nil, errors.Wrapf(err, "blockdb: open %q", name)
		}
		return fh, nil
	}

	var err error
	if d.dataFile, err = open(DataFileName); err == nil {
		if d.indexFile, err = open(IndexFileName); err == nil {
			if d.heightFile, err = open(HeightFileName); err == nil {
				d.metaFile, err = open(MetaFileName)
			}
		}
	}
	if err != nil {
		d.Close()
		return err
	}
	return nil
}

// Close releases the four file handles.  It does not sync; call Sync
// first if buffered writes must survive.
func (d *DB) Close() error {
	var firstErr error
	for _, fh := range []afero.File{d.dataFile, d.indexFile, d.heightFile, d.metaFile} {
		if fh == nil {
			continue
		}
		if err := fh.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.dataFile, d.indexFile, d.heightFile, d.metaFile = nil, nil, nil, nil
	return firstErr
}

// Path returns the database directory.
func (d *DB) Path() string { return d.path }

func readWriteFlag(create bool) int {
	if create {
		return os.O_RDWR | os.O_CREATE
	}
	return os.O_RDWR
}

func debugf(format string, args ...interface{}) {
	log.Printf("blockdb: "+format, args...)
}
