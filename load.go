package blockdb

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

// load reads the metadata record and replays both index logs to rebuild
// the in-memory maps.  Recovery trusts the logs as written: there is no
// cross-check between the maps, the metadata aggregate, and the data
// log's physical length.
func (d *DB) load() error {
	meta, err := d.loadMetadata()
	if err != nil {
		return err
	}
	d.meta = meta

	if err := d.replayIndexLog(); err != nil {
		return err
	}
	if err := d.replayHeightLog(); err != nil {
		return err
	}

	if Debug {
		debugf("replayed %d hash entries, %d heights",
			len(d.index.byHash), len(d.index.byHeight))
	}
	return nil
}

func (d *DB) loadMetadata() (Metadata, error) {
	buf := make([]byte, MetadataSize)
	if _, err := d.metaFile.ReadAt(buf, 0); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Metadata{}, &CorruptionError{Reason: "metadata file too small"}
		}
		return Metadata{}, errors.Wrap(err, "blockdb: read metadata")
	}
	return decodeMetadata(buf)
}

// replayIndexLog walks the hash-index log in fixed 56-byte chunks.  A
// short trailing chunk is a clean stop, not corruption; partial writes
// from an interrupted append are silently dropped.  Records keyed by
// the zero hash are padding and never enter the map.
func (d *DB) replayIndexLog() error {
	if _, err := d.indexFile.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "blockdb: seek index log")
	}
	r := bufio.NewReader(d.indexFile)
	buf := make([]byte, IndexEntrySize)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			return errors.Wrap(err, "blockdb: replay index log")
		}
		entry := decodeIndexEntry(buf)
		if entry.Key == ZeroHash {
			continue
		}
		d.index.insert(entry)
	}
}

// replayHeightLog is the identical procedure over 40-byte chunks, with
// last-record-wins resolution for repeated heights.
func (d *DB) replayHeightLog() error {
	if _, err := d.heightFile.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "blockdb: seek height log")
	}
	r := bufio.NewReader(d.heightFile)
	buf := make([]byte, HeightEntrySize)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			return errors.Wrap(err, "blockdb: replay height log")
		}
		entry := decodeHeightEntry(buf)
		if entry.Hash == ZeroHash {
			continue
		}
		d.index.setHeight(entry.Height, entry.Hash)
	}
}
