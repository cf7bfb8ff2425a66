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

package blockdb

import "encoding/binary"

// On-disk record sizes.  These are frozen format constants; all
// multi-byte integers are little-endian at the byte offsets below.
const (
	IndexEntrySize  = 56
	HeightEntrySize = 40
	MetadataSize    = 96
)

// Magic identifies a blockdb metadata record.
var Magic = [4]byte{'B', 'D', 'B', '1'}

// Version is the current on-disk format version.
const Version uint32 = 1

// IndexEntry maps a hash to its payload in the data log.  One entry is
// appended to the hash-index log per successful Put.
//
// Layout: key 0:32, offset 32:8, size 40:4, height 44:8, flags 52:4.
type IndexEntry struct {
	Key    Hash
	Offset uint64
	Size   uint32
	Height uint64
	Flags  uint32
}

func (e IndexEntry) encode() [IndexEntrySize]byte {
	var buf [IndexEntrySize]byte
	copy(buf[0:32], e.Key[:])
	binary.LittleEndian.PutUint64(buf[32:40], e.Offset)
	binary.LittleEndian.PutUint32(buf[40:44], e.Size)
	binary.LittleEndian.PutUint64(buf[44:52], e.Height)
	binary.LittleEndian.PutUint32(buf[52:56], e.Flags)
	return buf
}

// decodeIndexEntry assumes buf holds a full 56-byte record; it performs
// no validation.  The zero-hash padding check belongs to the replay
// loop, not the codec.
func decodeIndexEntry(buf []byte) (e IndexEntry) {
	copy(e.Key[:], buf[0:32])
	e.Offset = binary.LittleEndian.Uint64(buf[32:40])
	e.Size = binary.LittleEndian.Uint32(buf[40:44])
	e.Height = binary.LittleEndian.Uint64(buf[44:52])
	e.Flags = binary.LittleEndian.Uint32(buf[52:56])
	return
}

// HeightEntry maps a height to a hash.  Unlike the hash-index log, the
// height-index log may legitimately hold several records for one
// height; replay resolves them last-record-wins.
//
// Layout: height 0:8, hash 8:32.
type HeightEntry struct {
	Height uint64
	Hash   Hash
}

func (e HeightEntry) encode() [HeightEntrySize]byte {
	var buf [HeightEntrySize]byte
	binary.LittleEndian.PutUint64(buf[0:8], e.Height)
	copy(buf[8:40], e.Hash[:])
	return buf
}

func decodeHeightEntry(buf []byte) (e HeightEntry) {
	e.Height = binary.LittleEndian.Uint64(buf[0:8])
	copy(e.Hash[:], buf[8:40])
	return
}

// Metadata is the aggregate summary of the database, the single record
// that is rewritten in place rather than appended.
//
// Layout: magic 0:4, version 4:4, entry_count 8:8, data_size 16:8,
// latest_height 24:8, latest_hash 32:32, genesis_hash 64:32.
type Metadata struct {
	Magic        [4]byte
	Version      uint32
	EntryCount   uint64
	DataSize     uint64
	LatestHeight uint64
	LatestHash   Hash
	GenesisHash  Hash
}

func newMetadata() Metadata {
	return Metadata{Magic: Magic, Version: Version}
}

func (m Metadata) encode() [MetadataSize]byte {
	var buf [MetadataSize]byte
	copy(buf[0:4], m.Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], m.Version)
	binary.LittleEndian.PutUint64(buf[8:16], m.EntryCount)
	binary.LittleEndian.PutUint64(buf[16:24], m.DataSize)
	binary.LittleEndian.PutUint64(buf[24:32], m.LatestHeight)
	copy(buf[32:64], m.LatestHash[:])
	copy(buf[64:96], m.GenesisHash[:])
	return buf
}

// decodeMetadata validates the magic constant and the persisted latest
// height.  Both checks are cheap corruption heuristics, not integrity
// proofs.
func decodeMetadata(buf []byte) (m Metadata, err error) {
	copy(m.Magic[:], buf[0:4])
	if m.Magic != Magic {
		return Metadata{}, &CorruptionError{Reason: "invalid magic"}
	}
	m.Version = binary.LittleEndian.Uint32(buf[4:8])
	m.EntryCount = binary.LittleEndian.Uint64(buf[8:16])
	m.DataSize = binary.LittleEndian.Uint64(buf[16:24])
	m.LatestHeight = binary.LittleEndian.Uint64(buf[24:32])
	copy(m.LatestHash[:], buf[32:64])
	copy(m.GenesisHash[:], buf[64:96])
	if m.LatestHeight > MaxReasonableHeight {
		return Metadata{}, &HeightTooLargeError{Height: m.LatestHeight}
	}
	return m, nil
}
