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

// Scanner walks the stored records in ascending height order.  The
// height set is captured when the Scanner is made; records written
// afterwards are not visited.
type Scanner struct {
	db      *DB
	heights []uint64
	pos     int
	hash    Hash
	data    []byte
	err     error
}

// NewScanner positions a Scanner before the lowest known height.  One
// must call Scan to reach the first record.
func (d *DB) NewScanner() *Scanner {
	return &Scanner{db: d, heights: d.Heights(), pos: -1}
}

// Scan advances to the next record, returning false at the end of the
// height set or on a read error (see Err).
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}
	s.pos++
	if s.pos >= len(s.heights) {
		return false
	}
	height := s.heights[s.pos]
	hash, ok := s.db.index.byHeight[height]
	if !ok {
		// Height vanished from the map; nothing can remove entries, so
		// treat it as the end.
		return false
	}
	data, err := s.db.Get(hash)
	if err != nil {
		s.err = err
		return false
	}
	s.hash, s.data = hash, data
	return true
}

// Height returns the height of the current record.
func (s *Scanner) Height() uint64 {
	if s.pos < 0 || s.pos >= len(s.heights) {
		return 0
	}
	return s.heights[s.pos]
}

// Hash returns the hash of the current record.
func (s *Scanner) Hash() Hash { return s.hash }

// Bytes returns the payload of the current record.
func (s *Scanner) Bytes() []byte { return s.data }

// Err returns the first read error hit during scanning, if any.
func (s *Scanner) Err() error { return s.err }

// Walk visits every stored record in ascending height order.  The walk
// stops at the first error from fn or from the data log.
func (d *DB) Walk(fn func(height uint64, hash Hash, data []byte) error) error {
	s := d.NewScanner()
	for s.Scan() {
		if err := fn(s.Height(), s.Hash(), s.Bytes()); err != nil {
			return err
		}
	}
	return s.Err()
}
