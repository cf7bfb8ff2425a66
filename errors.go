package blockdb

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors, branchable with errors.Is.
var (
	// ErrNotFound is returned when the requested hash or height is not
	// in the database.
	ErrNotFound = errors.New("blockdb: not found")

	// ErrAlreadyExists is returned by Create when database files are
	// already present at the target path.
	ErrAlreadyExists = errors.New("blockdb: database already exists")

	// ErrInvalidConfig is reserved for configuration validation.  No
	// current code path raises it; the only required setting is a path.
	ErrInvalidConfig = errors.New("blockdb: invalid configuration")
)

// CorruptionError reports structurally bad on-disk state, such as a
// metadata record with the wrong magic or an undersized metadata file.
type CorruptionError struct {
	Reason string
}

func (e *CorruptionError) Error() string {
	return "blockdb: corruption: " + e.Reason
}

// HeightTooLargeError reports a height beyond MaxReasonableHeight,
// either passed to Put or decoded from a persisted metadata record.
type HeightTooLargeError struct {
	Height uint64
}

func (e *HeightTooLargeError) Error() string {
	return fmt.Sprintf("blockdb: height %d exceeds maximum %d", e.Height, MaxReasonableHeight)
}

// ValueTooLargeError is the contract slot for payloads beyond
// MaxValueSize.  No write path currently raises it.
type ValueTooLargeError struct {
	Size uint64
}

func (e *ValueTooLargeError) Error() string {
	return fmt.Sprintf("blockdb: value of %d bytes exceeds maximum %d", e.Size, MaxValueSize)
}

// HashMismatchError is the contract slot for content verification.
// This engine does not hash payloads, so nothing raises it.
type HashMismatchError struct {
	Expected Hash
	Actual   Hash
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("blockdb: hash mismatch: expected %x, got %x", e.Expected, e.Actual)
}
