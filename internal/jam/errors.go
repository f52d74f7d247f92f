package jam

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrInvalidSignature = errors.New("jam: invalid header signature (needs to start with 'JAM\\0')")
	ErrIndexCorrupted   = errors.New("jam: index file corrupted")
	ErrNotFound         = errors.New("jam: not found")
	ErrLockTimeout      = errors.New("jam: timeout waiting for lock")
)

// RevisionError reports a message header revision other than 1.
type RevisionError struct {
	Revision uint16
}

func (e *RevisionError) Error() string {
	return fmt.Sprintf("jam: unsupported message header revision: %d", e.Revision)
}

// SubfieldLengthError reports a subfield whose declared length overruns the
// header's subfield budget. Index is the 0-based subfield position.
type SubfieldLengthError struct {
	Length uint32
	Index  int
}

func (e *SubfieldLengthError) Error() string {
	return fmt.Sprintf("jam: invalid subfield length %d for sub field %d", e.Length, e.Index)
}

// RangeError reports a message number outside [Low, High].
type RangeError struct {
	Number uint32
	Low    uint32
	High   uint32
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("jam: message number %d out of range, valid range is %d..=%d", e.Number, e.Low, e.High)
}

// IsFormatError reports whether err is a record format failure: bad
// signature, unsupported revision or malformed subfield length.
func IsFormatError(err error) bool {
	if errors.Is(err, ErrInvalidSignature) {
		return true
	}
	var rev *RevisionError
	if errors.As(err, &rev) {
		return true
	}
	var sfl *SubfieldLengthError
	return errors.As(err, &sfl)
}
