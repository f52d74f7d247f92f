package pcboard

import (
	"errors"
	"fmt"
)

// ErrUnknownExtendedHeader is returned for an extended header whose
// function name is not one PCBoard defines.
var ErrUnknownExtendedHeader = errors.New("pcboard: unknown extended header function")

// RangeError reports a message number outside [Low, High].
type RangeError struct {
	Number uint32
	Low    uint32
	High   uint32
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("pcboard: message number %d out of range, valid range is %d..=%d", e.Number, e.Low, e.High)
}
