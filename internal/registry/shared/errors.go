package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("resource not found")
	ErrValidation     = errors.New("validation failed")
	ErrInvalidRegcode = errors.New("invalid registration code")
	ErrInvalidCode    = errors.New("invalid classifier code")
	ErrCompareRange   = errors.New("compare accepts between 2 and 5 companies")
)

// InvalidParam reports a malformed query parameter as a validation error.
func InvalidParam(name string) error {
	return fmt.Errorf("%w: invalid parameter %q", ErrValidation, name)
}
