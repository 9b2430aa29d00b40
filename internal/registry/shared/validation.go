package shared

import (
	"fmt"
	"regexp"
)

var (
	regcodePattern = regexp.MustCompile(`^\d{11}$`)
	nacePattern    = regexp.MustCompile(`^\d{2}(\.\d{1,2})?$`)
	personHashRe   = regexp.MustCompile(`^[0-9a-f]{16,64}$`)
)

// ValidateRegcode checks the eleven-digit register code format.
func ValidateRegcode(regcode string) error {
	if !regcodePattern.MatchString(regcode) {
		return fmt.Errorf("%w: %q", ErrInvalidRegcode, regcode)
	}
	return nil
}

// ValidateNACE checks a NACE Rev.2 code (division or class granularity).
func ValidateNACE(code string) error {
	if !nacePattern.MatchString(code) {
		return fmt.Errorf("%w: nace %q", ErrInvalidCode, code)
	}
	return nil
}

// ValidatePersonHash checks the opaque person identifier format.
func ValidatePersonHash(hash string) error {
	if !personHashRe.MatchString(hash) {
		return fmt.Errorf("%w: person hash", ErrInvalidCode)
	}
	return nil
}
