package checkpoint

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrPayloadTooLarge    = errors.New("payload exceeds maximum size")
	ErrMalformedPayload   = errors.New("malformed payload")
	ErrSignatureMismatch  = errors.New("network signature mismatch")
	ErrParameterMismatch  = errors.New("parameter mismatch")
)

// MismatchError reports a stored parameter that does not fit the
// parameter it would be loaded into.
type MismatchError struct {
	Param   string // Parameter name, or index when names differ
	Details string
}

// Error implements the error interface.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("parameter %s: %s", e.Param, e.Details)
}

// Unwrap returns ErrParameterMismatch.
func (e *MismatchError) Unwrap() error {
	return ErrParameterMismatch
}
