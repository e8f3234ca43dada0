package params

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrOpen      = errors.New("cannot open parameter file")
	ErrMalformed = errors.New("malformed parameter token")
)

// ParseError reports a token that is not a number.
type ParseError struct {
	Index int    // Zero-based position of the token in the file
	Token string // Offending token
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: token %d %q", ErrMalformed, e.Index, e.Token)
}

// Unwrap lets errors.Is match ErrMalformed.
func (e *ParseError) Unwrap() error {
	return ErrMalformed
}
