package parsers

import (
	"errors"
	"fmt"
)

// ErrEmptyResult means an input produced no usable trades.
var ErrEmptyResult = errors.New("no valid trades found")

const (
	ReasonEmptyInput    = "empty input"
	ReasonInvalidSyntax = "invalid syntax"
	ReasonNoTradeArray  = "no array of trades"
)

// FormatError reports an input whose overall shape could not be understood.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil && e.Reason == ReasonInvalidSyntax {
		return fmt.Sprintf("format error: %s: %v", e.Reason, e.Err)
	}
	return "format error: " + e.Reason
}

func (e *FormatError) Unwrap() error { return e.Err }

func newFormatError(reason string, err error) error {
	return &FormatError{Reason: reason, Err: err}
}

// IsFormatError reports whether err (or anything it wraps) is a *FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}
