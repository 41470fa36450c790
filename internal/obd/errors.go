package obd

import (
	"errors"
	"fmt"
)

// Sentinel errors for log parsing and storage.
//
// Parse failures are wrapped in *ParseError, so both forms work:
//
//	if errors.Is(err, obd.ErrInvalidValue) { ... }
//
//	var perr *obd.ParseError
//	if errors.As(err, &perr) { log.Println(perr.Line) }
var (
	// ErrMissingBanner indicates the file has no first (banner) line.
	ErrMissingBanner = errors.New("obd: missing banner line")

	// ErrMissingHeader indicates the file has no column header line.
	ErrMissingHeader = errors.New("obd: missing header line")

	// ErrInvalidTimestamp indicates a row's first field is not a date-time.
	ErrInvalidTimestamp = errors.New("obd: invalid timestamp")

	// ErrInvalidValue indicates a non-NODATA cell is not a floating-point number.
	ErrInvalidValue = errors.New("obd: invalid value")

	// ErrColumnMismatch indicates a row's field count differs from the header's.
	ErrColumnMismatch = errors.New("obd: column count mismatch")

	// ErrInvalidRecord indicates a record failed validation before storage.
	ErrInvalidRecord = errors.New("obd: invalid record")
)

// ParseError locates a parse failure in the input.
type ParseError struct {
	// Line is the 1-based line number in the file.
	Line int

	// Column is the 0-based field index, or -1 when the whole line is at fault.
	Column int

	// Field is the offending text, if any.
	Field string

	// Err is one of the sentinel errors above, possibly wrapping a cause.
	Err error
}

func (e *ParseError) Error() string {
	if e.Column < 0 {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d, column %d (%q): %v", e.Line, e.Column, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
