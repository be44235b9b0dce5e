package fortran

import "errors"

var (
	// ErrSourceNotFound is returned by Open when the source cannot be opened.
	ErrSourceNotFound = errors.New("fortran source not found")

	// ErrUnexpectedEOF is returned when input ends inside a statement.
	ErrUnexpectedEOF = errors.New("unexpected end of input")

	// ErrInvalidUnget is returned when a byte is pushed back that was not the
	// last one read. It indicates a reader bug, not bad input.
	ErrInvalidUnget = errors.New("invalid unget")
)
