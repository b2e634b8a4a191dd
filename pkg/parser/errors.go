package parser

import "errors"

// Common errors
var (
	ErrNoGrid        = errors.New("header does not describe a grid")
	ErrNoHeader      = errors.New("missing header")
	ErrNoFiles       = errors.New("no input files")
	ErrUnknownFormat = errors.New("unknown file format")
	ErrTimeIndex     = errors.New("time index out of range")
)
