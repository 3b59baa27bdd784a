package ingest

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingColumn     = errors.New("missing required column")
	ErrInvalidValue      = errors.New("invalid value")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyFile         = errors.New("empty file")
)

type MissingColumnError struct {
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required column(s): %s", strings.Join(e.Columns, ", "))
}

func (e *MissingColumnError) Unwrap() error {
	return ErrMissingColumn
}

// InvalidValueError points at the offending cell. Row is 1-based and counts
// the header line.
type InvalidValueError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("row %d, column %s: invalid value %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *InvalidValueError) Unwrap() error {
	return e.Err
}

func (e *InvalidValueError) Is(target error) bool {
	return target == ErrInvalidValue
}
