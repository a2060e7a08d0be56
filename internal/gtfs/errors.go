package gtfs

import (
	"errors"
	"fmt"
)

// ErrMissingColumn is returned when a feed file's header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// RecordError reports a record that could not be ingested.
type RecordError struct {
	File string
	Line int
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s line %d: %v", e.File, e.Line, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// UnresolvedError reports a reference to an external id not yet ingested.
type UnresolvedError struct {
	Entity     string
	ExternalID string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved %s reference %q", e.Entity, e.ExternalID)
}
