package ingest

import (
	"fmt"

	"github.com/tabq/tabq/internal/format"
)

// Reason distinguishes an unreadable file from malformed content from a
// rejected staged statement.
type Reason int

const (
	ReasonUnreadable Reason = iota
	ReasonMalformed
	ReasonRejected
)

func (r Reason) String() string {
	switch r {
	case ReasonUnreadable:
		return "unreadable"
	case ReasonMalformed:
		return "malformed"
	case ReasonRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

type Error struct {
	Path   string
	Kind   format.Kind
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ingest %s file %q (%s): %v", e.Kind, e.Path, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
