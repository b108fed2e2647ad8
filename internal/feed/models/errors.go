package models

import (
	"errors"
	"fmt"
)

// ErrDuplicateObject means the state tracker already saw this object. It is a
// normal skip outcome, not a failure.
var ErrDuplicateObject = errors.New("feed object already processed")

// FormatError marks a payload that is not recognizably XML, JSON or CSV.
// The object is skipped without advancing processing state.
type FormatError struct {
	ObjectKey string
	Reason    string
	SoftSkip  bool
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unparseable feed payload %q: %s", e.ObjectKey, e.Reason)
}

// ValidationError marks a single item that failed canonicalization. The item
// is skipped, the document continues.
type ValidationError struct {
	ItemKey string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid item %q: %s", e.ItemKey, e.Reason)
}

// TransientIOError wraps storage/queue/db unavailability so callers can route
// it into the retry policy instead of dropping it.
type TransientIOError struct {
	Op  string
	Err error
}

func (e *TransientIOError) Error() string {
	return fmt.Sprintf("transient %s failure: %v", e.Op, e.Err)
}

func (e *TransientIOError) Unwrap() error { return e.Err }
