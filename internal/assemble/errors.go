package assemble

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAssemblyEmpty is returned when there is nothing to assemble.
	ErrAssemblyEmpty = errors.New("nothing to assemble")

	// ErrSourceUnreadable marks a source that could not be parsed or decoded.
	ErrSourceUnreadable = errors.New("source unreadable")
)

// ItemFailure records why one item could not be read.
type ItemFailure struct {
	ItemID string
	Name   string
	Err    error
}

func (f ItemFailure) Error() string {
	return fmt.Sprintf("%s (%s): %v", f.Name, f.ItemID, f.Err)
}

func (f ItemFailure) Unwrap() error { return f.Err }

// SourceError lists every item that failed during one assembly run.
type SourceError struct {
	Failures []ItemFailure
}

func (e *SourceError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("%d unreadable source(s): %s", len(e.Failures), strings.Join(parts, "; "))
}

func (e *SourceError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures)+1)
	errs = append(errs, ErrSourceUnreadable)
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}

// ItemIDs returns the ids of the failed items in input order.
func (e *SourceError) ItemIDs() []string {
	ids := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		ids = append(ids, f.ItemID)
	}
	return ids
}
