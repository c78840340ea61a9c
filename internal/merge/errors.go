package merge

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

var (
	// ErrInputRejected is returned when a batch would push the session over
	// its size ceiling. The session is left unchanged.
	ErrInputRejected = errors.New("input rejected")

	// ErrSessionClosed is returned by Add after Close.
	ErrSessionClosed = errors.New("session closed")
)

// SizeLimitError details an InputRejected outcome
type SizeLimitError struct {
	Existing int64
	Incoming int64
	Ceiling  int64
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("total size would exceed %s (%s already added, %s incoming); add smaller files or use fewer files",
		humanize.IBytes(uint64(e.Ceiling)), humanize.IBytes(uint64(e.Existing)), humanize.IBytes(uint64(e.Incoming)))
}

func (e *SizeLimitError) Unwrap() error {
	return ErrInputRejected
}
