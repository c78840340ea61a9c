// Package preview holds the preview handles produced for merge items and
// the result type the thumbnail generator hands back.
package preview

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrAlreadyReleased is returned by a second Release on the same handle.
	ErrAlreadyReleased = errors.New("preview handle already released")

	// ErrUnavailable marks a preview that could not be produced. It is never
	// surfaced to users; the item simply has no preview.
	ErrUnavailable = errors.New("preview unavailable")
)

// Origin tells whether the preview bytes are the item's own source or a
// rendering of it.
type Origin int

const (
	OriginSource Origin = iota
	OriginRendered
)

// Handle owns the bytes of one preview
type Handle struct {
	itemID   string
	mimeType string
	origin   Origin

	mu       sync.Mutex
	data     []byte
	released bool
}

func NewHandle(itemID, mimeType string, data []byte, origin Origin) *Handle {
	return &Handle{
		itemID:   itemID,
		mimeType: mimeType,
		origin:   origin,
		data:     data,
	}
}

func (h *Handle) ItemID() string   { return h.itemID }
func (h *Handle) MIMEType() string { return h.mimeType }
func (h *Handle) Origin() Origin   { return h.origin }

// Bytes returns the preview content, or false once the handle is released.
func (h *Handle) Bytes() ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil, false
	}
	return h.data, true
}

// Release drops the handle's reference to its bytes. Only the first call has
// any effect.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return fmt.Errorf("%w: item %s", ErrAlreadyReleased, h.itemID)
	}
	h.released = true
	h.data = nil
	return nil
}

func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

// Result is the outcome of generating a preview for one item: either a
// handle (Preview) or a reason why there is none (NoPreview).
type Result struct {
	ItemID    string
	Handle    *Handle
	PageCount *int
	Reason    error
}

// Preview builds a successful result
func Preview(itemID string, h *Handle, pageCount *int) Result {
	return Result{ItemID: itemID, Handle: h, PageCount: pageCount}
}

// NoPreview builds a result without a handle. The reason is wrapped so that
// errors.Is(reason, ErrUnavailable) holds.
func NoPreview(itemID string, pageCount *int, reason error) Result {
	if reason == nil {
		reason = ErrUnavailable
	} else if !errors.Is(reason, ErrUnavailable) {
		reason = fmt.Errorf("%w: %w", ErrUnavailable, reason)
	}
	return Result{ItemID: itemID, PageCount: pageCount, Reason: reason}
}

// OK reports whether the result carries a handle
func (r Result) OK() bool {
	return r.Handle != nil
}
