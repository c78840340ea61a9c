package reclaim

import (
	"log/slog"
	"sync"

	"github.com/rarepdftool/pdftools/internal/preview"
)

// Stats counts handles seen by a Reclaimer
type Stats struct {
	Allocated int `json:"allocated"`
	Released  int `json:"released"`
	Live      int `json:"live"`
}

// Reclaimer tracks the live preview handles of one session and releases each
// of them exactly once.
type Reclaimer struct {
	mu        sync.Mutex
	live      map[string]*preview.Handle
	allocated int
	released  int
	logger    *slog.Logger
}

func New(logger *slog.Logger) *Reclaimer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reclaimer{
		live:   make(map[string]*preview.Handle),
		logger: logger,
	}
}

// Track registers a handle. A handle already tracked for the same item is
// released first.
func (r *Reclaimer) Track(h *preview.Handle) {
	if h == nil {
		return
	}
	r.mu.Lock()
	prev, exists := r.live[h.ItemID()]
	if exists && prev == h {
		r.mu.Unlock()
		return
	}
	r.live[h.ItemID()] = h
	r.allocated++
	if exists {
		r.released++
	}
	r.mu.Unlock()

	if exists {
		r.release(prev)
	}
}

// Release frees the handle tracked for itemID. It returns false when no
// handle was tracked.
func (r *Reclaimer) Release(itemID string) bool {
	r.mu.Lock()
	h, ok := r.live[itemID]
	if ok {
		delete(r.live, itemID)
		r.released++
	}
	r.mu.Unlock()

	if ok {
		r.release(h)
	}
	return ok
}

// ReleaseAll frees every tracked handle and returns how many were released.
func (r *Reclaimer) ReleaseAll() int {
	r.mu.Lock()
	handles := make([]*preview.Handle, 0, len(r.live))
	for id, h := range r.live {
		handles = append(handles, h)
		delete(r.live, id)
	}
	r.released += len(handles)
	r.mu.Unlock()

	for _, h := range handles {
		r.release(h)
	}
	return len(handles)
}

// Live returns the number of handles currently tracked
func (r *Reclaimer) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

func (r *Reclaimer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Allocated: r.allocated,
		Released:  r.released,
		Live:      len(r.live),
	}
}

func (r *Reclaimer) release(h *preview.Handle) {
	if err := h.Release(); err != nil {
		r.logger.Error("Preview handle released twice", "item_id", h.ItemID(), "err", err)
	}
}
