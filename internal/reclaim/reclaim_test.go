package reclaim

import (
	"errors"
	"testing"

	"github.com/rarepdftool/pdftools/internal/preview"
)

func TestReleaseExactlyOnce(t *testing.T) {
	r := New(nil)
	h := preview.NewHandle("a", "image/png", []byte{1, 2, 3}, preview.OriginSource)
	r.Track(h)

	if r.Live() != 1 {
		t.Fatalf("Expected 1 live handle, got %d", r.Live())
	}
	if !r.Release("a") {
		t.Fatal("Expected first release to succeed")
	}
	if !h.Released() {
		t.Error("Expected handle to be released")
	}
	if r.Release("a") {
		t.Error("Expected second release to be a no-op")
	}
	if err := h.Release(); !errors.Is(err, preview.ErrAlreadyReleased) {
		t.Errorf("Expected ErrAlreadyReleased, got %v", err)
	}

	stats := r.Stats()
	if stats.Allocated != 1 || stats.Released != 1 || stats.Live != 0 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestTrackReplacesPreviousHandle(t *testing.T) {
	r := New(nil)
	first := preview.NewHandle("a", "image/jpeg", []byte{1}, preview.OriginRendered)
	second := preview.NewHandle("a", "image/jpeg", []byte{2}, preview.OriginRendered)

	r.Track(first)
	r.Track(first)
	r.Track(second)

	if !first.Released() {
		t.Error("Expected replaced handle to be released")
	}
	if second.Released() {
		t.Error("Expected current handle to stay live")
	}
	if r.Live() != 1 {
		t.Errorf("Expected 1 live handle, got %d", r.Live())
	}
}

func TestReleaseAll(t *testing.T) {
	r := New(nil)
	var handles []*preview.Handle
	for _, id := range []string{"a", "b", "c"} {
		h := preview.NewHandle(id, "image/png", []byte(id), preview.OriginSource)
		handles = append(handles, h)
		r.Track(h)
	}

	if n := r.ReleaseAll(); n != 3 {
		t.Errorf("Expected 3 released, got %d", n)
	}
	for _, h := range handles {
		if !h.Released() {
			t.Errorf("Expected handle %s released", h.ItemID())
		}
	}
	if n := r.ReleaseAll(); n != 0 {
		t.Errorf("Expected nothing left to release, got %d", n)
	}
	r.Track(nil)
	if r.Live() != 0 {
		t.Errorf("Expected no live handles, got %d", r.Live())
	}
}
