package preview

import (
	"errors"
	"testing"
)

func TestHandleRelease(t *testing.T) {
	h := NewHandle("item", "image/jpeg", []byte{1, 2, 3}, OriginRendered)

	if data, ok := h.Bytes(); !ok || len(data) != 3 {
		t.Fatalf("Expected live bytes, got %v %v", data, ok)
	}
	if err := h.Release(); err != nil {
		t.Fatalf("Expected first release to succeed, got %v", err)
	}
	if !h.Released() {
		t.Error("Expected handle to report released")
	}
	if _, ok := h.Bytes(); ok {
		t.Error("Expected no bytes after release")
	}
	if err := h.Release(); !errors.Is(err, ErrAlreadyReleased) {
		t.Errorf("Expected ErrAlreadyReleased, got %v", err)
	}
}

func TestResult(t *testing.T) {
	h := NewHandle("a", "image/png", []byte{1}, OriginSource)
	n := 2
	ok := Preview("a", h, &n)
	if !ok.OK() || ok.Handle != h || *ok.PageCount != 2 {
		t.Errorf("Unexpected preview result %+v", ok)
	}

	cause := errors.New("broken")
	none := NoPreview("a", nil, cause)
	if none.OK() || none.Handle != nil {
		t.Error("Expected NoPreview without a handle")
	}
	if !errors.Is(none.Reason, ErrUnavailable) || !errors.Is(none.Reason, cause) {
		t.Errorf("Expected reason to wrap ErrUnavailable and the cause, got %v", none.Reason)
	}
}
