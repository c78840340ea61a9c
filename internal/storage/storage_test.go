package storage

import (
	"slices"
	"testing"
	"time"

	"github.com/rarepdftool/pdftools/internal/merge"
	"github.com/rarepdftool/pdftools/internal/models"
)

func newSession(id string, now time.Time) *merge.Session {
	return merge.NewSession(id, merge.Config{Now: func() time.Time { return now }})
}

func TestStoreGetSetDelete(t *testing.T) {
	s := New()
	session := newSession("a", time.Now())
	s.Set("a", session)

	got, ok := s.Get("a")
	if !ok || got != session {
		t.Fatal("Expected stored session")
	}
	if _, ok := s.Get("missing"); ok {
		t.Error("Expected missing session not found")
	}
	if s.Len() != 1 || len(s.GetAll()) != 1 {
		t.Errorf("Expected 1 session, got %d", s.Len())
	}

	if !s.Delete("a") {
		t.Error("Expected delete to report existing session")
	}
	if !session.Closed() {
		t.Error("Expected deleted session to be closed")
	}
	if s.Delete("a") {
		t.Error("Expected second delete to report missing session")
	}
}

func TestStoreSetReplacesAndClosesPrevious(t *testing.T) {
	s := New()
	first := newSession("a", time.Now())
	second := newSession("a", time.Now())

	s.Set("a", first)
	s.Set("a", first)
	if first.Closed() {
		t.Fatal("Expected re-setting the same session to keep it open")
	}
	s.Set("a", second)
	if !first.Closed() {
		t.Error("Expected replaced session to be closed")
	}
	t.Cleanup(func() { s.CloseAll() })
}

func TestStoreReap(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := New()
	stale := newSession("stale", now.Add(-2*time.Hour))
	fresh := newSession("fresh", now.Add(-10*time.Minute))
	s.Set("stale", stale)
	s.Set("fresh", fresh)

	if _, err := stale.Add([]models.FileInput{{Name: "a.png", MIMEType: "image/png", Data: []byte{1}}}); err != nil {
		t.Fatal(err)
	}

	reaped := s.Reap(now, time.Hour)
	if !slices.Equal(reaped, []string{"stale"}) {
		t.Errorf("Expected [stale] reaped, got %v", reaped)
	}
	if !stale.Closed() || len(stale.Items()) != 0 {
		t.Error("Expected stale session torn down")
	}
	if fresh.Closed() {
		t.Error("Expected fresh session kept")
	}
	if _, ok := s.Get("stale"); ok {
		t.Error("Expected stale session removed from store")
	}

	if n := s.CloseAll(); n != 1 {
		t.Errorf("Expected 1 session closed, got %d", n)
	}
	if !fresh.Closed() {
		t.Error("Expected CloseAll to close remaining sessions")
	}
}
