// Package storage keeps merge sessions in memory.
package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rarepdftool/pdftools/internal/merge"
)

type SessionStore struct {
	sessions map[string]*merge.Session
	mu       sync.RWMutex
}

func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*merge.Session),
	}
}

func (s *SessionStore) Get(sessionID string) (*merge.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

// Set registers a session. A different session already stored under the same
// id is closed.
func (s *SessionStore) Set(sessionID string, session *merge.Session) {
	s.mu.Lock()
	prev := s.sessions[sessionID]
	s.sessions[sessionID] = session
	s.mu.Unlock()

	if prev != nil && prev != session {
		prev.Close()
	}
}

func (s *SessionStore) GetAll() map[string]*merge.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*merge.Session, len(s.sessions))
	for k, v := range s.sessions {
		result[k] = v
	}
	return result
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Delete removes the session and tears it down. It reports whether the
// session existed.
func (s *SessionStore) Delete(sessionID string) bool {
	s.mu.Lock()
	session, exists := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if exists {
		session.Close()
	}
	return exists
}

// CloseAll tears down every session.
func (s *SessionStore) CloseAll() int {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*merge.Session)
	s.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
	return len(sessions)
}

// Reap closes sessions that have not changed since before now-ttl.
func (s *SessionStore) Reap(now time.Time, ttl time.Duration) []string {
	cutoff := now.Add(-ttl)

	s.mu.Lock()
	var expired []*merge.Session
	for id, session := range s.sessions {
		if session.UpdatedAt().Before(cutoff) {
			expired = append(expired, session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	ids := make([]string, 0, len(expired))
	for _, session := range expired {
		session.Close()
		ids = append(ids, session.ID())
	}
	return ids
}

// RunJanitor reaps idle sessions every interval until ctx is done.
func (s *SessionStore) RunJanitor(ctx context.Context, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if ids := s.Reap(now, ttl); len(ids) > 0 {
				slog.Info("Reaped idle sessions", "count", len(ids), "session_ids", ids)
			}
		}
	}
}
