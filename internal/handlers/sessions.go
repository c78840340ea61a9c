package handlers

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/rarepdftool/pdftools/internal/merge"
	"github.com/rarepdftool/pdftools/internal/models"
)

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	id := h.opts.NewSessionID()
	session := merge.NewSession(id, h.opts.Session)
	h.sessionStore.Set(id, session)

	h.logger.Info("Session created", "session_id", id)
	h.writeSession(w, http.StatusCreated, session)
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessionStore.GetAll()
	sessionList := make([]models.MergeSession, 0, len(sessions))
	for id, session := range sessions {
		sessionList = append(sessionList, session.View(previewURL(id)))
	}
	slices.SortFunc(sessionList, func(a, b models.MergeSession) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	h.writeJSON(w, http.StatusOK, sessionList)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, chi.URLParam(r, "sessionID"))
	if !ok {
		return
	}
	h.writeSession(w, http.StatusOK, session)
}

// DeleteSession tears the session down, releasing every preview it holds.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if !h.sessionStore.Delete(sessionID) {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
