package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// MoveItem relocates an item. Indexes outside the list are clamped.
func (h *Handler) MoveItem(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, chi.URLParam(r, "sessionID"))
	if !ok {
		return
	}

	var request struct {
		Index *int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.Index == nil {
		h.writeError(w, "index is required", http.StatusBadRequest)
		return
	}

	if !session.Move(chi.URLParam(r, "itemID"), *request.Index) {
		h.writeError(w, "Item not found", http.StatusNotFound)
		return
	}
	h.writeSession(w, http.StatusOK, session)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, chi.URLParam(r, "sessionID"))
	if !ok {
		return
	}
	if !session.Remove(chi.URLParam(r, "itemID")) {
		h.writeError(w, "Item not found", http.StatusNotFound)
		return
	}
	h.writeSession(w, http.StatusOK, session)
}

func (h *Handler) ClearItems(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, chi.URLParam(r, "sessionID"))
	if !ok {
		return
	}
	n := session.Clear()
	h.logger.Info("Cleared session", "session_id", session.ID(), "items", n)
	h.writeJSON(w, http.StatusOK, map[string]any{"removed": n})
}

// GetPreview serves an item's preview image.
func (h *Handler) GetPreview(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, chi.URLParam(r, "sessionID"))
	if !ok {
		return
	}
	item, ok := session.Item(chi.URLParam(r, "itemID"))
	if !ok {
		h.writeError(w, "Item not found", http.StatusNotFound)
		return
	}
	if !item.HasPreview() {
		h.writeError(w, "No preview available", http.StatusNotFound)
		return
	}
	data, ok := item.Preview.Bytes()
	if !ok {
		h.writeError(w, "No preview available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", item.Preview.MIMEType())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	if _, err := w.Write(data); err != nil {
		h.logger.Error("Unable to write preview", "item_id", item.ID, "err", err)
	}
}
