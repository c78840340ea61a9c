package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rarepdftool/pdftools/internal/models"
)

// Multipart framing allowance on top of the session's size ceiling.
const formOverhead = 1 << 20

// AddItems collects the multipart "files" of the request into the session,
// in the order they were sent.
func (h *Handler) AddItems(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, chi.URLParam(r, "sessionID"))
	if !ok {
		return
	}

	if err := h.parseUpload(w, r, session.MaxTotalBytes()+formOverhead); err != nil {
		h.writeFailure(w, "Failed to read upload", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files, err := formFiles(r, "files")
	if err != nil {
		h.writeFailure(w, "Failed to read upload", err)
		return
	}

	h.addFiles(w, session.ID(), files)
}

// AddItemFromURL downloads a single file and collects it into the session.
func (h *Handler) AddItemFromURL(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, chi.URLParam(r, "sessionID"))
	if !ok {
		return
	}

	var request struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.URL == "" {
		h.writeError(w, "url is required", http.StatusBadRequest)
		return
	}

	file, err := h.downloadFile(r.Context(), request.URL, session.MaxTotalBytes())
	if err != nil {
		h.writeFailure(w, "Failed to fetch file", err)
		return
	}
	h.logger.Info("Downloaded file", "session_id", session.ID(), "url", request.URL, "size", len(file.Data))

	h.addFiles(w, session.ID(), []models.FileInput{file})
}

func (h *Handler) addFiles(w http.ResponseWriter, sessionID string, files []models.FileInput) {
	session, ok := h.getSessionOrError(w, sessionID)
	if !ok {
		return
	}
	if _, err := session.Add(files); err != nil {
		h.writeFailure(w, "Files rejected", err)
		return
	}
	h.writeSession(w, http.StatusCreated, session)
}
