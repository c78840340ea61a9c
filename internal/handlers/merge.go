package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rarepdftool/pdftools/internal/assemble"
)

// Merge assembles the session's current ordering into one PDF. The session is
// left untouched whether or not assembly succeeds.
func (h *Handler) Merge(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, chi.URLParam(r, "sessionID"))
	if !ok {
		return
	}

	opts, err := h.assembleOptions(r)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	items := session.Items()
	res, err := h.opts.Assembler.Run(r.Context(), items, opts)
	if err != nil {
		h.writeFailure(w, "Merge failed", err)
		return
	}

	h.logger.Info("Merged session", "session_id", session.ID(), "items", len(items), "pages", res.PageCount)
	filename := fmt.Sprintf("merged_%d.pdf", time.Now().UnixMilli())
	w.Header().Set("X-Page-Count", strconv.Itoa(res.PageCount))
	h.writeAttachment(w, filename, "application/pdf", res.PDF)
}

// assembleOptions reads margin and numbers from the query string.
func (h *Handler) assembleOptions(r *http.Request) (assemble.Options, error) {
	opts := assemble.DefaultOptions()
	opts.MaxPageWidth = h.opts.MaxPageWidth

	margin, err := h.parseMargin(r.URL.Query().Get("margin"), h.opts.DefaultMargin)
	if err != nil {
		return opts, err
	}
	opts.Margin = margin

	if v := r.URL.Query().Get("numbers"); v != "" {
		numbers, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("numbers must be true or false, got %q", v)
		}
		opts.PageNumbers = numbers
	}
	return opts, nil
}

func (h *Handler) parseMargin(v string, fallback float64) (float64, error) {
	if v == "" {
		return fallback, nil
	}
	margin, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("margin must be a number, got %q", v)
	}
	if margin < 0 || margin > h.opts.MaxMargin {
		return 0, fmt.Errorf("margin must be between 0 and %g", h.opts.MaxMargin)
	}
	return margin, nil
}

func (h *Handler) writeAttachment(w http.ResponseWriter, filename, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		h.logger.Error("Unable to write response", "filename", filename, "err", err)
	}
}
