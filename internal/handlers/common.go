package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/rarepdftool/pdftools/internal/assemble"
	"github.com/rarepdftool/pdftools/internal/convert"
	"github.com/rarepdftool/pdftools/internal/idgen"
	"github.com/rarepdftool/pdftools/internal/merge"
	"github.com/rarepdftool/pdftools/internal/render"
	"github.com/rarepdftool/pdftools/internal/storage"
)

// Options wires the handler to its collaborators. Zero values fall back to
// defaults.
type Options struct {
	Store *storage.SessionStore

	// Session is the template for new merge sessions.
	Session merge.Config

	Assembler  *assemble.Assembler
	Compressor *convert.Compressor
	Rasterizer *convert.Rasterizer
	Images     convert.ImageConverter

	DefaultMargin  float64
	MaxMargin      float64
	MaxPageWidth   float64
	MaxUploadBytes int64

	// NewSessionID generates session ids (default UUIDv7).
	NewSessionID idgen.Generator

	// HTTPClient fetches remote files for add-by-URL. The default client
	// only connects to public addresses.
	HTTPClient *http.Client

	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Store == nil {
		o.Store = storage.New()
	}
	if o.Session.MaxTotalBytes <= 0 {
		o.Session.MaxTotalBytes = merge.DefaultMaxTotalBytes
	}
	if o.Session.Logger == nil {
		o.Session.Logger = o.Logger
	}
	if o.Assembler == nil {
		o.Assembler = assemble.New(assemble.Config{Logger: o.Logger})
	}
	if o.Compressor == nil {
		o.Compressor = convert.NewCompressor(convert.CompressorConfig{Logger: o.Logger})
	}
	if o.Rasterizer == nil {
		o.Rasterizer = convert.NewRasterizer(convert.RasterizerConfig{Logger: o.Logger})
	}
	if o.MaxMargin <= 0 {
		o.MaxMargin = assemble.MaxMargin
	}
	if o.DefaultMargin < 0 || o.DefaultMargin > o.MaxMargin {
		o.DefaultMargin = assemble.DefaultMargin
	}
	if o.MaxPageWidth <= 0 {
		o.MaxPageWidth = assemble.DefaultMaxPageWidth
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = 100 << 20
	}
	if o.NewSessionID == nil {
		o.NewSessionID = idgen.Default
	}
	if o.HTTPClient == nil {
		o.HTTPClient = publicHTTPClient(60 * time.Second)
	}
}

type Handler struct {
	sessionStore *storage.SessionStore
	opts         Options
	logger       *slog.Logger
}

func New(opts Options) *Handler {
	opts.defaults()
	return &Handler{
		sessionStore: opts.Store,
		opts:         opts,
		logger:       opts.Logger,
	}
}

// Store exposes the session registry for the server's janitor and shutdown.
func (h *Handler) Store() *storage.SessionStore {
	return h.sessionStore
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details string   `json:"details,omitempty"`
	Items   []string `json:"items,omitempty"`
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	h.logger.Warn(message, "status", code)
	h.writeJSON(w, code, errorResponse{Error: message})
}

// writeFailure maps err onto a status code and writes {error, details}.
func (h *Handler) writeFailure(w http.ResponseWriter, message string, err error) {
	code := statusFor(err)
	resp := errorResponse{Error: message, Details: err.Error()}
	var srcErr *assemble.SourceError
	if errors.As(err, &srcErr) {
		resp.Items = srcErr.ItemIDs()
	}
	if code >= http.StatusInternalServerError {
		h.logger.Error(message, "status", code, "err", err)
	} else {
		h.logger.Warn(message, "status", code, "err", err)
	}
	h.writeJSON(w, code, resp)
}

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, merge.ErrInputRejected), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, assemble.ErrAssemblyEmpty), errors.Is(err, convert.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, assemble.ErrSourceUnreadable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, merge.ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, render.ErrUnavailable):
		return http.StatusNotImplemented
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, sessionID string) (*merge.Session, bool) {
	session, exists := h.sessionStore.Get(sessionID)
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

func previewURL(sessionID string) func(string) string {
	return func(itemID string) string {
		return "/api/sessions/" + sessionID + "/items/" + itemID + "/preview"
	}
}

func (h *Handler) writeSession(w http.ResponseWriter, code int, session *merge.Session) {
	h.writeJSON(w, code, session.View(previewURL(session.ID())))
}
