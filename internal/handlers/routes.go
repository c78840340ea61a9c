package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes returns the HTTP handler serving every endpoint.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/", h.HandleRoot)
	r.Get("/healthcheck", h.HandleHealthcheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.CreateSession)
			r.Get("/", h.ListSessions)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", h.GetSession)
				r.Delete("/", h.DeleteSession)
				r.Post("/merge", h.Merge)

				r.Post("/items", h.AddItems)
				r.Delete("/items", h.ClearItems)
				r.Post("/items/url", h.AddItemFromURL)
				r.Put("/items/{itemID}/position", h.MoveItem)
				r.Delete("/items/{itemID}", h.RemoveItem)
				r.Get("/items/{itemID}/preview", h.GetPreview)
			})
		})

		r.Post("/compress", h.Compress)
		r.Post("/pdf-to-png", h.PDFToPNG)
		r.Post("/pdf-to-jpg", h.PDFToJPG)
		r.Post("/images-to-pdf", h.ImagesToPDF)
		r.Post("/jpg-to-pdf", h.JPGToPDF)
		r.Post("/png-to-pdf", h.PNGToPDF)
		r.Post("/image-convert", h.ImageConvert)
	})

	return r
}
