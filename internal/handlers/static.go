package handlers

import (
	"net/http"
)

func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"message": "pdftools server is running and CORS is enabled.",
	})
}

func (h *Handler) HandleHealthcheck(w http.ResponseWriter, r *http.Request) {
	if _, err := w.Write([]byte("OK")); err != nil {
		h.logger.Error("Unable to write healthcheck", "err", err)
	}
}

// cors allows any origin, which the browser front end relies on.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-Id")
		header.Set("Access-Control-Expose-Headers", "Content-Disposition, X-Page-Count, X-Original-Size, X-Compressed-Size, X-Compression-Method")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
