package httpserver

import (
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"chatcore/internal/config"
)

// UploadRoutes returns a sub-router mounted at /api/uploads. Attachments are
// written through the object storage collaborator when a file message is
// sent; this route only serves them back.
func UploadRoutes(cfg *config.Config) chi.Router {
	r := chi.NewRouter()

	r.Get("/{filename}", func(w http.ResponseWriter, r *http.Request) {
		filename := chi.URLParam(r, "filename")
		if filename == "" {
			http.Error(w, "missing filename", http.StatusBadRequest)
			return
		}
		// Prevent path traversal by cleaning the path and not allowing separators.
		if filepath.Base(filename) != filename {
			http.Error(w, "invalid filename", http.StatusBadRequest)
			return
		}
		http.ServeFile(w, r, filepath.Join(cfg.UploadDir, filename))
	})

	return r
}
