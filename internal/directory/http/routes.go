package directoryhttp

import "github.com/go-chi/chi/v5"

// MountRoutes mendaftarkan endpoint direktori pengguna.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get(basePath, h.handleDirectory)
	r.Get(basePath+"/export.csv", h.handleExport)
	r.Get("/api/users", h.handleAPI)
}
