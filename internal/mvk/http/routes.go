package mvkhttp

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the declaration endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/{regcode}", h.handleGet)
	r.With(h.rateLimit).Get("/{regcode}/pdf", h.handlePDF)
	r.Post("/{regcode}/refresh", h.handleRefresh)
}
