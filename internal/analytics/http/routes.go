package analytichttp

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the analytics endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/overview", h.handleOverview)
	r.Get("/overview/export.csv", h.handleExportCSV)
	r.Get("/overview/export.pdf", h.handleExportPDF)
}
