// Package analytichttp serves the market analytics endpoints.
package analytichttp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/firmlens/firmlens/internal/analytics"
	"github.com/firmlens/firmlens/internal/analytics/export"
	"github.com/firmlens/firmlens/internal/platform/httpx"
)

// OverviewService is the surface the handler needs from the service layer.
type OverviewService interface {
	GetOverview(ctx context.Context) (analytics.Overview, error)
}

// PDFRenderClient is the subset of the report client the handler uses.
type PDFRenderClient interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Handler serves the /api/analytics routes.
type Handler struct {
	logger    *slog.Logger
	service   OverviewService
	pdfClient PDFRenderClient
}

// NewHandler constructs a Handler. The PDF client may be nil; the PDF export
// endpoint then reports unavailable instead of failing startup.
func NewHandler(logger *slog.Logger, service OverviewService, pdfClient PDFRenderClient) *Handler {
	return &Handler{logger: logger, service: service, pdfClient: pdfClient}
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.GetOverview(r.Context())
	if err != nil {
		h.logger.Error("analytics overview failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, overview)
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.GetOverview(r.Context())
	if err != nil {
		h.logger.Error("analytics overview failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	buf := &bytes.Buffer{}
	if err := export.WriteOverviewCSV(buf, overview); err != nil {
		h.logger.Error("write overview csv", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=market_overview_%d.csv", overview.Year))
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	if h.pdfClient == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "pdf export not configured")
		return
	}
	overview, err := h.service.GetOverview(r.Context())
	if err != nil {
		h.logger.Error("analytics overview failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	html, err := export.BuildOverviewHTML(overview)
	if err != nil {
		h.logger.Error("build overview html", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	pdf, err := h.pdfClient.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("generate overview pdf", slog.Int("year", overview.Year), slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Upstream Failed", "pdf rendering failed")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=market_overview_%d.pdf", overview.Year))
	_, _ = w.Write(pdf)
}
