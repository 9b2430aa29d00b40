package locations

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/firmlens/firmlens/internal/platform/httpx"
	regshared "github.com/firmlens/firmlens/internal/registry/shared"
)

// LocationService is the surface the handler needs from the service layer.
type LocationService interface {
	Overview(ctx context.Context, year int) (OverviewResponse, error)
	Get(ctx context.Context, code string, year int) (DetailResponse, error)
}

// Handler serves the /api/locations routes.
type Handler struct {
	logger  *slog.Logger
	service LocationService
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service LocationService) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the location routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/overview", h.handleOverview)
	r.Get("/{code}", h.handleGet)
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	resp, err := h.service.Overview(r.Context(), year)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	resp, err := h.service.Get(r.Context(), chi.URLParam(r, "code"), year)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, regshared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "location not found")
	case errors.Is(err, regshared.ErrInvalidCode),
		errors.Is(err, regshared.ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("locations request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func yearParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return 0, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, regshared.InvalidParam("year")
	}
	return year, nil
}
