package persons

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/firmlens/firmlens/internal/platform/httpx"
	regshared "github.com/firmlens/firmlens/internal/registry/shared"
	"github.com/firmlens/firmlens/internal/shared"
)

// PersonService is the surface the handler needs from the service layer.
type PersonService interface {
	Search(ctx context.Context, filters regshared.ListFilters) ([]Summary, shared.Pagination, error)
	Get(ctx context.Context, hash string) (Detail, error)
}

// Handler serves the /api/analytics/people routes.
type Handler struct {
	logger  *slog.Logger
	service PersonService
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service PersonService) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the person routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/search", h.handleSearch)
	r.Get("/{hash}", h.handleGet)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	filters, err := parseSearchFilters(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	items, pagination, err := h.service.Search(r.Context(), filters)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, SearchResponse{Items: items, Pagination: pagination})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	detail, err := h.service.Get(r.Context(), hash)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, regshared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "person not found")
	case errors.Is(err, regshared.ErrInvalidCode),
		errors.Is(err, regshared.ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("persons request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func parseSearchFilters(r *http.Request) (regshared.ListFilters, error) {
	q := r.URL.Query()
	filters := regshared.ListFilters{
		Search:  strings.TrimSpace(q.Get("q")),
		Role:    q.Get("role"),
		SortBy:  q.Get("sort"),
		SortDir: q.Get("dir"),
	}
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return filters, regshared.InvalidParam("page")
		}
		filters.Page = page
	}
	if raw := q.Get("per_page"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return filters, regshared.InvalidParam("per_page")
		}
		filters.Limit = limit
	}
	if raw := q.Get("min_wealth"); raw != "" {
		minWealth, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return filters, regshared.InvalidParam("min_wealth")
		}
		filters.MinWealth = &minWealth
	}
	return filters, nil
}
