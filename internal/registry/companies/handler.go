package companies

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

// CompanyService is the surface the handler needs from the service layer.
type CompanyService interface {
	List(ctx context.Context, filters regshared.ListFilters) ([]Summary, shared.Pagination, error)
	Get(ctx context.Context, regcode string) (Detail, error)
	FinancialHistory(ctx context.Context, regcode string) ([]Financials, error)
	Compare(ctx context.Context, regcodes []string) ([]Summary, error)
}

// Handler serves the /api/companies routes.
type Handler struct {
	logger  *slog.Logger
	service CompanyService
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service CompanyService) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the company routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/list", h.handleList)
	r.Get("/compare", h.handleCompare)
	r.Get("/{regcode}", h.handleGet)
	r.Get("/{regcode}/financials", h.handleFinancials)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filters, err := parseListFilters(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	items, pagination, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ListResponse{Items: items, Pagination: pagination})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	regcode := chi.URLParam(r, "regcode")
	detail, err := h.service.Get(r.Context(), regcode)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) handleFinancials(w http.ResponseWriter, r *http.Request) {
	regcode := chi.URLParam(r, "regcode")
	items, err := h.service.FinancialHistory(r.Context(), regcode)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, FinancialsResponse{Regcode: regcode, Items: items})
}

func (h *Handler) handleCompare(w http.ResponseWriter, r *http.Request) {
	regcodes := r.URL.Query()["regcode"]
	items, err := h.service.Compare(r.Context(), regcodes)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, CompareResponse{Items: items})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, regshared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "company not found")
	case errors.Is(err, regshared.ErrInvalidRegcode),
		errors.Is(err, regshared.ErrInvalidCode),
		errors.Is(err, regshared.ErrCompareRange),
		errors.Is(err, regshared.ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("companies request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func parseListFilters(r *http.Request) (regshared.ListFilters, error) {
	q := r.URL.Query()
	filters := regshared.ListFilters{
		Search:     strings.TrimSpace(q.Get("q")),
		NACECode:   strings.TrimSpace(q.Get("nace")),
		RegionCode: strings.TrimSpace(q.Get("region")),
		City:       strings.TrimSpace(q.Get("city")),
		SortBy:     q.Get("sort"),
		SortDir:    q.Get("dir"),
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
	if status := strings.ToUpper(q.Get("status")); status != "" {
		switch status {
		case StatusActive, StatusLiquidated, StatusSuspended:
			filters.Status = status
		default:
			return filters, regshared.InvalidParam("status")
		}
	}
	if raw := q.Get("risk_only"); raw != "" {
		riskOnly, err := strconv.ParseBool(raw)
		if err != nil {
			return filters, regshared.InvalidParam("risk_only")
		}
		filters.RiskOnly = riskOnly
	}
	return filters, nil
}

