package favorites

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/firmlens/firmlens/internal/platform/httpx"
	regshared "github.com/firmlens/firmlens/internal/registry/shared"
	"github.com/firmlens/firmlens/internal/shared"
)

// FavoriteService is the surface the handler needs from the service layer.
type FavoriteService interface {
	List(ctx context.Context, userID int64) ([]Favorite, error)
	Add(ctx context.Context, userID int64, req CreateRequest) (Favorite, error)
	Remove(ctx context.Context, userID, id int64) error
}

// Handler serves the /api/favorites routes. The router mounts it behind the
// identity requirement, so requests reaching it carry a caller.
type Handler struct {
	logger    *slog.Logger
	service   FavoriteService
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service FavoriteService) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers the favorites routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Delete("/{id}", h.handleDelete)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	items, err := h.service.List(r.Context(), identity.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if items == nil {
		items = []Favorite{}
	}
	httpx.JSON(w, http.StatusOK, ListResponse{Items: items})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	fav, err := h.service.Add(r.Context(), identity.UserID, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, fav)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be numeric")
		return
	}
	if err := h.service.Remove(r.Context(), identity.UserID, id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, httpx.ErrDuplicate):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "already in favorites")
	case errors.Is(err, httpx.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "favorite not found")
	case errors.Is(err, regshared.ErrValidation),
		errors.Is(err, regshared.ErrInvalidRegcode),
		errors.Is(err, regshared.ErrInvalidCode):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("favorites request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
