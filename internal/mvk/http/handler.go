// Package mvkhttp serves the SME declaration endpoints.
package mvkhttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/firmlens/firmlens/internal/mvk"
	"github.com/firmlens/firmlens/internal/platform/httpx"
	regshared "github.com/firmlens/firmlens/internal/registry/shared"
	"github.com/firmlens/firmlens/internal/shared"
	"github.com/firmlens/firmlens/internal/view"
)

// DeclarationService is the surface the handler needs from the service layer.
type DeclarationService interface {
	Declaration(ctx context.Context, regcode string, year int) (mvk.Declaration, error)
	ResolveYear(year int) (int, error)
}

// PDFRenderClient is the subset of the report client the handler uses.
type PDFRenderClient interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// RefreshEnqueuer submits declaration refresh jobs to the queue.
type RefreshEnqueuer interface {
	EnqueueDeclarationRefresh(ctx context.Context, regcode string, year int) (string, error)
}

// Handler serves the /api/mvk-declaration routes.
type Handler struct {
	logger      *slog.Logger
	service     DeclarationService
	templates   *view.Engine
	pdfClient   PDFRenderClient
	enqueuer    RefreshEnqueuer
	idempotency *shared.IdempotencyStore
	audit       *shared.AuditLogger
	validator   *validator.Validate
	rateLimit   func(http.Handler) http.Handler
}

// NewHandler constructs a Handler. The PDF export pieces may be nil; the
// endpoint then reports unavailable instead of failing startup.
func NewHandler(logger *slog.Logger, service DeclarationService, templates *view.Engine, pdfClient PDFRenderClient, enqueuer RefreshEnqueuer, idempotency *shared.IdempotencyStore, audit *shared.AuditLogger) *Handler {
	limiter := httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
		if identity := shared.IdentityFromContext(r.Context()); identity != nil {
			return "user:" + strconv.FormatInt(identity.UserID, 10), nil
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return "ip:" + r.RemoteAddr, nil
		}
		return "ip:" + host, nil
	}))
	return &Handler{
		logger:      logger,
		service:     service,
		templates:   templates,
		pdfClient:   pdfClient,
		enqueuer:    enqueuer,
		idempotency: idempotency,
		audit:       audit,
		validator:   validator.New(),
		rateLimit:   limiter,
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Has("refresh") {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed",
			"synchronous refresh is not supported; POST to /refresh instead")
		return
	}
	regcode, year, err := parseTarget(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	decl, err := h.service.Declaration(r.Context(), regcode, year)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, decl)
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	if h.templates == nil || h.pdfClient == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "pdf export not configured")
		return
	}
	regcode, year, err := parseTarget(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	decl, err := h.service.Declaration(r.Context(), regcode, year)
	if err != nil {
		h.respondError(w, err)
		return
	}
	html, err := h.templates.RenderString("mvk_declaration_pdf.html", decl)
	if err != nil {
		h.logger.Error("render declaration template", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	pdf, err := h.pdfClient.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("generate declaration pdf",
			slog.String("regcode", regcode), slog.Int("year", decl.Year), slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Upstream Failed", "pdf rendering failed")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=mvk_declaration_%s_%d.pdf", regcode, decl.Year))
	_, _ = w.Write(pdf)
}

type refreshRequest struct {
	Year int `json:"year" validate:"omitempty,gte=1995"`
}

type refreshResponse struct {
	Status  string `json:"status"`
	Regcode string `json:"regcode"`
	Year    int    `json:"year"`
	TaskID  string `json:"task_id,omitempty"`
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	regcode := chi.URLParam(r, "regcode")
	if err := regshared.ValidateRegcode(regcode); err != nil {
		h.respondError(w, err)
		return
	}

	var req refreshRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "request body must be valid JSON")
			return
		}
		if err := h.validator.Struct(req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
	}
	year, err := h.service.ResolveYear(req.Year)
	if err != nil {
		h.respondError(w, err)
		return
	}

	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key == "" {
		key = uuid.NewString()
	}
	if h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), key, "mvk.refresh"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.JSON(w, http.StatusAccepted, refreshResponse{Status: "already_queued", Regcode: regcode, Year: year})
				return
			}
			h.logger.Error("idempotency check", slog.Any("error", err))
			httpx.RespondError(w, httpx.ErrUnavailable)
			return
		}
	}

	taskID, err := h.enqueuer.EnqueueDeclarationRefresh(r.Context(), regcode, year)
	if err != nil {
		if h.idempotency != nil {
			if delErr := h.idempotency.Delete(r.Context(), key); delErr != nil {
				h.logger.Warn("roll back idempotency key", slog.Any("error", delErr))
			}
		}
		h.logger.Error("enqueue declaration refresh",
			slog.String("regcode", regcode), slog.Int("year", year), slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}

	if h.audit != nil {
		if err := h.audit.Record(r.Context(), shared.AuditLog{
			ActorID:  identity.UserID,
			Action:   "declaration.refresh_requested",
			Entity:   "company",
			EntityID: regcode,
			Meta:     map[string]any{"year": year, "task_id": taskID},
		}); err != nil {
			h.logger.Warn("audit refresh request", slog.Any("error", err))
		}
	}

	httpx.JSON(w, http.StatusAccepted, refreshResponse{Status: "queued", Regcode: regcode, Year: year, TaskID: taskID})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, httpx.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "company not found")
	case errors.Is(err, regshared.ErrInvalidRegcode),
		errors.Is(err, regshared.ErrValidation),
		errors.Is(err, shared.ErrYearOutOfRange):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, context.Canceled):
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "request cancelled")
	default:
		h.logger.Error("declaration request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func parseTarget(r *http.Request) (string, int, error) {
	regcode := chi.URLParam(r, "regcode")
	if err := regshared.ValidateRegcode(regcode); err != nil {
		return "", 0, err
	}
	year := 0
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return "", 0, regshared.InvalidParam("year")
		}
		year = parsed
	}
	return regcode, year, nil
}
