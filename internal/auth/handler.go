package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/firmlens/firmlens/internal/platform/httpx"
	"github.com/firmlens/firmlens/internal/shared"
)

// Credential guessing gets a much tighter window than the global limiter.
const loginAttemptsPerMinute = 10

// AuditRecorder persists audit trail entries for sensitive actions.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	tokens    *shared.TokenManager
	audit     AuditRecorder
	validator *validator.Validate
	rateLimit func(http.Handler) http.Handler
}

// NewHandler constructs a Handler instance. The audit recorder may be nil;
// login attempts then go unaudited.
func NewHandler(logger *slog.Logger, service *Service, tokens *shared.TokenManager, audit AuditRecorder) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		tokens:    tokens,
		audit:     audit,
		validator: validator.New(),
		rateLimit: httprate.LimitByIP(loginAttemptsPerMinute, time.Minute),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rateLimit).Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type userInfo struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      userInfo  `json:"user"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.recordLogin(r, 0, "auth.login_failed", req.Email)
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
		return
	}
	h.recordLogin(r, user.ID, "auth.login", req.Email)

	identity := shared.Identity{UserID: user.ID, Email: user.Email, DisplayName: user.DisplayName}
	token, err := h.tokens.Issue(r.Context(), identity)
	if err != nil {
		h.logger.Error("issue token", slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}

	expiresAt := time.Now().Add(h.tokens.TTL())
	if tokenID, err := h.tokens.TokenID(token); err == nil {
		if err := h.service.RegisterSession(r.Context(), tokenID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
			h.logger.Warn("register session", slog.Any("error", err))
		}
	}

	h.tokens.WriteCookie(w, token)
	httpx.JSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC(),
		User:      userInfo{ID: user.ID, Email: user.Email, DisplayName: user.DisplayName},
	})
}

// recordLogin audits a login attempt. Failed attempts carry the claimed
// email so lockout reviews can trace guessing runs.
func (h *Handler) recordLogin(r *http.Request, actorID int64, action, email string) {
	if h.audit == nil {
		return
	}
	if err := h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: email,
		Meta:     map[string]any{"remote_addr": r.RemoteAddr, "user_agent": r.UserAgent()},
	}); err != nil {
		h.logger.Warn("audit login attempt", slog.Any("error", err))
	}
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := h.tokens.FromRequest(r); token != "" {
		if tokenID, err := h.tokens.TokenID(token); err == nil {
			if err := h.service.RemoveSession(r.Context(), tokenID); err != nil {
				h.logger.Warn("remove session", slog.Any("error", err))
			}
		}
		if err := h.tokens.Revoke(r.Context(), token); err != nil {
			h.logger.Warn("revoke token", slog.Any("error", err))
		}
	}
	h.tokens.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	httpx.JSON(w, http.StatusOK, userInfo{
		ID:          identity.UserID,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
	})
}

// LoginForTest exposes the login handler for tests.
func (h *Handler) LoginForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r)
}

// LogoutForTest exposes the logout handler for tests.
func (h *Handler) LogoutForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogout(w, r)
}

// MeForTest exposes the identity handler for tests.
func (h *Handler) MeForTest(w http.ResponseWriter, r *http.Request) {
	h.handleMe(w, r)
}
