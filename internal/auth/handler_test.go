package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/firmlens/firmlens/internal/auth"
	"github.com/firmlens/firmlens/internal/shared"
	_ "github.com/firmlens/firmlens/testing"
)

type stubRepo struct {
	user     *auth.User
	sessions map[string]int64
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		s.sessions = make(map[string]int64)
	}
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

type recordingAudit struct {
	entries []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.entries = append(a.entries, log)
	return nil
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.TokenManager, *recordingAudit) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })
	tokens := shared.NewTokenManager(redisClient, shared.NewTokenSigner("secret"), "firmlens_token", time.Hour, false)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	audit := &recordingAudit{}
	handler := auth.NewHandler(logger, auth.NewService(repo), tokens, audit)
	return handler, tokens, audit
}

func activeUser(t *testing.T, password string) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &auth.User{
		ID:           1,
		Email:        "analyst@firmlens.lv",
		DisplayName:  "Analyst",
		PasswordHash: string(hashed),
		IsActive:     true,
	}
}

func TestLoginSuccess(t *testing.T) {
	repo := &stubRepo{user: activeUser(t, "correct-password")}
	handler, tokens, audit := newAuthHandler(t, repo)

	body := strings.NewReader(`{"email":"analyst@firmlens.lv","password":"correct-password"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	res := httptest.NewRecorder()
	handler.LoginForTest(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var payload struct {
		Token string `json:"token"`
		User  struct {
			ID    int64  `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Token == "" {
		t.Fatal("expected token in response")
	}
	if payload.User.Email != "analyst@firmlens.lv" {
		t.Fatalf("unexpected user %+v", payload.User)
	}

	identity, err := tokens.Resolve(context.Background(), payload.Token)
	if err != nil {
		t.Fatalf("resolve issued token: %v", err)
	}
	if identity.UserID != 1 {
		t.Fatalf("unexpected identity %+v", identity)
	}

	if len(repo.sessions) != 1 {
		t.Fatalf("expected session record, got %d", len(repo.sessions))
	}

	cookies := res.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "firmlens_token" {
		t.Fatalf("expected token cookie, got %+v", cookies)
	}

	if len(audit.entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(audit.entries))
	}
	entry := audit.entries[0]
	if entry.Action != "auth.login" || entry.ActorID != 1 || entry.Entity != "user" || entry.EntityID != "analyst@firmlens.lv" {
		t.Fatalf("unexpected audit entry %+v", entry)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	handler, _, audit := newAuthHandler(t, &stubRepo{user: activeUser(t, "correct-password")})

	body := strings.NewReader(`{"email":"analyst@firmlens.lv","password":"wrong-password"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	res := httptest.NewRecorder()
	handler.LoginForTest(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "invalid email or password") {
		t.Fatalf("expected problem detail, got %s", res.Body.String())
	}

	if len(audit.entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(audit.entries))
	}
	entry := audit.entries[0]
	if entry.Action != "auth.login_failed" || entry.ActorID != 0 || entry.EntityID != "analyst@firmlens.lv" {
		t.Fatalf("unexpected audit entry %+v", entry)
	}
}

func TestLoginInactiveUser(t *testing.T) {
	user := activeUser(t, "correct-password")
	user.IsActive = false
	handler, _, _ := newAuthHandler(t, &stubRepo{user: user})

	body := strings.NewReader(`{"email":"analyst@firmlens.lv","password":"correct-password"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	res := httptest.NewRecorder()
	handler.LoginForTest(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for inactive user, got %d", res.Code)
	}
}

func TestLoginValidation(t *testing.T) {
	handler, _, _ := newAuthHandler(t, &stubRepo{})

	body := strings.NewReader(`{"email":"not-an-email","password":"short"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	res := httptest.NewRecorder()
	handler.LoginForTest(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	handler, _, _ := newAuthHandler(t, &stubRepo{user: activeUser(t, "correct-password")})

	router := chi.NewRouter()
	router.Route("/api/auth", handler.MountRoutes)

	// All requests share httptest's default RemoteAddr, so the per-IP
	// window fills after ten attempts.
	var last int
	for i := 0; i < 11; i++ {
		body := strings.NewReader(`{"email":"analyst@firmlens.lv","password":"wrong-password"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)
		last = res.Code
		if i < 10 && res.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d rejected too early", i+1)
		}
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on eleventh attempt, got %d", last)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	repo := &stubRepo{user: activeUser(t, "correct-password")}
	handler, tokens, _ := newAuthHandler(t, repo)

	token, err := tokens.Issue(context.Background(), shared.Identity{UserID: 1, Email: "analyst@firmlens.lv"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	handler.LogoutForTest(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
	if _, err := tokens.Resolve(context.Background(), token); err == nil {
		t.Fatal("expected token to be revoked")
	}
}

func TestMeRequiresIdentity(t *testing.T) {
	handler, _, _ := newAuthHandler(t, &stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	res := httptest.NewRecorder()
	handler.MeForTest(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}

	ctx := shared.ContextWithIdentity(req.Context(), &shared.Identity{UserID: 7, Email: "analyst@firmlens.lv", DisplayName: "Analyst"})
	res = httptest.NewRecorder()
	handler.MeForTest(res, req.WithContext(ctx))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), `"id":7`) {
		t.Fatalf("expected identity in body, got %s", res.Body.String())
	}
}
