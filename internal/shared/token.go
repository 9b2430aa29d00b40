package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TokenManager issues and resolves bearer tokens backed by Redis. The token
// travels either in an Authorization header or in an HttpOnly cookie; both
// carry the same signed value.
type TokenManager struct {
	client     *redis.Client
	signer     *TokenSigner
	cookieName string
	ttl        time.Duration
	secure     bool
}

type tokenPayload struct {
	UserID      int64     `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	IssuedAt    time.Time `json:"issued_at"`
}

// NewTokenManager constructs a TokenManager.
func NewTokenManager(client *redis.Client, signer *TokenSigner, cookieName string, ttl time.Duration, secure bool) *TokenManager {
	return &TokenManager{
		client:     client,
		signer:     signer,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
	}
}

// Issue creates a token for the identity and stores it with the manager TTL.
func (tm *TokenManager) Issue(ctx context.Context, id Identity) (string, error) {
	if tm == nil || tm.client == nil {
		return "", errors.New("token manager not initialised")
	}
	tokenID := uuid.NewString()
	payload, err := json.Marshal(tokenPayload{
		UserID:      id.UserID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		IssuedAt:    time.Now().UTC(),
	})
	if err != nil {
		return "", err
	}
	if err := tm.client.Set(ctx, tm.redisKey(tokenID), payload, tm.ttl).Err(); err != nil {
		return "", err
	}
	return tm.signer.Sign(tokenID), nil
}

// Resolve validates the wire token and loads the identity it names.
func (tm *TokenManager) Resolve(ctx context.Context, token string) (*Identity, error) {
	if tm == nil || tm.client == nil {
		return nil, errors.New("token manager not initialised")
	}
	tokenID, err := tm.signer.Verify(token)
	if err != nil {
		return nil, err
	}
	raw, err := tm.client.Get(ctx, tm.redisKey(tokenID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTokenExpired
		}
		return nil, err
	}
	var payload tokenPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, ErrTokenInvalid
	}
	return &Identity{UserID: payload.UserID, Email: payload.Email, DisplayName: payload.DisplayName}, nil
}

// Revoke deletes the token so subsequent resolves fail.
func (tm *TokenManager) Revoke(ctx context.Context, token string) error {
	if tm == nil || tm.client == nil {
		return errors.New("token manager not initialised")
	}
	tokenID, err := tm.signer.Verify(token)
	if err != nil {
		return err
	}
	if err := tm.client.Del(ctx, tm.redisKey(tokenID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// TTL exposes the configured token lifetime.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// TokenID verifies the wire token and returns its stable identifier.
func (tm *TokenManager) TokenID(token string) (string, error) {
	return tm.signer.Verify(token)
}

// FromRequest extracts the wire token from the Authorization header or the
// token cookie. Empty string when the request is anonymous.
func (tm *TokenManager) FromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	cookie, err := r.Cookie(tm.cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// WriteCookie mirrors the token into an HttpOnly cookie for browser clients.
func (tm *TokenManager) WriteCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     tm.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   tm.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(tm.ttl),
	})
}

// ClearCookie expires the token cookie.
func (tm *TokenManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     tm.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   tm.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (tm *TokenManager) redisKey(id string) string {
	return "token:" + id
}
