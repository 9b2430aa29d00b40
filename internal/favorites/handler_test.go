package favorites

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/firmlens/firmlens/internal/platform/httpx"
	"github.com/firmlens/firmlens/internal/shared"
	_ "github.com/firmlens/firmlens/testing"
)

type stubService struct {
	items  []Favorite
	addErr error
	delErr error
}

func (s *stubService) List(ctx context.Context, userID int64) ([]Favorite, error) {
	return s.items, nil
}

func (s *stubService) Add(ctx context.Context, userID int64, req CreateRequest) (Favorite, error) {
	if s.addErr != nil {
		return Favorite{}, s.addErr
	}
	return Favorite{ID: 1, UserID: userID, EntityType: req.EntityType, EntityRef: req.EntityRef, Label: "SIA Paraugs", CreatedAt: time.Now()}, nil
}

func (s *stubService) Remove(ctx context.Context, userID, id int64) error {
	return s.delErr
}

func newTestRouter(svc FavoriteService, identity *shared.Identity) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, svc)
	r := chi.NewRouter()
	if identity != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(shared.ContextWithIdentity(req.Context(), identity)))
			})
		})
	}
	r.Route("/api/favorites", h.MountRoutes)
	return r
}

func analyst() *shared.Identity {
	return &shared.Identity{UserID: 7, Email: "analyst@example.com"}
}

func TestListFavorites(t *testing.T) {
	svc := &stubService{items: []Favorite{
		{ID: 2, EntityType: EntityCompany, EntityRef: "40003000001", Label: "SIA Paraugs"},
		{ID: 1, EntityType: EntityIndustry, EntityRef: "62", Label: "Datorprogrammēšana"},
	}}
	router := newTestRouter(svc, analyst())

	req := httptest.NewRequest(http.MethodGet, "/api/favorites", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp ListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 2 || resp.Items[0].Label != "SIA Paraugs" {
		t.Fatalf("items = %+v", resp.Items)
	}
}

func TestListFavoritesEmptyIsArray(t *testing.T) {
	router := newTestRouter(&stubService{}, analyst())

	req := httptest.NewRequest(http.MethodGet, "/api/favorites", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), `"items":[]`) {
		t.Fatalf("expected empty array, body = %s", rec.Body.String())
	}
}

func TestCreateFavorite(t *testing.T) {
	router := newTestRouter(&stubService{}, analyst())

	body := strings.NewReader(`{"entity_type":"company","entity_ref":"40003000001"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/favorites", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var fav Favorite
	if err := json.NewDecoder(rec.Body).Decode(&fav); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fav.ID != 1 || fav.Label != "SIA Paraugs" {
		t.Fatalf("favorite = %+v", fav)
	}
}

func TestCreateFavoriteDuplicate(t *testing.T) {
	svc := &stubService{addErr: fmt.Errorf("favorites: company 40003000001: %w", httpx.ErrDuplicate)}
	router := newTestRouter(svc, analyst())

	body := strings.NewReader(`{"entity_type":"company","entity_ref":"40003000001"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/favorites", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var problem httpx.ProblemDetail
	if err := json.NewDecoder(rec.Body).Decode(&problem); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if problem.Status != http.StatusConflict || problem.Title != "Duplicate" {
		t.Fatalf("problem = %+v", problem)
	}
}

func TestCreateFavoriteRejectsUnknownType(t *testing.T) {
	router := newTestRouter(&stubService{}, analyst())

	body := strings.NewReader(`{"entity_type":"report","entity_ref":"40003000001"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/favorites", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestDeleteFavorite(t *testing.T) {
	router := newTestRouter(&stubService{}, analyst())

	req := httptest.NewRequest(http.MethodDelete, "/api/favorites/3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}

func TestDeleteFavoriteNotFound(t *testing.T) {
	svc := &stubService{delErr: fmt.Errorf("favorites: 3: %w", httpx.ErrNotFound)}
	router := newTestRouter(svc, analyst())

	req := httptest.NewRequest(http.MethodDelete, "/api/favorites/3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestFavoritesRequireIdentity(t *testing.T) {
	router := newTestRouter(&stubService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/favorites", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
