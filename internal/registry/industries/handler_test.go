package industries

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	_ "github.com/firmlens/firmlens/testing"
)

func newTestRouter(repo *stubRepo) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo)
	svc.WithNow(func() time.Time { return time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC) })
	h := NewHandler(logger, svc)
	r := chi.NewRouter()
	r.Route("/api/industries", h.MountRoutes)
	return r
}

func TestOverviewEndpoint(t *testing.T) {
	repo := &stubRepo{
		overview: []Aggregate{{NACECode: "62", Label: "Computer programming", CompanyCount: 120}},
	}
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/industries/overview", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp OverviewResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Year != 2025 {
		t.Fatalf("year = %d, want 2025", resp.Year)
	}
	if len(resp.Items) != 1 || resp.Items[0].NACECode != "62" {
		t.Fatalf("items = %+v", resp.Items)
	}
}

func TestOverviewEndpointMalformedYear(t *testing.T) {
	router := newTestRouter(&stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/industries/overview?year=MMXXIV", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestDetailEndpoint(t *testing.T) {
	repo := &stubRepo{
		aggregates: map[string]Aggregate{"62": {NACECode: "62", Label: "Computer programming"}},
		leaders:    []Leader{{Regcode: "40003000001", Name: "Alpha"}},
	}
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/industries/62?year=2024", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp DetailResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Stats.NACECode != "62" || len(resp.Leaders) != 1 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestDetailEndpointUnknownDivision(t *testing.T) {
	router := newTestRouter(&stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/industries/43", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
