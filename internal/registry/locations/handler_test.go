package locations

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	_ "github.com/firmlens/firmlens/testing"
)

func newTestRouter(repo *stubRepo) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo)
	svc.WithNow(augustClock())
	h := NewHandler(logger, svc)
	r := chi.NewRouter()
	r.Route("/api/locations", h.MountRoutes)
	return r
}

func TestLocationOverviewEndpoint(t *testing.T) {
	repo := &stubRepo{
		overview: []Aggregate{
			{Code: "RIGA", Name: "Riga", Kind: KindCity, CompanyCount: 4200},
			{Code: "LV-VI", Name: "Vidzeme", Kind: KindRegion, CompanyCount: 800},
		},
	}
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/locations/overview", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp OverviewResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 2 || resp.Items[0].Code != "RIGA" {
		t.Fatalf("items = %+v", resp.Items)
	}
}

func TestLocationDetailEndpoint(t *testing.T) {
	repo := &stubRepo{
		aggregates: map[string]Aggregate{"RIGA": {Code: "RIGA", Name: "Riga", Kind: KindCity}},
		top:        []TopCompany{{Regcode: "40003000001", Name: "Alpha", NACECode: "62.01"}},
	}
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/locations/riga", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp DetailResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Stats.Code != "RIGA" || len(resp.TopCompanies) != 1 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestLocationDetailNotFound(t *testing.T) {
	router := newTestRouter(&stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/locations/LV-XX", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
