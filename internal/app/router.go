package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	analytichttp "github.com/firmlens/firmlens/internal/analytics/http"
	"github.com/firmlens/firmlens/internal/auth"
	"github.com/firmlens/firmlens/internal/favorites"
	mvkhttp "github.com/firmlens/firmlens/internal/mvk/http"
	"github.com/firmlens/firmlens/internal/observability"
	"github.com/firmlens/firmlens/internal/registry/companies"
	"github.com/firmlens/firmlens/internal/registry/industries"
	"github.com/firmlens/firmlens/internal/registry/locations"
	"github.com/firmlens/firmlens/internal/registry/persons"
	"github.com/firmlens/firmlens/internal/shared"
	"github.com/firmlens/firmlens/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	TokenManager       *shared.TokenManager
	AuthHandler        *auth.Handler
	CompaniesHandler   *companies.Handler
	PersonsHandler     *persons.Handler
	IndustriesHandler  *industries.Handler
	LocationsHandler   *locations.Handler
	AnalyticsHandler   *analytichttp.Handler
	DeclarationHandler *mvkhttp.Handler
	FavoritesHandler   *favorites.Handler
	JobHandler         *jobs.Handler
	Pool               *pgxpool.Pool
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with the default middleware chain and
// the full API surface.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:       params.Logger,
		Config:       params.Config,
		TokenManager: params.TokenManager,
		Metrics:      params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", params.AuthHandler.MountRoutes)

		if params.CompaniesHandler != nil {
			api.Route("/companies", params.CompaniesHandler.MountRoutes)
		}
		if params.IndustriesHandler != nil {
			api.Route("/industries", params.IndustriesHandler.MountRoutes)
		}
		if params.LocationsHandler != nil {
			api.Route("/locations", params.LocationsHandler.MountRoutes)
		}

		api.Route("/analytics", func(ar chi.Router) {
			if params.AnalyticsHandler != nil {
				params.AnalyticsHandler.MountRoutes(ar)
			}
			if params.PersonsHandler != nil {
				ar.Route("/people", params.PersonsHandler.MountRoutes)
			}
		})

		if params.DeclarationHandler != nil {
			api.Route("/mvk-declaration", params.DeclarationHandler.MountRoutes)
		}

		if params.FavoritesHandler != nil {
			api.Group(func(pr chi.Router) {
				pr.Use(RequireIdentity)
				pr.Route("/favorites", params.FavoritesHandler.MountRoutes)
			})
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
