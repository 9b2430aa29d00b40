package analytics

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/firmlens/firmlens/internal/shared"
)

const topCount = 10

// Registrations are charted over a trailing 12 month window.
const registrationsTrailing = 12

// Service assembles the dashboard overview with cache-aware lookups.
type Service struct {
	repo  Repository
	cache *Cache
	now   func() time.Time
}

// NewService wires a Repository with a Cache helper.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	s.now = now
}

// GetOverview returns the dashboard overview for the current reference
// year, loading all sections in parallel on a cache miss.
func (s *Service) GetOverview(ctx context.Context) (Overview, error) {
	now := s.now()
	year := shared.ReferenceYear(now)

	loader := func(ctx context.Context) (any, error) {
		return s.loadOverview(ctx, year, now)
	}

	key, err := s.cache.BuildKey(ctx, keyOverview(year))
	if err != nil {
		return Overview{}, err
	}
	var overview Overview
	if err := s.cache.FetchJSON(ctx, key, &overview, loader); err != nil {
		return Overview{}, err
	}
	return overview, nil
}

// Invalidate bumps the cache version so the next read recomputes.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) loadOverview(ctx context.Context, year int, now time.Time) (Overview, error) {
	windowStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, -(registrationsTrailing - 1), 0)

	overview := Overview{Year: year, GeneratedAt: now.UTC()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := s.repo.CountByStatus(ctx)
		if err != nil {
			return err
		}
		overview.StatusCounts = counts
		return nil
	})
	g.Go(func() error {
		months, err := s.repo.MonthlyRegistrations(ctx, windowStart)
		if err != nil {
			return err
		}
		overview.Registrations = months
		return nil
	})
	g.Go(func() error {
		industries, err := s.repo.TopIndustries(ctx, year, topCount)
		if err != nil {
			return err
		}
		overview.TopIndustries = industries
		return nil
	})
	g.Go(func() error {
		regions, err := s.repo.TopRegions(ctx, year, topCount)
		if err != nil {
			return err
		}
		overview.TopRegions = regions
		return nil
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return overview, nil
}
