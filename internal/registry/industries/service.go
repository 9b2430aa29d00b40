package industries

import (
	"context"
	"fmt"
	"time"

	regshared "github.com/firmlens/firmlens/internal/registry/shared"
	"github.com/firmlens/firmlens/internal/shared"
)

const defaultLeaderCount = 10

// Service exposes industry aggregate operations.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	s.now = now
}

// Overview returns per-division aggregates for the requested year, or the
// default reference year when year is zero.
func (s *Service) Overview(ctx context.Context, year int) (OverviewResponse, error) {
	year, err := s.resolveYear(year)
	if err != nil {
		return OverviewResponse{}, err
	}
	items, err := s.repo.Overview(ctx, year)
	if err != nil {
		return OverviewResponse{}, err
	}
	return OverviewResponse{Year: year, Items: items}, nil
}

// Get returns one division's aggregate and its top companies.
func (s *Service) Get(ctx context.Context, nace string, year int) (DetailResponse, error) {
	if err := validateDivision(nace); err != nil {
		return DetailResponse{}, err
	}
	year, err := s.resolveYear(year)
	if err != nil {
		return DetailResponse{}, err
	}
	stats, err := s.repo.Aggregate(ctx, nace, year)
	if err != nil {
		return DetailResponse{}, err
	}
	leaders, err := s.repo.Leaders(ctx, nace, year, defaultLeaderCount)
	if err != nil {
		return DetailResponse{}, err
	}
	return DetailResponse{Year: year, Stats: stats, Leaders: leaders}, nil
}

func (s *Service) resolveYear(year int) (int, error) {
	if year == 0 {
		return shared.ReferenceYear(s.now()), nil
	}
	if err := shared.ValidateYear(year, s.now()); err != nil {
		return 0, fmt.Errorf("%w: year %d", regshared.ErrValidation, year)
	}
	return year, nil
}

// Industry pages aggregate at the two-digit NACE division level.
func validateDivision(nace string) error {
	if err := regshared.ValidateNACE(nace); err != nil {
		return err
	}
	if len(nace) != 2 {
		return fmt.Errorf("%w: nace %q is not a division", regshared.ErrInvalidCode, nace)
	}
	return nil
}
