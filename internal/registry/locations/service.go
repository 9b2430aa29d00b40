package locations

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	regshared "github.com/firmlens/firmlens/internal/registry/shared"
	"github.com/firmlens/firmlens/internal/shared"
)

const defaultTopCount = 10

var codePattern = regexp.MustCompile(`^[A-Z0-9-]{2,16}$`)

// Service exposes location aggregate operations.
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

// Overview returns aggregates for every region and city.
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

// Get returns one location's aggregate and its top companies.
func (s *Service) Get(ctx context.Context, code string, year int) (DetailResponse, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !codePattern.MatchString(code) {
		return DetailResponse{}, fmt.Errorf("%w: location %q", regshared.ErrInvalidCode, code)
	}
	year, err := s.resolveYear(year)
	if err != nil {
		return DetailResponse{}, err
	}
	stats, err := s.repo.Aggregate(ctx, code, year)
	if err != nil {
		return DetailResponse{}, err
	}
	top, err := s.repo.TopCompanies(ctx, code, year, defaultTopCount)
	if err != nil {
		return DetailResponse{}, err
	}
	return DetailResponse{Year: year, Stats: stats, TopCompanies: top}, nil
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
