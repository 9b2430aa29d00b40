package persons

import (
	"context"
	"strings"

	regshared "github.com/firmlens/firmlens/internal/registry/shared"
	"github.com/firmlens/firmlens/internal/shared"
)

// Service exposes person read operations.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Search returns a filtered, paginated page of person summaries.
func (s *Service) Search(ctx context.Context, filters regshared.ListFilters) ([]Summary, shared.Pagination, error) {
	filters.Normalize()
	filters.Role = strings.ToUpper(strings.TrimSpace(filters.Role))
	if filters.MinWealth != nil && *filters.MinWealth < 0 {
		return nil, shared.Pagination{}, regshared.InvalidParam("min_wealth")
	}
	items, total, err := s.repo.Search(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(filters.Page, filters.Limit, total), nil
}

// Get returns the person profile with roles and shareholdings.
func (s *Service) Get(ctx context.Context, hash string) (Detail, error) {
	if err := regshared.ValidatePersonHash(hash); err != nil {
		return Detail{}, err
	}
	person, err := s.repo.GetByHash(ctx, hash)
	if err != nil {
		return Detail{}, err
	}
	roles, err := s.repo.Roles(ctx, hash)
	if err != nil {
		return Detail{}, err
	}
	holdings, err := s.repo.Shareholdings(ctx, hash)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Person: person, Roles: roles, Shareholdings: holdings}, nil
}
