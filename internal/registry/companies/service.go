package companies

import (
	"context"
	"fmt"

	regshared "github.com/firmlens/firmlens/internal/registry/shared"
	"github.com/firmlens/firmlens/internal/shared"
)

const (
	compareMin = 2
	compareMax = 5
)

// Service exposes company read operations.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns a filtered, paginated page of company summaries.
func (s *Service) List(ctx context.Context, filters regshared.ListFilters) ([]Summary, shared.Pagination, error) {
	filters.Normalize()
	if filters.NACECode != "" {
		if err := regshared.ValidateNACE(filters.NACECode); err != nil {
			return nil, shared.Pagination{}, err
		}
	}
	items, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(filters.Page, filters.Limit, total), nil
}

// Get returns the company detail with risks and the latest reported year.
func (s *Service) Get(ctx context.Context, regcode string) (Detail, error) {
	if err := regshared.ValidateRegcode(regcode); err != nil {
		return Detail{}, err
	}
	company, err := s.repo.GetByRegcode(ctx, regcode)
	if err != nil {
		return Detail{}, err
	}
	detail := Detail{Company: company}

	financials, err := s.repo.Financials(ctx, regcode)
	if err != nil {
		return Detail{}, err
	}
	if len(financials) > 0 {
		latest := financials[0]
		detail.LatestFinancials = &latest
	}

	risks, err := s.repo.Risks(ctx, regcode)
	if err != nil {
		return Detail{}, err
	}
	detail.Risks = risks
	return detail, nil
}

// FinancialHistory returns all reported years for a company, newest first.
func (s *Service) FinancialHistory(ctx context.Context, regcode string) ([]Financials, error) {
	if err := regshared.ValidateRegcode(regcode); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByRegcode(ctx, regcode); err != nil {
		return nil, err
	}
	return s.repo.Financials(ctx, regcode)
}

// Compare resolves 2 to 5 companies and returns them in request order.
// Unknown regcodes are dropped; when none resolve the compare is a not-found.
func (s *Service) Compare(ctx context.Context, regcodes []string) ([]Summary, error) {
	unique := make([]string, 0, len(regcodes))
	seen := make(map[string]struct{}, len(regcodes))
	for _, rc := range regcodes {
		if err := regshared.ValidateRegcode(rc); err != nil {
			return nil, err
		}
		if _, dup := seen[rc]; dup {
			continue
		}
		seen[rc] = struct{}{}
		unique = append(unique, rc)
	}
	if len(unique) < compareMin || len(unique) > compareMax {
		return nil, fmt.Errorf("%w: got %d", regshared.ErrCompareRange, len(unique))
	}

	found, err := s.repo.ListByRegcodes(ctx, unique)
	if err != nil {
		return nil, err
	}
	byRegcode := make(map[string]Summary, len(found))
	for _, item := range found {
		byRegcode[item.Regcode] = item
	}

	ordered := make([]Summary, 0, len(unique))
	for _, rc := range unique {
		if item, ok := byRegcode[rc]; ok {
			ordered = append(ordered, item)
		}
	}
	if len(ordered) == 0 {
		return nil, fmt.Errorf("compare: %w", regshared.ErrNotFound)
	}
	return ordered, nil
}
