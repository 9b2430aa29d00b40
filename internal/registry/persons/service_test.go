package persons

import (
	"context"
	"errors"
	"testing"

	regshared "github.com/firmlens/firmlens/internal/registry/shared"

	_ "github.com/firmlens/firmlens/testing"
)

type stubRepo struct {
	persons     map[string]Person
	roles       map[string][]Role
	holdings    map[string][]Shareholding
	summaries   []Summary
	total       int
	lastFilters regshared.ListFilters
}

func (s *stubRepo) Search(_ context.Context, filters regshared.ListFilters) ([]Summary, int, error) {
	s.lastFilters = filters
	return s.summaries, s.total, nil
}

func (s *stubRepo) GetByHash(_ context.Context, hash string) (Person, error) {
	person, ok := s.persons[hash]
	if !ok {
		return Person{}, regshared.ErrNotFound
	}
	return person, nil
}

func (s *stubRepo) Roles(_ context.Context, hash string) ([]Role, error) {
	return s.roles[hash], nil
}

func (s *stubRepo) Shareholdings(_ context.Context, hash string) ([]Shareholding, error) {
	return s.holdings[hash], nil
}

const testHash = "a1b2c3d4e5f60718"

func TestSearchUppercasesRole(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	_, _, err := svc.Search(context.Background(), regshared.ListFilters{Role: " board_member "})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if repo.lastFilters.Role != "BOARD_MEMBER" {
		t.Fatalf("role = %q, want BOARD_MEMBER", repo.lastFilters.Role)
	}
}

func TestSearchRejectsNegativeWealth(t *testing.T) {
	svc := NewService(&stubRepo{})

	negative := -1.0
	_, _, err := svc.Search(context.Background(), regshared.ListFilters{MinWealth: &negative})
	if !errors.Is(err, regshared.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestGetAssemblesProfile(t *testing.T) {
	repo := &stubRepo{
		persons: map[string]Person{
			testHash: {Hash: testHash, FullName: "Janis Berzins"},
		},
		roles: map[string][]Role{
			testHash: {{Regcode: "40003000001", CompanyName: "Alpha", Role: "BOARD_MEMBER"}},
		},
		holdings: map[string][]Shareholding{
			testHash: {{Regcode: "40003000001", CompanyName: "Alpha", SharePercent: 50}},
		},
	}
	svc := NewService(repo)

	detail, err := svc.Get(context.Background(), testHash)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if detail.FullName != "Janis Berzins" {
		t.Fatalf("full name = %q", detail.FullName)
	}
	if len(detail.Roles) != 1 || len(detail.Shareholdings) != 1 {
		t.Fatalf("roles = %d, holdings = %d", len(detail.Roles), len(detail.Shareholdings))
	}
}

func TestGetRejectsMalformedHash(t *testing.T) {
	svc := NewService(&stubRepo{})

	_, err := svc.Get(context.Background(), "JANIS-BERZINS")
	if !errors.Is(err, regshared.ErrInvalidCode) {
		t.Fatalf("err = %v, want ErrInvalidCode", err)
	}
}

func TestGetUnknownHash(t *testing.T) {
	svc := NewService(&stubRepo{})

	_, err := svc.Get(context.Background(), testHash)
	if !errors.Is(err, regshared.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
