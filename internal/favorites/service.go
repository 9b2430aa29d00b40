package favorites

import (
	"context"
	"fmt"

	regshared "github.com/firmlens/firmlens/internal/registry/shared"
)

// Service validates and persists favorites.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the user's favorites, newest first.
func (s *Service) List(ctx context.Context, userID int64) ([]Favorite, error) {
	return s.repo.List(ctx, userID)
}

// Add bookmarks an entity after checking that the reference has the shape
// its type requires.
func (s *Service) Add(ctx context.Context, userID int64, req CreateRequest) (Favorite, error) {
	if err := validateRef(req.EntityType, req.EntityRef); err != nil {
		return Favorite{}, err
	}
	return s.repo.Insert(ctx, userID, req.EntityType, req.EntityRef)
}

// Remove deletes one favorite owned by the user.
func (s *Service) Remove(ctx context.Context, userID, id int64) error {
	return s.repo.Delete(ctx, userID, id)
}

func validateRef(entityType, ref string) error {
	switch entityType {
	case EntityCompany:
		return regshared.ValidateRegcode(ref)
	case EntityPerson:
		return regshared.ValidatePersonHash(ref)
	case EntityIndustry:
		return regshared.ValidateNACE(ref)
	default:
		return fmt.Errorf("%w: entity type %q", regshared.ErrValidation, entityType)
	}
}
