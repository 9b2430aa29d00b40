package favorites

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firmlens/firmlens/internal/platform/httpx"
)

// Repository persists favorites.
type Repository interface {
	List(ctx context.Context, userID int64) ([]Favorite, error)
	Insert(ctx context.Context, userID int64, entityType, entityRef string) (Favorite, error)
	Delete(ctx context.Context, userID, id int64) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

// labelJoin resolves the display name of the referenced entity; the raw ref
// stands in when the entity has since disappeared from the register.
const labelJoin = `
	LEFT JOIN companies c ON f.entity_type = 'company' AND c.regcode = f.entity_ref
	LEFT JOIN persons p ON f.entity_type = 'person' AND p.hash = f.entity_ref
	LEFT JOIN industries i ON f.entity_type = 'industry' AND i.nace_code = f.entity_ref`

func (r *pgRepository) List(ctx context.Context, userID int64) ([]Favorite, error) {
	query := `
	SELECT f.id, f.entity_type, f.entity_ref,
	       COALESCE(c.name, p.full_name, i.label, f.entity_ref),
	       f.created_at
	FROM favorites f` + labelJoin + `
	WHERE f.user_id = $1
	ORDER BY f.created_at DESC, f.id DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("favorites: list: %w", err)
	}
	defer rows.Close()

	var items []Favorite
	for rows.Next() {
		fav := Favorite{UserID: userID}
		if err := rows.Scan(&fav.ID, &fav.EntityType, &fav.EntityRef, &fav.Label, &fav.CreatedAt); err != nil {
			return nil, fmt.Errorf("favorites: scan: %w", err)
		}
		items = append(items, fav)
	}
	return items, rows.Err()
}

func (r *pgRepository) Insert(ctx context.Context, userID int64, entityType, entityRef string) (Favorite, error) {
	fav := Favorite{UserID: userID, EntityType: entityType, EntityRef: entityRef}
	err := r.pool.QueryRow(ctx, `
	INSERT INTO favorites (user_id, entity_type, entity_ref)
	VALUES ($1, $2, $3)
	RETURNING id, created_at`, userID, entityType, entityRef).Scan(&fav.ID, &fav.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Favorite{}, fmt.Errorf("favorites: %s %s: %w", entityType, entityRef, httpx.ErrDuplicate)
		}
		return Favorite{}, fmt.Errorf("favorites: insert: %w", err)
	}

	if err := r.pool.QueryRow(ctx, `
	SELECT COALESCE(c.name, p.full_name, i.label, f.entity_ref)
	FROM favorites f`+labelJoin+`
	WHERE f.id = $1`, fav.ID).Scan(&fav.Label); err != nil {
		fav.Label = entityRef
	}
	return fav, nil
}

func (r *pgRepository) Delete(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM favorites WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("favorites: delete %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("favorites: %d: %w", id, httpx.ErrNotFound)
	}
	return nil
}
