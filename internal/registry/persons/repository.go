package persons

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	regshared "github.com/firmlens/firmlens/internal/registry/shared"
)

// Repository defines read access to registry persons.
type Repository interface {
	Search(ctx context.Context, filters regshared.ListFilters) ([]Summary, int, error)
	GetByHash(ctx context.Context, hash string) (Person, error)
	Roles(ctx context.Context, hash string) ([]Role, error)
	Shareholdings(ctx context.Context, hash string) ([]Shareholding, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const searchSelect = `
	SELECT p.hash, p.full_name, p.birth_year, p.wealth_total,
	       COALESCE(rc.role_count, 0)
	FROM persons p
	LEFT JOIN (
		SELECT person_hash, COUNT(*) AS role_count
		FROM person_roles
		WHERE resigned_at IS NULL
		GROUP BY person_hash
	) rc ON rc.person_hash = p.hash`

func buildSearchWhere(filters regshared.ListFilters) (string, []any) {
	where := " WHERE 1=1"
	args := []any{}
	arg := func() string { return "$" + strconv.Itoa(len(args)) }

	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND p.full_name ILIKE ` + arg()
	}
	if filters.Role != "" {
		args = append(args, filters.Role)
		where += ` AND EXISTS (
			SELECT 1 FROM person_roles r
			WHERE r.person_hash = p.hash AND r.role = ` + arg() + ` AND r.resigned_at IS NULL
		)`
	}
	if filters.MinWealth != nil {
		args = append(args, *filters.MinWealth)
		where += ` AND p.wealth_total >= ` + arg()
	}
	return where, args
}

func searchOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == regshared.SortDesc {
		dir = "DESC"
	}
	switch sortBy {
	case "wealth":
		return "p.wealth_total " + dir + " NULLS LAST"
	case "roles":
		return "COALESCE(rc.role_count, 0) " + dir
	default:
		return "p.full_name " + dir
	}
}

func (r *pgRepository) Search(ctx context.Context, filters regshared.ListFilters) ([]Summary, int, error) {
	where, args := buildSearchWhere(filters)

	countQuery := `SELECT COUNT(*) FROM persons p` + where
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("persons: count: %w", err)
	}

	query := searchSelect + where + " ORDER BY " + searchOrder(filters.SortBy, filters.SortDir)
	args = append(args, filters.Limit)
	query += " LIMIT $" + strconv.Itoa(len(args))
	args = append(args, filters.Offset())
	query += " OFFSET $" + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("persons: search: %w", err)
	}
	defer rows.Close()

	var items []Summary
	for rows.Next() {
		var item Summary
		var birthYear pgtype.Int4
		var wealth pgtype.Float8
		if err := rows.Scan(&item.Hash, &item.FullName, &birthYear, &wealth, &item.RoleCount); err != nil {
			return nil, 0, fmt.Errorf("persons: scan summary: %w", err)
		}
		item.BirthYear = intPtr(birthYear)
		item.WealthTotal = floatPtr(wealth)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *pgRepository) GetByHash(ctx context.Context, hash string) (Person, error) {
	const query = `
		SELECT hash, full_name, birth_year, wealth_total, wealth_cash,
		       created_at, updated_at
		FROM persons
		WHERE hash = $1`
	var p Person
	var birthYear pgtype.Int4
	var wealthTotal pgtype.Float8
	var wealthCash pgtype.Float8
	var createdAt pgtype.Timestamptz
	var updatedAt pgtype.Timestamptz
	err := r.pool.QueryRow(ctx, query, hash).Scan(
		&p.Hash, &p.FullName, &birthYear, &wealthTotal, &wealthCash,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Person{}, regshared.ErrNotFound
		}
		return Person{}, fmt.Errorf("persons: get %s: %w", hash, err)
	}
	p.BirthYear = intPtr(birthYear)
	p.WealthTotal = floatPtr(wealthTotal)
	p.WealthCash = floatPtr(wealthCash)
	if createdAt.Valid {
		p.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		p.UpdatedAt = updatedAt.Time
	}
	return p, nil
}

func (r *pgRepository) Roles(ctx context.Context, hash string) ([]Role, error) {
	const query = `
		SELECT r.regcode, c.name, r.role, r.appointed_at, r.resigned_at
		FROM person_roles r
		JOIN companies c ON c.regcode = r.regcode
		WHERE r.person_hash = $1
		ORDER BY r.appointed_at DESC`
	rows, err := r.pool.Query(ctx, query, hash)
	if err != nil {
		return nil, fmt.Errorf("persons: roles %s: %w", hash, err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var role Role
		var appointedAt pgtype.Date
		var resignedAt pgtype.Date
		if err := rows.Scan(&role.Regcode, &role.CompanyName, &role.Role, &appointedAt, &resignedAt); err != nil {
			return nil, fmt.Errorf("persons: scan role: %w", err)
		}
		if appointedAt.Valid {
			role.AppointedAt = appointedAt.Time
		}
		if resignedAt.Valid {
			t := resignedAt.Time
			role.ResignedAt = &t
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *pgRepository) Shareholdings(ctx context.Context, hash string) ([]Shareholding, error) {
	const query = `
		SELECT s.subject_regcode, c.name, s.share_percent, s.votes_percent, s.since
		FROM shareholdings s
		JOIN companies c ON c.regcode = s.subject_regcode
		WHERE s.holder_type = 'person' AND s.holder_id = $1
		ORDER BY s.share_percent DESC`
	rows, err := r.pool.Query(ctx, query, hash)
	if err != nil {
		return nil, fmt.Errorf("persons: shareholdings %s: %w", hash, err)
	}
	defer rows.Close()

	var holdings []Shareholding
	for rows.Next() {
		var holding Shareholding
		var votes pgtype.Float8
		var since pgtype.Date
		if err := rows.Scan(&holding.Regcode, &holding.CompanyName, &holding.SharePercent, &votes, &since); err != nil {
			return nil, fmt.Errorf("persons: scan shareholding: %w", err)
		}
		holding.VotesPercent = floatPtr(votes)
		if since.Valid {
			t := since.Time
			holding.Since = &t
		}
		holdings = append(holdings, holding)
	}
	return holdings, rows.Err()
}

func floatPtr(v pgtype.Float8) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func intPtr(v pgtype.Int4) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int32)
	return &n
}
