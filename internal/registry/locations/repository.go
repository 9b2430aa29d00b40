package locations

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	regshared "github.com/firmlens/firmlens/internal/registry/shared"
)

// Repository defines read access to location aggregates.
type Repository interface {
	Overview(ctx context.Context, year int) ([]Aggregate, error)
	Aggregate(ctx context.Context, code string, year int) (Aggregate, error)
	TopCompanies(ctx context.Context, code string, year, limit int) ([]TopCompany, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

// Regions match companies by region code, cities by name. Both live in one
// classifier table keyed by code.
const companyJoin = `
	LEFT JOIN companies c
	       ON (l.kind = 'REGION' AND c.region_code = l.code)
	       OR (l.kind = 'CITY' AND c.city = l.name)`

const aggregateSelect = `
	SELECT l.code, l.name, l.kind,
	       COUNT(DISTINCT c.regcode) FILTER (WHERE c.status = 'ACTIVE'),
	       SUM(f.turnover) FILTER (WHERE f.year = $1),
	       SUM(f.employees) FILTER (WHERE f.year = $1)
	FROM locations l` + companyJoin + `
	LEFT JOIN company_financials f ON f.regcode = c.regcode AND f.year = $1`

func (r *pgRepository) Overview(ctx context.Context, year int) ([]Aggregate, error) {
	query := aggregateSelect + `
	GROUP BY l.code, l.name, l.kind
	ORDER BY COUNT(DISTINCT c.regcode) FILTER (WHERE c.status = 'ACTIVE') DESC, l.code`
	rows, err := r.pool.Query(ctx, query, year)
	if err != nil {
		return nil, fmt.Errorf("locations: overview: %w", err)
	}
	defer rows.Close()

	var items []Aggregate
	for rows.Next() {
		agg, err := scanAggregate(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, agg)
	}
	return items, rows.Err()
}

func (r *pgRepository) Aggregate(ctx context.Context, code string, year int) (Aggregate, error) {
	query := aggregateSelect + `
	WHERE l.code = $2
	GROUP BY l.code, l.name, l.kind`
	rows, err := r.pool.Query(ctx, query, year, code)
	if err != nil {
		return Aggregate{}, fmt.Errorf("locations: aggregate %s: %w", code, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Aggregate{}, err
		}
		return Aggregate{}, regshared.ErrNotFound
	}
	return scanAggregate(rows)
}

func (r *pgRepository) TopCompanies(ctx context.Context, code string, year, limit int) ([]TopCompany, error) {
	query := `
	SELECT c.regcode, c.name, c.nace_code, f.turnover
	FROM locations l` + companyJoin + `
	LEFT JOIN company_financials f ON f.regcode = c.regcode AND f.year = $2
	WHERE l.code = $1 AND c.status = 'ACTIVE'
	ORDER BY f.turnover DESC NULLS LAST, c.regcode
	LIMIT $3`
	rows, err := r.pool.Query(ctx, query, code, year, limit)
	if err != nil {
		return nil, fmt.Errorf("locations: top companies %s: %w", code, err)
	}
	defer rows.Close()

	var companies []TopCompany
	for rows.Next() {
		var tc TopCompany
		var turnover pgtype.Float8
		if err := rows.Scan(&tc.Regcode, &tc.Name, &tc.NACECode, &turnover); err != nil {
			return nil, fmt.Errorf("locations: scan top company: %w", err)
		}
		tc.Turnover = floatPtr(turnover)
		companies = append(companies, tc)
	}
	return companies, rows.Err()
}

func scanAggregate(rows pgx.Rows) (Aggregate, error) {
	var agg Aggregate
	var turnover pgtype.Float8
	var employees pgtype.Float8
	if err := rows.Scan(&agg.Code, &agg.Name, &agg.Kind, &agg.CompanyCount, &turnover, &employees); err != nil {
		return Aggregate{}, fmt.Errorf("locations: scan aggregate: %w", err)
	}
	agg.TotalTurnover = floatPtr(turnover)
	agg.Employees = floatPtr(employees)
	return agg, nil
}

func floatPtr(v pgtype.Float8) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
