package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository exposes the dashboard aggregate queries.
type Repository interface {
	CountByStatus(ctx context.Context) ([]StatusCount, error)
	MonthlyRegistrations(ctx context.Context, since time.Time) ([]MonthlyRegistrations, error)
	TopIndustries(ctx context.Context, year, limit int) ([]TopIndustry, error)
	TopRegions(ctx context.Context, year, limit int) ([]TopRegion, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	const query = `SELECT status, COUNT(*) FROM companies GROUP BY status ORDER BY status`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("analytics: count by status: %w", err)
	}
	defer rows.Close()

	var counts []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("analytics: scan status count: %w", err)
		}
		counts = append(counts, sc)
	}
	return counts, rows.Err()
}

func (r *pgRepository) MonthlyRegistrations(ctx context.Context, since time.Time) ([]MonthlyRegistrations, error) {
	const query = `
		SELECT to_char(date_trunc('month', registered_at), 'YYYY-MM') AS month, COUNT(*)
		FROM companies
		WHERE registered_at >= $1
		GROUP BY 1
		ORDER BY 1`
	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("analytics: monthly registrations: %w", err)
	}
	defer rows.Close()

	var months []MonthlyRegistrations
	for rows.Next() {
		var mr MonthlyRegistrations
		if err := rows.Scan(&mr.Month, &mr.Count); err != nil {
			return nil, fmt.Errorf("analytics: scan registrations: %w", err)
		}
		months = append(months, mr)
	}
	return months, rows.Err()
}

func (r *pgRepository) TopIndustries(ctx context.Context, year, limit int) ([]TopIndustry, error) {
	const query = `
		SELECT LEFT(c.nace_code, 2), COALESCE(i.label, ''), SUM(f.turnover)
		FROM companies c
		JOIN company_financials f ON f.regcode = c.regcode AND f.year = $1
		LEFT JOIN industries i ON i.nace_code = LEFT(c.nace_code, 2)
		WHERE c.nace_code <> ''
		GROUP BY 1, 2
		ORDER BY SUM(f.turnover) DESC NULLS LAST
		LIMIT $2`
	rows, err := r.pool.Query(ctx, query, year, limit)
	if err != nil {
		return nil, fmt.Errorf("analytics: top industries: %w", err)
	}
	defer rows.Close()

	var industries []TopIndustry
	for rows.Next() {
		var ti TopIndustry
		var turnover pgtype.Float8
		if err := rows.Scan(&ti.NACECode, &ti.Label, &turnover); err != nil {
			return nil, fmt.Errorf("analytics: scan top industry: %w", err)
		}
		ti.Turnover = floatPtr(turnover)
		industries = append(industries, ti)
	}
	return industries, rows.Err()
}

func (r *pgRepository) TopRegions(ctx context.Context, year, limit int) ([]TopRegion, error) {
	const query = `
		SELECT c.region_code, COALESCE(l.name, ''), SUM(f.turnover)
		FROM companies c
		JOIN company_financials f ON f.regcode = c.regcode AND f.year = $1
		LEFT JOIN locations l ON l.code = c.region_code
		WHERE c.region_code <> ''
		GROUP BY 1, 2
		ORDER BY SUM(f.turnover) DESC NULLS LAST
		LIMIT $2`
	rows, err := r.pool.Query(ctx, query, year, limit)
	if err != nil {
		return nil, fmt.Errorf("analytics: top regions: %w", err)
	}
	defer rows.Close()

	var regions []TopRegion
	for rows.Next() {
		var tr TopRegion
		var turnover pgtype.Float8
		if err := rows.Scan(&tr.Code, &tr.Name, &turnover); err != nil {
			return nil, fmt.Errorf("analytics: scan top region: %w", err)
		}
		tr.Turnover = floatPtr(turnover)
		regions = append(regions, tr)
	}
	return regions, rows.Err()
}

func floatPtr(v pgtype.Float8) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
