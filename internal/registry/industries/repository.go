package industries

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	regshared "github.com/firmlens/firmlens/internal/registry/shared"
)

// Repository defines read access to industry aggregates.
type Repository interface {
	Overview(ctx context.Context, year int) ([]Aggregate, error)
	Aggregate(ctx context.Context, nace string, year int) (Aggregate, error)
	Leaders(ctx context.Context, nace string, year, limit int) ([]Leader, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

// Companies carry full NACE codes ("62.01"); industries are keyed by the
// two-digit division. FILTER splits one scan into the reference year and
// the year before for the growth figure.
const aggregateSelect = `
	SELECT i.nace_code, i.label,
	       COUNT(DISTINCT c.regcode) FILTER (WHERE c.status = 'ACTIVE'),
	       SUM(f.turnover) FILTER (WHERE f.year = $1),
	       PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY f.turnover) FILTER (WHERE f.year = $1),
	       SUM(f.employees) FILTER (WHERE f.year = $1),
	       SUM(f.turnover) FILTER (WHERE f.year = $1 - 1)
	FROM industries i
	LEFT JOIN companies c ON LEFT(c.nace_code, 2) = i.nace_code
	LEFT JOIN company_financials f ON f.regcode = c.regcode AND f.year IN ($1, $1 - 1)`

func (r *pgRepository) Overview(ctx context.Context, year int) ([]Aggregate, error) {
	query := aggregateSelect + `
	GROUP BY i.nace_code, i.label
	ORDER BY SUM(f.turnover) FILTER (WHERE f.year = $1) DESC NULLS LAST, i.nace_code`
	rows, err := r.pool.Query(ctx, query, year)
	if err != nil {
		return nil, fmt.Errorf("industries: overview: %w", err)
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

func (r *pgRepository) Aggregate(ctx context.Context, nace string, year int) (Aggregate, error) {
	query := aggregateSelect + `
	WHERE i.nace_code = $2
	GROUP BY i.nace_code, i.label`
	rows, err := r.pool.Query(ctx, query, year, nace)
	if err != nil {
		return Aggregate{}, fmt.Errorf("industries: aggregate %s: %w", nace, err)
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

func (r *pgRepository) Leaders(ctx context.Context, nace string, year, limit int) ([]Leader, error) {
	const query = `
		SELECT c.regcode, c.name, f.turnover, f.employees
		FROM companies c
		LEFT JOIN company_financials f ON f.regcode = c.regcode AND f.year = $2
		WHERE LEFT(c.nace_code, 2) = $1 AND c.status = 'ACTIVE'
		ORDER BY f.turnover DESC NULLS LAST, c.regcode
		LIMIT $3`
	rows, err := r.pool.Query(ctx, query, nace, year, limit)
	if err != nil {
		return nil, fmt.Errorf("industries: leaders %s: %w", nace, err)
	}
	defer rows.Close()

	var leaders []Leader
	for rows.Next() {
		var leader Leader
		var turnover pgtype.Float8
		var employees pgtype.Float8
		if err := rows.Scan(&leader.Regcode, &leader.Name, &turnover, &employees); err != nil {
			return nil, fmt.Errorf("industries: scan leader: %w", err)
		}
		leader.Turnover = floatPtr(turnover)
		leader.Employees = floatPtr(employees)
		leaders = append(leaders, leader)
	}
	return leaders, rows.Err()
}

func scanAggregate(rows pgx.Rows) (Aggregate, error) {
	var agg Aggregate
	var total pgtype.Float8
	var median pgtype.Float8
	var employees pgtype.Float8
	var previous pgtype.Float8
	if err := rows.Scan(&agg.NACECode, &agg.Label, &agg.CompanyCount, &total, &median, &employees, &previous); err != nil {
		return Aggregate{}, fmt.Errorf("industries: scan aggregate: %w", err)
	}
	agg.TotalTurnover = floatPtr(total)
	agg.MedianTurnover = floatPtr(median)
	agg.Employees = floatPtr(employees)
	agg.TurnoverGrowth = growth(total, previous)
	return agg, nil
}

// growth is the year-over-year turnover change in percent. Nil when either
// year is missing or the base year is zero.
func growth(current, previous pgtype.Float8) *float64 {
	if !current.Valid || !previous.Valid || previous.Float64 == 0 {
		return nil
	}
	g := (current.Float64 - previous.Float64) / previous.Float64 * 100
	return &g
}

func floatPtr(v pgtype.Float8) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
