package companies

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

// Repository defines read access to the company register.
type Repository interface {
	List(ctx context.Context, filters regshared.ListFilters) ([]Summary, int, error)
	ListByRegcodes(ctx context.Context, regcodes []string) ([]Summary, error)
	GetByRegcode(ctx context.Context, regcode string) (Company, error)
	Financials(ctx context.Context, regcode string) ([]Financials, error)
	Risks(ctx context.Context, regcode string) ([]RiskFlag, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const summarySelect = `
	SELECT c.regcode, c.name, c.status, c.nace_code, c.region_code, c.city,
	       f.employees, f.turnover, f.profit,
	       COALESCE(r.risk_count, 0)
	FROM companies c
	LEFT JOIN LATERAL (
		SELECT employees, turnover, profit
		FROM company_financials
		WHERE regcode = c.regcode
		ORDER BY year DESC
		LIMIT 1
	) f ON true
	LEFT JOIN (
		SELECT regcode, COUNT(*) AS risk_count
		FROM company_risks
		GROUP BY regcode
	) r ON r.regcode = c.regcode`

func buildListWhere(filters regshared.ListFilters) (string, []any) {
	where := " WHERE 1=1"
	args := []any{}
	arg := func() string { return "$" + strconv.Itoa(len(args)) }

	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND (c.name ILIKE ` + arg() + ` OR c.regcode ILIKE ` + arg() + `)`
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += ` AND c.status = ` + arg()
	}
	if filters.NACECode != "" {
		args = append(args, filters.NACECode+"%")
		where += ` AND c.nace_code LIKE ` + arg()
	}
	if filters.RegionCode != "" {
		args = append(args, filters.RegionCode)
		where += ` AND c.region_code = ` + arg()
	}
	if filters.City != "" {
		args = append(args, filters.City)
		where += ` AND c.city ILIKE ` + arg()
	}
	if filters.RiskOnly {
		where += ` AND COALESCE(r.risk_count, 0) > 0`
	}
	return where, args
}

func (r *pgRepository) List(ctx context.Context, filters regshared.ListFilters) ([]Summary, int, error) {
	where, args := buildListWhere(filters)

	countQuery := `
		SELECT COUNT(*) FROM companies c
		LEFT JOIN (
			SELECT regcode, COUNT(*) AS risk_count
			FROM company_risks
			GROUP BY regcode
		) r ON r.regcode = c.regcode` + where
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("companies: count: %w", err)
	}

	query := summarySelect + where + " ORDER BY " + sortOrder(filters.SortBy, filters.SortDir)
	args = append(args, filters.Limit)
	query += " LIMIT $" + strconv.Itoa(len(args))
	args = append(args, filters.Offset())
	query += " OFFSET $" + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("companies: list: %w", err)
	}
	defer rows.Close()

	items, err := scanSummaries(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *pgRepository) ListByRegcodes(ctx context.Context, regcodes []string) ([]Summary, error) {
	query := summarySelect + ` WHERE c.regcode = ANY($1)`
	rows, err := r.pool.Query(ctx, query, regcodes)
	if err != nil {
		return nil, fmt.Errorf("companies: list by regcodes: %w", err)
	}
	defer rows.Close()
	return scanSummaries(rows)
}

func (r *pgRepository) GetByRegcode(ctx context.Context, regcode string) (Company, error) {
	const query = `
		SELECT regcode, name, legal_form, status, vat_number, nace_code,
		       region_code, city, address, registered_at, terminated_at,
		       created_at, updated_at
		FROM companies
		WHERE regcode = $1`
	var (
		c            Company
		vat          pgtype.Text
		registeredAt pgtype.Date
		terminatedAt pgtype.Date
		createdAt    pgtype.Timestamptz
		updatedAt    pgtype.Timestamptz
	)
	err := r.pool.QueryRow(ctx, query, regcode).Scan(
		&c.Regcode, &c.Name, &c.LegalForm, &c.Status, &vat, &c.NACECode,
		&c.RegionCode, &c.City, &c.Address, &registeredAt, &terminatedAt,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Company{}, regshared.ErrNotFound
		}
		return Company{}, fmt.Errorf("companies: get %s: %w", regcode, err)
	}
	if vat.Valid {
		c.VATNumber = &vat.String
	}
	if registeredAt.Valid {
		c.RegisteredAt = registeredAt.Time
	}
	if terminatedAt.Valid {
		t := terminatedAt.Time
		c.TerminatedAt = &t
	}
	if createdAt.Valid {
		c.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		c.UpdatedAt = updatedAt.Time
	}
	return c, nil
}

func (r *pgRepository) Financials(ctx context.Context, regcode string) ([]Financials, error) {
	const query = `
		SELECT year, employees, turnover, balance, profit, equity, taxes_paid
		FROM company_financials
		WHERE regcode = $1
		ORDER BY year DESC`
	rows, err := r.pool.Query(ctx, query, regcode)
	if err != nil {
		return nil, fmt.Errorf("companies: financials %s: %w", regcode, err)
	}
	defer rows.Close()

	var items []Financials
	for rows.Next() {
		var f Financials
		var employees, turnover, balance, profit, equity, taxPaid pgtype.Float8
		if err := rows.Scan(&f.Year, &employees, &turnover, &balance, &profit, &equity, &taxPaid); err != nil {
			return nil, fmt.Errorf("companies: scan financials: %w", err)
		}
		f.Employees = floatPtr(employees)
		f.Turnover = floatPtr(turnover)
		f.Balance = floatPtr(balance)
		f.Profit = floatPtr(profit)
		f.Equity = floatPtr(equity)
		f.TaxesPaid = floatPtr(taxPaid)
		items = append(items, f)
	}
	return items, rows.Err()
}

func (r *pgRepository) Risks(ctx context.Context, regcode string) ([]RiskFlag, error) {
	const query = `
		SELECT kind, severity, COALESCE(note, ''), flagged_at
		FROM company_risks
		WHERE regcode = $1
		ORDER BY flagged_at DESC`
	rows, err := r.pool.Query(ctx, query, regcode)
	if err != nil {
		return nil, fmt.Errorf("companies: risks %s: %w", regcode, err)
	}
	defer rows.Close()

	var flags []RiskFlag
	for rows.Next() {
		var flag RiskFlag
		var flaggedAt pgtype.Timestamptz
		if err := rows.Scan(&flag.Kind, &flag.Severity, &flag.Note, &flaggedAt); err != nil {
			return nil, fmt.Errorf("companies: scan risk: %w", err)
		}
		if flaggedAt.Valid {
			flag.FlaggedAt = flaggedAt.Time
		}
		flags = append(flags, flag)
	}
	return flags, rows.Err()
}

func scanSummaries(rows pgx.Rows) ([]Summary, error) {
	var items []Summary
	for rows.Next() {
		var s Summary
		var employees, turnover, profit pgtype.Float8
		if err := rows.Scan(&s.Regcode, &s.Name, &s.Status, &s.NACECode, &s.RegionCode, &s.City,
			&employees, &turnover, &profit, &s.RiskCount); err != nil {
			return nil, fmt.Errorf("companies: scan summary: %w", err)
		}
		s.Employees = floatPtr(employees)
		s.Turnover = floatPtr(turnover)
		s.Profit = floatPtr(profit)
		items = append(items, s)
	}
	return items, rows.Err()
}

func floatPtr(v pgtype.Float8) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == regshared.SortDesc {
		dir = "DESC"
	}
	switch sortBy {
	case "regcode":
		return "c.regcode " + dir
	case "registered_at":
		return "c.registered_at " + dir
	case "turnover":
		return "f.turnover " + dir + " NULLS LAST"
	case "employees":
		return "f.employees " + dir + " NULLS LAST"
	default:
		return "c.name " + dir
	}
}
