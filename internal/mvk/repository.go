package mvk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firmlens/firmlens/internal/platform/httpx"
)

// SnapshotRepository stores precomputed declarations per (regcode, year).
type SnapshotRepository interface {
	Snapshot(ctx context.Context, regcode string, year int) (Snapshot, error)
	SaveSnapshot(ctx context.Context, snapshot Snapshot) error
	// SnapshotKeys lists every stored (regcode, year) pair, for the
	// nightly refresh sweep.
	SnapshotKeys(ctx context.Context) ([]SnapshotKey, error)
}

// Repository is the full persistence surface of the declaration module.
type Repository interface {
	GraphRepository
	SnapshotRepository
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) Enterprise(ctx context.Context, regcode string) (Enterprise, error) {
	const query = `
		SELECT regcode, name, vat_number, address
		FROM companies
		WHERE regcode = $1`
	var (
		ent Enterprise
		vat pgtype.Text
	)
	err := r.pool.QueryRow(ctx, query, regcode).Scan(&ent.Regcode, &ent.Name, &vat, &ent.Address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Enterprise{}, fmt.Errorf("enterprise %s: %w", regcode, httpx.ErrNotFound)
		}
		return Enterprise{}, fmt.Errorf("mvk: enterprise %s: %w", regcode, err)
	}
	if vat.Valid {
		ent.VATNumber = &vat.String
	}
	return ent, nil
}

func (r *pgRepository) Edges(ctx context.Context, regcode string) ([]Edge, error) {
	const query = `
		SELECT holder_type, holder_id, subject_regcode, share_percent, votes_percent, consolidated
		FROM shareholdings
		WHERE subject_regcode = $1 OR (holder_type = 'company' AND holder_id = $1)
		ORDER BY subject_regcode, holder_id`
	rows, err := r.pool.Query(ctx, query, regcode)
	if err != nil {
		return nil, fmt.Errorf("mvk: edges %s: %w", regcode, err)
	}
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		var (
			edge  Edge
			votes pgtype.Float8
		)
		if err := rows.Scan(&edge.HolderType, &edge.HolderID, &edge.SubjectRegcode,
			&edge.SharePercent, &votes, &edge.Consolidated); err != nil {
			return nil, fmt.Errorf("mvk: scan edge: %w", err)
		}
		if votes.Valid {
			v := votes.Float64
			edge.VotesPercent = &v
		}
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}

func (r *pgRepository) Figures(ctx context.Context, regcode string, year int) (Figures, bool, error) {
	const query = `
		SELECT COALESCE(employees, 0), COALESCE(turnover, 0), COALESCE(balance, 0)
		FROM company_financials
		WHERE regcode = $1 AND year = $2`
	var f Figures
	err := r.pool.QueryRow(ctx, query, regcode, year).Scan(&f.Employees, &f.Turnover, &f.Balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Figures{}, false, nil
		}
		return Figures{}, false, fmt.Errorf("mvk: figures %s/%d: %w", regcode, year, err)
	}
	return f, true, nil
}

func (r *pgRepository) Snapshot(ctx context.Context, regcode string, year int) (Snapshot, error) {
	const query = `
		SELECT payload, generated_at
		FROM declaration_snapshots
		WHERE regcode = $1 AND year = $2`
	var (
		raw         []byte
		generatedAt pgtype.Timestamptz
	)
	err := r.pool.QueryRow(ctx, query, regcode, year).Scan(&raw, &generatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, fmt.Errorf("snapshot %s/%d: %w", regcode, year, httpx.ErrNotFound)
		}
		return Snapshot{}, fmt.Errorf("mvk: snapshot %s/%d: %w", regcode, year, err)
	}
	snapshot := Snapshot{Regcode: regcode, Year: year}
	if err := json.Unmarshal(raw, &snapshot.Payload); err != nil {
		return Snapshot{}, fmt.Errorf("mvk: decode snapshot %s/%d: %w", regcode, year, err)
	}
	if generatedAt.Valid {
		snapshot.GeneratedAt = generatedAt.Time
	}
	return snapshot, nil
}

func (r *pgRepository) SaveSnapshot(ctx context.Context, snapshot Snapshot) error {
	payload, err := json.Marshal(snapshot.Payload)
	if err != nil {
		return fmt.Errorf("mvk: encode snapshot %s/%d: %w", snapshot.Regcode, snapshot.Year, err)
	}
	const query = `
		INSERT INTO declaration_snapshots (regcode, year, payload, generated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (regcode, year)
		DO UPDATE SET payload = EXCLUDED.payload, generated_at = EXCLUDED.generated_at`
	_, err = r.pool.Exec(ctx, query, snapshot.Regcode, snapshot.Year, payload,
		pgtype.Timestamptz{Time: snapshot.GeneratedAt, Valid: !snapshot.GeneratedAt.IsZero()})
	if err != nil {
		return fmt.Errorf("mvk: save snapshot %s/%d: %w", snapshot.Regcode, snapshot.Year, err)
	}
	return nil
}

func (r *pgRepository) SnapshotKeys(ctx context.Context) ([]SnapshotKey, error) {
	const query = `SELECT regcode, year FROM declaration_snapshots ORDER BY regcode, year`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("mvk: snapshot keys: %w", err)
	}
	defer rows.Close()

	var keys []SnapshotKey
	for rows.Next() {
		var key SnapshotKey
		if err := rows.Scan(&key.Regcode, &key.Year); err != nil {
			return nil, fmt.Errorf("mvk: scan snapshot key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
