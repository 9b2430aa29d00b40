package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/firmlens/firmlens/internal/jobs"
	"github.com/firmlens/firmlens/internal/shared"
)

// TaskRiskScan sweeps filed accounts for year-over-year turnover collapses.
const TaskRiskScan = "risk:scan"

// riskKindTurnoverDrop tags findings of this scan in company_risks.
const riskKindTurnoverDrop = "TURNOVER_DROP"

// RiskScanPayload configures the scan. Year 0 means the default reference
// year; DropPercent is the MEDIUM severity floor (HIGH at twice that).
type RiskScanPayload struct {
	Year        int     `json:"year"`
	DropPercent float64 `json:"drop_percent"`
}

// RiskScanJob flags active companies whose turnover fell sharply against the
// prior filed year.
type RiskScanJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewRiskScanJob initialises the risk scan handler.
func NewRiskScanJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *RiskScanJob {
	return &RiskScanJob{
		Pool:    pool,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// NewRiskScanTask creates an asynq task for the turnover scan.
func NewRiskScanTask(year int, dropPercent float64) (*asynq.Task, error) {
	body, err := json.Marshal(RiskScanPayload{Year: year, DropPercent: dropPercent})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRiskScan, body, asynq.Queue(QueueDefault)), nil
}

// Handle executes the risk scan logic.
func (j *RiskScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("risk scan: handler not configured")
	}
	var payload RiskScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Year == 0 {
		payload.Year = shared.ReferenceYear(j.now())
	}
	if payload.DropPercent <= 0 {
		payload.DropPercent = 30
	}

	tracker := j.metrics().Track(TaskRiskScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.log().With(
		slog.Int("year", payload.Year),
		slog.Float64("drop_percent", payload.DropPercent),
	)
	logger.Info("starting turnover scan")

	start := j.now()
	scanned, findings, err := j.scan(ctx, payload)
	if err != nil {
		resultErr = err
		logger.Error("scan failed", slog.Any("error", err))
		return resultErr
	}

	for _, f := range findings {
		logger.Warn("turnover drop detected",
			slog.String("regcode", f.Regcode),
			slog.Float64("drop_percent", f.DropPercent),
			slog.String("severity", f.Severity),
		)
		j.metrics().AddRiskFindings(f.Severity, "yoy_turnover", 1)
	}

	logger.Info("completed turnover scan",
		slog.Int("companies", scanned),
		slog.Int("findings", len(findings)),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

type riskFinding struct {
	Regcode     string
	DropPercent float64
	Severity    string
}

func (j *RiskScanJob) scan(ctx context.Context, payload RiskScanPayload) (int, []riskFinding, error) {
	if j.Pool == nil {
		return 0, nil, errors.New("risk scan: pool not configured")
	}
	rows, err := j.Pool.Query(ctx, `
	SELECT cur.regcode, prev.turnover, COALESCE(cur.turnover, 0)
	FROM company_financials cur
	JOIN company_financials prev ON prev.regcode = cur.regcode AND prev.year = $1 - 1
	JOIN companies c ON c.regcode = cur.regcode AND c.status = 'ACTIVE'
	WHERE cur.year = $1 AND prev.turnover > 0
	ORDER BY cur.regcode`, payload.Year)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	scanned := 0
	findings := make([]riskFinding, 0)
	for rows.Next() {
		var regcode string
		var prevTurnover, curTurnover float64
		if err := rows.Scan(&regcode, &prevTurnover, &curTurnover); err != nil {
			return 0, nil, err
		}
		scanned++
		drop := (prevTurnover - curTurnover) / prevTurnover * 100
		severity := dropSeverity(drop, payload.DropPercent)
		if severity == "" {
			continue
		}
		findings = append(findings, riskFinding{Regcode: regcode, DropPercent: drop, Severity: severity})
	}
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}

	for _, f := range findings {
		if err := j.record(ctx, f, payload.Year); err != nil {
			return scanned, findings, err
		}
	}
	return scanned, findings, nil
}

func (j *RiskScanJob) record(ctx context.Context, f riskFinding, year int) error {
	_, err := j.Pool.Exec(ctx, `
	INSERT INTO company_risks (regcode, kind, severity, note, flagged_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (regcode, kind)
	DO UPDATE SET severity = EXCLUDED.severity, note = EXCLUDED.note, flagged_at = EXCLUDED.flagged_at`,
		f.Regcode, riskKindTurnoverDrop, f.Severity,
		noteForDrop(f.DropPercent, year), j.now())
	return err
}

func noteForDrop(drop float64, year int) string {
	return fmt.Sprintf("turnover fell %.1f%% against %d", drop, year-1)
}

// dropSeverity grades a year-over-year decline: HIGH at twice the
// configured floor, MEDIUM at the floor, otherwise no finding.
func dropSeverity(dropPercent, floor float64) string {
	switch {
	case dropPercent >= floor*2:
		return "HIGH"
	case dropPercent >= floor:
		return "MEDIUM"
	default:
		return ""
	}
}

func (j *RiskScanJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *RiskScanJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskRiskScan))
	}
	return slog.Default().With(slog.String("job", TaskRiskScan))
}

func (j *RiskScanJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *RiskScanJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
