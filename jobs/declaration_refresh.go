package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/firmlens/firmlens/internal/jobs"
	"github.com/firmlens/firmlens/internal/mvk"
)

// TaskDeclarationRefresh recomputes stored SME declaration snapshots.
const TaskDeclarationRefresh = "declaration:refresh"

// DeclarationRefreshPayload configures the scope of the refresh job. The
// regcode "all" sweeps every stored snapshot; year 0 means the default
// reference year.
type DeclarationRefreshPayload struct {
	Regcode string `json:"regcode"`
	Year    int    `json:"year"`
}

// DeclarationRefresher rebuilds and persists one declaration.
type DeclarationRefresher interface {
	Refresh(ctx context.Context, regcode string, year int) (mvk.Declaration, error)
}

// SnapshotLister enumerates the stored snapshots for sweep runs.
type SnapshotLister interface {
	SnapshotKeys(ctx context.Context) ([]mvk.SnapshotKey, error)
}

// DeclarationRefreshJob coordinates the snapshot refresh workflow.
type DeclarationRefreshJob struct {
	Service   DeclarationRefresher
	Snapshots SnapshotLister
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewDeclarationRefreshJob constructs the job handler.
func NewDeclarationRefreshJob(service DeclarationRefresher, snapshots SnapshotLister, logger *slog.Logger, metrics *jobmetrics.Metrics) *DeclarationRefreshJob {
	return &DeclarationRefreshJob{
		Service:   service,
		Snapshots: snapshots,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// NewDeclarationRefreshTask creates an asynq task for refreshing snapshots.
func NewDeclarationRefreshTask(regcode string, year int) (*asynq.Task, error) {
	if regcode == "" {
		regcode = "all"
	}
	body, err := json.Marshal(DeclarationRefreshPayload{Regcode: regcode, Year: year})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDeclarationRefresh, body, asynq.Queue(QueueDefault)), nil
}

// Handle executes the declaration refresh job.
func (j *DeclarationRefreshJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Service == nil || j.Snapshots == nil {
		return errors.New("declaration refresh: dependencies not configured")
	}
	var payload DeclarationRefreshPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Regcode == "" {
		payload.Regcode = "all"
	}

	tracker := j.metrics().Track(TaskDeclarationRefresh)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	targets, err := j.resolveTargets(ctx, payload)
	if err != nil {
		resultErr = err
		j.log().Error("resolve refresh targets", slog.String("regcode", payload.Regcode), slog.Any("error", err))
		return resultErr
	}
	if len(targets) == 0 {
		j.log().Info("no snapshots to refresh")
		return resultErr
	}

	start := j.now()
	refreshed := 0
	for _, target := range targets {
		if _, err := j.Service.Refresh(ctx, target.Regcode, target.Year); err != nil {
			resultErr = err
			j.log().Error("refresh declaration",
				slog.String("regcode", target.Regcode), slog.Int("year", target.Year), slog.Any("error", err))
			return resultErr
		}
		refreshed++
	}

	j.log().Info("refreshed declaration snapshots",
		slog.Int("snapshots", refreshed), slog.Duration("duration", time.Since(start)))
	return resultErr
}

// resolveTargets expands "all" into every stored snapshot key; an explicit
// regcode refreshes that one declaration for the requested year.
func (j *DeclarationRefreshJob) resolveTargets(ctx context.Context, payload DeclarationRefreshPayload) ([]mvk.SnapshotKey, error) {
	if payload.Regcode != "all" {
		return []mvk.SnapshotKey{{Regcode: payload.Regcode, Year: payload.Year}}, nil
	}
	return j.Snapshots.SnapshotKeys(ctx)
}

func (j *DeclarationRefreshJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *DeclarationRefreshJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDeclarationRefresh))
	}
	return slog.Default().With(slog.String("job", TaskDeclarationRefresh))
}

func (j *DeclarationRefreshJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *DeclarationRefreshJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
