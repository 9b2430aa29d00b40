package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/firmlens/firmlens/internal/analytics"
	jobmetrics "github.com/firmlens/firmlens/internal/jobs"
)

// TaskAnalyticsWarmup re-primes the market overview cache.
const TaskAnalyticsWarmup = "analytics:warmup"

// AnalyticsWarmupPayload configures the warmup run. Invalidate bumps the
// cache version first so the overview is rebuilt from the database.
type AnalyticsWarmupPayload struct {
	Invalidate bool `json:"invalidate"`
}

// OverviewWarmer is the analytics surface the warmup job drives.
type OverviewWarmer interface {
	Invalidate(ctx context.Context) error
	GetOverview(ctx context.Context) (analytics.Overview, error)
}

// AnalyticsWarmupJob pre-populates the market overview cache so the first
// dashboard request of the day is served warm.
type AnalyticsWarmupJob struct {
	Analytics OverviewWarmer
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewAnalyticsWarmupJob wires dependencies for the warmup handler.
func NewAnalyticsWarmupJob(warmer OverviewWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *AnalyticsWarmupJob {
	return &AnalyticsWarmupJob{
		Analytics: warmer,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// NewAnalyticsWarmupTask creates an asynq task for warming the overview.
func NewAnalyticsWarmupTask(invalidate bool) (*asynq.Task, error) {
	body, err := json.Marshal(AnalyticsWarmupPayload{Invalidate: invalidate})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnalyticsWarmup, body, asynq.Queue(QueueDefault)), nil
}

// Handle processes analytics warmup tasks.
func (j *AnalyticsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Analytics == nil {
		return errors.New("analytics warmup: handler not configured")
	}
	var payload AnalyticsWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskAnalyticsWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	start := j.now()
	if payload.Invalidate {
		if err := j.Analytics.Invalidate(warmCtx); err != nil {
			resultErr = err
			j.log().Error("bump overview cache", slog.Any("error", err))
			return resultErr
		}
	}
	overview, err := j.Analytics.GetOverview(warmCtx)
	if err != nil {
		resultErr = err
		j.log().Error("warm overview", slog.Any("error", err))
		return resultErr
	}

	j.log().Info("warmed market overview",
		slog.Int("year", overview.Year),
		slog.Bool("invalidated", payload.Invalidate),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *AnalyticsWarmupJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *AnalyticsWarmupJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAnalyticsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskAnalyticsWarmup))
}

func (j *AnalyticsWarmupJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
