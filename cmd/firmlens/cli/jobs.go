package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/hibiken/asynq"

	"github.com/firmlens/firmlens/jobs"
)

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) (*JobsCLI, error) {
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: redisAddr})
	return &JobsCLI{client: client, inspector: inspector}, nil
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Trigger enqueues a supported job by name with default payload.
func (c *JobsCLI) Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	var task *asynq.Task
	var err error
	switch name {
	case jobs.TaskDeclarationRefresh:
		task, err = jobs.NewDeclarationRefreshTask("all", 0)
	case jobs.TaskAnalyticsWarmup:
		task, err = jobs.NewAnalyticsWarmupTask(true)
	case jobs.TaskRiskScan:
		task, err = jobs.NewRiskScanTask(0, 0)
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.MaxRetry(3))
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = int(info.Pending)
		stats.Active = int(info.Active)
		stats.Scheduled = int(info.Scheduled)
		stats.Retry = int(info.Retry)
	}
	return stats, nil
}

// ListScheduled returns scheduled task infos for observability.
func (c *JobsCLI) ListScheduled(ctx context.Context, size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}

// JobsOptions defines inputs for the jobs command.
type JobsOptions struct {
	RedisAddr string
	Args      []string
	Stdout    io.Writer
	Stderr    io.Writer
}

// JobsCommand dispatches the jobs subcommands (trigger, stats, scheduled)
// and returns a process exit code.
func JobsCommand(ctx context.Context, opts JobsOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if len(opts.Args) == 0 {
		_, _ = fmt.Fprintln(opts.Stderr, "jobs: expected a subcommand: trigger <task>, stats or scheduled [n]")
		return 1
	}

	cli, err := NewJobsCLI(opts.RedisAddr)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "jobs: %v\n", err)
		return 1
	}
	defer func() {
		_ = cli.Close()
	}()

	switch opts.Args[0] {
	case "trigger":
		if len(opts.Args) < 2 {
			_, _ = fmt.Fprintf(opts.Stderr, "jobs trigger: task name is required (%s, %s or %s)\n",
				jobs.TaskDeclarationRefresh, jobs.TaskAnalyticsWarmup, jobs.TaskRiskScan)
			return 1
		}
		info, err := cli.Trigger(ctx, opts.Args[1])
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "jobs trigger: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(opts.Stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	case "stats":
		stats, err := cli.InspectQueue(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "jobs stats: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(opts.Stdout, "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
	case "scheduled":
		size := 10
		if len(opts.Args) > 1 {
			size, err = strconv.Atoi(opts.Args[1])
			if err != nil || size <= 0 {
				_, _ = fmt.Fprintf(opts.Stderr, "jobs scheduled: invalid page size %q\n", opts.Args[1])
				return 1
			}
		}
		infos, err := cli.ListScheduled(ctx, size)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "jobs scheduled: %v\n", err)
			return 1
		}
		for _, info := range infos {
			_, _ = fmt.Fprintf(opts.Stdout, "%s id=%s next=%s\n", info.Type, info.ID, info.NextProcessAt.Format("2006-01-02 15:04:05"))
		}
		if len(infos) == 0 {
			_, _ = fmt.Fprintln(opts.Stdout, "no scheduled tasks")
		}
	default:
		_, _ = fmt.Fprintf(opts.Stderr, "jobs: unknown subcommand %q\n", opts.Args[0])
		return 1
	}
	return 0
}
