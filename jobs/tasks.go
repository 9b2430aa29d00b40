// Package jobs contains the asynq background work: declaration snapshot
// refresh, analytics cache warmup, and the financial risk scan.
package jobs

import (
	jobmetrics "github.com/firmlens/firmlens/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
)

// defaultJobMetrics backs jobs constructed without an explicit metrics
// instance; it registers against the default Prometheus registerer once.
var defaultJobMetrics = jobmetrics.NewMetrics(nil)
