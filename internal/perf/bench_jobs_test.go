package perf

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	jobmetrics "github.com/firmlens/firmlens/internal/jobs"
)

func TestJobThroughputAndReliability(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)

	// Warmup runs hit the cache and finish fast, mostly successful.
	for i := 0; i < 40; i++ {
		tracker := metrics.Track("analytics:warmup")
		time.Sleep(8 * time.Millisecond)
		if err := tracker.End(nil); err != nil {
			t.Fatalf("unexpected error ending warmup tracker: %v", err)
		}
	}

	// Declaration sweeps walk the ownership graph and are slower, but must
	// stay within the half-second budget per run.
	for i := 0; i < 10; i++ {
		tracker := metrics.Track("declaration:refresh")
		time.Sleep(25 * time.Millisecond)
		if err := tracker.End(nil); err != nil {
			t.Fatalf("unexpected error ending refresh tracker: %v", err)
		}
	}

	// Inject failures to check they surface in the failure counters.
	for i := 0; i < 3; i++ {
		tracker := metrics.Track("analytics:warmup")
		time.Sleep(10 * time.Millisecond)
		if err := tracker.End(errors.New("redis timeout")); err == nil {
			t.Fatal("expected error to propagate")
		}
	}

	metrics.AddRiskFindings("HIGH", "yoy_turnover", 2)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	success := metricValue(t, families, "firmlens_jobs_total", map[string]string{"job": "analytics:warmup", "status": "success"})
	failure := metricValue(t, families, "firmlens_jobs_total", map[string]string{"job": "analytics:warmup", "status": "failure"})
	if success+failure == 0 {
		t.Fatal("no warmup executions recorded")
	}
	ratio := success / (success + failure)
	if ratio < 0.9 {
		t.Fatalf("warmup success ratio too low: %f", ratio)
	}

	failures := metricValue(t, families, "firmlens_jobs_failures_total", map[string]string{"job": "analytics:warmup"})
	if failures != 3 {
		t.Fatalf("warmup failures = %f, want 3", failures)
	}

	refreshDuration := histogramMean(t, families, "firmlens_job_duration_seconds", map[string]string{"job": "declaration:refresh"})
	if refreshDuration > 0.5 {
		t.Fatalf("refresh duration above budget: %f", refreshDuration)
	}

	warmupDuration := histogramMean(t, families, "firmlens_job_duration_seconds", map[string]string{"job": "analytics:warmup"})
	if warmupDuration > 0.1 {
		t.Fatalf("warmup duration above budget: %f", warmupDuration)
	}

	findings := metricValue(t, families, "firmlens_risk_findings_total", map[string]string{"severity": "HIGH", "source": "yoy_turnover"})
	if findings != 2 {
		t.Fatalf("risk findings = %f, want 2", findings)
	}
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				if fam.GetType() == dto.MetricType_COUNTER {
					return metric.GetCounter().GetValue()
				}
				if fam.GetType() == dto.MetricType_GAUGE {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	for _, lp := range metric.GetLabel() {
		if val, ok := labels[lp.GetName()]; ok {
			if lp.GetValue() != val {
				return false
			}
		}
	}
	for key := range labels {
		found := false
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == key {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
