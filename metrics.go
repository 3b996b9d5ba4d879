package artlens

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// observability package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordBuild is called after each clustering run.
	// status is the run's clustering.Status string, err is nil if successful.
	RecordBuild(records, k, iterations int, status string, duration time.Duration, err error)

	// RecordAssign is called after each nearest-cluster assignment.
	RecordAssign(duration time.Duration, err error)

	// RecordCaption is called after each caption. fallback reports whether
	// the fallback sentence was used.
	RecordCaption(fallback bool, err error)

	// RecordSnapshot is called after each snapshot save or load.
	// op is "save" or "load".
	RecordSnapshot(op string, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBuild(int, int, int, string, time.Duration, error) {}
func (NoopMetricsCollector) RecordAssign(time.Duration, error)                        {}
func (NoopMetricsCollector) RecordCaption(bool, error)                                {}
func (NoopMetricsCollector) RecordSnapshot(string, time.Duration, error)              {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	BuildCount       atomic.Int64
	BuildErrors      atomic.Int64
	BuildUnconverged atomic.Int64
	BuildTotalNanos  atomic.Int64
	BuildIterations  atomic.Int64
	AssignCount      atomic.Int64
	AssignErrors     atomic.Int64
	AssignTotalNanos atomic.Int64
	CaptionCount     atomic.Int64
	CaptionErrors    atomic.Int64
	CaptionFallbacks atomic.Int64
	SnapshotSaves    atomic.Int64
	SnapshotLoads    atomic.Int64
	SnapshotErrors   atomic.Int64
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(_, _, iterations int, status string, duration time.Duration, err error) {
	b.BuildCount.Add(1)
	b.BuildTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.BuildErrors.Add(1)
		return
	}
	b.BuildIterations.Add(int64(iterations))
	if status != "converged" {
		b.BuildUnconverged.Add(1)
	}
}

// RecordAssign implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAssign(duration time.Duration, err error) {
	b.AssignCount.Add(1)
	b.AssignTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AssignErrors.Add(1)
	}
}

// RecordCaption implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCaption(fallback bool, err error) {
	b.CaptionCount.Add(1)
	if err != nil {
		b.CaptionErrors.Add(1)
		return
	}
	if fallback {
		b.CaptionFallbacks.Add(1)
	}
}

// RecordSnapshot implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshot(op string, _ time.Duration, err error) {
	switch op {
	case "save":
		b.SnapshotSaves.Add(1)
	case "load":
		b.SnapshotLoads.Add(1)
	}
	if err != nil {
		b.SnapshotErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		BuildCount:       b.BuildCount.Load(),
		BuildErrors:      b.BuildErrors.Load(),
		BuildUnconverged: b.BuildUnconverged.Load(),
		BuildAvgNanos:    avg(b.BuildTotalNanos.Load(), b.BuildCount.Load()),
		BuildIterations:  b.BuildIterations.Load(),
		AssignCount:      b.AssignCount.Load(),
		AssignErrors:     b.AssignErrors.Load(),
		AssignAvgNanos:   avg(b.AssignTotalNanos.Load(), b.AssignCount.Load()),
		CaptionCount:     b.CaptionCount.Load(),
		CaptionErrors:    b.CaptionErrors.Load(),
		CaptionFallbacks: b.CaptionFallbacks.Load(),
		SnapshotSaves:    b.SnapshotSaves.Load(),
		SnapshotLoads:    b.SnapshotLoads.Load(),
		SnapshotErrors:   b.SnapshotErrors.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BuildCount       int64
	BuildErrors      int64
	BuildUnconverged int64
	BuildAvgNanos    int64
	BuildIterations  int64
	AssignCount      int64
	AssignErrors     int64
	AssignAvgNanos   int64
	CaptionCount     int64
	CaptionErrors    int64
	CaptionFallbacks int64
	SnapshotSaves    int64
	SnapshotLoads    int64
	SnapshotErrors   int64
}
