// Package observability exports pipeline metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	collector, err := observability.NewPrometheusCollector(reg)
//	p, _ := artlens.New(artlens.WithMetricsCollector(collector))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package observability

import (
	"net/http"
	"time"

	"github.com/hupe1980/artlens"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusCollector implements artlens.MetricsCollector.
type PrometheusCollector struct {
	opLatency       *prometheus.HistogramVec
	builds          *prometheus.CounterVec
	buildRecords    prometheus.Histogram
	buildIterations prometheus.Histogram
	captions        *prometheus.CounterVec
	snapshots       *prometheus.CounterVec
}

var _ artlens.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheusCollector creates the collector and registers its metrics
// with reg. A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &PrometheusCollector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "artlens_operation_latency_seconds",
			Help:    "Latency of pipeline operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "status"}),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artlens_builds_total",
			Help: "Clustering runs by termination status",
		}, []string{"status"}),
		buildRecords: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "artlens_build_records",
			Help:    "Records per clustering run",
			Buckets: prometheus.ExponentialBuckets(100, 4, 8),
		}),
		buildIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "artlens_build_iterations",
			Help:    "Refinement iterations per clustering run",
			Buckets: prometheus.LinearBuckets(5, 10, 10),
		}),
		captions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artlens_captions_total",
			Help: "Captions rendered, by outcome",
		}, []string{"outcome"}),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "artlens_snapshots_total",
			Help: "Snapshot operations",
		}, []string{"op", "status"}),
	}

	for _, col := range []prometheus.Collector{
		c.opLatency, c.builds, c.buildRecords, c.buildIterations, c.captions, c.snapshots,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordBuild implements artlens.MetricsCollector.
func (c *PrometheusCollector) RecordBuild(records, _, iterations int, runStatus string, d time.Duration, err error) {
	c.opLatency.WithLabelValues("build", status(err)).Observe(d.Seconds())
	if err != nil {
		c.builds.WithLabelValues("error").Inc()
		return
	}
	c.builds.WithLabelValues(runStatus).Inc()
	c.buildRecords.Observe(float64(records))
	c.buildIterations.Observe(float64(iterations))
}

// RecordAssign implements artlens.MetricsCollector.
func (c *PrometheusCollector) RecordAssign(d time.Duration, err error) {
	c.opLatency.WithLabelValues("assign", status(err)).Observe(d.Seconds())
}

// RecordCaption implements artlens.MetricsCollector.
func (c *PrometheusCollector) RecordCaption(fallback bool, err error) {
	switch {
	case err != nil:
		c.captions.WithLabelValues("error").Inc()
	case fallback:
		c.captions.WithLabelValues("fallback").Inc()
	default:
		c.captions.WithLabelValues("rendered").Inc()
	}
}

// RecordSnapshot implements artlens.MetricsCollector.
func (c *PrometheusCollector) RecordSnapshot(op string, d time.Duration, err error) {
	c.opLatency.WithLabelValues("snapshot_"+op, status(err)).Observe(d.Seconds())
	c.snapshots.WithLabelValues(op, status(err)).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
