package obs

import (
	"context"

	"github.com/NordCoder/uptime-probe/internal/domain/outcome"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// ProbeMetrics collects one run's worth of metrics on a private registry.
// The process is short-lived, so they are pushed rather than scraped.
type ProbeMetrics struct {
	Registry *prometheus.Registry

	Runs        *prometheus.CounterVec
	Latency     prometheus.Histogram
	Up          prometheus.Gauge
	LastRun     prometheus.Gauge
	StoreErrors *prometheus.CounterVec
	SinkErrors  *prometheus.CounterVec
}

func NewProbeMetrics(extra ...prometheus.Collector) *ProbeMetrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	m := &ProbeMetrics{
		Registry: reg,
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "probe_runs_total", Help: "Probe runs by outcome status",
		}, []string{"status"}),
		Latency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "probe_latency_seconds",
			Help:    "Request latency measured by the probe",
			Buckets: prometheus.DefBuckets,
		}),
		Up: f.NewGauge(prometheus.GaugeOpts{
			Name: "probe_up", Help: "1 if the last run succeeded and matched the fixture",
		}),
		LastRun: f.NewGauge(prometheus.GaugeOpts{
			Name: "probe_last_run_timestamp_seconds", Help: "Start time of the last run",
		}),
		StoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "probe_store_write_errors_total", Help: "Failed metrics store writes by operation",
		}, []string{"op"}),
		SinkErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "probe_sink_errors_total", Help: "Failed archive/event sink writes",
		}, []string{"sink"}),
	}
	for _, c := range extra {
		reg.MustRegister(c)
	}
	return m
}

func (m *ProbeMetrics) ObserveOutcome(o outcome.Outcome) {
	m.Runs.WithLabelValues(string(o.Status)).Inc()
	m.Latency.Observe(float64(o.LatencyMS) / 1000)
	m.LastRun.Set(float64(o.Timestamp.UnixMilli()) / 1000)
	if o.Matched {
		m.Up.Set(1)
	} else {
		m.Up.Set(0)
	}
}

// Push replaces the metrics of job on the Pushgateway at url.
func (m *ProbeMetrics) Push(ctx context.Context, url, job, instance string) error {
	p := push.New(url, job).Gatherer(m.Registry)
	if instance != "" {
		p = p.Grouping("instance", instance)
	}
	return p.PushContext(ctx)
}
