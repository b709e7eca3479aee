package probe

import (
	"context"
	"fmt"

	"github.com/NordCoder/uptime-probe/internal/domain/outcome"
	"github.com/NordCoder/uptime-probe/internal/obs"
	"github.com/NordCoder/uptime-probe/internal/services/recorder"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Runner struct {
	log      *zap.Logger
	probe    *Probe
	recorder *recorder.Recorder
	target   Target
	fixture  Fixture

	archive outcome.Archive
	events  outcome.Events
	metrics *obs.ProbeMetrics
}

type RunnerOption func(*Runner)

func WithArchive(a outcome.Archive) RunnerOption { return func(r *Runner) { r.archive = a } }

func WithEvents(e outcome.Events) RunnerOption { return func(r *Runner) { r.events = e } }

func WithMetrics(m *obs.ProbeMetrics) RunnerOption { return func(r *Runner) { r.metrics = m } }

func NewRunner(log *zap.Logger, p *Probe, rec *recorder.Recorder, target Target, fixture Fixture, opts ...RunnerOption) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Runner{log: log, probe: p, recorder: rec, target: target, fixture: fixture}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run executes one probe-and-record cycle. The returned error only covers
// unusable input; store problems are in the Report.
func (r *Runner) Run(ctx context.Context) (outcome.Outcome, recorder.Report, error) {
	tr := otel.Tracer("probe.runner")
	ctx, span := tr.Start(ctx, "probe.run",
		trace.WithAttributes(attribute.String("probe.endpoint", r.target.Endpoint)),
	)
	defer span.End()
	log := obs.WithTrace(ctx, r.log)

	o, err := r.probe.Run(ctx, r.target, r.fixture)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return outcome.Outcome{}, recorder.Report{}, fmt.Errorf("probe: %w", err)
	}

	span.SetAttributes(
		attribute.String("probe.status", string(o.Status)),
		attribute.Bool("probe.matched", o.Matched),
		attribute.Int64("probe.latency_ms", o.LatencyMS),
	)
	if o.Status == outcome.StatusFailure {
		span.SetStatus(codes.Error, o.Error)
		log.Warn("request failed", zap.String("error", o.Error), zap.Int64("latency_ms", o.LatencyMS))
	} else {
		log.Info("request succeeded", zap.Int64("latency_ms", o.LatencyMS))
	}

	rep := r.recorder.Record(ctx, o)
	if err := rep.Err(); err != nil {
		span.RecordError(err)
		log.Error("outcome not fully recorded", zap.Error(err))
	} else if o.Status == outcome.StatusFailure {
		log.Info("failure logged", zap.Int64("total", rep.Total))
	} else {
		log.Debug("outcome recorded", zap.Int64("total", rep.Total))
	}

	r.sinks(ctx, log, o)

	if r.metrics != nil {
		r.metrics.ObserveOutcome(o)
		for _, res := range rep.Failed() {
			r.metrics.StoreErrors.WithLabelValues(string(res.Op)).Inc()
		}
	}
	return o, rep, nil
}

// sinks run on a context detached from cancellation; the archive and the
// producer bound their own calls.
func (r *Runner) sinks(ctx context.Context, log *zap.Logger, o outcome.Outcome) {
	ctx = context.WithoutCancel(ctx)
	if r.archive != nil {
		if err := r.archive.Save(ctx, o); err != nil {
			log.Warn("archive outcome", zap.Error(err))
			r.sinkError("archive")
		}
	}
	if r.events != nil {
		if err := r.events.PublishOutcome(ctx, o); err != nil {
			log.Warn("publish outcome", zap.Error(err))
			r.sinkError("events")
		}
	}
}

func (r *Runner) sinkError(sink string) {
	if r.metrics != nil {
		r.metrics.SinkErrors.WithLabelValues(sink).Inc()
	}
}
