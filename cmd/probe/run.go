package main

import (
	"context"
	"fmt"
	"time"

	"github.com/NordCoder/uptime-probe/internal/canonical"
	config "github.com/NordCoder/uptime-probe/internal/config/probe"
	"github.com/NordCoder/uptime-probe/internal/domain/outcome"
	"github.com/NordCoder/uptime-probe/internal/obs"
	"github.com/NordCoder/uptime-probe/internal/obs/retry"
	redisx "github.com/NordCoder/uptime-probe/internal/repository/redis"
	"github.com/NordCoder/uptime-probe/internal/services/probe"
	"github.com/NordCoder/uptime-probe/internal/services/recorder"
	"go.uber.org/zap"
)

func run(ctx context.Context, f *flags) error {
	// init
	cfg, err := config.Load(f.configPath, f.envFiles...)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if f.fixture != "" {
		cfg.Fixture.Path = f.fixture
	}

	// logger
	l, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	// otel
	otelShutdown, err := initOTel(ctx, cfg)
	if err != nil {
		l.Error("otel init", zap.Error(err))
		return err
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := otelShutdown(shCtx); err != nil {
			l.Warn("otel shutdown", zap.Error(err))
		}
	}()

	// fixture
	canon := canonical.JSON{}
	fixture, err := probe.LoadFixture(cfg.Fixture.Path, canon)
	if err != nil {
		l.Error("fixture", zap.String("path", cfg.Fixture.Path), zap.Error(err))
		return err
	}

	// store
	rdb, err := initStore(ctx, cfg, l)
	if err != nil {
		l.Error("metrics store", zap.Error(err))
		return err
	}
	defer func() { _ = rdb.Close() }()

	// wiring
	metrics := obs.NewProbeMetrics(retry.Collectors()...)
	opts := []probe.RunnerOption{probe.WithMetrics(metrics)}

	archiveOpt, closeArchive := initArchive(ctx, cfg, l)
	defer closeArchive()
	eventsOpt, closeEvents := initEvents(cfg, l)
	defer closeEvents()
	for _, o := range []probe.RunnerOption{archiveOpt, eventsOpt} {
		if o != nil {
			opts = append(opts, o)
		}
	}

	p := probe.New(probe.NewHTTPClient(cfg.HTTP), canon, outcome.SystemClock{}, l, cfg.HTTP.UserAgent)
	rec := recorder.New(redisx.NewStore(rdb), cfg.Store.AsRecorderConfig(), l)
	runner := probe.NewRunner(l, p, rec,
		probe.Target{Endpoint: cfg.Target.EndpointURL, AuthHeader: cfg.Target.AuthHeader},
		fixture, opts...)

	// run
	o, report, err := runner.Run(ctx)
	if err != nil {
		l.Error("run", zap.Error(err))
		return err
	}
	l.Info("run complete",
		zap.String("status", string(o.Status)),
		zap.Bool("matched", o.Matched),
		zap.Int64("latency_ms", o.LatencyMS),
		zap.Stringer("stored_as", report.Value.Kind),
	)

	// metrics
	if cfg.Metrics.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := metrics.Push(pushCtx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, cfg.Metrics.Instance); err != nil {
			l.Warn("push metrics", zap.Error(err))
		}
	}

	return storeVerdict(report, cfg.Store.FailOnError)
}

// storeVerdict decides whether store write failures fail the process. The
// outcome itself never does; a failed probe is a successful run.
func storeVerdict(report recorder.Report, failOnError bool) error {
	err := report.Err()
	if err == nil || !failOnError {
		return nil
	}
	return fmt.Errorf("store: %w", err)
}
