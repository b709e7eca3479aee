package main

import (
	"context"

	config "github.com/NordCoder/uptime-probe/internal/config/probe"
	"github.com/NordCoder/uptime-probe/internal/repository/kafka"
	pg "github.com/NordCoder/uptime-probe/internal/repository/postgres"
	redisx "github.com/NordCoder/uptime-probe/internal/repository/redis"
	"github.com/NordCoder/uptime-probe/internal/services/probe"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// initStore returns an error only for an unusable URL. An unreachable server
// is logged and the run continues; the writes then fail individually.
func initStore(ctx context.Context, cfg *config.Config, l *zap.Logger) (*goredis.Client, error) {
	client, err := redisx.NewClient(cfg.Store.Config)
	if err != nil {
		return nil, err
	}
	if err := redisx.Ping(ctx, client, cfg.Store.ConnectAttempts, l); err != nil {
		l.Warn("metrics store unreachable", zap.Error(err))
	}
	return client, nil
}

func initArchive(ctx context.Context, cfg *config.Config, l *zap.Logger) (probe.RunnerOption, func()) {
	if !cfg.Archive.Enable {
		return nil, func() {}
	}
	db, err := pg.New(ctx, cfg.Archive.DB)
	if err != nil {
		l.Warn("archive disabled", zap.Error(err))
		return nil, func() {}
	}
	return probe.WithArchive(pg.NewOutcomeRepo(db)), db.Close
}

func initEvents(cfg *config.Config, l *zap.Logger) (probe.RunnerOption, func()) {
	if !cfg.Events.Enable {
		return nil, func() {}
	}
	prod := kafka.NewProducer(cfg.Events.ProducerConfig).WithLogger(l)
	return probe.WithEvents(kafka.NewOutcomeEvents(prod, l)), func() {
		if err := prod.Close(); err != nil {
			l.Warn("kafka producer close", zap.Error(err))
		}
	}
}
