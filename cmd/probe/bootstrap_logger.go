package main

import (
	config "github.com/NordCoder/uptime-probe/internal/config/probe"
	"github.com/NordCoder/uptime-probe/internal/obs"
	"go.uber.org/zap"
)

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	return obs.NewLogger(cfg.AsLoggerConfig())
}
