package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// ConnectPolicy is used for idempotent startup checks such as PING.
func ConnectPolicy(name string, attempts int, log *zap.Logger) Policy {
	if attempts <= 0 {
		attempts = 3
	}
	return Policy{
		Name:     name,
		Attempts: attempts,
		Backoff:  ExpoJitter{Base: 100 * time.Millisecond, Max: 2 * time.Second, Jitter: 0.2},
		OnAttempt: func(i int, err error) {
			if log != nil {
				log.Debug("connect retry", zap.String("name", name), zap.Int("attempt", i+1), zap.Error(err))
			}
		},
		OnExhaust: func(err error) {
			if log != nil && !errors.Is(err, context.Canceled) {
				log.Warn("connect retries exhausted", zap.String("name", name), zap.Error(err))
			}
		},
	}
}

// PublishPolicy is used for outcome sinks. Only the sink write is retried,
// never the probe request.
func PublishPolicy(name string, log *zap.Logger) Policy {
	return Policy{
		Name:     name,
		Attempts: 4,
		Backoff:  ExpoJitter{Base: 200 * time.Millisecond, Max: 5 * time.Second, Jitter: 0.2},
		Retryable: func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		},
		OnAttempt: func(i int, err error) {
			if log != nil {
				log.Warn("publish retry", zap.String("name", name), zap.Int("attempt", i+1), zap.Error(err))
			}
		},
		OnExhaust: func(err error) {
			if log != nil && !errors.Is(err, context.Canceled) {
				log.Error("publish retries exhausted", zap.String("name", name), zap.Error(err))
			}
		},
	}
}
