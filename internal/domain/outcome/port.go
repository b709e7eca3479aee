package outcome

import (
	"context"
	"time"
)

// Store is the key-value metrics store. Implementations must provide an atomic Incr.
type Store interface {
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
	Set(ctx context.Context, key, value string) error
	Incr(ctx context.Context, key string) (int64, error)
}

type Archive interface {
	Save(ctx context.Context, o Outcome) error
}

type Events interface {
	PublishOutcome(ctx context.Context, o Outcome) error
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

// Now keeps the monotonic reading so latencies survive wall-clock jumps.
func (SystemClock) Now() time.Time { return time.Now() }
