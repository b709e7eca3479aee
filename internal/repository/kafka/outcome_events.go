package kafka

import (
	"context"
	"fmt"

	"github.com/NordCoder/uptime-probe/internal/domain/outcome"
	"github.com/NordCoder/uptime-probe/internal/obs/retry"
	"go.uber.org/zap"
)

type publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

var _ outcome.Events = (*OutcomeEvents)(nil)

// OutcomeEvents publishes each outcome as JSON keyed by endpoint, so all runs
// of one endpoint land on the same partition.
type OutcomeEvents struct {
	p      publisher
	policy retry.Policy
}

func NewOutcomeEvents(p publisher, log *zap.Logger) *OutcomeEvents {
	return &OutcomeEvents{p: p, policy: retry.PublishPolicy("kafka.outcome", log)}
}

func (e *OutcomeEvents) PublishOutcome(ctx context.Context, o outcome.Outcome) error {
	value, err := o.Encode()
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}
	key := []byte(o.Endpoint)
	return retry.Do(ctx, func() error {
		return e.p.Publish(ctx, key, value)
	}, e.policy)
}
