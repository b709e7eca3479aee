package postgres

import (
	"context"
	"fmt"

	"github.com/NordCoder/uptime-probe/internal/domain/outcome"
)

var _ outcome.Archive = (*OutcomeRepo)(nil)

// OutcomeRepo keeps every outcome, independent of the Redis retention window.
type OutcomeRepo struct{ db *DB }

func NewOutcomeRepo(db *DB) *OutcomeRepo { return &OutcomeRepo{db: db} }

const (
	qOutcomeInsert = `
INSERT INTO probe_runs (ts, endpoint, status, matched, latency_ms, error)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''));
`
	qOutcomesRecent = `
SELECT ts, endpoint, status, matched, latency_ms, COALESCE(error, '')
FROM probe_runs
WHERE endpoint = $1
ORDER BY ts DESC
LIMIT $2;
`
)

func (r *OutcomeRepo) Save(ctx context.Context, o outcome.Outcome) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.Pool.Exec(ctx, qOutcomeInsert,
		o.Timestamp, o.Endpoint, string(o.Status), o.Matched, o.LatencyMS, o.Error,
	); err != nil {
		return fmt.Errorf("insert probe run: %w", err)
	}
	return nil
}

func (r *OutcomeRepo) Recent(ctx context.Context, endpoint string, limit int) ([]outcome.Outcome, error) {
	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qOutcomesRecent, endpoint, limit)
	if err != nil {
		return nil, fmt.Errorf("query probe runs: %w", err)
	}
	defer rows.Close()

	out := make([]outcome.Outcome, 0, limit)
	for rows.Next() {
		var (
			o      outcome.Outcome
			status string
		)
		if err := rows.Scan(&o.Timestamp, &o.Endpoint, &status, &o.Matched, &o.LatencyMS, &o.Error); err != nil {
			return nil, fmt.Errorf("scan probe run: %w", err)
		}
		o.Status = outcome.Status(status)
		o.Timestamp = o.Timestamp.UTC()
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
