package redis

import (
	"context"
	"time"

	"github.com/NordCoder/uptime-probe/internal/domain/outcome"
	goredis "github.com/redis/go-redis/v9"
)

var _ outcome.Store = (*Store)(nil)

type Store struct {
	c goredis.Cmdable
}

func NewStore(c goredis.Cmdable) *Store { return &Store{c: c} }

// SetWithTTL issues SET key value EX <ttl>.
func (s *Store) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.c.Set(ctx, key, value, ttl).Err()
}

// Set issues a plain SET, clearing any TTL the key had.
func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.c.Set(ctx, key, value, 0).Err()
}

func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	return s.c.Incr(ctx, key).Result()
}
