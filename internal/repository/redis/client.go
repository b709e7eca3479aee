package redis

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/NordCoder/uptime-probe/internal/obs/retry"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Config struct {
	URL          string        `mapstructure:"url"`
	Token        string        `mapstructure:"token"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// NewClient builds a client from cfg. It does not touch the network.
func NewClient(cfg Config) (*goredis.Client, error) {
	raw, err := normalizeURL(cfg.URL, cfg.Token)
	if err != nil {
		return nil, err
	}
	opt, err := goredis.ParseURL(raw)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.Token != "" {
		opt.Password = cfg.Token
		if opt.Username == "" {
			opt.Username = "default"
		}
	}
	if cfg.DialTimeout > 0 {
		opt.DialTimeout = cfg.DialTimeout
	}
	if cfg.WriteTimeout > 0 {
		opt.WriteTimeout = cfg.WriteTimeout
	}
	return goredis.NewClient(opt), nil
}

// normalizeURL accepts an Upstash REST endpoint (https://host) and maps it to
// the TLS Redis endpoint on the same host.
func normalizeURL(raw, token string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("redis url is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse redis url: %w", err)
	}
	switch u.Scheme {
	case "redis", "rediss", "unix":
		return raw, nil
	case "https", "http":
		host := u.Hostname()
		if host == "" {
			return "", fmt.Errorf("redis url %q has no host", raw)
		}
		out := url.URL{Scheme: "rediss", Host: net.JoinHostPort(host, "6379")}
		if token != "" {
			out.User = url.UserPassword("default", token)
		}
		if u.Scheme == "http" {
			out.Scheme = "redis"
		}
		return out.String(), nil
	default:
		return "", fmt.Errorf("unsupported redis url scheme %q", u.Scheme)
	}
}

// Ping checks connectivity with a short retry policy.
func Ping(ctx context.Context, c *goredis.Client, attempts int, log *zap.Logger) error {
	return retry.Do(ctx, func() error {
		return c.Ping(ctx).Err()
	}, retry.ConnectPolicy("redis.ping", attempts, log))
}
