// Package redis connects the optional Redis instance used for job locks.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/ptamhub/billing/pkg/config"
)

var ErrNotReady = errors.New("redis is not ready")

const (
	connectTimeout = 10 * time.Second
	retryAttempts  = 3
	retryInterval  = time.Second
)

// Connect parses url and pings until the server answers or attempts run out.
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	opt, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	for range retryAttempts {
		client := goredis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrNotReady, ctx.Err())
		case <-time.After(retryInterval):
		}
	}
	return nil, ErrNotReady
}

// NewLocker returns a Redis-backed locker, or a no-op one when redis.url is empty.
func NewLocker(lc fx.Lifecycle, cfg *config.Config, log *zap.SugaredLogger) (Locker, error) {
	if cfg.Redis.URL == "" {
		log.Infow("redis not configured, job locks disabled")
		return NoopLocker{}, nil
	}
	client, err := Connect(context.Background(), cfg.Redis.URL)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return client.Close() }})
	return NewRedisLocker(client), nil
}

var Module = fx.Options(
	fx.Provide(NewLocker),
)
