package lock

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/studiobook/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("lock",
	fx.Provide(NewRedisClient),
	fx.Provide(provideRedisLocker),
	fx.Provide(provideSubjectLocker),
)

// NewRedisClient returns nil when no component is configured to use redis.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	if !cfg.RedisRequired() {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis unreachable at startup", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client
}

func provideRedisLocker(cfg config.Config, client *redis.Client) *RedisLocker {
	if !cfg.Lock.Enabled {
		return nil
	}
	return NewRedisLocker(client)
}

func provideSubjectLocker(cfg config.Config, remote *RedisLocker, log *zap.Logger) *SubjectLocker {
	return NewSubjectLocker(remote, SubjectLockerConfig{
		TTL:  time.Duration(cfg.Lock.TTLSeconds) * time.Second,
		Wait: time.Duration(cfg.Lock.WaitMillis) * time.Millisecond,
	}, log)
}
