package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/studiobook/internal/config"
	"go.uber.org/zap"
)

const keyManualEvaluate = "gamification:evaluate:manual:%s:%d"

// EvaluateLimiter throttles on-demand evaluations of a single subject.
// A nil or disabled limiter allows everything.
type EvaluateLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
	log    *zap.Logger
}

func NewEvaluateLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) *EvaluateLimiter {
	if !cfg.RateLimit.Enabled || client == nil {
		return nil
	}
	if cfg.RateLimit.ManualEvaluateRate <= 0 || cfg.RateLimit.ManualEvaluateBurst <= 0 {
		log.Warn("manual evaluate rate limit disabled: rate and burst must be positive")
		return nil
	}
	return &EvaluateLimiter{
		bucket: NewTokenBucket(client),
		rate:   cfg.RateLimit.ManualEvaluateRate,
		burst:  cfg.RateLimit.ManualEvaluateBurst,
		log:    log.Named("ratelimit.evaluate"),
	}
}

func (l *EvaluateLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// Allow fails open: a redis error lets the request through and is logged.
func (l *EvaluateLimiter) Allow(ctx context.Context, role string, subjectID int64) *RateLimitResult {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}
	}
	key := fmt.Sprintf(keyManualEvaluate, strings.TrimSpace(role), subjectID)
	res, err := l.bucket.Allow(ctx, key, l.rate, l.burst)
	if err != nil {
		l.log.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
		return &RateLimitResult{Allowed: true}
	}
	return res
}
