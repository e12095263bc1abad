package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/crudforge/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const keyLoginClient = "crudforge:login:%s:%s"

// Allower is the bucket contract the login limiter depends on.
type Allower interface {
	Allow(ctx context.Context, key string, rate float64, burst int) (*RateLimitResult, error)
}

// LoginLimiter throttles POST /token per organization and client address.
// A nil limiter allows everything.
type LoginLimiter struct {
	bucket Allower
	rate   float64
	burst  int
	log    *zap.Logger
}

// NewLoginLimiter returns nil when rate limiting is disabled.
func NewLoginLimiter(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*LoginLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.LoginRate <= 0 || limitCfg.LoginBurst <= 0 {
		return nil, errors.New("login rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})
	if lc != nil {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := client.Ping(ctx).Err(); err != nil {
					log.Warn("rate limit redis unreachable, logins will not be throttled", zap.String("addr", addr), zap.Error(err))
				}
				return nil
			},
			OnStop: func(context.Context) error {
				return client.Close()
			},
		})
	}

	return NewLoginLimiterWith(NewTokenBucket(client), limitCfg.LoginRate, limitCfg.LoginBurst, log), nil
}

func NewLoginLimiterWith(bucket Allower, rate float64, burst int, log *zap.Logger) *LoginLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoginLimiter{
		bucket: bucket,
		rate:   rate,
		burst:  burst,
		log:    log.Named("ratelimit.login"),
	}
}

// Allow consumes one token for the org/client pair. Redis failures fail open.
func (l *LoginLimiter) Allow(ctx context.Context, orgID, client string) *RateLimitResult {
	if l == nil || l.bucket == nil {
		return &RateLimitResult{Allowed: true}
	}

	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keyLoginClient, keyPart(orgID), keyPart(client)), l.rate, l.burst)
	if err != nil {
		l.log.Warn("login rate limit check failed", zap.Error(err))
		return &RateLimitResult{Allowed: true, Limit: l.burst}
	}
	return res
}

func keyPart(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}
