package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/kado/internal/config"
)

const (
	keyTriggerGlobal = "trigger:check_birthdays"
	keyTriggerCaller = "trigger:check_birthdays:caller:%s"

	// A manual tick is an operational recovery tool, not an API: one token
	// every 10 seconds, small burst.
	triggerGlobalRate  = 0.1
	triggerGlobalBurst = 3
	triggerCallerRate  = 0.05
	triggerCallerBurst = 2
)

// TriggerLimiter throttles the manual scheduler trigger endpoint. Nil when
// redis is not configured; callers treat that as allow-all.
type TriggerLimiter struct {
	enabled bool
	bucket  *TokenBucket
}

func NewTriggerLimiter(client *redis.Client) *TriggerLimiter {
	if client == nil {
		return nil
	}
	return &TriggerLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
	}
}

func (l *TriggerLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *TriggerLimiter) AllowGlobal(ctx context.Context) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, keyTriggerGlobal, triggerGlobalRate, triggerGlobalBurst)
}

func (l *TriggerLimiter) AllowCaller(ctx context.Context, callerKeyID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyTriggerCaller, strings.TrimSpace(callerKeyID))
	return l.bucket.Allow(ctx, key, triggerCallerRate, triggerCallerBurst)
}

// NewRedisClient builds the shared redis client, or nil when no address is
// configured. The scheduler leader lock and the trigger limiter both degrade
// gracefully without it.
func NewRedisClient(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}
