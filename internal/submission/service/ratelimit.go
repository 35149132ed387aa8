package service

import (
	"context"
	"fmt"
	"time"

	"codeverse/internal/common/cache"
)

const (
	cooldownKeyPrefix  = "submit:cooldown:"
	defaultCooldownTTL = 10 * time.Second
)

// CooldownLimiter spaces scored submissions per user with a fixed
// cooldown window. The window is enforced with an atomic set-if-absent
// so two concurrent requests can never both pass.
type CooldownLimiter struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewCooldownLimiter creates a limiter with a 10-second window.
func NewCooldownLimiter(cacheClient cache.Cache) *CooldownLimiter {
	return NewCooldownLimiterWithTTL(cacheClient, defaultCooldownTTL)
}

// NewCooldownLimiterWithTTL creates a limiter with a custom window.
func NewCooldownLimiterWithTTL(cacheClient cache.Cache, ttl time.Duration) *CooldownLimiter {
	if ttl <= 0 {
		ttl = defaultCooldownTTL
	}
	return &CooldownLimiter{cache: cacheClient, ttl: ttl}
}

// Allow reports whether the user may submit now. The first call in a
// window claims the cooldown key; later calls are denied until the key
// expires on its own.
func (l *CooldownLimiter) Allow(ctx context.Context, userID int64) (bool, error) {
	key := fmt.Sprintf("%s%d", cooldownKeyPrefix, userID)
	claimed, err := l.cache.SetNX(ctx, key, "1", l.ttl)
	if err != nil {
		return false, err
	}
	return claimed, nil
}
