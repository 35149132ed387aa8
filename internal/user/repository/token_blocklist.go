package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"codeverse/internal/common/cache"
)

const tokenBlockKeyPrefix = "token:block:"

// TokenBlocklist tracks revoked session tokens until their original
// expiry, so a logged-out token cannot be replayed.
type TokenBlocklist interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// CacheTokenBlocklist implements TokenBlocklist on the shared cache.
// Tokens are stored hashed; expiry rides on the key's TTL so no
// cleanup pass is needed.
type CacheTokenBlocklist struct {
	cache cache.Cache
}

// NewCacheTokenBlocklist creates a token blocklist.
func NewCacheTokenBlocklist(cacheClient cache.Cache) *CacheTokenBlocklist {
	return &CacheTokenBlocklist{cache: cacheClient}
}

// Revoke blocks the token until expiresAt.
func (b *CacheTokenBlocklist) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	if token == "" {
		return errors.New("token is required")
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Already expired, nothing to block.
		return nil
	}
	return b.cache.Set(ctx, tokenBlockKey(token), "revoked", ttl)
}

// IsRevoked reports whether the token has been blocked.
func (b *CacheTokenBlocklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	n, err := b.cache.Exists(ctx, tokenBlockKey(token))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func tokenBlockKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return tokenBlockKeyPrefix + hex.EncodeToString(sum[:])
}

func solvedSetKey(userID int64) string {
	return "user:solved:" + strconv.FormatInt(userID, 10)
}
