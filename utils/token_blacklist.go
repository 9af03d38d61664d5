package utils

import (
	"context"
	"sync"
	"time"
)

const blacklistKeyPrefix = "expertqa:jwt:revoked:"

var (
	blacklist   = map[string]time.Time{}
	blacklistMu sync.RWMutex
)

// BlacklistToken revokes a token id until its natural expiration to support logout semantics.
func BlacklistToken(tokenID string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if tokenID == "" || ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, blacklistKeyPrefix+tokenID, "1", ttl).Err(); err == nil {
			return
		}
		S().Warnf("redis revoke failed, keeping token id in memory id=%s", tokenID)
	}
	blacklistMu.Lock()
	sweepBlacklistLocked(time.Now())
	blacklist[tokenID] = expiresAt
	blacklistMu.Unlock()
}

// IsTokenBlacklisted checks if a token id was revoked before natural expiration.
func IsTokenBlacklisted(tokenID string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := rc.Exists(ctx, blacklistKeyPrefix+tokenID).Result()
		if err == nil && n > 0 {
			return true
		}
	}
	blacklistMu.RLock()
	expiresAt, ok := blacklist[tokenID]
	blacklistMu.RUnlock()
	return ok && time.Now().Before(expiresAt)
}

func sweepBlacklistLocked(now time.Time) {
	for id, exp := range blacklist {
		if !now.Before(exp) {
			delete(blacklist, id)
		}
	}
}
