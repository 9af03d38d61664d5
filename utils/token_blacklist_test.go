package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBlacklistInMemory(t *testing.T) {
	assert.False(t, IsTokenBlacklisted("token-a"))

	BlacklistToken("token-a", time.Now().Add(time.Hour))
	assert.True(t, IsTokenBlacklisted("token-a"))
	assert.False(t, IsTokenBlacklisted("token-b"))
}

func TestBlacklistIgnoresExpiredTokens(t *testing.T) {
	BlacklistToken("token-old", time.Now().Add(-time.Second))
	assert.False(t, IsTokenBlacklisted("token-old"))

	BlacklistToken("", time.Now().Add(time.Hour))
	assert.False(t, IsTokenBlacklisted(""))
}

func TestSweepBlacklistDropsLapsedEntries(t *testing.T) {
	now := time.Now()
	blacklistMu.Lock()
	blacklist["lapsed"] = now.Add(-time.Minute)
	blacklist["live"] = now.Add(time.Minute)
	sweepBlacklistLocked(now)
	_, lapsed := blacklist["lapsed"]
	_, live := blacklist["live"]
	blacklistMu.Unlock()

	assert.False(t, lapsed)
	assert.True(t, live)
}
