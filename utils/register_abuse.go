package utils

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/expertqa/config"
)

var (
	regCounters   = map[string]regCounter{}
	regCountersMu sync.Mutex
)

type regCounter struct {
	n         int
	expiresAt time.Time
}

func regKey(parts ...string) string {
	return "expertqa:reg:" + strings.Join(parts, ":")
}

func endOfDay(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}

// memCounterLocked returns the live in-memory counter for key, dropping expired ones.
func memCounterLocked(key string, now time.Time) regCounter {
	c, ok := regCounters[key]
	if !ok || !now.Before(c.expiresAt) {
		delete(regCounters, key)
		return regCounter{}
	}
	return c
}

// RegistrationCooldownTry enforces a short cooldown between attempts per IP.
func RegistrationCooldownTry(ip string) bool {
	sec := config.Get().RegisterAttemptCooldownSec
	if sec <= 0 {
		return true
	}
	ttl := time.Duration(sec) * time.Second
	key := regKey("cooldown", ip)
	if cli := GetRedis(); cli != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		ok, err := cli.SetNX(ctx, key, "1", ttl).Result()
		if err == nil {
			return ok
		}
	}
	now := time.Now()
	regCountersMu.Lock()
	defer regCountersMu.Unlock()
	if memCounterLocked(key, now).n > 0 {
		return false
	}
	regCounters[key] = regCounter{n: 1, expiresAt: now.Add(ttl)}
	return true
}

// RegistrationDailyLimitCheck allows up to N successful registrations per day per IP.
func RegistrationDailyLimitCheck(ip string) bool {
	limit := config.Get().RegisterMaxPerIPPerDay
	if limit <= 0 {
		return true
	}
	now := time.Now()
	key := regKey("succday", ip, now.Format("20060102"))
	if cli := GetRedis(); cli != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		n, err := cli.Get(ctx, key).Int()
		if err == nil || err == redis.Nil {
			return n < limit
		}
	}
	regCountersMu.Lock()
	defer regCountersMu.Unlock()
	return memCounterLocked(key, now).n < limit
}

// RegistrationDailyIncrement increments the success counter for today.
func RegistrationDailyIncrement(ip string) {
	now := time.Now()
	key := regKey("succday", ip, now.Format("20060102"))
	if cli := GetRedis(); cli != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		if err := cli.Incr(ctx, key).Err(); err == nil {
			_ = cli.ExpireAt(ctx, key, endOfDay(now)).Err()
			return
		}
	}
	regCountersMu.Lock()
	defer regCountersMu.Unlock()
	c := memCounterLocked(key, now)
	c.n++
	c.expiresAt = endOfDay(now)
	regCounters[key] = c
}
