package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegistrationCooldownInMemory(t *testing.T) {
	assert.True(t, RegistrationCooldownTry("198.51.100.1"))
	assert.False(t, RegistrationCooldownTry("198.51.100.1"))
	assert.True(t, RegistrationCooldownTry("198.51.100.2"))
}

func TestRegistrationDailyLimitInMemory(t *testing.T) {
	ip := "198.51.100.3"
	// default cap is 20 per day
	for i := 0; i < 20; i++ {
		assert.True(t, RegistrationDailyLimitCheck(ip))
		RegistrationDailyIncrement(ip)
	}
	assert.False(t, RegistrationDailyLimitCheck(ip))
	assert.True(t, RegistrationDailyLimitCheck("198.51.100.4"))
}

func TestEndOfDay(t *testing.T) {
	now := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), endOfDay(now))
}
