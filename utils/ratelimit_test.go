package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterBurstAndRefill(t *testing.T) {
	rl := NewRateLimiter(3 * time.Minute)
	now := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("public:1.2.3.4", 3, now), "request %d", i)
	}
	assert.False(t, rl.Allow("public:1.2.3.4", 3, now))
	assert.True(t, rl.Allow("public:5.6.7.8", 3, now), "keys are independent")

	// 3 per minute refills one token every 20s.
	assert.True(t, rl.Allow("public:1.2.3.4", 3, now.Add(21*time.Second)))
	assert.False(t, rl.Allow("public:1.2.3.4", 3, now.Add(21*time.Second)))
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter(time.Minute)
	now := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)
	rl.Allow("a", 10, now)
	rl.Allow("b", 10, now.Add(50*time.Second))

	assert.Equal(t, 1, rl.Sweep(now.Add(90*time.Second)))
	assert.Equal(t, 1, rl.Sweep(now.Add(5*time.Minute)))
	assert.Equal(t, 0, rl.Sweep(now.Add(10*time.Minute)))
}

func TestRateLimiterZeroBudget(t *testing.T) {
	rl := NewRateLimiter(time.Minute)
	now := time.Now()
	assert.True(t, rl.Allow("k", 0, now))
	assert.False(t, rl.Allow("k", 0, now))
}
