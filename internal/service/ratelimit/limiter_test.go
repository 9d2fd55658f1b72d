package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter() (*Limiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)}
	l := NewLimiter(5, 15*time.Minute)
	l.SetClock(clock.Now)
	return l, clock
}

func TestAllow_FiveAllowedSixthDenied(t *testing.T) {
	l, clock := newTestLimiter()
	key := LoginKey("10.0.0.1")

	for i := 1; i <= 5; i++ {
		d := l.Allow(key)
		require.Truef(t, d.Allowed, "attempt %d should be allowed", i)
		clock.Advance(time.Second)
	}

	d := l.Allow(key)
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, 0)
	assert.LessOrEqual(t, d.RetryAfter, 900)
	assert.Equal(t, 895, d.RetryAfter)
}

func TestAllow_DeniedAttemptsStillCount(t *testing.T) {
	l, clock := newTestLimiter()
	key := LoginKey("10.0.0.1")

	for i := 0; i < 8; i++ {
		l.Allow(key)
	}
	clock.Advance(10 * time.Minute)
	d := l.Allow(key)
	assert.False(t, d.Allowed)
	assert.Equal(t, 300, d.RetryAfter)
}

func TestAllow_ResetsAfterWindow(t *testing.T) {
	l, clock := newTestLimiter()
	key := LoginKey("10.0.0.1")

	for i := 0; i < 6; i++ {
		l.Allow(key)
	}

	clock.Advance(15 * time.Minute)
	assert.False(t, l.Allow(key).Allowed, "window boundary itself is still inside the window")

	clock.Advance(time.Millisecond)
	assert.True(t, l.Allow(key).Allowed)
	for i := 2; i <= 5; i++ {
		assert.True(t, l.Allow(key).Allowed)
	}
	assert.False(t, l.Allow(key).Allowed)
}

func TestAllow_RetryAfterRoundsUp(t *testing.T) {
	l, clock := newTestLimiter()
	key := LoginKey("10.0.0.1")

	for i := 0; i < 5; i++ {
		l.Allow(key)
	}
	clock.Advance(14*time.Minute + 59*time.Second + 500*time.Millisecond)
	d := l.Allow(key)
	assert.False(t, d.Allowed)
	assert.Equal(t, 1, d.RetryAfter)
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter()
	for i := 0; i < 6; i++ {
		l.Allow(LoginKey("10.0.0.1"))
	}
	assert.False(t, l.Allow(LoginKey("10.0.0.1")).Allowed)
	assert.True(t, l.Allow(LoginKey("10.0.0.2")).Allowed)
}

func TestSweep_RemovesOnlyExpired(t *testing.T) {
	l, clock := newTestLimiter()
	l.Allow(LoginKey("old"))
	clock.Advance(10 * time.Minute)
	l.Allow(LoginKey("fresh"))
	clock.Advance(6 * time.Minute)

	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())

	for i := 0; i < 5; i++ {
		l.Allow(LoginKey("fresh"))
	}
	assert.False(t, l.Allow(LoginKey("fresh")).Allowed, "sweep must not reset a live window")
}

func TestAllow_Concurrent(t *testing.T) {
	l, _ := newTestLimiter()
	key := LoginKey("10.0.0.9")

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow(key).Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, allowed)
}
