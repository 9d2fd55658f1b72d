package ratelimit

import (
	"math"
	"sync"
	"time"

	"babettepos/internal/metrics"
)

const (
	DefaultMaxAttempts = 5
	DefaultWindow      = 15 * time.Minute
)

// Decision is the outcome of one attempt. RetryAfter is in whole seconds and
// only set when the attempt is denied.
type Decision struct {
	Allowed    bool
	RetryAfter int
}

type bucket struct {
	attempts  int
	resetTime time.Time
}

// Limiter is a fixed-window attempt counter keyed by an arbitrary string.
// Every call counts, including the denied ones; the window does not slide.
type Limiter struct {
	mu          sync.Mutex
	maxAttempts int
	window      time.Duration
	now         func() time.Time
	buckets     map[string]*bucket
}

func NewLimiter(maxAttempts int, window time.Duration) *Limiter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
		buckets:     make(map[string]*bucket),
	}
}

// SetClock overrides the time source.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// LoginKey namespaces a client IP for the login endpoint.
func LoginKey(ip string) string {
	return "login:" + ip
}

// Allow records an attempt for key and reports whether it may proceed.
func (l *Limiter) Allow(key string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok || now.After(b.resetTime) {
		l.buckets[key] = &bucket{attempts: 1, resetTime: now.Add(l.window)}
		metrics.LoginDecision(true)
		return Decision{Allowed: true}
	}

	b.attempts++
	if b.attempts > l.maxAttempts {
		metrics.LoginDecision(false)
		return Decision{Allowed: false, RetryAfter: retryAfterSeconds(b.resetTime.Sub(now))}
	}
	metrics.LoginDecision(true)
	return Decision{Allowed: true}
}

// Sweep drops buckets whose window has passed. A dropped bucket and an
// expired one produce the same decision on the next attempt.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, b := range l.buckets {
		if now.After(b.resetTime) {
			delete(l.buckets, key)
			removed++
		}
	}
	metrics.SetRateLimitBuckets(len(l.buckets))
	return removed
}

func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func retryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
