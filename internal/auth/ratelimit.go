package auth

import (
	"sync"
	"time"
)

const (
	DefaultRateInterval = time.Second
	sweepEvery          = 1024
)

// RateLimiter allows at most one action per key per interval. It is
// process-local: state resets on restart and is not shared between replicas.
type RateLimiter struct {
	interval time.Duration
	now      func() time.Time

	mu    sync.Mutex
	last  map[string]time.Time
	calls int
}

func NewRateLimiter(interval time.Duration) *RateLimiter {
	if interval <= 0 {
		interval = DefaultRateInterval
	}
	return &RateLimiter{
		interval: interval,
		now:      time.Now,
		last:     make(map[string]time.Time),
	}
}

func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if last, ok := l.last[key]; ok && now.Sub(last) < l.interval {
		return false
	}
	l.last[key] = now

	l.calls++
	if l.calls >= sweepEvery {
		l.calls = 0
		for k, t := range l.last {
			if now.Sub(t) >= l.interval {
				delete(l.last, k)
			}
		}
	}
	return true
}
