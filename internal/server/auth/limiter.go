package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginLimiter applies a token bucket per identifier: burst attempts up
// front, refilled at one per interval. Idle entries are evicted periodically.
type LoginLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu    sync.Mutex
	byKey map[int64]*limiterEntry
	hits  uint64
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLoginLimiter returns nil (no throttling) when burst or interval is not
// positive.
func NewLoginLimiter(burst int, interval time.Duration) *LoginLimiter {
	if burst <= 0 || interval <= 0 {
		return nil
	}
	return &LoginLimiter{
		limit:   rate.Every(interval),
		burst:   burst,
		idleTTL: time.Duration(burst) * interval * 2,
		byKey:   make(map[int64]*limiterEntry),
	}
}

// Allow reports whether one more attempt for identifier is permitted at now.
func (l *LoginLimiter) Allow(identifier int64, now time.Time) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.byKey[identifier]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byKey[identifier] = e
	}
	e.lastSeen = now
	allowed := e.limiter.AllowN(now, 1)

	l.hits++
	if l.hits%512 == 0 {
		cutoff := now.Add(-l.idleTTL)
		for k, v := range l.byKey {
			if v.lastSeen.Before(cutoff) {
				delete(l.byKey, k)
			}
		}
	}

	return allowed
}

// Reset forgets identifier's history, restoring the full burst. Called after
// a successful login.
func (l *LoginLimiter) Reset(identifier int64) {
	if l == nil {
		return
	}
	l.mu.Lock()
	delete(l.byKey, identifier)
	l.mu.Unlock()
}

func (l *LoginLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byKey)
}
