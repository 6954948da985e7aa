/*
Package limiter provides connection rate limiting keyed by client IP address.

It uses the token bucket algorithm (rate.Limiter) to control how often each
IP may open a connection, and runs a cleanup goroutine that periodically
drops idle limiters to keep the map from growing without bound.
*/
package limiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// cleanupInterval is how often idle per-IP limiters are swept.
const cleanupInterval = 10 * time.Minute

// IPRateLimiter hands out one token-bucket limiter per client IP.
type IPRateLimiter struct {
	// mu protects concurrent access to the limits map.
	mu sync.Mutex

	// limits maps client IP address to its limiter and last-use time.
	limits map[string]*ipLimiter

	// r is the sustained rate, in events per second.
	r rate.Limit

	// b is the burst size of each bucket.
	b int
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPRateLimiter creates an IPRateLimiter with rate r and burst b and
// starts the background cleanup goroutine.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	l := &IPRateLimiter{
		limits: make(map[string]*ipLimiter),
		r:      r,
		b:      b,
	}

	go l.cleanupLoop()

	return l
}

// GetLimiter returns the limiter for the given IP, creating one on first use.
func (l *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.limits[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(l.r, l.b)}
		l.limits[ip] = entry
	}
	entry.lastSeen = time.Now()

	return entry.limiter
}

// cleanupLoop periodically removes limiters that have been idle for longer
// than the cleanup interval.
func (l *IPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-cleanupInterval)

		l.mu.Lock()
		for ip, entry := range l.limits {
			if entry.lastSeen.Before(cutoff) {
				delete(l.limits, ip)
			}
		}
		l.mu.Unlock()
	}
}
