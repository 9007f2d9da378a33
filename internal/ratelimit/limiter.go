package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per API client
type Limiter struct {
	clients map[string]*client
	mu      sync.Mutex
	rate    rate.Limit
	burst   int
	perHour int
	now     func() time.Time
}

// NewLimiter creates a new rate limiter
// requestsPerHour: requests allowed per hour per client (e.g., 100)
// burst: max requests in a burst (e.g., 10)
func NewLimiter(requestsPerHour int, burst int) *Limiter {
	return &Limiter{
		clients: make(map[string]*client),
		rate:    rate.Limit(float64(requestsPerHour) / 3600.0),
		burst:   burst,
		perHour: requestsPerHour,
		now:     time.Now,
	}
}

// Limit returns the configured requests per hour
func (l *Limiter) Limit() int {
	return l.perHour
}

// GetLimiter returns the bucket for a client, creating it on first use
func (l *Limiter) GetLimiter(clientKey string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, exists := l.clients[clientKey]
	if !exists {
		c = &client{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.clients[clientKey] = c
	}
	c.lastSeen = l.now()

	return c.limiter
}

// Allow reports whether the client may make a request now
func (l *Limiter) Allow(clientKey string) bool {
	return l.GetLimiter(clientKey).AllowN(l.now(), 1)
}

// Tokens returns the tokens currently left for a client
func (l *Limiter) Tokens(clientKey string) float64 {
	return l.GetLimiter(clientKey).TokensAt(l.now())
}

// Prune drops clients idle for longer than idle and returns how many went.
func (l *Limiter) Prune(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-idle)
	removed := 0
	for key, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}
