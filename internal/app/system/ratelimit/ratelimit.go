// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/grouphub/internal/app/system/httpjson"
	wratelimit "github.com/dalemusser/waffle/pantry/ratelimit"
)

// Limiter counts attempts per key in fixed windows and can forget a key on
// Reset. AccountLimiter builds on it. It is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int
	duration time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type window struct {
	count     int
	expiresAt time.Time
}

// New creates a limiter allowing limit requests per duration for each key.
// Call Stop to end the background cleanup.
func New(limit int, duration time.Duration) *Limiter {
	l := &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go l.cleanupLoop(duration * 2)
	return l
}

// Allow records a request for key and reports whether it is within the limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.After(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.duration)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// Remaining returns how many requests key has left in its current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || l.now().After(w.expiresAt) {
		return l.limit
	}
	if r := l.limit - w.count; r > 0 {
		return r
	}
	return 0
}

// Reset clears key, e.g. after a successful login.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// Stop ends the cleanup goroutine.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			now := l.now()
			for k, w := range l.windows {
				if now.After(w.expiresAt) {
					delete(l.windows, k)
				}
			}
			l.mu.Unlock()
		}
	}
}

// ClientIP extracts the client IP, preferring proxy headers.
func ClientIP(r *http.Request) string {
	ip := strings.TrimSpace(wratelimit.IPKeyFunc(r))
	return strings.TrimSuffix(strings.TrimPrefix(ip, "["), "]")
}

// IPLimiter is a per-address token bucket holding perMinute tokens and
// refilling them over a minute.
type IPLimiter struct {
	kl *wratelimit.KeyLimiter
}

// NewIPLimiter returns an IPLimiter. Idle addresses are forgotten after 10 minutes.
func NewIPLimiter(perMinute int) *IPLimiter {
	return &IPLimiter{kl: wratelimit.NewKeyLimiter(float64(perMinute)/60, perMinute, 10*time.Minute)}
}

// Tracked returns the number of addresses currently held.
func (l *IPLimiter) Tracked() int { return l.kl.Size() }

// PerIP rejects requests with 429 once the client IP runs out of tokens.
func PerIP(l *IPLimiter) func(http.Handler) http.Handler {
	return wratelimit.MiddlewareWithLimiter(l.kl, wratelimit.Config{
		KeyFunc: ClientIP,
		OnLimited: func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "60")
			httpjson.Message(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please wait a minute before trying again.")
		},
	})
}

// AccountLimiter limits attempts against a single email address across IPs.
type AccountLimiter struct {
	l *Limiter
}

// NewAccountLimiter allows limit attempts per email per duration.
func NewAccountLimiter(limit int, duration time.Duration) *AccountLimiter {
	return &AccountLimiter{l: New(limit, duration)}
}

// Allow records an attempt for email.
func (a *AccountLimiter) Allow(email string) bool {
	if a == nil || email == "" {
		return true
	}
	return a.l.Allow(strings.ToLower(strings.TrimSpace(email)))
}

// Reset clears the attempts for email.
func (a *AccountLimiter) Reset(email string) {
	if a == nil || email == "" {
		return
	}
	a.l.Reset(strings.ToLower(strings.TrimSpace(email)))
}

// Stop ends the cleanup goroutine.
func (a *AccountLimiter) Stop() {
	if a != nil {
		a.l.Stop()
	}
}
