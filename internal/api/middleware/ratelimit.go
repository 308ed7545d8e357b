package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	appErr "github.com/taakra/engine/pkg/errors"
	"golang.org/x/time/rate"
)

const (
	visitorTTL      = 10 * time.Minute
	visitorGCPeriod = 5 * time.Minute
)

type limiterEntry struct {
	limiter *rate.Limiter
	last    time.Time
}

// RateLimiter is an IP-keyed token bucket limiter.
type RateLimiter struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	visitors map[string]*limiterEntry
	lastGC   time.Time
}

// NewRateLimiter returns a limiter; rps <= 0 disables limiting.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		visitors: map[string]*limiterEntry{},
		lastGC:   time.Now(),
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Allow reports whether key may make another request now.
func (l *RateLimiter) Allow(key string) bool {
	if l.rps <= 0 {
		return true
	}
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastGC) > visitorGCPeriod {
		for k, v := range l.visitors {
			if now.Sub(v.last) > visitorTTL {
				delete(l.visitors, k)
			}
		}
		l.lastGC = now
	}

	le, ok := l.visitors[key]
	if !ok {
		le = &limiterEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[key] = le
	}
	le.last = now
	return le.limiter.AllowN(now, 1)
}

func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", "1")
			writeCode(w, r, appErr.CodeTooManyRequests, "Too many requests, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}
