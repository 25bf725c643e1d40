package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/zhangyunhao116/skipmap"
	"golang.org/x/time/rate"

	"principal-registry/internal/domain"
)

// RateLimitConfig holds configuration for the rate limiter middleware.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit (tokens added per second).
	RequestsPerSecond float64
	// Burst is the maximum number of requests allowed in a burst.
	Burst int
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// RateLimiter enforces a per-client token-bucket limit and answers 429 when
// it is exceeded. Authenticated callers are keyed by email, anonymous ones by
// remote IP. Idle client entries are swept until ctx is done.
func RateLimiter(ctx context.Context, cfg RateLimitConfig) func(http.Handler) http.Handler {
	clients := skipmap.NewString[*clientLimiter]()

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-10 * time.Minute).UnixNano()
				clients.Range(func(key string, cl *clientLimiter) bool {
					if cl.lastSeen.Load() < cutoff {
						clients.Delete(key)
					}
					return true
				})
			}
		}
	}()

	getLimiter := func(key string) *rate.Limiter {
		cl, _ := clients.LoadOrStoreLazy(key, func() *clientLimiter {
			return &clientLimiter{limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)}
		})
		cl.lastSeen.Store(time.Now().UnixNano())
		return cl.limiter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := getLimiter(clientKey(r))

			reservation := limiter.Reserve()
			if !reservation.OK() {
				writeTooManyRequests(w, 0)
				return
			}
			if delay := reservation.Delay(); delay > 0 {
				reservation.Cancel()
				writeTooManyRequests(w, int(delay.Seconds())+1)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Burst))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey identifies the rate-limit bucket. X-Forwarded-For is ignored so
// the limit cannot be bypassed by header spoofing.
func clientKey(r *http.Request) string {
	if c, ok := domain.CallerFromContext(r.Context()); ok && c.Email != "" {
		return "caller:" + c.Email
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}

func writeTooManyRequests(w http.ResponseWriter, retryAfterSecs int) {
	if retryAfterSecs > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSecs))
	}
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
}
