package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/darkden-lab/portalhost/internal/httputil"
)

// RateLimitOptions configures the per-client limiter.
type RateLimitOptions struct {
	// RPS is the sustained rate and Burst the bucket size.
	RPS   float64
	Burst int
	// Exempt lists path prefixes that are never limited, such as health checks
	// and long lived session upgrades.
	Exempt []string
	// IdleTTL drops a client's bucket after this long without requests.
	IdleTTL time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterSet struct {
	opts RateLimitOptions

	mu      sync.Mutex
	buckets map[string]*bucket
	sweptAt time.Time
}

func (s *limiterSet) take(client string, now time.Time) (bool, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.sweptAt) > s.opts.IdleTTL {
		for k, b := range s.buckets {
			if now.Sub(b.lastSeen) > s.opts.IdleTTL {
				delete(s.buckets, k)
			}
		}
		s.sweptAt = now
	}

	b, ok := s.buckets[client]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(s.opts.RPS), s.opts.Burst)}
		s.buckets[client] = b
	}
	b.lastSeen = now

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (s *limiterSet) exempt(path string) bool {
	for _, p := range s.opts.Exempt {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// clientIP returns the peer address of the request. X-Forwarded-For is not
// trusted since any client can set it.
func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// RateLimitMiddleware enforces a token bucket per client IP. Rejected
// requests get 429 with a Retry-After hint in whole seconds.
func RateLimitMiddleware(opts RateLimitOptions) mux.MiddlewareFunc {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 3 * time.Minute
	}
	set := &limiterSet{opts: opts, buckets: make(map[string]*bucket)}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if set.exempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			ok, wait := set.take(clientIP(r), time.Now())
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				httputil.WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
